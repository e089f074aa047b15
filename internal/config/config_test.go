package config_test

import (
	"strings"
	"testing"

	"eventhub.dev/eventhub/internal/config"
)

func TestParseDefaults(t *testing.T) {
	c, err := config.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if c.InputDirectory != config.DefaultInputDirectory {
		t.Errorf("input directory = %q, want %q", c.InputDirectory, config.DefaultInputDirectory)
	}
	if c.VideoDirectory != config.DefaultVideoDirectory {
		t.Errorf("video directory = %q, want %q", c.VideoDirectory, config.DefaultVideoDirectory)
	}
	if c.VirtualKeyboard {
		t.Error("virtual keyboard should default to false")
	}
}

func TestParseDirectives(t *testing.T) {
	const text = `
# comment
virtual_keyboard true
input_directory /tmp/fake-input
video_directory /tmp/fake-video
excluded_devices /tmp/fake-input/eventNOPE
`
	c, err := config.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if !c.VirtualKeyboard {
		t.Error("virtual keyboard should be true")
	}
	if c.InputDirectory != "/tmp/fake-input" {
		t.Errorf("input directory = %q", c.InputDirectory)
	}
	if c.VideoDirectory != "/tmp/fake-video" {
		t.Errorf("video directory = %q", c.VideoDirectory)
	}
	if !c.IsExcluded("/tmp/fake-input/eventNOPE") {
		t.Error("expected excluded device to be excluded")
	}
	if c.IsExcluded("/tmp/fake-input/event0") {
		t.Error("unrelated device should not be excluded")
	}
}

func TestParseUnknownDirective(t *testing.T) {
	_, err := config.Parse(strings.NewReader("bogus value"))
	if err == nil {
		t.Fatal("expected an error for an unknown directive")
	}
}
