// Package config parses the event hub's directive-file configuration,
// in the same line-oriented, one-method-per-directive style as the
// teacher's ptt-fix config package.
package config

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed default
var defaultFile string

// DefaultInputDirectory and DefaultVideoDirectory are the well-known
// device directories scanned when the config doesn't override them
// (§6: "video_directory, input_directory: override default paths").
// DefaultVideoDirectory is the directory v4l-touch device nodes live
// in (AOSP scans /dev for a "v4l-touch" prefix, not a directory of
// that name); VideoDeviceNamePrefix is that filename prefix.
const (
	DefaultInputDirectory = "/dev/input"
	DefaultVideoDirectory = "/dev"
	VideoDeviceNamePrefix = "v4l-touch"
)

// Config is the parsed form of the event hub's configuration (§6).
type Config struct {
	ExcludedDevices []string
	VirtualKeyboard bool
	InputDirectory  string
	VideoDirectory  string
}

// DefaultFile returns the embedded default configuration text.
func DefaultFile() string {
	return defaultFile
}

// DefaultPath returns the conventional per-user config file location.
func DefaultPath() (string, error) {
	c, err := os.UserConfigDir()
	return filepath.Join(c, "eventhub", "config"), err
}

// Load reads and parses the config file at path.
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads directives from r, one per line, applying the hub's
// defaults for anything not explicitly set.
func Parse(r io.Reader) (Config, error) {
	c := Config{
		InputDirectory: DefaultInputDirectory,
		VideoDirectory: DefaultVideoDirectory,
	}

	var num int
	s := bufio.NewScanner(r)
	for s.Scan() {
		num++

		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		directive, rem, _ := strings.Cut(line, " ")
		rem = strings.TrimSpace(rem)

		var err error
		switch directive {
		case "excluded_devices":
			err = c.excludedDevices(rem)
		case "virtual_keyboard":
			err = c.virtualKeyboard(rem)
		case "input_directory":
			err = c.inputDirectory(rem)
		case "video_directory":
			err = c.videoDirectory(rem)
		default:
			return c, fmt.Errorf("unknown directive %q on line %v", directive, line)
		}
		if err != nil {
			return c, fmt.Errorf("line %v: %w", num, err)
		}
	}
	if err := s.Err(); err != nil {
		return c, fmt.Errorf("scan: %w", err)
	}

	return c, nil
}

func (c *Config) excludedDevices(str string) error {
	if _, err := filepath.Glob(str); err != nil {
		return fmt.Errorf("find excluded devices: %w", err)
	}
	// The pattern itself is kept, not its current matches, so that a
	// device plugged in later that matches it is excluded too.
	c.ExcludedDevices = append(c.ExcludedDevices, str)
	return nil
}

func (c *Config) virtualKeyboard(str string) error {
	v, err := strconv.ParseBool(str)
	if err != nil {
		return fmt.Errorf("parse virtual_keyboard: %w", err)
	}
	c.VirtualKeyboard = v
	return nil
}

func (c *Config) inputDirectory(str string) error {
	if str == "" {
		return fmt.Errorf("input_directory requires a path")
	}
	c.InputDirectory = str
	return nil
}

func (c *Config) videoDirectory(str string) error {
	if str == "" {
		return fmt.Errorf("video_directory requires a path")
	}
	c.VideoDirectory = str
	return nil
}

// IsExcluded reports whether path matches one of the configured
// excluded-device globs.
func (c *Config) IsExcluded(path string) bool {
	for _, pattern := range c.ExcludedDevices {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if pattern == path {
			return true
		}
	}
	return false
}
