package evdev

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestLe32(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	if got, want := le32(buf), uint32(0x04030201); got != want {
		t.Errorf("le32 = %#x, want %#x", got, want)
	}
}

func TestCString(t *testing.T) {
	if got, want := cString([]byte("event3\x00\x00")), "event3"; got != want {
		t.Errorf("cString = %q, want %q", got, want)
	}
	if got, want := cString([]byte("noterm")), "noterm"; got != want {
		t.Errorf("cString = %q, want %q", got, want)
	}
}

func TestPumpEventHasError(t *testing.T) {
	ok := PumpEvent{Events: unix.EPOLLIN}
	if ok.HasError() {
		t.Error("EPOLLIN alone should not report an error")
	}
	bad := PumpEvent{Events: unix.EPOLLHUP}
	if !bad.HasError() {
		t.Error("EPOLLHUP should report an error")
	}
	bad2 := PumpEvent{Events: unix.EPOLLIN | unix.EPOLLERR}
	if !bad2.HasError() {
		t.Error("EPOLLERR combined with EPOLLIN should report an error")
	}
}
