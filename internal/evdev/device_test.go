package evdev

import "testing"

func TestIsBitSet(t *testing.T) {
	bits := []byte{0b0000_0010, 0b0000_0001}
	if !isBitSet(bits, 1) {
		t.Error("bit 1 should be set")
	}
	if isBitSet(bits, 0) {
		t.Error("bit 0 should be clear")
	}
	if !isBitSet(bits, 8) {
		t.Error("bit 8 (start of second byte) should be set")
	}
	if isBitSet(bits, 1000) {
		t.Error("out-of-range bit should be false, not a panic")
	}
}

func TestFromNTString(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{[]byte("hello\x00\x00\x00"), "hello"},
		{[]byte("\x00\x00"), ""},
		{[]byte("nonul"), "nonul"},
	}
	for _, c := range cases {
		if got := fromNTString(c.in); got != c.want {
			t.Errorf("fromNTString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInputEventIs(t *testing.T) {
	ev := InputEvent{Type: EV_KEY, Code: KEY_A, Value: 1}
	if !ev.Is(EV_KEY, KEY_A) {
		t.Error("Is should match type and code")
	}
	if ev.Is(EV_KEY, KEY_L) {
		t.Error("Is should not match a different code")
	}
	if ev.Is(EV_ABS, KEY_A) {
		t.Error("Is should not match a different type")
	}
}
