package evdev

import "testing"

func TestIsAlphaKeyCode(t *testing.T) {
	alpha := []uint16{KEY_Q, KEY_P, KEY_A, KEY_L, KEY_Z, KEY_M}
	for _, c := range alpha {
		if !IsAlphaKeyCode(c) {
			t.Errorf("code %d should be classified as alphabetic", c)
		}
	}

	notAlpha := []uint16{0, 1, 2, KEY_A - 1, KEY_M + 1, KEY_CNT - 1}
	for _, c := range notAlpha {
		if IsAlphaKeyCode(c) {
			t.Errorf("code %d should not be classified as alphabetic", c)
		}
	}
}
