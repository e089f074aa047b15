package eventhub

import "testing"

func TestBitMaskTestAndLoad(t *testing.T) {
	m := NewBitMask(40)
	m.LoadFromBuffer([]byte{0b0000_0010, 0, 0, 0, 0b0000_0001})

	if !m.Test(1) {
		t.Error("bit 1 should be set")
	}
	if m.Test(0) {
		t.Error("bit 0 should be clear")
	}
	if !m.Test(32) {
		t.Error("bit 32 (fifth byte, low bit) should be set")
	}
	if m.Test(1000) {
		t.Error("out-of-range bit should read false, not panic")
	}
}

func TestBitMaskAnyWithinWord(t *testing.T) {
	m := NewBitMask(32)
	m.LoadFromBuffer([]byte{0, 0b0000_0010, 0, 0}) // bit 9 set

	ok, err := m.Any(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("range [0,8) should not contain bit 9")
	}

	ok, err = m.Any(8, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("range [8,16) should contain bit 9")
	}
}

func TestBitMaskAnySpanningWords(t *testing.T) {
	m := NewBitMask(96)
	buf := make([]byte, 12)
	buf[8] = 0b0000_0001 // bit 64 set, in the third word
	m.LoadFromBuffer(buf)

	ok, err := m.Any(0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("range [0,64) should be empty")
	}

	ok, err = m.Any(0, 96)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("range [0,96) should contain bit 64")
	}
}

func TestBitMaskAnyInvalidRange(t *testing.T) {
	m := NewBitMask(16)
	if _, err := m.Any(8, 8); err == nil {
		t.Error("empty range should be an error")
	}
	if _, err := m.Any(4, 2); err == nil {
		t.Error("inverted range should be an error")
	}
	if _, err := m.Any(0, 100); err == nil {
		t.Error("out-of-range upper bound should be an error")
	}
}

func TestBitMaskWidth(t *testing.T) {
	m := NewBitMask(50)
	if m.Width() != 50 {
		t.Errorf("Width() = %d, want 50", m.Width())
	}
}
