package eventhub

import "testing"

func TestDeviceClassHasAndString(t *testing.T) {
	c := ClassGamepad | ClassJoystick
	if !c.Has(ClassGamepad) {
		t.Error("expected ClassGamepad to be present")
	}
	if c.Has(ClassTouch) {
		t.Error("did not expect ClassTouch to be present")
	}
	if DeviceClass(0).String() != "none" {
		t.Errorf("zero class should stringify to none, got %q", DeviceClass(0).String())
	}
	if s := c.String(); s == "" {
		t.Error("non-zero class should have a non-empty string form")
	}
}

func TestGetAbsAxisUsagePriority(t *testing.T) {
	cases := []struct {
		classes DeviceClass
		want    DeviceClass
	}{
		{ClassTouchMt | ClassTouch | ClassJoystick | ClassCursor, ClassTouchMt},
		{ClassTouch | ClassJoystick | ClassCursor, ClassTouch},
		{ClassJoystick | ClassCursor, ClassJoystick},
		{ClassCursor, ClassCursor},
		{0, 0},
	}
	for _, c := range cases {
		if got := GetAbsAxisUsage(0, c.classes); got != c.want {
			t.Errorf("GetAbsAxisUsage(classes=%v) = %v, want %v", c.classes, got, c.want)
		}
	}
}

func TestLoadDevicePropertiesMissingFileIsNotAnError(t *testing.T) {
	props, err := LoadDeviceProperties(t.TempDir(), "no-such-descriptor")
	if err != nil {
		t.Fatalf("missing device config should not error: %v", err)
	}
	if props != nil {
		t.Errorf("expected nil properties for a missing config, got %v", props)
	}
}
