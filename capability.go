package eventhub

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eventhub.dev/eventhub/internal/evdev"
)

// DeviceClass is a set of additive capability flags a device may carry
// at once (§3: "a gamepad-with-joystick carries both").
type DeviceClass uint32

const (
	ClassKeyboard DeviceClass = 1 << iota
	ClassAlphaKey
	ClassTouch
	ClassCursor
	ClassTouchMt
	ClassDpad
	ClassGamepad
	ClassSwitch
	ClassJoystick
	ClassVibrator
	ClassMic
	ClassExternalStylus
	ClassRotaryEncoder
	ClassVirtual
	ClassExternal
)

var classNames = [...]struct {
	class DeviceClass
	name  string
}{
	{ClassKeyboard, "Keyboard"},
	{ClassAlphaKey, "AlphaKey"},
	{ClassTouch, "Touch"},
	{ClassCursor, "Cursor"},
	{ClassTouchMt, "TouchMt"},
	{ClassDpad, "Dpad"},
	{ClassGamepad, "Gamepad"},
	{ClassSwitch, "Switch"},
	{ClassJoystick, "Joystick"},
	{ClassVibrator, "Vibrator"},
	{ClassMic, "Mic"},
	{ClassExternalStylus, "ExternalStylus"},
	{ClassRotaryEncoder, "RotaryEncoder"},
	{ClassVirtual, "Virtual"},
	{ClassExternal, "External"},
}

// Has reports whether every bit of want is set in c.
func (c DeviceClass) Has(want DeviceClass) bool {
	return c&want == want
}

func (c DeviceClass) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, e := range classNames {
		if c.Has(e.class) {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, "|")
}

// Capabilities is the output of a capability probe: a class set plus
// the raw bit-arrays it was derived from, kept around so later state
// queries can consult them (§4.3, §8 invariant 4).
type Capabilities struct {
	Classes DeviceClass

	KeyBits  *BitMask
	AbsBits  *BitMask
	RelBits  *BitMask
	SwBits   *BitMask
	LedBits  *BitMask
	FFBits   *BitMask
	PropBits *BitMask

	HasLED bool
}

// probeCapabilities runs the CapabilityProbe rules (§4.3) against an
// already-open evdev device, returning its class set and capability
// masks. Rules are evaluated exactly once, at open time (§9's "snapshot
// at open" resolution of the capability-drift open question).
func probeCapabilities(dev *evdev.Device) Capabilities {
	caps := Capabilities{
		KeyBits:  NewBitMask(evdev.KEY_CNT),
		AbsBits:  NewBitMask(evdev.ABS_CNT),
		RelBits:  NewBitMask(evdev.REL_CNT),
		SwBits:   NewBitMask(evdev.SW_CNT),
		LedBits:  NewBitMask(evdev.LED_CNT),
		FFBits:   NewBitMask(evdev.FF_CNT),
		PropBits: NewBitMask(evdev.INPUT_PROP_CNT),
	}
	caps.KeyBits.LoadFromBuffer(dev.KeyBits())
	caps.AbsBits.LoadFromBuffer(dev.AbsBits())
	caps.RelBits.LoadFromBuffer(dev.RelBits())
	caps.SwBits.LoadFromBuffer(dev.SwBits())
	caps.LedBits.LoadFromBuffer(dev.LedBits())
	caps.FFBits.LoadFromBuffer(dev.FFBits())
	caps.PropBits.LoadFromBuffer(dev.PropBits())

	// Rule 2: any key/button bit at or above BTN_MISC implies a keyboard;
	// the three QWERTY rows further imply an alphabetic one.
	if any, _ := caps.KeyBits.Any(evdev.BTN_MISC, evdev.KEY_MAX+1); any {
		caps.Classes |= ClassKeyboard
	}
	for code := uint16(0); code < evdev.KEY_CNT; code++ {
		if evdev.IsAlphaKeyCode(code) && caps.KeyBits.Test(uint(code)) {
			caps.Classes |= ClassAlphaKey
			break
		}
	}

	// Rule 3: touch vs. joystick vs. cursor, disambiguated by
	// INPUT_PROP_DIRECT and the presence of relative axes / mouse buttons.
	hasAbsXY := caps.AbsBits.Test(evdev.ABS_X) && caps.AbsBits.Test(evdev.ABS_Y)
	hasRelXY := caps.RelBits.Test(evdev.REL_X) && caps.RelBits.Test(evdev.REL_Y)
	hasMouseButtons := caps.KeyBits.Test(evdev.BTN_LEFT) || caps.KeyBits.Test(evdev.BTN_RIGHT) || caps.KeyBits.Test(evdev.BTN_MIDDLE)
	isDirect := caps.PropBits.Test(evdev.INPUT_PROP_DIRECT)

	switch {
	case isDirect && hasAbsXY:
		caps.Classes |= ClassTouch
		if caps.AbsBits.Test(evdev.ABS_MT_SLOT) {
			caps.Classes |= ClassTouchMt
		}
	case hasAbsXY && !hasMouseButtons:
		caps.Classes |= ClassJoystick
	case hasRelXY || hasMouseButtons:
		caps.Classes |= ClassCursor
	}

	// Rule 4: gamepad/dpad/joystick signature ranges, with implications.
	if any, _ := caps.KeyBits.Any(evdev.BTN_GAMEPAD, evdev.BTN_TRIGGER_HAPPY); any {
		caps.Classes |= ClassGamepad
	}
	if caps.KeyBits.Test(evdev.BTN_DPAD_UP) || caps.KeyBits.Test(evdev.BTN_DPAD_DOWN) ||
		caps.KeyBits.Test(evdev.BTN_DPAD_LEFT) || caps.KeyBits.Test(evdev.BTN_DPAD_RIGHT) ||
		caps.AbsBits.Test(evdev.ABS_HAT0X) || caps.AbsBits.Test(evdev.ABS_HAT0Y) {
		caps.Classes |= ClassDpad
	}
	if any, _ := caps.KeyBits.Any(evdev.BTN_JOYSTICK, evdev.BTN_GAMEPAD); any {
		caps.Classes |= ClassJoystick
	}
	if caps.Classes.Has(ClassJoystick) {
		caps.Classes |= ClassGamepad
	}
	if caps.Classes.Has(ClassDpad) || caps.Classes.Has(ClassGamepad) {
		caps.Classes |= ClassKeyboard
	}

	// Rule 5.
	if caps.FFBits.Test(evdev.FF_RUMBLE) {
		caps.Classes |= ClassVibrator
	}
	if any, _ := caps.LedBits.Any(0, evdev.LED_CNT); any {
		caps.HasLED = true
	}

	// Rule 6: an external-bus heuristic. Built-in laptop peripherals
	// enumerate over BUS_HOST or BUS_VIRTUAL; anything arriving over USB
	// or Bluetooth is treated as user-attached.
	switch dev.ID.BusType {
	case evdev.BUS_USB, evdev.BUS_BLUETOOTH:
		caps.Classes |= ClassExternal
	}

	return caps
}

// GetAbsAxisUsage resolves an absolute axis claimed by more than one
// class to its owning class, by the fixed priority TouchMt > Touch >
// Joystick > Cursor (§4.3's ambiguity policy). It is a free function,
// independent of any one device, mirroring the original's
// getAbsAxisUsage.
func GetAbsAxisUsage(axis uint16, classes DeviceClass) DeviceClass {
	switch {
	case classes.Has(ClassTouchMt):
		return ClassTouchMt
	case classes.Has(ClassTouch):
		return ClassTouch
	case classes.Has(ClassJoystick):
		return ClassJoystick
	case classes.Has(ClassCursor):
		return ClassCursor
	default:
		return 0
	}
}

// LoadDeviceProperties reads the optional per-device configuration file
// (rule 7) located by descriptor under dir, in AOSP's ".idc" key=value
// style. A missing file is not an error — most devices have none.
func LoadDeviceProperties(dir, descriptor string) (map[string]string, error) {
	path := filepath.Join(dir, descriptor+".idc")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open device config %q: %w", path, err)
	}
	defer file.Close()

	props := make(map[string]string)
	s := bufio.NewScanner(file)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan device config %q: %w", path, err)
	}
	return props, nil
}
