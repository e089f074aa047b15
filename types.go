package eventhub

// DeviceId identifies a device across its open lifetime (§3). Real
// devices get small positive ids assigned by the DeviceManager;
// VirtualKeyboardID is reserved for the synthetic always-present
// keyboard; BuiltInKeyboardID is not a real internal id at all but the
// external alias every caller sees in place of whichever real device
// the manager designates as the built-in keyboard.
type DeviceId int32

const (
	// VirtualKeyboardID is the internal id of the synthetic keyboard
	// enabled by the virtual_keyboard configuration directive.
	VirtualKeyboardID DeviceId = -1
	// BuiltInKeyboardID is the external alias for the built-in keyboard;
	// no real device may carry this as its internal id.
	BuiltInKeyboardID DeviceId = 0
	// NoBuiltInKeyboardID is returned by queries for the built-in
	// keyboard's id when none has been designated.
	NoBuiltInKeyboardID DeviceId = -2
)

// Three-valued key/switch/scan-code state (§4.8). Absolute axis values
// are plain int32s returned alongside an error, since -1/0/1 are
// themselves meaningful axis values.
const (
	StateUnknown int32 = -1
	StateUp      int32 = 0
	StateDown    int32 = 1
)

// Synthetic event types, encoded in a range above any real evdev type
// (EV_MAX is 0x1f) so they can never collide with a kernel record
// (§3's "RawEvent ... encoded in a reserved high range").
const (
	EventTypeDeviceAdded         uint16 = 0xf000
	EventTypeDeviceRemoved       uint16 = 0xf001
	EventTypeFinishedDeviceScan  uint16 = 0xf002
)

// InputDeviceIdentifier is the static identity of a device, derived
// once at open time (§3).
type InputDeviceIdentifier struct {
	Name       string
	Location   string
	UniqueID   string
	Bus        uint16
	Vendor     uint16
	Product    uint16
	Version    uint16
	Descriptor string
}

// RawAbsoluteAxisInfo mirrors an EVIOCGABS result; Valid is false (and
// every other field zero) when the axis isn't supported (§3).
type RawAbsoluteAxisInfo struct {
	Valid      bool
	Min        int32
	Max        int32
	Flat       int32
	Fuzz       int32
	Resolution int32
}

// RawEvent is either a decoded evdev record or one of the three
// synthetic lifecycle events (§3).
type RawEvent struct {
	TimestampNs int64
	DeviceId    DeviceId
	Type        uint16
	Code        uint16
	Value       int32
}
