package evdev

// Event types and code ranges from linux/input-event-codes.h. Kept in
// the kernel's naming convention (not Go's) because that is what every
// caller of this package, and every other evdev-touching file in the
// corpus, expects to read.
const (
	EV_SYN       = 0x00
	EV_KEY       = 0x01
	EV_REL       = 0x02
	EV_ABS       = 0x03
	EV_MSC       = 0x04
	EV_SW        = 0x05
	EV_LED       = 0x11
	EV_SND       = 0x12
	EV_REP       = 0x14
	EV_FF        = 0x15
	EV_PWR       = 0x16
	EV_FF_STATUS = 0x17
	EV_MAX       = 0x1f
	EV_CNT       = EV_MAX + 1
)

const (
	SYN_REPORT   = 0
	SYN_MT_REPORT = 2
)

const (
	KEY_MAX = 0x2ff
	KEY_CNT = KEY_MAX + 1

	// Range used by the "has a keyboard" heuristic (§4.3 rule 2): any
	// bit set from BTN_MISC upward, pointer buttons such as BTN_LEFT
	// included, classifies the device as a keyboard.
	BTN_MISC = 0x100

	BTN_MOUSE      = 0x110
	BTN_LEFT       = 0x110
	BTN_RIGHT      = 0x111
	BTN_MIDDLE     = 0x112

	BTN_JOYSTICK = 0x120
	BTN_TRIGGER  = 0x120
	BTN_THUMB    = 0x121

	BTN_GAMEPAD = 0x130
	BTN_SOUTH   = 0x130
	BTN_A       = 0x130
	BTN_EAST    = 0x131
	BTN_B       = 0x131
	BTN_TL      = 0x136
	BTN_TR      = 0x137
	BTN_SELECT  = 0x13a
	BTN_START   = 0x13b
	BTN_MODE    = 0x13c
	BTN_THUMBL  = 0x13d
	BTN_THUMBR  = 0x13e

	BTN_DPAD_UP    = 0x220
	BTN_DPAD_DOWN  = 0x221
	BTN_DPAD_LEFT  = 0x222
	BTN_DPAD_RIGHT = 0x223

	BTN_TRIGGER_HAPPY = 0x2c0

	// Three-row alphabetic keyset used by the AlphaKey classification.
	KEY_Q = 16
	KEY_P = 25
	KEY_A = 30
	KEY_L = 38
	KEY_Z = 44
	KEY_M = 50
)

const (
	REL_X   = 0x00
	REL_Y   = 0x01
	REL_MAX = 0x0f
	REL_CNT = REL_MAX + 1
)

const (
	ABS_X             = 0x00
	ABS_Y             = 0x01
	ABS_Z             = 0x02
	ABS_RX            = 0x03
	ABS_RY            = 0x04
	ABS_RZ            = 0x05
	ABS_HAT0X         = 0x10
	ABS_HAT0Y         = 0x11
	ABS_MT_SLOT       = 0x2f
	ABS_MT_POSITION_X = 0x35
	ABS_MT_POSITION_Y = 0x36
	ABS_MAX           = 0x3f
	ABS_CNT           = ABS_MAX + 1
)

const (
	SW_MAX = 0x10
	SW_CNT = SW_MAX + 1
)

const (
	MSC_MAX = 0x07
	MSC_CNT = MSC_MAX + 1
)

const (
	LED_NUML    = 0x00
	LED_CAPSL   = 0x01
	LED_SCROLLL = 0x02
	LED_MAX     = 0x0f
	LED_CNT     = LED_MAX + 1
)

const (
	SND_MAX = 0x07
	SND_CNT = SND_MAX + 1
)

const (
	FF_RUMBLE = 0x50
	FF_MAX    = 0x7f
	FF_CNT    = FF_MAX + 1
)

const (
	INPUT_PROP_POINTER    = 0x00
	INPUT_PROP_DIRECT     = 0x01
	INPUT_PROP_BUTTONPAD  = 0x02
	INPUT_PROP_SEMI_MT    = 0x03
	INPUT_PROP_MAX        = 0x1f
	INPUT_PROP_CNT        = INPUT_PROP_MAX + 1
)

const (
	BUS_PCI       = 0x01
	BUS_USB       = 0x03
	BUS_BLUETOOTH = 0x05
	BUS_VIRTUAL   = 0x06
	BUS_HOST      = 0x19
)

// IsAlphaKeyCode reports whether code is one of the three QWERTY rows
// the AOSP classifier uses to decide a keyboard is alphabetic, not just
// a numeric keypad or a handful of media buttons.
func IsAlphaKeyCode(code uint16) bool {
	switch {
	case code >= KEY_Q && code <= KEY_P:
		return true
	case code >= KEY_A && code <= KEY_L:
		return true
	case code >= KEY_Z && code <= KEY_M:
		return true
	default:
		return false
	}
}
