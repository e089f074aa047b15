// Package evdev is a small, hand-rolled binding to the Linux evdev
// ioctl surface. It does not attempt to be a general-purpose evdev
// library: it exposes exactly the capability queries, event decoding,
// and force-feedback/LED control the event hub needs, the way the
// teacher package bound EVIOCGBIT/EVIOCGID/EVIOCGNAME by hand instead
// of reaching for a wrapper.
package evdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open evdev node. A Device does not interpret its
// events; it only knows how to ask the kernel about capabilities and
// shuttle raw input_event records in and out.
type Device struct {
	file *os.File

	Name string
	Phys string
	Uniq string
	ID   InputID

	bitsType []byte
	bitsKEY  []byte
	bitsABS  []byte
	bitsREL  []byte
	bitsSW   []byte
	bitsLED  []byte
	bitsFF   []byte
	bitsProp []byte
}

// Open opens path read-write and non-blocking. Read-write access is
// required to drive force-feedback effects and LEDs; if that is
// refused, Open falls back to read-only, which is enough for devices
// this hub never vibrates or lights.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if errors.Is(err, os.ErrPermission) {
		file, err = os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	}
	if err != nil {
		return nil, err
	}

	d := Device{file: file}
	if err := d.init(); err != nil {
		file.Close()
		return nil, err
	}
	return &d, nil
}

func (d *Device) init() error {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return err
	}

	var name [256]byte
	if err := cctl(conn, eviocgname(uintptr(len(name))), &name[0]); err != nil {
		return fmt.Errorf("get device name: %w", err)
	}
	d.Name = fromNTString(name[:])

	var phys [256]byte
	if err := cctl(conn, eviocgphys(uintptr(len(phys))), &phys[0]); err == nil {
		d.Phys = fromNTString(phys[:])
	}

	var uniq [256]byte
	if err := cctl(conn, eviocguniq(uintptr(len(uniq))), &uniq[0]); err == nil {
		d.Uniq = fromNTString(uniq[:])
	}

	if err := cctl(conn, eviocgid, &d.ID); err != nil {
		return fmt.Errorf("get device info: %w", err)
	}

	if d.bitsType, err = readBits(conn, eviocgbit(0, uintptr(EV_CNT/8+1)), EV_CNT/8+1); err != nil {
		return fmt.Errorf("get event type bits: %w", err)
	}
	if d.bitsKEY, err = readBits(conn, eviocgbit(EV_KEY, uintptr((KEY_CNT+7)/8)), (KEY_CNT+7)/8); err != nil {
		return fmt.Errorf("get key bits: %w", err)
	}
	if d.bitsABS, err = readBits(conn, eviocgbit(EV_ABS, uintptr((ABS_CNT+7)/8)), (ABS_CNT+7)/8); err != nil {
		return fmt.Errorf("get abs bits: %w", err)
	}
	if d.bitsREL, err = readBits(conn, eviocgbit(EV_REL, uintptr((REL_CNT+7)/8)), (REL_CNT+7)/8); err != nil {
		return fmt.Errorf("get rel bits: %w", err)
	}
	if d.bitsSW, err = readBits(conn, eviocgbit(EV_SW, uintptr((SW_CNT+7)/8)), (SW_CNT+7)/8); err != nil {
		return fmt.Errorf("get sw bits: %w", err)
	}
	if d.bitsLED, err = readBits(conn, eviocgbit(EV_LED, uintptr((LED_CNT+7)/8)), (LED_CNT+7)/8); err != nil {
		return fmt.Errorf("get led bits: %w", err)
	}
	if d.bitsFF, err = readBits(conn, eviocgbit(EV_FF, uintptr((FF_CNT+7)/8)), (FF_CNT+7)/8); err != nil {
		return fmt.Errorf("get ff bits: %w", err)
	}
	if d.bitsProp, err = readBits(conn, eviocgprop(uintptr((INPUT_PROP_CNT+7)/8)), (INPUT_PROP_CNT+7)/8); err != nil {
		return fmt.Errorf("get prop bits: %w", err)
	}

	return nil
}

func readBits(conn syscall.RawConn, ioctlName uintptr, size int) ([]byte, error) {
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	if err := cctl(conn, ioctlName, &buf[0]); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Device) Close() error {
	return d.file.Close()
}

// Fd returns the underlying file descriptor, for registering with an
// EpollPump.
func (d *Device) Fd() int {
	return int(d.file.Fd())
}

func (d *Device) typeBits(t uint16) []byte {
	switch t {
	case EV_KEY:
		return d.bitsKEY
	case EV_REL:
		return d.bitsREL
	case EV_ABS:
		return d.bitsABS
	case EV_SW:
		return d.bitsSW
	case EV_LED:
		return d.bitsLED
	case EV_FF:
		return d.bitsFF
	default:
		return nil
	}
}

// HasEventType reports whether the device declares any capability of
// event type t at all.
func (d *Device) HasEventType(t uint16) bool {
	return isBitSet(d.bitsType, t)
}

// HasEventCode reports whether the device declares code under type t.
func (d *Device) HasEventCode(t, code uint16) bool {
	return d.HasEventType(t) && isBitSet(d.typeBits(t), code)
}

// HasProperty reports an INPUT_PROP_* bit.
func (d *Device) HasProperty(prop uint16) bool {
	return isBitSet(d.bitsProp, prop)
}

// KeyBits, AbsBits, RelBits, SwBits, LedBits, FFBits, and PropBits
// return the raw capability bitmasks as loaded at open time, for
// callers (the BitMask type) that want to own a copy.
func (d *Device) KeyBits() []byte  { return d.bitsKEY }
func (d *Device) AbsBits() []byte  { return d.bitsABS }
func (d *Device) RelBits() []byte  { return d.bitsREL }
func (d *Device) SwBits() []byte   { return d.bitsSW }
func (d *Device) LedBits() []byte  { return d.bitsLED }
func (d *Device) FFBits() []byte   { return d.bitsFF }
func (d *Device) PropBits() []byte { return d.bitsProp }

// AbsInfo fetches the current EVIOCGABS info for a single axis. It is
// not cached at open time because absinfo.Value changes continuously;
// only the capability bit (in AbsBits) is a snapshot.
func (d *Device) AbsInfo(axis uint16) (AbsInfo, error) {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return AbsInfo{}, err
	}
	var raw inputAbsInfo
	if err := cctl(conn, eviocgabs(uintptr(axis)), &raw); err != nil {
		return AbsInfo{}, err
	}
	return AbsInfo{
		Value:      raw.Value,
		Minimum:    raw.Minimum,
		Maximum:    raw.Maximum,
		Fuzz:       raw.Fuzz,
		Flat:       raw.Flat,
		Resolution: raw.Resolution,
	}, nil
}

// KeyState fetches the live EVIOCGKEY state bitmap.
func (d *Device) KeyState() ([]byte, error) {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return nil, err
	}
	return readBits(conn, eviocgkey(uintptr((KEY_CNT+7)/8)), (KEY_CNT+7)/8)
}

// SwitchState fetches the live EVIOCGSW state bitmap.
func (d *Device) SwitchState() ([]byte, error) {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return nil, err
	}
	return readBits(conn, eviocgsw(uintptr((SW_CNT+7)/8)), (SW_CNT+7)/8)
}

// LedState fetches the live EVIOCGLED state bitmap.
func (d *Device) LedState() ([]byte, error) {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return nil, err
	}
	return readBits(conn, eviocgled(uintptr((LED_CNT+7)/8)), (LED_CNT+7)/8)
}

// NextEvent reads exactly one struct input_event and returns it
// decoded, with its kernel timestamp converted to nanoseconds.
func (d *Device) NextEvent() (InputEvent, error) {
	var raw rawInputEvent
	buf := (*[unsafe.Sizeof(raw)]byte)(unsafe.Pointer(&raw))[:]
	_, err := io.ReadFull(d.file, buf)
	if err != nil {
		return InputEvent{}, fmt.Errorf("read: %w", err)
	}

	return InputEvent{
		TimestampNs: raw.Sec*1_000_000_000 + raw.Usec*1_000,
		Type:        raw.Type,
		Code:        raw.Code,
		Value:       raw.Value,
	}, nil
}

// Write sends a raw input_event to the device: used to start/stop a
// force-feedback effect and to set LED output state.
func (d *Device) Write(ev InputEvent) error {
	raw := rawInputEvent{
		Type:  ev.Type,
		Code:  ev.Code,
		Value: ev.Value,
	}
	buf := (*[unsafe.Sizeof(raw)]byte)(unsafe.Pointer(&raw))[:]
	_, err := d.file.Write(buf)
	return err
}

// Upload installs a rumble force-feedback effect and returns its
// kernel-assigned effect id.
func (d *Device) Upload(strong, weak uint16) (int16, error) {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return -1, err
	}

	effect := ffEffect{
		Type: FF_RUMBLE,
		ID:   -1,
	}
	effect.U.Strong = strong
	effect.U.Weak = weak

	err = control(conn, func(fd uintptr) error {
		return fromErrno(ioctl(fd, eviocsff(), &effect))
	})
	if err != nil {
		return -1, err
	}
	return effect.ID, nil
}

// Play starts (repeat > 0) or stops (repeat == 0) a previously
// uploaded effect by writing an EV_FF event, as the kernel expects
// force-feedback playback to be triggered.
func (d *Device) Play(id int16, repeat int32) error {
	return d.Write(InputEvent{Type: EV_FF, Code: uint16(id), Value: repeat})
}

// Erase removes a previously uploaded effect.
func (d *Device) Erase(id int16) error {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return err
	}
	v := id
	return control(conn, func(fd uintptr) error {
		return fromErrno(ioctl(fd, eviocrmff(), &v))
	})
}

// InputEvent is a decoded struct input_event.
type InputEvent struct {
	TimestampNs int64
	Type        uint16
	Code        uint16
	Value       int32
}

func (ev InputEvent) Is(t, code uint16) bool {
	return (ev.Type == t) && (ev.Code == code)
}

type InputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// AbsInfo mirrors struct input_absinfo (decoded, Go-native widths).
type AbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// inputAbsInfo is the wire-layout twin of AbsInfo used for the ioctl.
type inputAbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// rawInputEvent is the wire layout of struct input_event on a 64-bit
// kernel: two 64 bit timeval fields followed by type/code/value.
type rawInputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// ffEffect is the wire layout of struct ff_effect, restricted to the
// rumble union member: the only effect type the event hub's vibrator
// support needs (§4.9).
type ffEffect struct {
	Type      uint16
	ID        int16
	Direction uint16
	Trigger   struct {
		Button   uint16
		Interval uint16
	}
	Replay struct {
		Length uint16
		Delay  uint16
	}
	U struct {
		Strong uint16
		Weak   uint16
	}
}

func control(conn syscall.RawConn, f func(uintptr) error) error {
	var ferr error
	err := conn.Control(func(fd uintptr) { ferr = f(fd) })
	return errors.Join(err, ferr)
}

func ioctl[T any](fd, name uintptr, data *T) unix.Errno {
	_, _, err := unix.Syscall(unix.SYS_IOCTL, fd, name, uintptr(unsafe.Pointer(data)))
	return err
}

func cctl[T any](conn syscall.RawConn, name uintptr, data *T) error {
	return control(conn, func(fd uintptr) error {
		return fromErrno(ioctl(fd, name, data))
	})
}

func fromErrno(err unix.Errno) error {
	if err == 0 {
		return nil
	}
	return err
}

func isBitSet(bits []byte, bit uint16) bool {
	idx := int(bit) / 8
	if idx >= len(bits) {
		return false
	}
	return bits[idx]&(1<<(bit%8)) != 0
}

func fromNTString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
