package eventhub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"eventhub.dev/eventhub/internal/config"
	"eventhub.dev/eventhub/internal/evdev"
)

// VibratorState tracks the single outstanding force-feedback effect a
// device may be playing (§3, §4.9). EffectID is -1 when none is
// installed.
type VibratorState struct {
	EffectID int16
	Playing  bool
}

// DeviceRecord is a device the hub currently knows about, exclusively
// owned by the hub (§3). It is mutated only while the hub lock is
// held.
type DeviceRecord struct {
	ID         DeviceId
	Path       string
	Identifier InputDeviceIdentifier
	Enabled    bool
	Virtual    bool
	External   bool

	dev *evdev.Device // nil for a virtual record, or while disabled

	Capabilities Capabilities
	KeyState     *BitMask
	SwState      *BitMask

	BaseKeyMap  *KeyMap
	Overlay     *KeyMap
	VirtualKeys []VirtualKeyDefinition
	Properties  map[string]string

	ControllerNumber int32

	Vibrator VibratorState

	pairedVideo VideoDevice
	frameQueue  videoFrameQueue

	pendingClose bool
}

// Classes returns the device's capability class set.
func (r *DeviceRecord) Classes() DeviceClass { return r.Capabilities.Classes }

// EffectiveKeyMap layers Overlay on top of BaseKeyMap for lookups, or
// returns BaseKeyMap unchanged if there is no overlay.
func (r *DeviceRecord) EffectiveKeyMap() *KeyMap {
	if r.Overlay == nil {
		return r.BaseKeyMap
	}
	return r.BaseKeyMap.WithOverlay(r.Overlay)
}

// DeviceManager opens and closes devices, assigns stable ids, and
// tracks pairing, controller numbers, and pending lifecycle events
// (§4.6). Every exported method assumes the caller already holds the
// hub lock — DeviceManager has no lock of its own, by design (§5: "a
// single hub-wide mutex").
type DeviceManager struct {
	cfg config.Config

	devices      map[DeviceId]*DeviceRecord
	byPath       map[string]DeviceId
	descriptorN  map[string]int
	nextID       DeviceId
	builtInKbdID DeviceId

	controllers *ControllerNumberPool
	video       *VideoDeviceRegistry
	keymaps     *KeyMapLoader
	pump        fdRegistrar

	pendingAdds    []RawEvent
	pendingRemoves []RawEvent
	scanFinished   bool

	fdToDevice    map[int]DeviceId
	videoFdToPath map[int]string
}

// fdRegistrar is the slice of EpollPump the DeviceManager needs; kept
// as a narrow interface so device.go doesn't depend on the pump's
// inotify/wake machinery.
type fdRegistrar interface {
	RegisterFd(fd int) error
	UnregisterFd(fd int) error
}

// NewDeviceManager returns an empty manager. Devices are discovered
// only through ScanAll or explicit OpenDevice/OpenVideoDevice calls.
func NewDeviceManager(cfg config.Config, pump fdRegistrar, keymaps *KeyMapLoader) *DeviceManager {
	return &DeviceManager{
		cfg:           cfg,
		devices:       make(map[DeviceId]*DeviceRecord),
		byPath:        make(map[string]DeviceId),
		descriptorN:   make(map[string]int),
		nextID:        1,
		builtInKbdID:  NoBuiltInKeyboardID,
		controllers:   NewControllerNumberPool(),
		video:         NewVideoDeviceRegistry(),
		keymaps:       keymaps,
		pump:          pump,
		fdToDevice:    make(map[int]DeviceId),
		videoFdToPath: make(map[int]string),
	}
}

// FdDeviceID resolves an epoll-ready fd to the input device that owns
// it, for the EventLoop's readiness dispatch.
func (m *DeviceManager) FdDeviceID(fd int) (DeviceId, bool) {
	id, ok := m.fdToDevice[fd]
	return id, ok
}

// FdVideoPath resolves an epoll-ready fd to the video device path that
// owns it.
func (m *DeviceManager) FdVideoPath(fd int) (string, bool) {
	path, ok := m.videoFdToPath[fd]
	return path, ok
}

// FindByPairedVideoPath returns the device record currently owning the
// video device at path, if any.
func (m *DeviceManager) FindByPairedVideoPath(path string) (*DeviceRecord, bool) {
	for _, rec := range m.devices {
		if rec.pairedVideo != nil && rec.pairedVideo.Path() == path {
			return rec, true
		}
	}
	return nil, false
}

// LookupVideoDevice returns the video device at path, whether it is
// unattached (from the registry) or owned by a device record.
func (m *DeviceManager) LookupVideoDevice(path string) (VideoDevice, bool) {
	if rec, ok := m.FindByPairedVideoPath(path); ok {
		return rec.pairedVideo, true
	}
	for _, dev := range m.video.List() {
		if dev.Path() == path {
			return dev, true
		}
	}
	return nil, false
}

// ScanAll enumerates the configured input and video directories,
// opens every non-excluded entry, and returns the resulting
// DEVICE_ADDED events terminated by one FINISHED_DEVICE_SCAN (§4.6).
func (m *DeviceManager) ScanAll(ctx context.Context) []RawEvent {
	var out []RawEvent

	if m.cfg.VirtualKeyboard {
		if _, ok := m.devices[VirtualKeyboardID]; !ok {
			if ev, err := m.openVirtualKeyboard(); err == nil {
				out = append(out, ev)
			}
		}
	}

	entries, _ := os.ReadDir(m.cfg.InputDirectory)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		path := filepath.Join(m.cfg.InputDirectory, e.Name())
		if _, ok := m.byPath[path]; ok {
			continue
		}
		if m.cfg.IsExcluded(path) {
			continue
		}
		if ev, err := m.OpenDevice(ctx, path); err == nil {
			out = append(out, ev)
		} else {
			Logger(ctx).Warn("open device during scan", "path", path, slogErr(err))
		}
	}

	if m.cfg.VideoDirectory != "" {
		vEntries, _ := os.ReadDir(m.cfg.VideoDirectory)
		for _, e := range vEntries {
			if !strings.HasPrefix(e.Name(), config.VideoDeviceNamePrefix) {
				continue
			}
			path := filepath.Join(m.cfg.VideoDirectory, e.Name())
			if _, ok := m.LookupVideoDevice(path); ok {
				continue
			}
			if err := m.OpenVideoDevice(path); err != nil {
				Logger(ctx).Warn("open video device during scan", "path", path, slogErr(err))
			}
		}
	}

	out = append(out, RawEvent{Type: EventTypeFinishedDeviceScan})
	return out
}

func (m *DeviceManager) openVirtualKeyboard() (RawEvent, error) {
	id := VirtualKeyboardID
	rec := &DeviceRecord{
		ID:      id,
		Path:    "",
		Virtual: true,
		Enabled: true,
		Identifier: InputDeviceIdentifier{
			Name:       "Virtual Keyboard",
			Descriptor: "virtual-keyboard",
		},
		Capabilities: Capabilities{Classes: ClassKeyboard | ClassAlphaKey | ClassVirtual},
		KeyState:     NewBitMask(evdev.KEY_CNT),
		SwState:      NewBitMask(evdev.SW_CNT),
		BaseKeyMap:   m.keymaps.Load("virtual-keyboard"),
		Vibrator:     VibratorState{EffectID: -1},
	}
	m.devices[id] = rec
	return RawEvent{DeviceId: id, Type: EventTypeDeviceAdded}, nil
}

// OpenDevice opens path non-blocking, probes its capabilities, and
// installs a DeviceRecord on success (§4.6). An already-open path
// returns an AlreadyInState error and an excluded path an
// InvalidArgument error; in both cases nothing is opened or logged.
func (m *DeviceManager) OpenDevice(ctx context.Context, path string) (RawEvent, error) {
	if _, ok := m.byPath[path]; ok {
		return RawEvent{}, newError(AlreadyInState, "device already open: "+path, nil)
	}
	if m.cfg.IsExcluded(path) {
		return RawEvent{}, newError(InvalidArgument, "path is excluded: "+path, nil)
	}

	dev, err := evdev.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return RawEvent{}, newError(PermissionDenied, "open "+path, err)
		}
		return RawEvent{}, newError(IoError, "open "+path, err)
	}

	caps := probeCapabilities(dev)
	identifier := m.buildIdentifier(dev, caps)

	id := m.nextID
	m.nextID++

	rec := &DeviceRecord{
		ID:           id,
		Path:         path,
		Identifier:   identifier,
		Enabled:      true,
		External:     caps.Classes.Has(ClassExternal),
		dev:          dev,
		Capabilities: caps,
		KeyState:     NewBitMask(evdev.KEY_CNT),
		SwState:      NewBitMask(evdev.SW_CNT),
		BaseKeyMap:   m.keymaps.Load(identifier.Descriptor),
		Vibrator:     VibratorState{EffectID: -1},
	}

	if props, err := LoadDeviceProperties(m.cfg.InputDirectory, identifier.Descriptor); err == nil {
		rec.Properties = props
	}

	if caps.Classes.Has(ClassGamepad) && LooksLikeGamepad(identifier.Name) {
		if n := m.controllers.Acquire(); n > 0 {
			rec.ControllerNumber = n
		} else {
			Logger(ctx).Warn("controller number pool exhausted", "path", path)
		}
	}

	if err := m.pump.RegisterFd(dev.Fd()); err != nil {
		dev.Close()
		return RawEvent{}, newError(IoError, "register epoll fd for "+path, err)
	}

	m.devices[id] = rec
	m.byPath[path] = id
	m.fdToDevice[dev.Fd()] = id

	if caps.Classes.Has(ClassKeyboard) && !caps.Classes.Has(ClassVirtual) && !caps.Classes.Has(ClassExternal) && m.builtInKbdID == NoBuiltInKeyboardID {
		m.builtInKbdID = id
	}

	if caps.Classes.Has(ClassTouch) {
		if vdev, ok := m.video.TakeForInputPath(path); ok {
			rec.pairedVideo = vdev
		}
	}

	return RawEvent{DeviceId: m.externalID(id), Type: EventTypeDeviceAdded}, nil
}

// OpenVideoDevice opens a touch-video stream and either pairs it
// immediately with an already-open touchscreen or places it in the
// unattached registry (§4.6's pairing section).
func (m *DeviceManager) OpenVideoDevice(path string) error {
	if m.cfg.IsExcluded(path) {
		return nil
	}
	vdev, err := OpenVideoDevice(path)
	if err != nil {
		return err
	}
	if err := m.pump.RegisterFd(vdev.Fd()); err != nil {
		vdev.Close()
		return newError(IoError, "register epoll fd for "+path, err)
	}
	m.videoFdToPath[vdev.Fd()] = path

	inputPath, ok := vdev.AssociatedInputPath()
	if ok {
		if id, ok := m.byPath[inputPath]; ok {
			if rec := m.devices[id]; rec.Classes().Has(ClassTouch) && rec.pairedVideo == nil {
				rec.pairedVideo = vdev
				return nil
			}
		}
	}
	m.video.Add(vdev)
	return nil
}

// CloseVideoByPath unregisters and closes the video device at path,
// detaching it from whichever device record owns it, if any.
func (m *DeviceManager) CloseVideoByPath(path string) {
	vdev, ok := m.LookupVideoDevice(path)
	if !ok {
		return
	}
	m.pump.UnregisterFd(vdev.Fd())
	delete(m.videoFdToPath, vdev.Fd())

	if rec, ok := m.FindByPairedVideoPath(path); ok {
		rec.pairedVideo = nil
	} else {
		m.video.Remove(path)
	}
	vdev.Close()
}

// buildIdentifier derives the static identity of dev, including a
// content-derived descriptor uniquified against any collision with an
// already-open device (§3).
func (m *DeviceManager) buildIdentifier(dev *evdev.Device, caps Capabilities) InputDeviceIdentifier {
	base := fmt.Sprintf("%04x:%04x:%04x:%s", dev.ID.Vendor, dev.ID.Product, dev.ID.Version, dev.Name)

	inUse := func(d string) bool {
		for _, rec := range m.devices {
			if rec.Identifier.Descriptor == d {
				return true
			}
		}
		return false
	}
	descriptor := base
	for n := 2; inUse(descriptor); n++ {
		descriptor = fmt.Sprintf("%s-%d", base, n)
	}

	return InputDeviceIdentifier{
		Name:       dev.Name,
		Location:   dev.Phys,
		UniqueID:   dev.Uniq,
		Bus:        dev.ID.BusType,
		Vendor:     dev.ID.Vendor,
		Product:    dev.ID.Product,
		Version:    dev.ID.Version,
		Descriptor: descriptor,
	}
}

// CloseByPath closes the device open at path, if any.
func (m *DeviceManager) CloseByPath(path string) (RawEvent, bool) {
	id, ok := m.byPath[path]
	if !ok {
		return RawEvent{}, false
	}
	return m.Close(id)
}

// Close unregisters, closes, and drops the record for id. It is
// idempotent: closing an unknown or already-closed id is a no-op
// (§4.6, §8's "closing an already-closed device is a no-op").
func (m *DeviceManager) Close(id DeviceId) (RawEvent, bool) {
	rec, ok := m.devices[id]
	if !ok {
		return RawEvent{}, false
	}

	if rec.dev != nil {
		m.pump.UnregisterFd(rec.dev.Fd())
		delete(m.fdToDevice, rec.dev.Fd())
		rec.dev.Close()
		rec.dev = nil
	}
	if rec.ControllerNumber > 0 {
		m.controllers.Release(context.Background(), rec.ControllerNumber)
	}
	if rec.pairedVideo != nil {
		if _, ok := rec.pairedVideo.AssociatedInputPath(); ok {
			m.video.Add(rec.pairedVideo)
		} else {
			m.pump.UnregisterFd(rec.pairedVideo.Fd())
			delete(m.videoFdToPath, rec.pairedVideo.Fd())
			rec.pairedVideo.Close()
		}
		rec.pairedVideo = nil
	}

	delete(m.devices, id)
	if rec.Path != "" {
		delete(m.byPath, rec.Path)
	}
	ev := RawEvent{DeviceId: m.externalID(id), Type: EventTypeDeviceRemoved}
	if m.builtInKbdID == id {
		m.builtInKbdID = NoBuiltInKeyboardID
	}

	return ev, true
}

// CloseAll closes every currently open device, for RequestReopenAll's
// scan-and-reopen cycle.
func (m *DeviceManager) CloseAll() []RawEvent {
	var out []RawEvent
	for id := range m.devices {
		if ev, ok := m.Close(id); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Enable reopens a disabled device's descriptor; enabling an already
// enabled device returns AlreadyInState (§4.6, §7).
func (m *DeviceManager) Enable(ctx context.Context, id DeviceId) error {
	rec, ok := m.devices[id]
	if !ok {
		return newError(NotFound, "unknown device", nil)
	}
	if rec.Enabled {
		return newError(AlreadyInState, "device already enabled", nil)
	}
	if !rec.Virtual {
		dev, err := evdev.Open(rec.Path)
		if err != nil {
			return newError(IoError, "reopen "+rec.Path, err)
		}
		if err := m.pump.RegisterFd(dev.Fd()); err != nil {
			dev.Close()
			return newError(IoError, "register epoll fd for "+rec.Path, err)
		}
		rec.dev = dev
		m.fdToDevice[dev.Fd()] = id
	}
	rec.Enabled = true
	return nil
}

// Disable closes a device's descriptor without dropping its record
// (§4.6). State queries against a disabled device return UNKNOWN.
func (m *DeviceManager) Disable(id DeviceId) error {
	rec, ok := m.devices[id]
	if !ok {
		return newError(NotFound, "unknown device", nil)
	}
	if !rec.Enabled {
		return newError(AlreadyInState, "device already disabled", nil)
	}
	if rec.dev != nil {
		m.pump.UnregisterFd(rec.dev.Fd())
		delete(m.fdToDevice, rec.dev.Fd())
		rec.dev.Close()
		rec.dev = nil
	}
	rec.Enabled = false
	return nil
}

// IsDeviceEnabled reports rec.Enabled directly, as a query distinct
// from the enable/disable mutators (supplemented from the original's
// isDeviceEnabled).
func (m *DeviceManager) IsDeviceEnabled(id DeviceId) bool {
	rec, ok := m.devices[id]
	return ok && rec.Enabled
}

// Get returns the record for id, translating the external
// BuiltInKeyboardID alias to the real internal id first.
func (m *DeviceManager) Get(id DeviceId) (*DeviceRecord, bool) {
	rec, ok := m.devices[m.internalID(id)]
	return rec, ok
}

// externalID maps the internal id of the designated built-in keyboard
// to the external alias 0; every other id passes through unchanged
// (§3).
func (m *DeviceManager) externalID(id DeviceId) DeviceId {
	if id == m.builtInKbdID && id != NoBuiltInKeyboardID {
		return BuiltInKeyboardID
	}
	return id
}

// internalID reverses externalID: the external alias 0 resolves to
// whichever internal id currently owns the built-in keyboard role.
func (m *DeviceManager) internalID(id DeviceId) DeviceId {
	if id == BuiltInKeyboardID && m.builtInKbdID != NoBuiltInKeyboardID {
		return m.builtInKbdID
	}
	return id
}

// BuiltInKeyboardID returns the external id of the built-in keyboard,
// or NoBuiltInKeyboardID if none has been designated.
func (m *DeviceManager) BuiltInKeyboardID() DeviceId {
	if m.builtInKbdID == NoBuiltInKeyboardID {
		return NoBuiltInKeyboardID
	}
	return BuiltInKeyboardID
}

// Devices returns every currently open record, sorted by id, for
// dump() and iteration helpers.
func (m *DeviceManager) Devices() []*DeviceRecord {
	out := make([]*DeviceRecord, 0, len(m.devices))
	for _, rec := range m.devices {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
