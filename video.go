package eventhub

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"
)

const maxVideoFrames = 8

// VideoDevice is the abstract operation table a touch-video stream
// exposes to the hub (§9's "implement it as an abstract operation
// table ... with one production implementation and one test double").
// The hub never decodes frames; it only tracks the descriptor's
// lifecycle and buffers whatever bytes arrive.
type VideoDevice interface {
	Path() string
	Fd() int
	// AssociatedInputPath returns the /dev/input path this stream is
	// expected to pair with, and whether that pairing could be resolved
	// at all (§4.6, §9's open question on the pairing rule).
	AssociatedInputPath() (string, bool)
	ReadFrame() ([]byte, error)
	Close() error
}

// videoDeviceNamePattern extracts the trailing device number from a
// /dev/v4l-touchN path.
var videoDeviceNamePattern = regexp.MustCompile(`(\d+)$`)

// fileVideoDevice is the production VideoDevice, backed by a real
// /dev/v4l-touchN character device.
type fileVideoDevice struct {
	path string
	file *os.File
}

// OpenVideoDevice opens path non-blocking, the same posture the hub
// takes on evdev nodes.
func OpenVideoDevice(path string) (VideoDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open video device %q: %w", path, err)
	}
	return &fileVideoDevice{path: path, file: f}, nil
}

func (v *fileVideoDevice) Path() string { return v.path }
func (v *fileVideoDevice) Fd() int      { return int(v.file.Fd()) }

// AssociatedInputPath resolves pairing by the host's minor-number
// naming convention (§4.6): a /dev/v4l-touchN stream pairs with
// /dev/input/eventN. This is a policy decision the spec explicitly
// leaves to the implementer (§9 open question); documented in
// DESIGN.md.
func (v *fileVideoDevice) AssociatedInputPath() (string, bool) {
	m := videoDeviceNamePattern.FindStringSubmatch(filepath.Base(v.path))
	if m == nil {
		return "", false
	}
	return filepath.Join(defaultInputDirForPairing, "event"+m[1]), true
}

// defaultInputDirForPairing is the directory AssociatedInputPath pairs
// against. It is always /dev/input; the input_directory configuration
// setting does not change it.
var defaultInputDirForPairing = "/dev/input"

func (v *fileVideoDevice) ReadFrame() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := v.file.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (v *fileVideoDevice) Close() error {
	return v.file.Close()
}

// VideoDeviceRegistry holds touch-video descriptors that have been
// opened but not yet paired with a touchscreen DeviceRecord (§4.6,
// §9's cyclic-ownership note: a device is either here or owned by
// exactly one DeviceRecord, never both).
type VideoDeviceRegistry struct {
	mu      sync.Mutex
	devices map[string]VideoDevice
}

// NewVideoDeviceRegistry returns an empty registry.
func NewVideoDeviceRegistry() *VideoDeviceRegistry {
	return &VideoDeviceRegistry{devices: make(map[string]VideoDevice)}
}

// Add places dev in the unattached pool.
func (r *VideoDeviceRegistry) Add(dev VideoDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[dev.Path()] = dev
}

// Remove drops the device at path from the pool without closing it,
// for the caller that is about to pair or close it explicitly.
func (r *VideoDeviceRegistry) Remove(path string) (VideoDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.devices[path]
	if ok {
		delete(r.devices, path)
	}
	return dev, ok
}

// TakeForInputPath finds an unattached video device whose associated
// input path matches inputPath, removes it from the pool, and returns
// it. Used when a touchscreen opens, to find its video stream; a newly
// opened video stream looks up its touchscreen in the device registry
// instead.
func (r *VideoDeviceRegistry) TakeForInputPath(inputPath string) (VideoDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, dev := range r.devices {
		if assoc, ok := dev.AssociatedInputPath(); ok && assoc == inputPath {
			delete(r.devices, path)
			return dev, true
		}
	}
	return nil, false
}

// List returns every currently unattached video device.
func (r *VideoDeviceRegistry) List() []VideoDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]VideoDevice, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev)
	}
	return out
}

// videoFrameQueue is a bounded FIFO of frames pending delivery via
// GetVideoFrames; oldest frames are dropped on overflow (§4.7's "read
// frame(s) into the associated device's frame queue (bounded; oldest
// dropped on overflow)").
type videoFrameQueue struct {
	frames [][]byte
}

func (q *videoFrameQueue) push(frame []byte) {
	q.frames = append(q.frames, frame)
	if len(q.frames) > maxVideoFrames {
		q.frames = q.frames[len(q.frames)-maxVideoFrames:]
	}
}

func (q *videoFrameQueue) drain() [][]byte {
	out := q.frames
	q.frames = nil
	return out
}
