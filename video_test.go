package eventhub

import "testing"

type fakeVideoDevice struct {
	path      string
	inputPath string
	resolved  bool
}

func (f *fakeVideoDevice) Path() string { return f.path }
func (f *fakeVideoDevice) Fd() int      { return -1 }
func (f *fakeVideoDevice) AssociatedInputPath() (string, bool) {
	return f.inputPath, f.resolved
}
func (f *fakeVideoDevice) ReadFrame() ([]byte, error) { return nil, nil }
func (f *fakeVideoDevice) Close() error               { return nil }

func TestVideoDeviceRegistryAddRemove(t *testing.T) {
	r := NewVideoDeviceRegistry()
	dev := &fakeVideoDevice{path: "/dev/v4l-touch0", inputPath: "/dev/input/event0", resolved: true}
	r.Add(dev)

	if len(r.List()) != 1 {
		t.Fatalf("expected one unattached device, got %d", len(r.List()))
	}

	got, ok := r.Remove("/dev/v4l-touch0")
	if !ok || got != dev {
		t.Fatalf("Remove did not return the added device")
	}
	if len(r.List()) != 0 {
		t.Error("registry should be empty after Remove")
	}
}

func TestVideoDeviceRegistryTakeForInputPath(t *testing.T) {
	r := NewVideoDeviceRegistry()
	dev := &fakeVideoDevice{path: "/dev/v4l-touch0", inputPath: "/dev/input/event0", resolved: true}
	r.Add(dev)

	if _, ok := r.TakeForInputPath("/dev/input/event1"); ok {
		t.Error("should not match an unrelated input path")
	}

	got, ok := r.TakeForInputPath("/dev/input/event0")
	if !ok || got != dev {
		t.Fatal("expected to take the matching device")
	}
	if len(r.List()) != 0 {
		t.Error("taken device should be removed from the registry")
	}
}

func TestVideoFrameQueueBounded(t *testing.T) {
	var q videoFrameQueue
	for i := 0; i < maxVideoFrames+3; i++ {
		q.push([]byte{byte(i)})
	}
	frames := q.drain()
	if len(frames) != maxVideoFrames {
		t.Fatalf("queue should cap at %d frames, got %d", maxVideoFrames, len(frames))
	}
	if frames[0][0] != byte(3) {
		t.Errorf("oldest frames should be dropped first; got first byte %d", frames[0][0])
	}
	if more := q.drain(); len(more) != 0 {
		t.Error("drain should empty the queue")
	}
}
