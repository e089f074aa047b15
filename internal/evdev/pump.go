package evdev

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// EpollMaxEvents bounds how many ready descriptors a single Wait call
// returns, mirroring the original EventHub's EPOLL_MAX_EVENTS.
const EpollMaxEvents = 16

// PumpEvent is one readiness notification from Wait.
type PumpEvent struct {
	Fd     int32
	Events uint32
}

// HasError reports EPOLLERR or EPOLLHUP on the event.
func (e PumpEvent) HasError() bool {
	return e.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
}

// EpollPump owns the epoll instance, the inotify instance (with watches
// on the input and video device directories), and the self-pipe used to
// wake a blocked Wait call. It is the Go-native twin of the original
// EventHub's mEpollFd/mINotifyFd/mWakeReadPipeFd/mWakeWritePipeFd
// quartet (§4.5).
type EpollPump struct {
	epollFd int

	inotifyFd int
	inputWd   int
	videoWd   int

	wakeReadFd  int
	wakeWriteFd int
}

// NewEpollPump creates the epoll instance, an inotify instance watching
// inputDir and videoDir, and a self-pipe registered with epoll. videoDir
// may be empty, in which case no video watch is installed.
func NewEpollPump(inputDir, videoDir string) (*EpollPump, error) {
	p := &EpollPump{epollFd: -1, inotifyFd: -1, inputWd: -1, videoWd: -1, wakeReadFd: -1, wakeWriteFd: -1}

	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	p.epollFd = epollFd

	inotifyFd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		unix.Close(epollFd)
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	p.inotifyFd = inotifyFd

	inputWd, err := unix.InotifyAddWatch(inotifyFd, inputDir, unix.IN_DELETE|unix.IN_CREATE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("inotify_add_watch %q: %w", inputDir, err)
	}
	p.inputWd = inputWd

	if videoDir != "" {
		videoWd, err := unix.InotifyAddWatch(inotifyFd, videoDir, unix.IN_DELETE|unix.IN_CREATE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("inotify_add_watch %q: %w", videoDir, err)
		}
		p.videoWd = videoWd
	}

	if err := p.registerFd(inotifyFd); err != nil {
		p.Close()
		return nil, fmt.Errorf("register inotify fd: %w", err)
	}

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		p.Close()
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	p.wakeReadFd, p.wakeWriteFd = fds[0], fds[1]

	if err := p.registerFd(p.wakeReadFd); err != nil {
		p.Close()
		return nil, fmt.Errorf("register wake fd: %w", err)
	}

	return p, nil
}

// InotifyFd and WakeReadFd let the caller recognize which readiness
// events in a Wait batch belong to the pump itself, as opposed to a
// device fd.
func (p *EpollPump) InotifyFd() int  { return p.inotifyFd }
func (p *EpollPump) WakeReadFd() int { return p.wakeReadFd }

// RegisterFd adds fd to the epoll set for read readiness.
func (p *EpollPump) RegisterFd(fd int) error {
	return p.registerFd(fd)
}

func (p *EpollPump) registerFd(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// UnregisterFd removes fd from the epoll set. It is not an error to
// unregister an fd that is already gone (the kernel drops epoll
// registrations automatically when the last reference to an fd is
// closed); an ENOENT from the kernel is therefore reported as success.
func (p *EpollPump) UnregisterFd(fd int) error {
	err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && err != unix.ENOENT {
		return fmt.Errorf("epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks for up to timeoutMs milliseconds (negative means forever)
// and returns the ready fds. EINTR is retried transparently without
// adjusting the caller's deadline, matching §4.5's "the caller's
// deadline is preserved by the outer EventLoop" contract: a true
// per-call deadline would require tracking elapsed wall time here,
// which this pump deliberately leaves to EventLoop.
func (p *EpollPump) Wait(timeoutMs int) ([]PumpEvent, error) {
	var raw [EpollMaxEvents]unix.EpollEvent
	for {
		n, err := unix.EpollWait(p.epollFd, raw[:], timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("epoll_wait: %w", err)
		}
		out := make([]PumpEvent, n)
		for i := 0; i < n; i++ {
			out[i] = PumpEvent{Fd: raw[i].Fd, Events: raw[i].Events}
		}
		return out, nil
	}
}

// Wake causes a blocked Wait to return promptly by writing one byte to
// the self-pipe. Safe to call from any goroutine, and safe to call
// more than once before the pipe is drained.
func (p *EpollPump) Wake() error {
	_, err := unix.Write(p.wakeWriteFd, []byte{0})
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("wake: %w", err)
	}
	return nil
}

// DrainWake empties the self-pipe of any pending wake bytes.
func (p *EpollPump) DrainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.wakeReadFd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// InotifyEvent is a decoded inotify_event name record.
type InotifyEvent struct {
	Wd      int32
	Mask    uint32
	Cookie  uint32
	Name    string
	IsInput bool
}

// ReadInotify decodes every inotify_event currently buffered on the
// inotify fd. It never blocks (the fd is opened O_NONBLOCK).
func (p *EpollPump) ReadInotify() ([]InotifyEvent, error) {
	var buf [4096]byte
	n, err := unix.Read(p.inotifyFd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil, nil
		}
		return nil, fmt.Errorf("read inotify: %w", err)
	}

	var out []InotifyEvent
	offset := 0
	const headerSize = 16 // wd(4) + mask(4) + cookie(4) + len(4)
	for offset+headerSize <= n {
		wd := int32(le32(buf[offset:]))
		mask := le32(buf[offset+4:])
		cookie := le32(buf[offset+8:])
		nameLen := int(le32(buf[offset+12:]))

		nameStart := offset + headerSize
		nameEnd := nameStart + nameLen
		if nameEnd > n {
			break
		}
		name := cString(buf[nameStart:nameEnd])

		out = append(out, InotifyEvent{
			Wd:      wd,
			Mask:    mask,
			Cookie:  cookie,
			Name:    name,
			IsInput: wd == int32(p.inputWd),
		})

		offset = nameEnd
	}
	return out, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Close releases every fd the pump owns. It is idempotent.
func (p *EpollPump) Close() error {
	closeIfOpen := func(fd *int) {
		if *fd >= 0 {
			unix.Close(*fd)
			*fd = -1
		}
	}
	closeIfOpen(&p.wakeWriteFd)
	closeIfOpen(&p.wakeReadFd)
	closeIfOpen(&p.inotifyFd)
	closeIfOpen(&p.epollFd)
	return nil
}
