package eventhub

import (
	"context"
	"regexp"
)

// controllerSlots is the number of player-index slots the pool manages
// (§4.2: "A bitmap of 32 slots").
const controllerSlots = 32

// ControllerNumberPool allocates small positive integers representing
// gamepad player indices. It is hub-scoped, never process-global
// (§9's "No hidden singletons").
type ControllerNumberPool struct {
	used uint32 // bit n set means slot n+1 is held
}

// NewControllerNumberPool returns an empty pool.
func NewControllerNumberPool() *ControllerNumberPool {
	return &ControllerNumberPool{}
}

// Acquire returns the lowest-numbered free slot, 1-indexed, or 0 when
// every slot is taken.
func (p *ControllerNumberPool) Acquire() int32 {
	for i := 0; i < controllerSlots; i++ {
		if p.used&(1<<uint(i)) == 0 {
			p.used |= 1 << uint(i)
			return int32(i + 1)
		}
	}
	return 0
}

// Release frees slot n. Releasing an already-free slot is a no-op
// that Release logs as a warning (§4.2); an out-of-range n is ignored
// without a log line.
func (p *ControllerNumberPool) Release(ctx context.Context, n int32) {
	if n < 1 || n > controllerSlots {
		return
	}
	bit := uint32(1) << uint(n-1)
	if p.used&bit == 0 {
		Logger(ctx).Warn("release of already-free controller number", "number", n)
		return
	}
	p.used &^= bit
}

// gamepadNamePattern is the heuristic the DeviceManager consults before
// calling Acquire at all: a device whose name doesn't look like a
// gamepad never gets a controller number, regardless of pool state
// (§4.2: "policy left to the DeviceManager which only calls acquire in
// that case").
var gamepadNamePattern = regexp.MustCompile(`(?i)gamepad|joystick|controller|pad\b|xbox|dualshock|dualsense|joy-?con`)

// LooksLikeGamepad reports whether name matches the known-gamepad
// naming heuristic.
func LooksLikeGamepad(name string) bool {
	return gamepadNamePattern.MatchString(name)
}
