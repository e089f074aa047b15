package eventhub

import "eventhub.dev/eventhub/internal/evdev"

// State queries (§4.8): each prefers the cached key/switch mirror
// populated by GetEvents, falling back to a direct kernel ioctl on a
// miss. A disabled or missing device always answers UNKNOWN.

// GetScanCodeState reports whether scanCode is currently held down on
// id, independent of any key-map translation.
func (h *Hub) GetScanCodeState(id DeviceId, scanCode uint16) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok || !rec.Enabled {
		return StateUnknown
	}
	if !rec.Capabilities.KeyBits.Test(uint(scanCode)) {
		return StateUnknown
	}
	if rec.KeyState.Test(uint(scanCode)) {
		return StateDown
	}
	if rec.dev != nil {
		if bits, err := rec.dev.KeyState(); err == nil {
			mask := NewBitMask(uint(len(bits)) * 8)
			mask.LoadFromBuffer(bits)
			if mask.Test(uint(scanCode)) {
				return StateDown
			}
		}
	}
	return StateUp
}

// GetKeyCodeState maps keyCode back to a scan code through the
// device's key map and reports its state, or UNKNOWN if the map has
// no entry for it.
func (h *Hub) GetKeyCodeState(id DeviceId, keyCode uint16) int32 {
	h.mu.Lock()
	rec, ok := h.dm.Get(id)
	if !ok || !rec.Enabled || rec.BaseKeyMap == nil {
		h.mu.Unlock()
		return StateUnknown
	}
	km := rec.EffectiveKeyMap()
	h.mu.Unlock()

	for scanCode := uint16(0); scanCode < evdev.KEY_CNT; scanCode++ {
		if e, err := km.MapKey(scanCode); err == nil && e.KeyCode == keyCode {
			return h.GetScanCodeState(id, scanCode)
		}
	}
	return StateUnknown
}

// GetSwitchState reports whether switch sw is currently active on id.
func (h *Hub) GetSwitchState(id DeviceId, sw uint16) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok || !rec.Enabled {
		return StateUnknown
	}
	if !rec.Capabilities.SwBits.Test(uint(sw)) {
		return StateUnknown
	}
	if rec.SwState.Test(uint(sw)) {
		return StateDown
	}
	if rec.dev != nil {
		if bits, err := rec.dev.SwitchState(); err == nil {
			mask := NewBitMask(uint(len(bits)) * 8)
			mask.LoadFromBuffer(bits)
			if mask.Test(uint(sw)) {
				return StateDown
			}
		}
	}
	return StateUp
}

// GetAbsoluteAxisValue fetches axis's current value directly from the
// kernel (absolute axis values are not cached, since they change on
// every report; only the capability bit is a snapshot).
func (h *Hub) GetAbsoluteAxisValue(id DeviceId, axis uint16) (int32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok || !rec.Enabled {
		return 0, newError(NotFound, "unknown or disabled device", nil)
	}
	if !rec.Capabilities.AbsBits.Test(uint(axis)) {
		return 0, newError(Unsupported, "device has no such absolute axis", nil)
	}
	if rec.dev == nil {
		return 0, newError(Unsupported, "device has no live descriptor", nil)
	}
	info, err := rec.dev.AbsInfo(axis)
	if err != nil {
		return 0, newError(IoError, "query abs axis", err)
	}
	return info.Value, nil
}

// GetAbsoluteAxisInfo reports axis's full EVIOCGABS description —
// range, flat, fuzz, and resolution alongside the current value — with
// Valid false when the device doesn't support that axis (§3's
// RawAbsoluteAxisInfo).
func (h *Hub) GetAbsoluteAxisInfo(id DeviceId, axis uint16) RawAbsoluteAxisInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok || !rec.Enabled || rec.dev == nil {
		return RawAbsoluteAxisInfo{}
	}
	if !rec.Capabilities.AbsBits.Test(uint(axis)) {
		return RawAbsoluteAxisInfo{}
	}
	info, err := rec.dev.AbsInfo(axis)
	if err != nil {
		return RawAbsoluteAxisInfo{}
	}
	return RawAbsoluteAxisInfo{
		Valid:      true,
		Min:        info.Minimum,
		Max:        info.Maximum,
		Flat:       info.Flat,
		Fuzz:       info.Fuzz,
		Resolution: info.Resolution,
	}
}

// HasScanCode reports whether id declares scanCode in its capability
// mask at all, distinct from GetScanCodeState's current-value answer
// (supplemented from the original's hasScanCode).
func (h *Hub) HasScanCode(id DeviceId, scanCode uint16) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.dm.Get(id)
	if !ok {
		return false
	}
	return rec.Capabilities.KeyBits.Test(uint(scanCode))
}

// MarkSupportedKeyCodes checks each of codes for presence through the
// loaded key map plus the kernel key bitmask, returning a same-length
// slice of flags (§4.8).
func (h *Hub) MarkSupportedKeyCodes(id DeviceId, codes []uint16) []bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]bool, len(codes))
	rec, ok := h.dm.Get(id)
	if !ok || rec.BaseKeyMap == nil {
		return out
	}
	km := rec.EffectiveKeyMap()

	want := make(map[uint16]int, len(codes))
	for i, c := range codes {
		want[c] = i
	}

	for scanCode := uint16(0); scanCode < evdev.KEY_CNT; scanCode++ {
		if !rec.Capabilities.KeyBits.Test(uint(scanCode)) {
			continue
		}
		e, err := km.MapKey(scanCode)
		if err != nil {
			continue
		}
		if i, ok := want[e.KeyCode]; ok {
			out[i] = true
		}
	}
	return out
}

// GetVirtualKeyDefinitions returns id's on-screen firmware key
// polygons, if any were loaded (supplemented from the original's
// getVirtualKeyDefinitions).
func (h *Hub) GetVirtualKeyDefinitions(id DeviceId) []VirtualKeyDefinition {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.dm.Get(id)
	if !ok {
		return nil
	}
	return rec.VirtualKeys
}
