package eventhub

import "eventhub.dev/eventhub/internal/evdev"

// LED codes are abstract indicator identifiers translated per-device
// to a kernel LED scan code via a device's LED table (§4.9, glossary).
type LEDCode int

const (
	LEDCapsLock LEDCode = iota
	LEDNumLock
	LEDScrollLock
	LEDPlayer1
	LEDPlayer2
	LEDPlayer3
	LEDPlayer4
)

// defaultLEDTable maps the abstract codes this hub knows about to the
// standard evdev LED scan codes. Player-indicator LEDs have no
// standard evdev code; devices that expose them are expected to carry
// a device-specific table via Properties instead (not modeled further
// here).
var defaultLEDTable = map[LEDCode]uint16{
	LEDCapsLock:   0x01, // LED_CAPSL
	LEDNumLock:    0x00, // LED_NUML
	LEDScrollLock: 0x02, // LED_SCROLLL
}

// Vibrate uploads effect as an FF_RUMBLE waveform and plays it once,
// cancelling any effect already playing on the device first (§4.9,
// §8's S3 scenario). strong and weak are 0..0xffff rumble motor
// magnitudes.
func (h *Hub) Vibrate(id DeviceId, strong, weak uint16) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok {
		return newError(NotFound, "unknown device", nil)
	}
	if !rec.Capabilities.Classes.Has(ClassVibrator) {
		return newError(Unsupported, "device has no force-feedback support", nil)
	}
	if rec.dev == nil {
		return newError(Unsupported, "device has no live descriptor", nil)
	}

	if rec.Vibrator.Playing {
		rec.dev.Erase(rec.Vibrator.EffectID)
		rec.Vibrator = VibratorState{EffectID: -1}
	}

	effectID, err := rec.dev.Upload(strong, weak)
	if err != nil {
		return newError(IoError, "upload ff effect", err)
	}
	if err := rec.dev.Play(effectID, 1); err != nil {
		rec.dev.Erase(effectID)
		return newError(IoError, "play ff effect", err)
	}

	rec.Vibrator = VibratorState{EffectID: effectID, Playing: true}
	return nil
}

// CancelVibrate stops and erases the currently playing effect on id,
// if any. A second call with nothing playing is a no-op (§4.9, §8's
// S3 scenario).
func (h *Hub) CancelVibrate(id DeviceId) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok {
		return newError(NotFound, "unknown device", nil)
	}
	if !rec.Vibrator.Playing {
		return nil
	}
	if rec.dev != nil {
		rec.dev.Play(rec.Vibrator.EffectID, 0)
		rec.dev.Erase(rec.Vibrator.EffectID)
	}
	rec.Vibrator = VibratorState{EffectID: -1}
	return nil
}

// SetLEDState translates code to id's kernel LED scan code and writes
// its on/off state; a no-op if the device doesn't support that LED
// (§4.9).
func (h *Hub) SetLEDState(id DeviceId, code LEDCode, on bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.dm.Get(id)
	if !ok {
		return newError(NotFound, "unknown device", nil)
	}
	scanCode, ok := defaultLEDTable[code]
	if !ok || !rec.Capabilities.LedBits.Test(uint(scanCode)) {
		return nil
	}
	if rec.dev == nil {
		return newError(Unsupported, "device has no live descriptor", nil)
	}

	value := int32(0)
	if on {
		value = 1
	}
	if err := rec.dev.Write(evdev.InputEvent{Type: evdev.EV_LED, Code: scanCode, Value: value}); err != nil {
		return newError(IoError, "write led state", err)
	}
	return nil
}
