package eventhub

import (
	"os"
	"path/filepath"
)

// KeyEntry is one mapping from a raw scan code to a logical key code,
// as a real key-character-map file would define it. Parsing that file
// format is delegated (§4.4: "delegates parsing") — KeyMap only stores
// and queries the resolved table.
type KeyEntry struct {
	KeyCode   uint16
	MetaState uint32
}

// AxisEntry maps a raw absolute axis to a logical axis identifier,
// mirroring the original's mapAxis alongside mapKey.
type AxisEntry struct {
	Axis uint16
}

// KeyMap is a resolved, queryable key-character-map: a base map plus
// an optional runtime overlay layered on top. Overlay entries shadow
// base entries with the same scan code (§4.4: "queries see the overlay
// first, then the combined base map").
type KeyMap struct {
	Name    string
	byCode  map[uint16]KeyEntry
	byAxis  map[uint16]AxisEntry
	overlay *KeyMap
}

// NewKeyMap returns an empty, named key map ready to be populated by a
// loader.
func NewKeyMap(name string) *KeyMap {
	return &KeyMap{
		Name:   name,
		byCode: make(map[uint16]KeyEntry),
		byAxis: make(map[uint16]AxisEntry),
	}
}

// SetKey registers a scan-code-to-key-code mapping.
func (m *KeyMap) SetKey(scanCode uint16, e KeyEntry) {
	m.byCode[scanCode] = e
}

// SetAxis registers a raw-axis-to-logical-axis mapping.
func (m *KeyMap) SetAxis(rawAxis uint16, e AxisEntry) {
	m.byAxis[rawAxis] = e
}

// WithOverlay returns a copy of m with overlay layered on top for
// queries. The base map itself is not mutated.
func (m *KeyMap) WithOverlay(overlay *KeyMap) *KeyMap {
	clone := *m
	clone.overlay = overlay
	return &clone
}

// MapKey resolves scanCode to a logical key code, checking the overlay
// first. It returns NotFound when neither layer defines the code
// (§4.4: "map_key ... fail with NOT_FOUND").
func (m *KeyMap) MapKey(scanCode uint16) (KeyEntry, error) {
	if m.overlay != nil {
		if e, ok := m.overlay.byCode[scanCode]; ok {
			return e, nil
		}
	}
	if e, ok := m.byCode[scanCode]; ok {
		return e, nil
	}
	return KeyEntry{}, newError(NotFound, "no key mapping for scan code", nil)
}

// MapAxis resolves a raw absolute axis to its logical descriptor,
// checking the overlay first. Present in the original's public
// interface alongside mapKey; §4.8 only names scan/key/switch/abs
// state queries, so this is a supplemented operation.
func (m *KeyMap) MapAxis(rawAxis uint16) (AxisEntry, error) {
	if m.overlay != nil {
		if e, ok := m.overlay.byAxis[rawAxis]; ok {
			return e, nil
		}
	}
	if e, ok := m.byAxis[rawAxis]; ok {
		return e, nil
	}
	return AxisEntry{}, newError(NotFound, "no axis mapping for raw axis", nil)
}

// VirtualKeyDefinition is an on-screen firmware key polygon (§3's
// "optional virtual-key polygon list"). DeviceManager.OpenDevice does
// not populate DeviceRecord.VirtualKeys, so the list is empty for every
// device the hub opens.
type VirtualKeyDefinition struct {
	ScanCode               uint16
	KeyCode                uint16
	CenterX, CenterY       int32
	Width, Height          int32
}

// KeyMapLoader resolves and caches key-character maps by device
// identifier, falling back to a generic map when no device-specific
// one exists (§4.4). Failure to load is non-fatal: callers get an
// empty map and NOT_FOUND on lookups rather than an error.
type KeyMapLoader struct {
	dir     string
	generic *KeyMap
	cache   map[string]*KeyMap
}

// NewKeyMapLoader returns a loader that resolves maps under dir, one
// file per descriptor plus a "generic" fallback.
func NewKeyMapLoader(dir string) *KeyMapLoader {
	return &KeyMapLoader{
		dir:     dir,
		generic: NewKeyMap("generic"),
		cache:   make(map[string]*KeyMap),
	}
}

// Load resolves the base key map for identifier, by descriptor first
// and falling back to the generic map. It never returns an error: a
// missing map degrades to an empty, named map rather than failing the
// device open (§4.4).
func (l *KeyMapLoader) Load(descriptor string) *KeyMap {
	if m, ok := l.cache[descriptor]; ok {
		return m
	}

	path := filepath.Join(l.dir, descriptor+".kcm")
	m, err := loadKeyCharacterMapFile(path, descriptor)
	if err != nil {
		m = l.generic
	}
	l.cache[descriptor] = m
	return m
}

// loadKeyCharacterMapFile is a stand-in for the delegated key-character
// map file parser (§1's "the key-character-map file parser ... only
// its abstract interface is referenced"). It is intentionally minimal:
// this hub does not own the file format, only the resolve-and-layer
// policy around it.
func loadKeyCharacterMapFile(path, name string) (*KeyMap, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return NewKeyMap(name), nil
}
