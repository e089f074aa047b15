package eventhub

import (
	"errors"
	"testing"
)

func TestKeyMapBaseLookup(t *testing.T) {
	m := NewKeyMap("test")
	m.SetKey(30, KeyEntry{KeyCode: 'A'})

	e, err := m.MapKey(30)
	if err != nil {
		t.Fatal(err)
	}
	if e.KeyCode != 'A' {
		t.Errorf("KeyCode = %v, want 'A'", e.KeyCode)
	}

	if _, err := m.MapKey(99); !errors.Is(err, &HubError{Kind: NotFound}) {
		t.Error("expected NotFound for an unmapped scan code")
	}
}

func TestKeyMapOverlayShadowsBase(t *testing.T) {
	base := NewKeyMap("base")
	base.SetKey(30, KeyEntry{KeyCode: 'A'})

	overlay := NewKeyMap("overlay")
	overlay.SetKey(30, KeyEntry{KeyCode: 'Z'})

	combined := base.WithOverlay(overlay)
	e, err := combined.MapKey(30)
	if err != nil {
		t.Fatal(err)
	}
	if e.KeyCode != 'Z' {
		t.Errorf("overlay should shadow the base map; got KeyCode %v", e.KeyCode)
	}

	// A code the overlay doesn't define still falls through to base.
	base.SetKey(31, KeyEntry{KeyCode: 'S'})
	e, err = combined.MapKey(31)
	if err != nil {
		t.Fatal(err)
	}
	if e.KeyCode != 'S' {
		t.Errorf("expected fallthrough to base map, got KeyCode %v", e.KeyCode)
	}
}

func TestKeyMapAxis(t *testing.T) {
	m := NewKeyMap("test")
	m.SetAxis(0, AxisEntry{Axis: 1})

	e, err := m.MapAxis(0)
	if err != nil {
		t.Fatal(err)
	}
	if e.Axis != 1 {
		t.Errorf("Axis = %v, want 1", e.Axis)
	}

	if _, err := m.MapAxis(5); err == nil {
		t.Error("expected an error for an unmapped axis")
	}
}

func TestKeyMapLoaderFallsBackToGeneric(t *testing.T) {
	loader := NewKeyMapLoader(t.TempDir())
	m := loader.Load("no-such-device")
	if m.Name != "generic" {
		t.Errorf("expected fallback to the generic map, got %q", m.Name)
	}

	// Repeated loads for the same descriptor should be cached.
	again := loader.Load("no-such-device")
	if m != again {
		t.Error("expected the loader to cache resolved key maps")
	}
}
