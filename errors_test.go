package eventhub

import (
	"errors"
	"testing"
)

func TestHubErrorIs(t *testing.T) {
	a := newError(NotFound, "no such device", nil)
	b := newError(NotFound, "different message", nil)
	c := newError(IoError, "read failed", nil)

	if !errors.Is(a, b) {
		t.Error("two HubErrors with the same kind should compare equal via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("HubErrors with different kinds should not compare equal")
	}
}

func TestHubErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := newError(PermissionDenied, "open /dev/input/event3", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through Unwrap to the cause")
	}
	if got := err.Error(); got == "" {
		t.Error("Error() should not be empty")
	}
}

func TestErrorKindString(t *testing.T) {
	if NotFound.String() != "not found" {
		t.Errorf("NotFound.String() = %q", NotFound.String())
	}
	if ErrorKind(99).String() != "unknown" {
		t.Errorf("unrecognized kind should stringify to unknown")
	}
}
