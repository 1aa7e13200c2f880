package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "dapp"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	pauses := StaticPauses{"dapp": true}
	if err := Guard(pauses, "dapp"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(pauses, "bank"); err != nil {
		t.Fatalf("unpaused module blocked: %v", err)
	}
	if err := Guard(pauses, ""); err != nil {
		t.Fatalf("empty module name must not block: %v", err)
	}
}
