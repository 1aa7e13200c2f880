package common

import "errors"

// ErrModulePaused is returned by mutating operations of a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is paused by the operator.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a PauseView backed by a fixed set of paused module names,
// loaded from node configuration.
type StaticPauses map[string]bool

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool {
	return s[module]
}
