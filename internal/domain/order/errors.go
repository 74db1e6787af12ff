package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors shared by all Repository implementations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicateNumber = errors.New("order number already exists")
	// ErrVersionConflict indicates the stored order changed between read and
	// write. Callers re-read and report the transition against fresh state.
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// InvalidTransitionError indicates a status change that is not an edge of the
// lifecycle graph, including re-applying the current status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("order is already %s", e.From)
	}
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ValidationError indicates a malformed order payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
