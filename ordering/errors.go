package ordering

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable matches every failure of the underlying store,
	// cancellation and timeouts included. Nothing was applied.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPrecondition matches malformed reassignment input. Nothing was applied.
	ErrPrecondition = errors.New("precondition violated")
)

// StoreError wraps a store failure with the engine operation that hit it
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// PreconditionError describes why a set of assignments was rejected
type PreconditionError struct {
	Reason   string
	ID       int64
	Position int64
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v: %s (id %d, position %d)", ErrPrecondition, e.Reason, e.ID, e.Position)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

const (
	reasonDuplicatePosition = "duplicate target position"
	reasonDuplicateID       = "item assigned twice"
	reasonUnknownID         = "unknown item"
	reasonCollision         = "position held by an item not being moved"
	reasonOutOfRange        = "position out of range"
)

// classify keeps precondition failures as they are and wraps everything else
// as a store failure
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe
	}
	return &StoreError{Op: op, Err: err}
}
