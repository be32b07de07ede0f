package ordering

import (
	"context"
	"fmt"
)

// Item is a todo as seen by the engine
type Item struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	Position    int64  `json:"position"`
}

// Assignment moves the item with ID to Position
type Assignment struct {
	ID       int64
	Position int64
}

// Boundary is the end of the list a group is moved to
type Boundary int

const (
	Top Boundary = iota
	Bottom
)

func (b Boundary) String() string {
	switch b {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("Boundary(%d)", int(b))
	}
}

// Store runs engine callbacks inside storage transactions.
//
// Update must commit only when fn returns nil and must roll back on any
// error, including a cancelled ctx. View must hand fn a consistent snapshot.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of primitives the engine needs inside one transaction
type Tx interface {
	// Items returns every live item, highest position first
	Items(ctx context.Context) ([]Item, error)
	// SetPositions writes all assignments or fails
	SetPositions(ctx context.Context, assignments []Assignment) error
	// Delete removes the given items and returns how many were removed
	Delete(ctx context.Context, ids []int64) (int, error)
}

// Done matches completed items
func Done(it Item) bool { return it.Done }
