package ordering

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/xiaoyuanzhu-com/my-todos/log"
)

var logger = log.GetLogger("Ordering")

// InvalidID is what an unparseable id token becomes. No live item has it.
const InvalidID int64 = 0

// MaxPosition bounds accepted positions: a target must lie strictly between
// -MaxPosition and MaxPosition so the store always has room to shuffle rows.
const MaxPosition int64 = 1 << 62

// Engine applies reorderings to the items of a Store
type Engine struct {
	store Store
}

// NewEngine creates an engine on top of store
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ListOrdered returns every live item, highest position first
func (e *Engine) ListOrdered(ctx context.Context) ([]Item, error) {
	var items []Item
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		items, err = snapshot(ctx, tx)
		return err
	})
	if err != nil {
		return nil, classify("list", err)
	}
	return items, nil
}

// ReassignPositions moves every referenced item to its new position in one
// transaction. Items not mentioned keep their position. Target positions
// must be distinct and inside ±MaxPosition, every id must be live and no
// target may be held by an item left in place; otherwise a
// *PreconditionError is returned and nothing changes.
func (e *Engine) ReassignPositions(ctx context.Context, assignments []Assignment) error {
	return e.update(ctx, "reassign", func(tx Tx, items []Item) error {
		return apply(ctx, tx, items, assignments)
	})
}

// ReorderByExplicitSequence arranges the items named by tokens so they are
// listed in token order, top first.
//
// Tokens that are not integers become InvalidID and tokens naming no live
// item are dropped; neither fails the call. When an id appears more than once
// its last occurrence decides where it goes. The named items trade the
// positions they already hold, so items left out of tokens do not move.
func (e *Engine) ReorderByExplicitSequence(ctx context.Context, tokens []string) error {
	ids := ParseIDs(tokens)
	return e.update(ctx, "reorder", func(tx Tx, items []Item) error {
		return apply(ctx, tx, items, sequenceAssignments(items, ids))
	})
}

// MoveGroupToBoundary lists every item matching pred at boundary and the rest
// after (or before) them. Both groups keep their internal order. Every live
// item is given a fresh position.
func (e *Engine) MoveGroupToBoundary(ctx context.Context, pred func(Item) bool, boundary Boundary) error {
	return e.update(ctx, "move "+boundary.String(), func(tx Tx, items []Item) error {
		return apply(ctx, tx, items, partitionAssignments(items, pred, boundary))
	})
}

// MoveCompletedToBottom sends done items below pending ones
func (e *Engine) MoveCompletedToBottom(ctx context.Context) error {
	return e.MoveGroupToBoundary(ctx, Done, Bottom)
}

// DeleteWhere removes every item matching pred in one transaction. Survivors
// keep their positions.
func (e *Engine) DeleteWhere(ctx context.Context, pred func(Item) bool) (int, error) {
	var removed int
	err := e.update(ctx, "delete", func(tx Tx, items []Item) error {
		var ids []int64
		for _, it := range items {
			if pred(it) {
				ids = append(ids, it.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		var err error
		removed, err = tx.Delete(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteCompleted removes every done item
func (e *Engine) DeleteCompleted(ctx context.Context) (int, error) {
	return e.DeleteWhere(ctx, Done)
}

// update runs fn on a fresh snapshot inside one store transaction
func (e *Engine) update(ctx context.Context, op string, fn func(Tx, []Item) error) error {
	err := e.store.Update(ctx, func(tx Tx) error {
		items, err := snapshot(ctx, tx)
		if err != nil {
			return err
		}
		return fn(tx, items)
	})
	if err != nil {
		err = classify(op, err)
		logger.Debug().Err(err).Str("op", op).Msg("ordering update failed")
		return err
	}
	return nil
}

func snapshot(ctx context.Context, tx Tx) ([]Item, error) {
	items, err := tx.Items(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		switch {
		case a.Position > b.Position:
			return -1
		case a.Position < b.Position:
			return 1
		default:
			return 0
		}
	})
	return items, nil
}

// apply validates assignments against items and writes them
func apply(ctx context.Context, tx Tx, items []Item, assignments []Assignment) error {
	if err := validate(items, assignments); err != nil {
		return err
	}
	assignments = dropUnchanged(items, assignments)
	if len(assignments) == 0 {
		return nil
	}
	return tx.SetPositions(ctx, assignments)
}

// validate checks that applying assignments to items leaves every position unique
func validate(items []Item, assignments []Assignment) error {
	current := make(map[int64]int64, len(items))
	for _, it := range items {
		current[it.ID] = it.Position
	}

	moved := make(map[int64]bool, len(assignments))
	targets := make(map[int64]int64, len(assignments))
	for _, a := range assignments {
		if _, ok := current[a.ID]; !ok {
			return &PreconditionError{Reason: reasonUnknownID, ID: a.ID, Position: a.Position}
		}
		if a.Position >= MaxPosition || a.Position <= -MaxPosition {
			return &PreconditionError{Reason: reasonOutOfRange, ID: a.ID, Position: a.Position}
		}
		if moved[a.ID] {
			return &PreconditionError{Reason: reasonDuplicateID, ID: a.ID, Position: a.Position}
		}
		if _, taken := targets[a.Position]; taken {
			return &PreconditionError{Reason: reasonDuplicatePosition, ID: a.ID, Position: a.Position}
		}
		moved[a.ID] = true
		targets[a.Position] = a.ID
	}

	for id, pos := range current {
		if moved[id] {
			continue
		}
		if owner, taken := targets[pos]; taken {
			return &PreconditionError{Reason: reasonCollision, ID: owner, Position: pos}
		}
	}
	return nil
}

func dropUnchanged(items []Item, assignments []Assignment) []Assignment {
	current := make(map[int64]int64, len(items))
	for _, it := range items {
		current[it.ID] = it.Position
	}
	out := assignments[:0:0]
	for _, a := range assignments {
		if current[a.ID] != a.Position {
			out = append(out, a)
		}
	}
	return out
}

// ParseIDs turns client id tokens into ids. Unparseable tokens become
// InvalidID and are logged rather than rejected.
func ParseIDs(tokens []string) []int64 {
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			logger.Warn().Str("token", tok).Int("index", i).Msg("unparseable todo id in ordering request")
			id = InvalidID
		}
		ids[i] = id
	}
	return ids
}

// sequenceAssignments hands the positions currently held by the named items
// back out in sequence order, highest first.
func sequenceAssignments(items []Item, ids []int64) []Assignment {
	current := make(map[int64]int64, len(items))
	for _, it := range items {
		current[it.ID] = it.Position
	}

	// Last occurrence wins.
	last := make(map[int64]int, len(ids))
	for i, id := range ids {
		last[id] = i
	}

	named := make([]int64, 0, len(last))
	slots := make([]int64, 0, len(last))
	for id := range last {
		pos, ok := current[id]
		if !ok {
			logger.Debug().Int64("id", id).Msg("ignoring unknown todo id in ordering request")
			continue
		}
		named = append(named, id)
		slots = append(slots, pos)
	}

	slices.SortFunc(named, func(a, b int64) int { return last[a] - last[b] })
	slices.SortFunc(slots, func(a, b int64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		default:
			return 0
		}
	})

	assignments := make([]Assignment, len(named))
	for i, id := range named {
		assignments[i] = Assignment{ID: id, Position: slots[i]}
	}
	return assignments
}

// partitionAssignments numbers the whole list n-1..0 from the top after
// moving the matching group to boundary. items must be highest position first.
func partitionAssignments(items []Item, pred func(Item) bool, boundary Boundary) []Assignment {
	var matched, rest []Item
	for _, it := range items {
		if pred(it) {
			matched = append(matched, it)
		} else {
			rest = append(rest, it)
		}
	}

	ordered := make([]Item, 0, len(items))
	if boundary == Top {
		ordered = append(append(ordered, matched...), rest...)
	} else {
		ordered = append(append(ordered, rest...), matched...)
	}

	n := int64(len(ordered))
	assignments := make([]Assignment, len(ordered))
	for i, it := range ordered {
		assignments[i] = Assignment{ID: it.ID, Position: n - 1 - int64(i)}
	}
	return assignments
}
