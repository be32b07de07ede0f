package ordering

import (
	"context"
	"database/sql"

	"github.com/xiaoyuanzhu-com/my-todos/db"
)

// dbStore adapts the db package to the Store interface
type dbStore struct {
	db *db.DB
}

// NewDBStore creates a Store backed by the todos table
func NewDBStore(database *db.DB) Store {
	return &dbStore{db: database}
}

func (s *dbStore) View(ctx context.Context, fn func(Tx) error) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&dbTx{db: s.db, tx: tx})
	})
}

func (s *dbStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&dbTx{db: s.db, tx: tx})
	})
}

type dbTx struct {
	db *db.DB
	tx *sql.Tx
}

func (t *dbTx) Items(ctx context.Context) ([]Item, error) {
	todos, err := t.db.ListTodos(ctx, t.tx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(todos))
	for i, td := range todos {
		items[i] = Item{
			ID:          td.ID,
			Description: td.Description,
			Done:        td.Done,
			Position:    td.Position,
		}
	}
	return items, nil
}

func (t *dbTx) SetPositions(ctx context.Context, assignments []Assignment) error {
	updates := make([]db.PositionUpdate, len(assignments))
	for i, a := range assignments {
		updates[i] = db.PositionUpdate{ID: a.ID, Position: a.Position}
	}
	return t.db.SetTodoPositions(ctx, t.tx, updates)
}

func (t *dbTx) Delete(ctx context.Context, ids []int64) (int, error) {
	n, err := t.db.DeleteTodos(ctx, t.tx, ids)
	return int(n), err
}
