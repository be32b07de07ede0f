package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

const todoColumns = `id, description, done, position, created_at, updated_at`

func scanTodo(row interface{ Scan(...any) error }) (Todo, error) {
	var t Todo
	var done int
	err := row.Scan(&t.ID, &t.Description, &done, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	t.Done = done == 1
	return t, err
}

// ListTodos returns every live todo ordered by position, highest first.
// q may be the pool or a transaction.
func (d *DB) ListTodos(ctx context.Context, q Querier) ([]Todo, error) {
	return Select(ctx, d, q,
		`SELECT `+todoColumns+` FROM todos ORDER BY position DESC`,
		nil,
		func(rows *sql.Rows) (Todo, error) { return scanTodo(rows) },
	)
}

// CreateTodo inserts a todo above every existing one. Reading the current
// maximum and inserting share a transaction so concurrent creates cannot
// pick the same position.
func (d *DB) CreateTodo(ctx context.Context, description string) (*Todo, error) {
	var created Todo
	err := d.Transaction(ctx, func(tx *sql.Tx) error {
		var top int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM todos`).Scan(&top); err != nil {
			return err
		}
		if top == math.MaxInt64 {
			return ErrPositionOverflow
		}
		next := top + 1

		now := NowMs()
		res, err := d.RunWithResult(ctx, tx, `
			INSERT INTO todos (description, done, position, created_at, updated_at)
			VALUES (?, 0, ?, ?, ?)
		`, description, next, now, now)
		if err != nil {
			return err
		}

		created = Todo{
			ID:          res.LastInsertID,
			Description: description,
			Position:    next,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SetTodoDone updates the completion flag of one todo
func (d *DB) SetTodoDone(ctx context.Context, id int64, done bool) error {
	res, err := d.RunWithResult(ctx, d.conn,
		`UPDATE todos SET done = ?, updated_at = ? WHERE id = ?`,
		boolToInt(done), NowMs(), id,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// DeleteTodo removes one todo. Positions of the remaining todos are untouched.
func (d *DB) DeleteTodo(ctx context.Context, id int64) error {
	res, err := d.RunWithResult(ctx, d.conn, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// DeleteTodos removes the given todos inside tx and reports how many rows went away
func (d *DB) DeleteTodos(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM todos WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var removed int64
	for _, id := range ids {
		d.logQuery("run", "DELETE FROM todos WHERE id = ?", []QueryParam{id})
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

// SetTodoPositions rewrites the position of every listed todo inside tx.
//
// SQLite checks UNIQUE per row, so a permutation written row by row would
// trip idx_todos_position halfway through. The rows are first parked below
// every live position and every target, then moved to their targets.
// Callers must make sure the targets do not collide with each other or with
// todos outside updates; the unique index rejects the write otherwise.
func (d *DB) SetTodoPositions(ctx context.Context, tx *sql.Tx, updates []PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var lowest int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MIN(position), 0) FROM todos`).Scan(&lowest); err != nil {
		return err
	}
	for _, u := range updates {
		lowest = min(lowest, u.Position)
	}
	n := int64(len(updates))
	if lowest < math.MinInt64+n {
		return fmt.Errorf("park %d todos below %d: %w", n, lowest, ErrPositionOverflow)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE todos SET position = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := NowMs()
	for i, u := range updates {
		parked := lowest - 1 - int64(i)
		res, err := stmt.ExecContext(ctx, parked, now, u.ID)
		if err != nil {
			return fmt.Errorf("park todo %d: %w", u.ID, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("park todo %d: %w", u.ID, ErrTodoNotFound)
		}
	}

	for _, u := range updates {
		d.logQuery("run", "UPDATE todos SET position = ? WHERE id = ?", []QueryParam{u.Position, u.ID})
		if _, err := stmt.ExecContext(ctx, u.Position, now, u.ID); err != nil {
			return fmt.Errorf("move todo %d to %d: %w", u.ID, u.Position, err)
		}
	}

	return nil
}
