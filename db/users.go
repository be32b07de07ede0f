package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

const userColumns = `id, email, password_hash, salt, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Salt, &u.CreatedAt)
	return u, err
}

// CreateUser stores a new user. Returns ErrEmailTaken when the email is
// already registered (case-insensitive).
func (d *DB) CreateUser(ctx context.Context, email, passwordHash, salt string) (*User, error) {
	now := NowMs()
	email = strings.TrimSpace(email)

	res, err := d.RunWithResult(ctx, d.conn, `
		INSERT INTO users (email, password_hash, salt, created_at)
		VALUES (?, ?, ?, ?)
	`, email, passwordHash, salt, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &User{
		ID:           res.LastInsertID,
		Email:        email,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    now,
	}, nil
}

// FindUserByEmail returns nil when no user has that email
func (d *DB) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return SelectOne(ctx, d, d.conn,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		[]QueryParam{strings.TrimSpace(email)},
		func(row *sql.Row) (User, error) { return scanUser(row) },
	)
}

// GetUser returns nil when the id is unknown
func (d *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	return SelectOne(ctx, d, d.conn,
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
		[]QueryParam{id},
		func(row *sql.Row) (User, error) { return scanUser(row) },
	)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
