package db

import (
	"context"
	"database/sql"
	"time"
)

const (
	// SessionDuration is the default session lifetime (30 days)
	SessionDuration = 30 * 24 * time.Hour
)

// CreateSession creates a new session for userID in the database
func (d *DB) CreateSession(ctx context.Context, id string, userID int64) (*Session, error) {
	now := NowMs()
	expiresAt := time.Now().Add(SessionDuration).UnixMilli()

	_, err := d.Run(ctx, d.conn, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, last_used_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, now, expiresAt, now)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:         id,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		LastUsedAt: now,
	}, nil
}

// GetSession retrieves a session by ID, returns nil if not found or expired
func (d *DB) GetSession(ctx context.Context, id string) (*Session, error) {
	return SelectOne(ctx, d, d.conn, `
		SELECT id, user_id, created_at, expires_at, last_used_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`, []QueryParam{id, NowMs()}, func(row *sql.Row) (Session, error) {
		var s Session
		err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.LastUsedAt)
		return s, err
	})
}

// TouchSession updates the last_used_at timestamp for a session
func (d *DB) TouchSession(ctx context.Context, id string) error {
	_, err := d.Run(ctx, d.conn, `
		UPDATE sessions
		SET last_used_at = ?
		WHERE id = ?
	`, NowMs(), id)
	return err
}

// DeleteSession removes a session from the database
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := d.Run(ctx, d.conn, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpiredSessions removes all expired sessions
func (d *DB) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := d.RunWithResult(ctx, d.conn, `DELETE FROM sessions WHERE expires_at <= ?`, NowMs())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}
