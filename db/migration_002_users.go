package db

import "database/sql"

func init() {
	RegisterMigration(Migration{
		Version:     2,
		Description: "Add users and sessions tables for password authentication",
		Up:          migration002_users,
	})
}

func migration002_users(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		);

		CREATE INDEX idx_sessions_expires_at ON sessions(expires_at);
		CREATE INDEX idx_sessions_user_id ON sessions(user_id);
	`)
	return err
}
