package db

import "database/sql"

func init() {
	RegisterMigration(Migration{
		Version:     1,
		Description: "Initial schema - todos and settings",
		Up:          migration001_initial,
	})
}

func migration001_initial(tx *sql.Tx) error {
	// Positions are unique among live todos; higher position is listed first.
	_, err := tx.Exec(`
		CREATE TABLE todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX idx_todos_position ON todos(position);
		CREATE INDEX idx_todos_done ON todos(done);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}
