package db

var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS notes (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			content TEXT DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes (updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_search ON notes
			USING gin (to_tsvector('english', title || ' ' || COALESCE(content, '')))`,
	},
	// AUTOINCREMENT keeps SQLite from reusing the id of a deleted max row.
	SQLite: {
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title VARCHAR(255) NOT NULL,
			content TEXT DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes (updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_search ON notes (lower(title || ' ' || COALESCE(content, '')))`,
	},
}
