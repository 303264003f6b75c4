package database

import "database/sql"

// Schema version for migrations
const currentSchemaVersion = 2

// SQL migration scripts
var migrations = []migration{
	{
		version: 1,
		up: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE extractions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,

				-- Archive
				file_name TEXT NOT NULL,
				source_path TEXT NOT NULL,
				artist TEXT NOT NULL,
				album TEXT NOT NULL,

				-- Result
				success INTEGER NOT NULL,
				destination_path TEXT NOT NULL DEFAULT '',
				error_kind TEXT NOT NULL DEFAULT '',
				error_detail TEXT NOT NULL DEFAULT '',
				files INTEGER NOT NULL DEFAULT 0,
				bytes INTEGER NOT NULL DEFAULT 0,
				source_deleted INTEGER NOT NULL DEFAULT 0,
				duration_ms INTEGER NOT NULL DEFAULT 0,

				-- cli, tui or daemon
				triggered_by TEXT NOT NULL DEFAULT 'cli',

				-- Unix milliseconds
				created_at INTEGER NOT NULL
			)`,

			`CREATE INDEX idx_extractions_created ON extractions(created_at)`,

			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			`CREATE INDEX idx_extractions_artist_album ON extractions(artist, album)`,
			`CREATE INDEX idx_extractions_success ON extractions(success)`,

			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}

type migration struct {
	version int
	up      []string
}

// applyMigrations applies any pending schema migrations
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		// schema_version doesn't exist yet - this is a fresh database
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}

		// Each migration inserts its own schema_version row
		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
