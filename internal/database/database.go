package database

import (
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		source TEXT NOT NULL,
		payload_json TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_event_type ON events (event_type);
	CREATE INDEX IF NOT EXISTS idx_events_source ON events (source);
	CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at);

	CREATE TABLE IF NOT EXISTS rules (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		condition_json TEXT NOT NULL DEFAULT '{}',
		action_json TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		cooldown_seconds INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rule_executions (
		id TEXT NOT NULL PRIMARY KEY,
		rule_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_payload_json TEXT NOT NULL DEFAULT '{}',
		action_result_json TEXT NOT NULL DEFAULT '{}',
		success BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rule_executions_rule_id ON rule_executions (rule_id);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
