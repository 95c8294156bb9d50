package persistence

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// NewDB opens a database connection and creates the schema.
// dbType is "sqlite" or "postgres".
func NewDB(dbType, dsn string) (*sqlx.DB, error) {
	driver, err := driverName(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" {
		// a single connection serialises writers and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func driverName(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// Statements are written to run unchanged on SQLite and PostgreSQL
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		last_active TIMESTAMP NOT NULL
	)`},
	{"learner_progress", `
	CREATE TABLE IF NOT EXISTS learner_progress (
		user_id TEXT PRIMARY KEY REFERENCES users (id),
		difficulty_ceiling INTEGER NOT NULL,
		streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		days_active INTEGER NOT NULL DEFAULT 0,
		last_session_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	)`},
	{"user_preferences", `
	CREATE TABLE IF NOT EXISTS user_preferences (
		user_id TEXT NOT NULL REFERENCES users (id),
		preference_key TEXT NOT NULL,
		preference_value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, preference_key)
	)`},
	{"sentences", `
	CREATE TABLE IF NOT EXISTS sentences (
		id TEXT PRIMARY KEY,
		latin TEXT NOT NULL,
		reference_translation TEXT NOT NULL,
		difficulty INTEGER NOT NULL,
		sort_order INTEGER NOT NULL,
		alignment_confidence DOUBLE PRECISION
	)`},
	{"sentences index", `CREATE INDEX IF NOT EXISTS idx_sentences_difficulty ON sentences (difficulty, sort_order)`},
	{"vocabulary", `
	CREATE TABLE IF NOT EXISTS vocabulary (
		id TEXT PRIMARY KEY,
		lemma TEXT NOT NULL,
		gloss TEXT NOT NULL,
		difficulty INTEGER NOT NULL
	)`},
	{"phrases", `
	CREATE TABLE IF NOT EXISTS phrases (
		id TEXT PRIMARY KEY,
		latin TEXT NOT NULL,
		translation TEXT NOT NULL,
		difficulty INTEGER NOT NULL
	)`},
	{"cards", `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id),
		kind TEXT NOT NULL,
		content_id TEXT NOT NULL,
		state TEXT NOT NULL,
		stability DOUBLE PRECISION NOT NULL,
		difficulty DOUBLE PRECISION NOT NULL,
		elapsed_days DOUBLE PRECISION NOT NULL,
		scheduled_days DOUBLE PRECISION NOT NULL,
		learning_steps INTEGER NOT NULL,
		reps INTEGER NOT NULL,
		lapses INTEGER NOT NULL,
		last_review TIMESTAMP,
		due TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, kind, content_id)
	)`},
	{"cards index", `CREATE INDEX IF NOT EXISTS idx_cards_user_due ON cards (user_id, kind, due)`},
	{"review_history", `
	CREATE TABLE IF NOT EXISTS review_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id),
		card_id TEXT NOT NULL REFERENCES cards (id),
		outcome TEXT NOT NULL,
		rating TEXT NOT NULL,
		state_before TEXT NOT NULL,
		elapsed_days DOUBLE PRECISION NOT NULL,
		scheduled_days DOUBLE PRECISION NOT NULL,
		review_time TIMESTAMP NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE
	)`},
	{"review_history index", `CREATE INDEX IF NOT EXISTS idx_review_history_card ON review_history (card_id, review_time)`},
	{"sessions", `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id),
		items TEXT NOT NULL,
		current_index INTEGER NOT NULL,
		answered_index INTEGER NOT NULL DEFAULT -1,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`},
	{"sessions index", `CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON sessions (user_id, status, created_at)`},
}

func createTables(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}

// utc normalises timestamps before they are written, so that SQLite's text
// representation sorts chronologically
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
