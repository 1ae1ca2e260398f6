// Package sqlite persists users, languages, learned words, scores and
// vocabulary lists for the word server.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection. A single connection keeps writes
// serialized; WAL keeps readers unblocked.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for an ephemeral instance.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.seedLanguages(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed languages: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS languages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		word_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS learned_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		word TEXT NOT NULL,
		translation TEXT NOT NULL,
		language_id INTEGER NOT NULL,
		learned_at TEXT NOT NULL,
		FOREIGN KEY (language_id) REFERENCES languages(id)
	);

	CREATE TABLE IF NOT EXISTS user_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE,
		score INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS vocabulary_lists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		icon TEXT NOT NULL DEFAULT 'folder',
		color TEXT NOT NULL DEFAULT '#8F87F1',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vocabulary_list_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		list_id INTEGER NOT NULL,
		word_id INTEGER NOT NULL,
		added_at TEXT NOT NULL,
		notes TEXT,
		UNIQUE (list_id, word_id),
		FOREIGN KEY (list_id) REFERENCES vocabulary_lists(id) ON DELETE CASCADE,
		FOREIGN KEY (word_id) REFERENCES learned_words(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_learned_words_user_id ON learned_words(user_id);
	CREATE INDEX IF NOT EXISTS idx_learned_words_language_id ON learned_words(language_id);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_lists_user_id ON vocabulary_lists(user_id);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_list_words_list_id ON vocabulary_list_words(list_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) seedLanguages() error {
	seeds := []struct {
		name      string
		code      string
		wordCount int
	}{
		{"Spanish", "es", 3248},
		{"French", "fr", 3145},
		{"German", "de", 2976},
		{"Japanese", "ja", 2348},
		{"Hindi", "hi", 3510},
		{"Tamil", "ta", 3275},
		{"Telugu", "te", 3150},
		{"Malayalam", "ml", 3300},
	}
	for _, seed := range seeds {
		_, err := db.conn.Exec(
			`INSERT OR IGNORE INTO languages (name, code, word_count) VALUES (?, ?, ?)`,
			seed.name, seed.code, seed.wordCount,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Conn returns the underlying connection for the repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	return db.conn.Close()
}
