// Package state persists the bot's small mutable state: the chat to notify
// and mood check-ins. It replaces the ad-hoc chat_id.txt / CSV files of the
// original deployment with a single SQLite database.
package state

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// KeyChatID is the kv key holding the Telegram chat to send digests to.
const KeyChatID = "chat_id"

// Store is a small key-value and mood-log store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Mood is one stored check-in.
type Mood struct {
	RecordedAt time.Time `json:"recorded_at"`
	Score      int       `json:"score"`
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS moods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		score INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create state tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value for key, with ok=false when the key is absent.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put inserts or replaces the value for key.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, time.Now().Format(time.RFC3339))
	return err
}

// Delete removes key; deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// ChatID returns the persisted chat id, with ok=false when none is stored.
func (s *Store) ChatID() (int64, bool, error) {
	value, ok, err := s.Get(KeyChatID)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("stored chat id %q is not numeric: %w", value, err)
	}
	return id, true, nil
}

// SetChatID persists the chat id, replacing any previous one.
func (s *Store) SetChatID(id int64) error {
	return s.Put(KeyChatID, strconv.FormatInt(id, 10))
}

// RecordMood stores one mood check-in. Scores are 1 (low) through 5 (high).
func (s *Store) RecordMood(at time.Time, score int) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("mood score %d out of range 1-5", score)
	}
	_, err := s.db.Exec("INSERT INTO moods (recorded_at, score) VALUES (?, ?)",
		at.Format(time.RFC3339), score)
	return err
}

// RecentMoods returns up to n check-ins, newest first.
func (s *Store) RecentMoods(n int) ([]Mood, error) {
	rows, err := s.db.Query(
		"SELECT recorded_at, score FROM moods ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moods []Mood
	for rows.Next() {
		var stamp string
		var m Mood
		if err := rows.Scan(&stamp, &m.Score); err != nil {
			return nil, err
		}
		if m.RecordedAt, err = time.Parse(time.RFC3339, stamp); err != nil {
			return nil, fmt.Errorf("stored mood timestamp %q: %w", stamp, err)
		}
		moods = append(moods, m)
	}
	return moods, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
