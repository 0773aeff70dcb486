package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

// SQLiteSource reads the sensor logger's local database. Two schemas are in
// the field: epoch seconds in a "ts" column with a "temperature" column, and
// ISO-8601 strings in a "timestamp" column with a "celsius" column. Both are
// tried, in that order.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// NewSQLiteSource opens the sensor database read-only.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Fetch implements Source.
func (s *SQLiteSource) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	samples, err := s.fetchEpochSchema(ctx, from, to)
	if err == nil && len(samples) > 0 {
		return samples, nil
	}

	samples, isoErr := s.fetchISOSchema(ctx, from, to)
	if isoErr != nil {
		if err != nil {
			return nil, fmt.Errorf("neither schema matched: %v; %v", err, isoErr)
		}
		return nil, isoErr
	}
	return samples, nil
}

func (s *SQLiteSource) fetchEpochSchema(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, temperature FROM temperatures WHERE ts BETWEEN ? AND ? ORDER BY ts ASC",
		from.Unix(), to.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []sessions.Observation
	for rows.Next() {
		var ts int64
		var temp float64
		if err := rows.Scan(&ts, &temp); err != nil {
			return nil, err
		}
		samples = append(samples, sessions.Observation{
			Time:         time.Unix(ts, 0),
			TemperatureC: temp,
		})
	}
	return samples, rows.Err()
}

func (s *SQLiteSource) fetchISOSchema(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp, celsius FROM temperatures WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp ASC",
		from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []sessions.Observation
	for rows.Next() {
		var stamp string
		var temp float64
		if err := rows.Scan(&stamp, &temp); err != nil {
			return nil, err
		}
		t, err := parseTimestamp(stamp)
		if err != nil {
			// Malformed rows are the logger's problem, not ours.
			continue
		}
		samples = append(samples, sessions.Observation{
			Time:         t,
			TemperatureC: temp,
		})
	}
	return samples, rows.Err()
}

// Name implements Source.
func (s *SQLiteSource) Name() string {
	return "sqlite:" + s.path
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// parseTimestamp accepts RFC 3339 with or without a zone offset.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
