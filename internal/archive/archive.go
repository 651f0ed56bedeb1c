// Package archive keeps a local rolling copy of sensor readings in SQLite, so
// dashboards retain history across backend outages.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/reading"
)

// DefaultMaxRecords matches the backend's rolling history window.
const DefaultMaxRecords = 1000

// Store is a SQLite-backed reading archive.
type Store struct {
	db         *sql.DB
	maxRecords int
}

// Open opens (or creates) the archive database at path.
func Open(path string, maxRecords int) (*Store, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return &Store{db: db, maxRecords: maxRecords}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ldr_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			value INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			raw_data TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_created ON ldr_readings(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create ldr_readings table: %w", err)
	}
	return nil
}

// Save appends a reading and trims the archive past the rolling window.
func (s *Store) Save(r reading.Reading) error {
	ts := r.Timestamp
	if ts == "" {
		ts = time.Now().Format(time.RFC3339)
	}

	_, err := s.db.Exec(`
		INSERT INTO ldr_readings (value, timestamp, raw_data, created_at)
		VALUES (?, ?, ?, ?)
	`, r.Value, ts, r.RawSource, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}

	s.cleanup()
	return nil
}

// cleanup removes the oldest rows beyond the configured window.
func (s *Store) cleanup() {
	res, err := s.db.Exec(`
		DELETE FROM ldr_readings WHERE id IN (
			SELECT id FROM ldr_readings ORDER BY id DESC LIMIT -1 OFFSET ?
		)
	`, s.maxRecords)
	if err != nil {
		log.Warn().Err(err).Msg("Archive cleanup failed")
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Debug().Int64("removed", n).Msg("Archive trimmed old readings")
	}
}

// Latest returns the most recent reading, or nil when the archive is empty.
func (s *Store) Latest() (*reading.Reading, error) {
	row := s.db.QueryRow(`
		SELECT value, timestamp, raw_data FROM ldr_readings
		ORDER BY id DESC LIMIT 1
	`)

	var r reading.Reading
	var raw sql.NullString
	err := row.Scan(&r.Value, &r.Timestamp, &raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest reading: %w", err)
	}
	r.RawSource = raw.String
	return &r, nil
}

// History returns up to limit readings, newest first.
func (s *Store) History(limit int) ([]reading.Reading, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT value, timestamp, raw_data FROM ldr_readings
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var out []reading.Reading
	for rows.Next() {
		var r reading.Reading
		var raw sql.NullString
		if err := rows.Scan(&r.Value, &r.Timestamp, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.RawSource = raw.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates the archived readings.
func (s *Store) Stats() (reading.Stats, error) {
	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			MIN(value), MAX(value), AVG(value),
			MIN(timestamp), MAX(timestamp)
		FROM ldr_readings
	`)

	var (
		stats    reading.Stats
		min, max sql.NullInt64
		avg      sql.NullFloat64
		first    sql.NullString
		last     sql.NullString
	)
	if err := row.Scan(&stats.TotalReadings, &min, &max, &avg, &first, &last); err != nil {
		return reading.Stats{}, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	if min.Valid {
		v := int(min.Int64)
		stats.MinValue = &v
	}
	if max.Valid {
		v := int(max.Int64)
		stats.MaxValue = &v
	}
	stats.AvgValue = avg.Float64
	stats.FirstReading = first.String
	stats.LastReading = last.String
	return stats, nil
}

// Clear removes every archived reading.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM ldr_readings`); err != nil {
		return fmt.Errorf("failed to clear archive: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
