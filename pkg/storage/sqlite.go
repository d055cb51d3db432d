// pkg/storage/sqlite.go
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	ip         TEXT,
	port       INTEGER,
	start_time TEXT
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	event_type TEXT,
	payload    TEXT,
	timestamp  TEXT
);

CREATE TABLE IF NOT EXISTS features (
	session_id    TEXT,
	feature_name  TEXT,
	feature_value REAL
);

CREATE TABLE IF NOT EXISTS profiles (
	session_id TEXT PRIMARY KEY,
	profile    TEXT
);
`

// SQLiteStore implements Store over a single sqlite database file. Writes are
// serialized with a mutex; sqlite allows only one writer at a time and the
// core's contract only requires point operations.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite store opened")

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

func (s *SQLiteStore) CreateSessionIfAbsent(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (session_id, ip, port, start_time) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.IP, sess.Port, sess.StartTime.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) AppendEvent(e events.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO events (session_id, event_type, payload, timestamp) VALUES (?, ?, ?, ?)`,
		e.SessionID, string(e.Kind), string(payload), e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) ReplaceFeatures(sessionID string, features map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM features WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for name, value := range features {
		if _, err := tx.Exec(
			`INSERT INTO features (session_id, feature_name, feature_value) VALUES (?, ?, ?)`,
			sessionID, name, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertProfile(sessionID string, label profile.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO profiles (session_id, profile) VALUES (?, ?)`,
		sessionID, string(label),
	)
	return err
}

func (s *SQLiteStore) GetProfile(sessionID string) (profile.Label, error) {
	var stored string
	err := s.db.QueryRow(
		`SELECT profile FROM profiles WHERE session_id = ?`, sessionID,
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return profile.LabelUnknown, nil
	}
	if err != nil {
		return profile.LabelUnknown, err
	}
	return profile.ParseLabel(stored), nil
}

func (s *SQLiteStore) ListFeatureVectors() ([]FeatureRow, error) {
	rows, err := s.db.Query(`SELECT session_id, feature_name, feature_value FROM features`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySession := make(map[string]map[string]float64)
	var order []string
	for rows.Next() {
		var (
			sid   string
			name  string
			value float64
		)
		if err := rows.Scan(&sid, &name, &value); err != nil {
			return nil, err
		}
		if _, ok := bySession[sid]; !ok {
			bySession[sid] = make(map[string]float64)
			order = append(order, sid)
		}
		bySession[sid][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FeatureRow, 0, len(order))
	for _, sid := range order {
		out = append(out, FeatureRow{SessionID: sid, Features: bySession[sid]})
	}
	return out, nil
}

func (s *SQLiteStore) ListRecentEvents(limit int) ([]events.Event, error) {
	rows, err := s.db.Query(
		`SELECT session_id, event_type, payload, timestamp FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e       events.Event
			kind    string
			payload string
			ts      string
		)
		if err := rows.Scan(&e.SessionID, &kind, &payload, &ts); err != nil {
			return nil, err
		}
		e.Kind = events.Kind(kind)
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			s.logger.Warn().Err(err).Str("session_id", e.SessionID).Msg("Skipping undecodable event payload")
			continue
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, ip, port, start_time FROM sessions ORDER BY start_time DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess Session
			ts   string
		)
		if err := rows.Scan(&sess.ID, &sess.IP, &sess.Port, &ts); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			sess.StartTime = parsed
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListProfiles() ([]ProfileRow, error) {
	rows, err := s.db.Query(`SELECT session_id, profile FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfileRow
	for rows.Next() {
		var (
			row    ProfileRow
			stored string
		)
		if err := rows.Scan(&row.SessionID, &stored); err != nil {
			return nil, err
		}
		row.Label = profile.ParseLabel(stored)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
