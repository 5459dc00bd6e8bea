package eventsink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// store is the persistence contract the Sink writes through. It is
// deliberately narrow — append, query, trim — mirroring the dual
// sqlite/in-memory backend split the pack's daylit project uses for
// its own storage.Store interface (internal/storage/sqlite_store.go,
// internal/storage/json_store.go).
type store interface {
	append(r Record) error
	find(f Filter) ([]Record, error)
	trimBefore(cutoff time.Time) error
	close() error
}

// sqliteStore persists records in a local sqlite database via the
// pure-Go modernc.org/sqlite driver (no cgo), grounded on
// julianstephens-daylit's internal/storage/sqlite_store.go choice of
// driver for the same reason: a single-binary daemon shouldn't need a
// C toolchain to build.
type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventsink: open sqlite store: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS events (
	timestamp   INTEGER NOT NULL,
	sequence    INTEGER NOT NULL,
	action      TEXT NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ts_seq ON events(timestamp, sequence);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventsink: create schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// wireRecord is the JSON-on-disk shape for a Record's optional fields,
// avoiding a wide sparse SQL table for fields most events don't use.
type wireRecord struct {
	Zone        *int     `json:"zone,omitempty"`
	Program     string   `json:"program,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Seconds     *int     `json:"seconds,omitempty"`
	Runtime     *int     `json:"runtime,omitempty"`
	Adjustment  *int     `json:"adjustment,omitempty"`
	Source      string   `json:"source,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Rain        *float64 `json:"rain,omitempty"`
	Ratio       *int     `json:"ratio,omitempty"`
}

func (s *sqliteStore) append(r Record) error {
	payload, err := json.Marshal(toWire(r))
	if err != nil {
		return fmt.Errorf("eventsink: marshal record: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events (timestamp, sequence, action, payload) VALUES (?, ?, ?, ?)`,
		r.Timestamp.UnixNano(), r.Sequence, string(r.Action), string(payload),
	)
	return err
}

func toWire(r Record) wireRecord {
	return wireRecord{
		Zone: r.Zone, Program: r.Program, Parent: r.Parent,
		Seconds: r.Seconds, Runtime: r.Runtime, Adjustment: r.Adjustment,
		Source: r.Source, Temperature: r.Temperature, Humidity: r.Humidity,
		Rain: r.Rain, Ratio: r.Ratio,
	}
}

func fromWire(ts time.Time, seq int, action string, payload string) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return Record{}, err
	}
	return Record{
		Timestamp: ts, Sequence: seq, Action: Action(action),
		Zone: w.Zone, Program: w.Program, Parent: w.Parent,
		Seconds: w.Seconds, Runtime: w.Runtime, Adjustment: w.Adjustment,
		Source: w.Source, Temperature: w.Temperature, Humidity: w.Humidity,
		Rain: w.Rain, Ratio: w.Ratio,
	}, nil
}

func (s *sqliteStore) find(f Filter) ([]Record, error) {
	query := `SELECT timestamp, sequence, action, payload FROM events WHERE 1=1`
	var args []any
	if !f.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, f.Until.UnixNano())
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(f.Action))
	}
	query += ` ORDER BY timestamp DESC, sequence DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventsink: query: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var tsNano int64
		var seq int
		var action, payload string
		if err := rows.Scan(&tsNano, &seq, &action, &payload); err != nil {
			return nil, err
		}
		rec, err := fromWire(time.Unix(0, tsNano), seq, action, payload)
		if err != nil {
			return nil, err
		}
		if f.Zone != nil && (rec.Zone == nil || *rec.Zone != *f.Zone) {
			continue
		}
		if f.Program != "" && rec.Program != f.Program {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) trimBefore(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff.UnixNano())
	return err
}

func (s *sqliteStore) close() error {
	return s.db.Close()
}

// memStore is an in-memory store used by tests and by deployments that
// don't want a database file on disk.
type memStore struct {
	records []Record
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) append(r Record) error {
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) find(f Filter) ([]Record, error) {
	var out []Record
	for _, r := range m.records {
		if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
			continue
		}
		if f.Action != "" && r.Action != f.Action {
			continue
		}
		if f.Zone != nil && (r.Zone == nil || *r.Zone != *f.Zone) {
			continue
		}
		if f.Program != "" && r.Program != f.Program {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Sequence > out[j].Sequence
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) trimBefore(cutoff time.Time) error {
	kept := m.records[:0]
	for _, r := range m.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *memStore) close() error { return nil }
