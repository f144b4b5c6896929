package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	seq           INTEGER PRIMARY KEY,
	timestamp     TEXT NOT NULL,
	previous_hash TEXT NOT NULL,
	payload       TEXT NOT NULL,
	hash          TEXT NOT NULL
)`

// SQLiteSink persists the chain to a local sqlite file. The file is the
// durable side of the trail: cmd/checkd re-reads it and re-verifies the
// chain offline.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the audit database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts one entry. Seq is the primary key, so replaying the same
// entry twice fails instead of forking the stored chain.
func (s *SQLiteSink) Write(entry *LogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (seq, timestamp, previous_hash, payload, hash) VALUES (?, ?, ?, ?, ?)`,
		entry.Seq, entry.Timestamp, entry.PreviousHash, entry.Payload, entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry %d: %w", entry.Seq, err)
	}
	return nil
}

// Entries returns the stored chain in sequence order.
func (s *SQLiteSink) Entries(ctx context.Context) ([]*LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, timestamp, previous_hash, payload, hash FROM audit_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("read audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		e := &LogEntry{}
		if err := rows.Scan(&e.Seq, &e.Timestamp, &e.PreviousHash, &e.Payload, &e.Hash); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
