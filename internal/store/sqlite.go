package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/portrait/portrait/internal/typeid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS edit_records (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    id         TEXT NOT NULL UNIQUE,
    room_id    TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    payload    TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS edit_records_room_seq ON edit_records (room_id, seq);
`

// SQLite is an edit log in a single database file.
type SQLite struct {
	db    *sql.DB
	limit int
}

func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, limit: opts.Limit}, nil
}

func (s *SQLite) AppendEditRecord(ctx context.Context, roomID, userID string, payload json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO edit_records (id, room_id, user_id, payload) VALUES (?, ?, ?, ?)`,
		typeid.NewEditID(), roomID, userID, string(payload))
	if err != nil {
		return fmt.Errorf("insert edit record: %w", err)
	}
	return nil
}

func (s *SQLite) FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.limit > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT payload FROM (
				SELECT seq, payload FROM edit_records
				WHERE room_id = ?
				ORDER BY seq DESC
				LIMIT ?
			) ORDER BY seq`, roomID, s.limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT payload FROM edit_records WHERE room_id = ? ORDER BY seq`, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("query edit records: %w", err)
	}
	defer rows.Close()

	var payloads []json.RawMessage
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan edit record: %w", err)
		}
		payloads = append(payloads, json.RawMessage(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read edit records: %w", err)
	}
	return payloads, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
