package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portrait/portrait/internal/typeid"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS edit_records (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    room_id    TEXT NOT NULL,
    user_id    TEXT NOT NULL,
    payload    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS edit_records_room_seq ON edit_records (room_id, seq);
`

// Postgres is an edit log backed by a pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	limit int
}

func OpenPostgres(ctx context.Context, databaseURL string, opts Options) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool, limit: opts.Limit}, nil
}

func (p *Postgres) AppendEditRecord(ctx context.Context, roomID, userID string, payload json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO edit_records (id, room_id, user_id, payload) VALUES ($1, $2, $3, $4)`,
		typeid.NewEditID(), roomID, userID, []byte(payload))
	if err != nil {
		return fmt.Errorf("insert edit record: %w", err)
	}
	return nil
}

func (p *Postgres) FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if p.limit > 0 {
		rows, err = p.pool.Query(ctx, `
			SELECT payload FROM (
				SELECT seq, payload FROM edit_records
				WHERE room_id = $1
				ORDER BY seq DESC
				LIMIT $2
			) recent ORDER BY seq`, roomID, p.limit)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT payload FROM edit_records WHERE room_id = $1 ORDER BY seq`, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("query edit records: %w", err)
	}

	payloads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var b []byte
		err := row.Scan(&b)
		return json.RawMessage(b), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan edit records: %w", err)
	}
	return payloads, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
