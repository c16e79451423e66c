// Package store holds the append-only edit log each room replays on join.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedURL is returned by Open for an unknown storage scheme.
var ErrUnsupportedURL = errors.New("unsupported storage url")

// Appender records one committed edit for a room.
type Appender interface {
	AppendEditRecord(ctx context.Context, roomID, userID string, payload json.RawMessage) error
}

// Fetcher returns a room's committed edits, oldest first.
type Fetcher interface {
	FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error)
}

// Store is a server-side edit log.
type Store interface {
	Appender
	Fetcher
	Close() error
}

// Options configures Open.
type Options struct {
	// Limit caps FetchEditHistory to the newest Limit records, still
	// returned oldest first. Zero means unlimited.
	Limit int
}

// Open selects a backend by URL scheme:
//
//	postgres://... or postgresql://...  Postgres via pgxpool
//	sqlite:path or sqlite://path        SQLite file
//	memory:                             process memory
func Open(ctx context.Context, url string, opts Options) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, opts)
	case strings.HasPrefix(url, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(url, "sqlite:"), "//")
		if path == "" {
			return nil, fmt.Errorf("%w: %q has no path", ErrUnsupportedURL, url)
		}
		return OpenSQLite(ctx, path, opts)
	case url == "memory:" || url == "memory://":
		return NewMemory(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
}
