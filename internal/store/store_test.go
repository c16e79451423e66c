package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func payload(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"erase","shapeIds":["s%d"]}`, i))
}

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, open func(t *testing.T, limit int) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("ordered per room", func(t *testing.T) {
		s := open(t, 0)
		defer s.Close()
		for i := range 3 {
			if err := s.AppendEditRecord(ctx, "a", "u", payload(i)); err != nil {
				t.Fatalf("AppendEditRecord: %v", err)
			}
		}
		if err := s.AppendEditRecord(ctx, "b", "u", payload(9)); err != nil {
			t.Fatalf("AppendEditRecord: %v", err)
		}

		got, err := s.FetchEditHistory(ctx, "a")
		if err != nil {
			t.Fatalf("FetchEditHistory: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		for i, p := range got {
			var m map[string]any
			if err := json.Unmarshal(p, &m); err != nil {
				t.Fatalf("record %d: %v", i, err)
			}
			if id := m["shapeIds"].([]any)[0]; id != fmt.Sprintf("s%d", i) {
				t.Fatalf("record %d = %v, want s%d", i, id, i)
			}
		}

		empty, err := s.FetchEditHistory(ctx, "missing")
		if err != nil || len(empty) != 0 {
			t.Fatalf("FetchEditHistory(missing) = %v, %v, want empty", empty, err)
		}
	})

	t.Run("limit keeps newest ascending", func(t *testing.T) {
		s := open(t, 2)
		defer s.Close()
		for i := range 5 {
			if err := s.AppendEditRecord(ctx, "a", "u", payload(i)); err != nil {
				t.Fatalf("AppendEditRecord: %v", err)
			}
		}
		got, err := s.FetchEditHistory(ctx, "a")
		if err != nil {
			t.Fatalf("FetchEditHistory: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		var first, second map[string]any
		json.Unmarshal(got[0], &first)
		json.Unmarshal(got[1], &second)
		if first["shapeIds"].([]any)[0] != "s3" || second["shapeIds"].([]any)[0] != "s4" {
			t.Fatalf("got %s %s, want s3 then s4", got[0], got[1])
		}
	})
}

func TestMemory(t *testing.T) {
	exercise(t, func(t *testing.T, limit int) Store { return NewMemory(Options{Limit: limit}) })
}

func TestMemoryCopiesPayload(t *testing.T) {
	m := NewMemory(Options{})
	p := payload(1)
	m.AppendEditRecord(context.Background(), "a", "u", p)
	p[2] = 'X'
	got, _ := m.FetchEditHistory(context.Background(), "a")
	if string(got[0]) != string(payload(1)) {
		t.Fatalf("stored payload was aliased: %s", got[0])
	}
}

func TestSQLite(t *testing.T) {
	dir := t.TempDir()
	n := 0
	exercise(t, func(t *testing.T, limit int) Store {
		n++
		s, err := OpenSQLite(context.Background(), filepath.Join(dir, "db", fmt.Sprintf("edits%d.db", n)), Options{Limit: limit})
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		return s
	})
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "edits.db")

	s, err := OpenSQLite(ctx, path, Options{})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.AppendEditRecord(ctx, "a", "u", payload(1))
	s.Close()

	s, err = OpenSQLite(ctx, path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.FetchEditHistory(ctx, "a")
	if err != nil || len(got) != 1 {
		t.Fatalf("FetchEditHistory = %d records, %v, want 1", len(got), err)
	}
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	exercise(t, func(t *testing.T, limit int) Store {
		s, err := OpenPostgres(ctx, url, Options{Limit: limit})
		if err != nil {
			t.Fatalf("OpenPostgres: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `DELETE FROM edit_records WHERE room_id IN ('a', 'b', 'missing')`); err != nil {
			t.Fatalf("reset: %v", err)
		}
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory:", Options{})
	if err != nil {
		t.Fatalf("Open(memory:): %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("Open(memory:) = %T, want *Memory", s)
	}

	s, err = Open(ctx, "sqlite:"+filepath.Join(t.TempDir(), "x.db"), Options{})
	if err != nil {
		t.Fatalf("Open(sqlite:): %v", err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Fatalf("Open(sqlite:) = %T, want *SQLite", s)
	}
	s.Close()

	for _, u := range []string{"mysql://x", "", "sqlite:"} {
		if _, err := Open(ctx, u, Options{}); !errors.Is(err, ErrUnsupportedURL) {
			t.Fatalf("Open(%q) error = %v, want ErrUnsupportedURL", u, err)
		}
	}
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/room 1/history" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(History{RoomID: "room 1", Payloads: []json.RawMessage{payload(1)}})
	}))
	defer srv.Close()

	ws := "ws" + srv.URL[len("http"):] + "/ws"
	got, err := NewClient(ws, "tok", nil).FetchEditHistory(context.Background(), "room 1")
	if err != nil {
		t.Fatalf("FetchEditHistory: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	if _, err := NewClient(srv.URL, "bad", nil).FetchEditHistory(context.Background(), "room 1"); err == nil {
		t.Fatal("expected error for rejected token")
	}
}
