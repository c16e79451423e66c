package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/portrait/portrait/internal/auth"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/store"
)

type peer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, base string, verifier *auth.Verifier, userID string) *peer {
	t.Helper()
	token, err := verifier.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, base+"?token="+token, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return &peer{t: t, conn: conn}
}

func (p *peer) write(raw string) {
	p.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
		p.t.Fatalf("Write: %v", err)
	}
}

func (p *peer) send(m protocol.Message) {
	p.t.Helper()
	data, err := m.Encode()
	if err != nil {
		p.t.Fatalf("Encode: %v", err)
	}
	p.write(string(data))
}

func (p *peer) read(want protocol.Type) protocol.Message {
	p.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := p.conn.Read(ctx)
	if err != nil {
		p.t.Fatalf("Read: %v", err)
	}
	m, err := protocol.Decode(data)
	if err != nil {
		p.t.Fatalf("Decode %s: %v", data, err)
	}
	if m.Type != want {
		p.t.Fatalf("type = %q, want %q", m.Type, want)
	}
	return m
}

func startServer(t *testing.T, st store.Appender) (string, *auth.Verifier) {
	t.Helper()
	verifier := auth.NewVerifier("test-secret")
	h := startHub(t, st)
	srv := httptest.NewServer(NewHandler(h, verifier, nil))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), verifier
}

func TestServeRejectsBadToken(t *testing.T) {
	base, _ := startServer(t, nil)
	for _, u := range []string{base, base + "?token=garbage"} {
		_, resp, err := websocket.Dial(context.Background(), u, nil)
		if err == nil {
			t.Fatalf("Dial(%q) succeeded, want rejection", u)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("Dial(%q) response = %v, want 401", u, resp)
		}
	}
}

func TestServeEndToEnd(t *testing.T) {
	st := store.NewMemory(store.Options{})
	base, verifier := startServer(t, st)

	alice := dial(t, base, verifier, "alice")
	alice.send(protocol.JoinRoom("room"))
	alice.read(protocol.TypePresenceState)

	bob := dial(t, base, verifier, "bob")
	bob.send(protocol.JoinRoom("room"))
	bob.read(protocol.TypePresenceState)
	alice.read(protocol.TypeUserJoined)

	// Malformed frames are dropped without closing the connection.
	alice.write("not json")
	alice.write(`{"type":"draw_end"}`)
	alice.send(protocol.DrawEnd(*rect("s1")))

	m := bob.read(protocol.TypeDrawEnd)
	if m.Shape == nil || m.Shape.ID != "s1" || m.UserID != "alice" {
		t.Fatalf("draw_end = %+v, want s1 from alice", m)
	}

	records, err := st.FetchEditHistory(context.Background(), "room")
	if err != nil || len(records) != 1 {
		t.Fatalf("records = %d, %v, want 1", len(records), err)
	}

	// A second connection for alice replaces the first.
	again := dial(t, base, verifier, "alice")
	again.read(protocol.TypePresenceState)
	bob.read(protocol.TypeUserRejoined)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := alice.conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("replaced connection read error = %v, want policy violation close", err)
	}

	again.send(protocol.Erase("s1"))
	bob.read(protocol.TypeErase)
}
