package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.IssueToken("alice")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != "alice" {
		t.Fatalf("VerifyToken = %q, want alice", got)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret")
	other, _ := NewVerifier("other").IssueToken("alice")

	expired := NewVerifier("secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _ := expired.IssueToken("alice")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", other},
		{"expired", old},
		{"alg none", unsigned},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("VerifyToken error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyFallsBackToSub(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob"}).SignedString([]byte("secret"))
	got, err := NewVerifier("secret").VerifyToken(token)
	if err != nil || got != "bob" {
		t.Fatalf("VerifyToken = %q, %v, want bob", got, err)
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret")
	token, _ := v.IssueToken("alice")

	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/rooms/r/history", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("%q: status = %d, want %d", tt.header, rec.Code, tt.status)
		}
	}
	if seen != "alice" {
		t.Fatalf("context user = %q, want alice", seen)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	req.Header.Set("Authorization", "Bearer h")
	if got := TokenFromRequest(req); got != "q" {
		t.Fatalf("TokenFromRequest = %q, want q", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer h")
	if got := TokenFromRequest(req); got != "h" {
		t.Fatalf("TokenFromRequest = %q, want h", got)
	}
}

func TestHandlerToken(t *testing.T) {
	v := NewVerifier("secret")
	h := NewHandler(v)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"userId":"carol"}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, err := v.VerifyToken(resp.Token); err != nil || got != "carol" {
		t.Fatalf("VerifyToken = %q, %v, want carol", got, err)
	}

	rec = httptest.NewRecorder()
	h.Token(rec, httptest.NewRequest(http.MethodPost, "/auth/token", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("empty body status = %d, want 201", rec.Code)
	}
}

func TestRequestDevToken(t *testing.T) {
	v := NewVerifier("secret")
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(v).Token))
	defer srv.Close()

	token, user, err := RequestDevToken(context.Background(), srv.URL, "carol", nil)
	if err != nil {
		t.Fatalf("RequestDevToken: %v", err)
	}
	if user != "carol" {
		t.Fatalf("user = %q, want carol", user)
	}
	if got, err := v.VerifyToken(token); err != nil || got != "carol" {
		t.Fatalf("VerifyToken = %q, %v, want carol", got, err)
	}

	_, minted, err := RequestDevToken(context.Background(), srv.URL, "", nil)
	if err != nil || minted == "" {
		t.Fatalf("RequestDevToken without user = %q, %v", minted, err)
	}
}

func TestRequestDevTokenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, _, err := RequestDevToken(context.Background(), srv.URL, "", nil); err == nil {
		t.Fatal("RequestDevToken against a server without the endpoint succeeded")
	}
}
