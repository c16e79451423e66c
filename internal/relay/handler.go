package relay

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/portrait/portrait/internal/auth"
)

// TokenVerifier maps a credential to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Handler upgrades authenticated requests to relay connections.
type Handler struct {
	hub            *Hub
	verifier       TokenVerifier
	originPatterns []string
}

func NewHandler(hub *Hub, verifier TokenVerifier, originPatterns []string) *Handler {
	return &Handler{hub: hub, verifier: verifier, originPatterns: originPatterns}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(auth.TokenFromRequest(r))
	if err != nil {
		slog.Debug("rejecting connection", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
