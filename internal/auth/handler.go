package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/portrait/portrait/internal/typeid"
)

// Handler issues development tokens. Real deployments get their tokens from
// an external identity service that shares the signing secret.
type Handler struct {
	verifier *Verifier
}

func NewHandler(verifier *Verifier) *Handler {
	return &Handler{verifier: verifier}
}

type tokenRequest struct {
	UserID string `json:"userId"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Token signs a token for the requested user id, or for a fresh one when
// the body is empty.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.UserID == "" {
		req.UserID = typeid.NewUserID()
	}

	token, err := h.verifier.IssueToken(req.UserID)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, UserID: req.UserID})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
