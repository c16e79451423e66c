package room

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/portrait/portrait/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	history, err := h.service.History(r.Context(), roomID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// Members lists the users connected to the room and whether the caller is
// one of them.
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	roomID := mux.Vars(r)["roomId"]

	users, err := h.service.Members(r.Context(), roomID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"roomId": roomID,
		"users":  users,
		"joined": slices.Contains(users, userID),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRoom):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid room id"})
	default:
		slog.Error("room service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
