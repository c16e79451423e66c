package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/portrait/portrait/internal/canvas"
	"github.com/portrait/portrait/internal/store"
)

type Handler struct {
	history store.Fetcher
	log     *slog.Logger
}

func NewHandler(history store.Fetcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{history: history, log: logger}
}

// ExportPDF replays a room's edit log and streams the resulting drawing
// as a PDF attachment.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if roomID == "" {
		http.Error(w, "room id required", http.StatusBadRequest)
		return
	}

	payloads, err := h.history.FetchEditHistory(r.Context(), roomID)
	if err != nil {
		h.log.Error("fetch edit history", "room", roomID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	shapes, skipped := canvas.Replay(payloads)
	if skipped > 0 {
		h.log.Warn("skipped malformed edit records", "room", roomID, "count", skipped)
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, shapes); err != nil {
		h.log.Error("export pdf", "room", roomID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, Filename(roomID)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("write pdf response", "room", roomID, "error", err)
		return
	}

	h.log.Info("export complete", "room", roomID, "shapes", len(shapes), "size", buf.Len())
}

// Filename reduces name to characters safe inside a Content-Disposition
// header.
func Filename(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	if name == "" {
		return "canvas"
	}
	return name
}
