package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/shape"
	"github.com/portrait/portrait/internal/store"
)

func sample() []shape.Shape {
	return []shape.Shape{
		{ID: "r", Kind: shape.KindRect, X: 10, Y: 10, Width: 100, Height: 50, StrokeColor: "#000000", FillColor: "#ff0000", StrokeWidth: 2, Opacity: 1},
		{ID: "c", Kind: shape.KindCircle, X: 200, Y: 100, Radius: 40, StrokeColor: "blue", FillColor: shape.Transparent, StrokeWidth: 1, Opacity: 0.5},
		{ID: "a", Kind: shape.KindArrow, Points: []geometry.Point{{X: 0, Y: 0}, {X: 80, Y: 80}}, EndArrow: true, StrokeColor: "#333333", StrokeWidth: 2, Opacity: 1},
		{ID: "t", Kind: shape.KindText, X: 50, Y: 150, Text: "hello", FontSize: 16, StrokeColor: "#000000", StrokeWidth: 1, Opacity: 1, Angle: math.Pi / 4},
		{ID: "i", Kind: shape.KindImage, X: 300, Y: 10, Width: 64, Height: 48, ImageURL: "https://example.com/a.png", Opacity: 1},
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sample()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output starts with %q, want %%PDF-", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestWritePDFEmptyCanvas(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, nil); err != nil {
		t.Fatalf("WritePDF(nil): %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty canvas produced no output")
	}
}

func TestExtent(t *testing.T) {
	shapes := []shape.Shape{
		{Kind: shape.KindRect, X: 10, Y: 20, Width: 30, Height: 40},
		{Kind: shape.KindRect, X: 100, Y: 0, Width: -10, Height: 10},
	}
	got := extent(shapes)
	want := geometry.Rect{X: 10, Y: 0, Width: 90, Height: 60}
	if got != want {
		t.Fatalf("extent = %+v, want %+v", got, want)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"lobby", "lobby"},
		{"room_01-b", "room_01-b"},
		{`a"b/c d`, "a-b-c-d"},
		{"", "canvas"},
	}
	for _, tt := range tests {
		if got := Filename(tt.in); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func serve(h *Handler, roomID string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/rooms/{roomId}/export.pdf", h.ExportPDF).Methods(http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+roomID+"/export.pdf", nil))
	return rec
}

func TestExportPDFHandler(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory(store.Options{})
	for _, s := range sample() {
		msg := protocol.DrawEnd(s)
		msg.RoomID = "lobby"
		payload, err := msg.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if err := mem.AppendEditRecord(ctx, "lobby", "u1", payload); err != nil {
			t.Fatal(err)
		}
	}
	mem.AppendEditRecord(ctx, "lobby", "u1", json.RawMessage(`{"type":"draw_end"}`))

	rec := serve(NewHandler(mem, nil), "lobby")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q, want application/pdf", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="lobby.pdf"`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Fatal("body is not a PDF")
	}
}

type failingFetcher struct{}

func (failingFetcher) FetchEditHistory(context.Context, string) ([]json.RawMessage, error) {
	return nil, errors.New("db down")
}

func TestExportPDFHandlerStoreError(t *testing.T) {
	rec := serve(NewHandler(failingFetcher{}, nil), "lobby")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
