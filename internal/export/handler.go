package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/visualdrag/internal/document"
)

// DocumentLoader returns the stored document of a canvas.
type DocumentLoader func(ctx context.Context, canvasID string) (*document.Document, error)

type Handler struct {
	load     DocumentLoader
	notFound error
	opts     Options
}

// NewHandler serves wireframes of stored canvases. Loader errors matching
// notFound are answered with 404.
func NewHandler(load DocumentLoader, notFound error, opts Options) *Handler {
	return &Handler{load: load, notFound: notFound, opts: opts}
}

// Wireframe handles GET /canvases/{canvasId}/wireframe.png?scale=2&guides=3.
func (h *Handler) Wireframe(w http.ResponseWriter, r *http.Request) {
	canvasID := mux.Vars(r)["canvasId"]

	opts := h.opts
	q := r.URL.Query()
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
		opts.Scale = scale
	}
	if v := q.Get("guides"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid guides element", http.StatusBadRequest)
			return
		}
		opts.Guides = id
	}

	doc, err := h.load(r.Context(), canvasID)
	if err != nil {
		if h.notFound != nil && errors.Is(err, h.notFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		slog.Error("load document for export", "error", err, "canvas", canvasID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, doc, opts); err != nil {
		slog.Error("render wireframe", "error", err, "canvas", canvasID)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
