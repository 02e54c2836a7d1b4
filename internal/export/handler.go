package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TriangleYJ/spline/internal/editor"
	"github.com/TriangleYJ/spline/internal/render"
)

// NoticeHeader carries the load notice when ?curves= could not be restored.
const NoticeHeader = "X-Scene-Notice"

const maxCanvasSide = 4096

var ErrBadSize = errors.New("invalid canvas size")

type Handler struct {
	width, height int
	publicURL     string
	newEditor     func() *editor.Editor
}

// NewHandler renders on a width x height surface unless the request asks
// for another size. Share links are built against publicURL.
func NewHandler(width, height int, publicURL string) *Handler {
	return &Handler{
		width:     width,
		height:    height,
		publicURL: publicURL,
		newEditor: func() *editor.Editor { return editor.New() },
	}
}

type sceneResponse struct {
	editor.State
	ShareURL string `json:"shareUrl"`
}

// Scene returns the restored scene, its encoded form and a share link.
func (h *Handler) Scene(w http.ResponseWriter, r *http.Request) {
	ed := h.load(w, r)
	st, err := ed.State()
	if err != nil {
		handleError(w, err)
		return
	}
	share, err := ed.ShareURL(h.publicURL)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sceneResponse{State: st, ShareURL: share})
}

// Commands returns the draw command list for canvas front ends.
func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	ed := h.load(w, r)
	writeJSON(w, http.StatusOK, ed.Commands())
}

// PNG renders the scene to a PNG image.
func (h *Handler) PNG(w http.ResponseWriter, r *http.Request) {
	width, height, err := h.size(r.URL.Query())
	if err != nil {
		handleError(w, err)
		return
	}
	ed := h.load(w, r)

	canvas := render.NewCanvas(width, height)
	if err := ed.Draw(canvas); err != nil {
		handleError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="curves.png"`)
	w.Write(buf.Bytes())
}

// PDF renders the scene to a single page PDF.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	width, height, err := h.size(r.URL.Query())
	if err != nil {
		handleError(w, err)
		return
	}
	ed := h.load(w, r)

	doc := render.NewPDF(width, height)
	if err := ed.Draw(doc); err != nil {
		handleError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="curves.pdf"`)
	w.Write(buf.Bytes())
}

// load builds an editor from the request query. A malformed scene falls
// back to the default one; the notice goes out as a header.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) *editor.Editor {
	q := r.URL.Query()
	ed := h.newEditor()
	if err := ed.LoadQuery(q); err != nil {
		slog.Warn("scene from query rejected", "error", err)
		w.Header().Set(NoticeHeader, ed.Notice())
	}
	ed.SetOptions(render.Options{
		HideStrokes:    flag(q.Get("hide")),
		ForceBlackLine: flag(q.Get("black")),
	})
	return ed
}

func flag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (h *Handler) size(q url.Values) (int, int, error) {
	width, err := dimension(q.Get("width"), h.width)
	if err != nil {
		return 0, 0, err
	}
	height, err := dimension(q.Get("height"), h.height)
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func dimension(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxCanvasSide {
		return 0, fmt.Errorf("%w: %q (want 1..%d)", ErrBadSize, v, maxCanvasSide)
	}
	return n, nil
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadSize):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("export error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
