package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/TriangleYJ/spline/internal/editor"
	"github.com/TriangleYJ/spline/internal/typeid"
)

// Handler serves session creation and the live editing socket.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler accepts websocket upgrades from the given origins, written as
// full URLs ("http://localhost:5173") or bare host patterns.
func NewHandler(hub *Hub, origins []string) *Handler {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, strings.TrimSuffix(o, "/"))
	}
	return &Handler{hub: hub, originPatterns: patterns}
}

type createResponse struct {
	SessionID string `json:"sessionId"`
	Notice    string `json:"notice,omitempty"`
}

// Create opens a session seeded from ?curves= and returns its id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	room := h.hub.CreateRoom(r.URL.Query())

	var notice string
	room.Draw(func(ed *editor.Editor) error {
		notice = ed.Notice()
		return nil
	})
	writeJSON(w, http.StatusCreated, createResponse{SessionID: room.ID(), Notice: notice})
}

// Serve upgrades to a websocket and joins the session named in the path,
// opening it from ?curves= if it does not exist yet.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := typeid.ValidateSession(sessionID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, sessionID, clientID, r.URL.Query())
	client.Serve(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
