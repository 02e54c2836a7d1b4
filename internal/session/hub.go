package session

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"github.com/TriangleYJ/spline/internal/editor"
	"github.com/TriangleYJ/spline/internal/typeid"
)

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	newEditor func() *editor.Editor
}

// NewHub returns a hub whose rooms get editors from newEditor, or
// editor.New when nil.
func NewHub(newEditor func() *editor.Editor) *Hub {
	if newEditor == nil {
		newEditor = func() *editor.Editor { return editor.New() }
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		newEditor:  newEditor,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run. Connected clients are left to their own pumps.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// CreateRoom opens a new session seeded from the query's "curves"
// parameter. A malformed scene still creates the room, showing the default
// curve and carrying a notice.
func (h *Hub) CreateRoom(seed url.Values) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openRoomLocked(typeid.NewSessionID(), seed)
}

// Room returns the live session with the given id.
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[id]
	return room, ok
}

// Len returns the number of open rooms.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) openRoomLocked(id string, seed url.Values) *Room {
	if room, ok := h.rooms[id]; ok {
		return room
	}
	ed := h.newEditor()
	if err := ed.LoadQuery(seed); err != nil {
		slog.Warn("session seeded with default scene", "session", id, "error", err)
	}
	room := NewRoom(id, ed)
	h.rooms[id] = room
	slog.Info("session opened", "session", id, "curves", ed.Len())
	return room
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room := h.openRoomLocked(client.SessionID, client.seed)
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome := newMessage(TypeWelcome, WelcomePayload{SessionID: client.SessionID, ClientID: client.ClientID})
	welcome.SessionID = client.SessionID
	welcome.ClientID = client.ClientID
	client.Send(welcome)
	if state, err := room.SceneMessage(); err == nil {
		client.Send(state)
	} else {
		slog.Error("scene state", "error", err, "session", client.SessionID)
	}
	client.Send(room.PresenceMessage())

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{ClientID: client.ClientID})
	joinMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.SessionID, joinMsg, client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.outbox)
	room.dropCursor(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	if empty {
		slog.Info("session closed", "session", client.SessionID)
		return
	}

	// A departing client must not leave a point stuck mid-drag.
	if state := room.Release(client.ClientID); state != nil {
		h.broadcastToRoom(client.SessionID, state, "")
	}

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID})
	leaveMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.SessionID, leaveMsg, "")

	slog.Info("client left", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	if msg.Type == TypePresenceUpdate {
		h.handlePresenceUpdate(sender, msg)
		return
	}

	room, ok := h.Room(sender.SessionID)
	if !ok {
		return
	}

	state, err := room.Apply(sender.ClientID, msg)
	if err != nil {
		slog.Debug("operation rejected", "type", msg.Type, "error", err, "client", sender.ClientID)
		nack := newMessage(TypeOpNack, NackPayload{Seq: msg.Seq, Reason: err.Error()})
		nack.SessionID = sender.SessionID
		nack.Seq = msg.Seq
		sender.Send(nack)
	}
	if state != nil {
		state.ClientID = sender.ClientID
		state.Seq = msg.Seq
		h.broadcastToRoom(sender.SessionID, state, "")
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	room, ok := h.Room(sender.SessionID)
	if !ok {
		return
	}

	h.broadcastToRoom(sender.SessionID, room.MoveCursor(sender.ClientID, presence.Cursor), sender.ClientID)
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	// Send never blocks. Holding the read lock keeps removeClient from
	// closing an outbox underneath it.
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
