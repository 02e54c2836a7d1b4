package session

import "github.com/TriangleYJ/spline/internal/editor"

// Cursors are advisory. They are relayed and replayed to newcomers but never
// touch the scene.

// MoveCursor records where clientID's pointer is (nil when it left the
// surface) and returns the presence.update to relay. The dragging field
// always comes from the room, whatever the client sent.
func (r *Room) MoveCursor(clientID string, cursor *CursorPos) *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cursor == nil {
		delete(r.cursors, clientID)
	} else {
		r.cursors[clientID] = *cursor
	}
	msg := newMessage(TypePresenceUpdate, r.presenceLocked(clientID))
	msg.SessionID = r.id
	msg.ClientID = clientID
	return msg
}

func (r *Room) dropCursor(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cursors, clientID)
}

// PresenceMessage returns the presence.state message for a joining client.
func (r *Room) PresenceMessage() *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make(map[string]*PresencePayload, len(r.cursors)+1)
	for id := range r.cursors {
		all[id] = r.presenceLocked(id)
	}
	if r.dragOwner != "" {
		all[r.dragOwner] = r.presenceLocked(r.dragOwner)
	}
	msg := newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
	msg.SessionID = r.id
	return msg
}

func (r *Room) presenceLocked(clientID string) *PresencePayload {
	p := &PresencePayload{}
	if c, ok := r.cursors[clientID]; ok {
		p.Cursor = &c
	}
	if clientID == r.dragOwner {
		if t, ok := r.editor.Dragging(); ok {
			p.Dragging = &editor.PointRef{Curve: t.Curve, Handle: t.Handle.String()}
		}
	}
	return p
}
