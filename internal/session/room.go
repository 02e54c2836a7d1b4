package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/TriangleYJ/spline/internal/editor"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrBadPayload  = errors.New("invalid payload")
)

// Room is one live session: a single Editor shared by every connected
// client. mu serializes operations so each broadcast snapshot reflects a
// completed mutation.
type Room struct {
	id      string
	clients map[string]*Client // clientID -> client, guarded by Hub.mu

	mu        sync.Mutex
	editor    *editor.Editor
	serverSeq int64
	dragOwner string               // client holding the drag, "" when idle
	cursors   map[string]CursorPos // last known pointer per client
}

func NewRoom(id string, ed *editor.Editor) *Room {
	return &Room{
		id:      id,
		clients: make(map[string]*Client),
		editor:  ed,
		cursors: make(map[string]CursorPos),
	}
}

func (r *Room) ID() string {
	return r.id
}

// Apply runs one client operation against the room's editor. It returns the
// scene.state message to broadcast when anything changed, and the error to
// nack the sender with when the operation failed. Both can be set: a
// release whose connect fails still ends the drag.
func (r *Room) Apply(clientID string, msg *Message) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := r.applyLocked(clientID, msg)
	if !changed {
		return nil, err
	}
	r.serverSeq++
	state, serr := r.sceneMessageLocked()
	if serr != nil {
		return nil, serr
	}
	return state, err
}

func (r *Room) applyLocked(clientID string, msg *Message) (bool, error) {
	ed := r.editor

	switch msg.Type {
	case TypePointerDown:
		var p PointerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		// One drag per room; a second pointer cannot steal it.
		if r.dragOwner != "" {
			return false, nil
		}
		if !ed.PointerDown(p.X, p.Y) {
			return false, nil
		}
		r.dragOwner = clientID
		return true, nil

	case TypePointerMove:
		if r.dragOwner != clientID {
			return false, nil
		}
		var p PointerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if err := ed.PointerMove(p.X, p.Y); err != nil {
			r.dragOwner = ""
			return true, err
		}
		return true, nil

	case TypePointerUp, TypePointerLeave:
		if r.dragOwner != clientID {
			return false, nil
		}
		r.dragOwner = ""
		_, _, err := ed.PointerUp()
		return true, err

	case TypeCurveAdd:
		ed.AddCurve()
		return true, nil

	case TypeCurveRemove:
		var p CurveRemovePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if err := ed.RemoveCurve(p.Index); err != nil {
			return false, err
		}
		r.dragOwner = ""
		return true, nil

	case TypePointUpdate:
		var p PointUpdatePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if err := ed.UpdatePoint(p.Index, p.Field, p.Text()); err != nil {
			return false, err
		}
		return true, nil

	case TypePointDisconnect:
		var p PointDisconnectPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if err := ed.Disconnect(p.Index, p.Endpoint); err != nil {
			return false, err
		}
		return true, nil

	case TypeViewToggle:
		var p ViewTogglePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if p.HideStrokes != nil {
			ed.SetHideStrokes(*p.HideStrokes)
		}
		if p.ForceBlackLine != nil {
			ed.SetForceBlackLine(*p.ForceBlackLine)
		}
		return true, nil

	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}
}

// Release ends a drag held by a departing client, returning the state to
// broadcast or nil if the client held nothing.
func (r *Room) Release(clientID string) *Message {
	state, _ := r.Apply(clientID, &Message{Type: TypePointerLeave})
	return state
}

// SceneMessage returns the current scene.state message.
func (r *Room) SceneMessage() (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sceneMessageLocked()
}

func (r *Room) sceneMessageLocked() (*Message, error) {
	st, err := r.editor.State()
	if err != nil {
		return nil, fmt.Errorf("scene state: %w", err)
	}
	msg := newMessage(TypeSceneState, ScenePayload{State: st, ServerSeq: r.serverSeq})
	msg.SessionID = r.id
	return msg, nil
}

// Dragger returns the client currently dragging, or "".
func (r *Room) Dragger() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dragOwner
}

// Draw runs f with the editor held, for renders that must not interleave
// with edits.
func (r *Room) Draw(f func(*editor.Editor) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return f(r.editor)
}

func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s: missing payload", ErrBadPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, msg.Type, err)
	}
	return nil
}
