package session

import (
	"encoding/json"
	"strings"

	"github.com/TriangleYJ/spline/internal/editor"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Pointer (client -> server)
	TypePointerDown  = "pointer.down"
	TypePointerMove  = "pointer.move"
	TypePointerUp    = "pointer.up"
	TypePointerLeave = "pointer.leave"

	// Scene edits (client -> server)
	TypeCurveAdd        = "curve.add"
	TypeCurveRemove     = "curve.remove"
	TypePointUpdate     = "point.update"
	TypePointDisconnect = "point.disconnect"
	TypeViewToggle      = "view.toggle"

	// Scene sync (server -> client)
	TypeSceneState = "scene.state"
	TypeOpNack     = "op.nack"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CurveRemovePayload struct {
	Index int `json:"index"`
}

// PointUpdatePayload carries a coordinate as typed into a field. Value may be
// a JSON string or number.
type PointUpdatePayload struct {
	Index int             `json:"index"`
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Text returns Value as the text a user would have typed.
func (p PointUpdatePayload) Text() string {
	var s string
	if err := json.Unmarshal(p.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(p.Value))
}

type PointDisconnectPayload struct {
	Index    int    `json:"index"`
	Endpoint string `json:"endpoint"`
}

// ViewTogglePayload sets whichever toggles are present.
type ViewTogglePayload struct {
	HideStrokes    *bool `json:"hideStrokes,omitempty"`
	ForceBlackLine *bool `json:"forceBlackLine,omitempty"`
}

// ScenePayload is broadcast after every applied operation.
type ScenePayload struct {
	editor.State
	ServerSeq int64 `json:"serverSeq"`
}

type NackPayload struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

type PresencePayload struct {
	Cursor   *CursorPos       `json:"cursor,omitempty"`
	Dragging *editor.PointRef `json:"dragging,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID string `json:"clientId"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
