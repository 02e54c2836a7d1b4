package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"github.com/TriangleYJ/spline/internal/editor"
	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/scene"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func testEditor() *editor.Editor {
	return editor.New(scene.WithColorSource(scene.FixedColors("#111111", "#222222")))
}

func op(t *testing.T, typ string, payload any) *Message {
	t.Helper()
	msg := &Message{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		msg.Payload = data
	}
	return msg
}

func scenePayload(t *testing.T, msg *Message) ScenePayload {
	t.Helper()
	if msg == nil {
		t.Fatal("no scene.state message")
	}
	if msg.Type != TypeSceneState {
		t.Fatalf("got %s, want %s", msg.Type, TypeSceneState)
	}
	var p ScenePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRoomEdits(t *testing.T) {
	room := NewRoom("sess_test", testEditor())

	state, err := room.Apply("a", op(t, TypeCurveAdd, nil))
	if err != nil {
		t.Fatal(err)
	}
	p := scenePayload(t, state)
	diff(t, 2, len(p.Curves))
	diff(t, int64(1), p.ServerSeq)
	diff(t, "sess_test", state.SessionID)

	state, err = room.Apply("a", op(t, TypePointUpdate, map[string]any{"index": 1, "field": "startX", "value": 12.7}))
	if err != nil {
		t.Fatal(err)
	}
	diff(t, geom.Pt(12, 200), scenePayload(t, state).Curves[1].Start)

	state, err = room.Apply("b", op(t, TypePointUpdate, map[string]any{"index": 1, "field": "startY", "value": " 30 "}))
	if err != nil {
		t.Fatal(err)
	}
	diff(t, geom.Pt(12, 30), scenePayload(t, state).Curves[1].Start)

	state, err = room.Apply("a", op(t, TypeViewToggle, map[string]any{"forceBlackLine": true}))
	if err != nil {
		t.Fatal(err)
	}
	p = scenePayload(t, state)
	if !p.Options.ForceBlackLine || p.Options.HideStrokes {
		t.Errorf("options = %+v", p.Options)
	}

	state, err = room.Apply("a", op(t, TypeCurveRemove, map[string]any{"index": 0}))
	if err != nil {
		t.Fatal(err)
	}
	p = scenePayload(t, state)
	diff(t, 1, len(p.Curves))
	diff(t, int64(5), p.ServerSeq)
}

func TestRoomRejects(t *testing.T) {
	room := NewRoom("sess_test", testEditor())

	tests := []struct {
		name string
		msg  *Message
		err  error
	}{
		{"unknown", op(t, "curve.explode", nil), ErrUnknownType},
		{"missing payload", op(t, TypeCurveRemove, nil), ErrBadPayload},
		{"bad payload", &Message{Type: TypePointerDown, Payload: json.RawMessage(`"x"`)}, ErrBadPayload},
		{"bad index", op(t, TypeCurveRemove, map[string]any{"index": 5}), scene.ErrInvalidIndex},
		{"bad value", op(t, TypePointUpdate, map[string]any{"index": 0, "field": "endX", "value": "wide"}), scene.ErrInvalidValue},
		{"not connected", op(t, TypePointDisconnect, map[string]any{"index": 0, "endpoint": "end"}), scene.ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := room.Apply("a", tt.msg)
			if !errors.Is(err, tt.err) {
				t.Errorf("got %v, want %v", err, tt.err)
			}
			if state != nil {
				t.Error("failed operation produced a broadcast")
			}
		})
	}
}

func TestRoomDragOwnership(t *testing.T) {
	ed := testEditor()
	ed.AddCurve()
	if err := ed.UpdatePoint(1, "startY", "300"); err != nil {
		t.Fatal(err)
	}
	room := NewRoom("sess_test", ed)

	// Miss: nothing to broadcast.
	if state, err := room.Apply("a", op(t, TypePointerDown, PointerPayload{X: 400, Y: 400})); state != nil || err != nil {
		t.Fatalf("miss: %v %v", state, err)
	}

	state, err := room.Apply("a", op(t, TypePointerDown, PointerPayload{X: 50, Y: 300}))
	if err != nil {
		t.Fatal(err)
	}
	diff(t, &editor.PointRef{Curve: 1, Handle: "start"}, scenePayload(t, state).Dragging)
	diff(t, "a", room.Dragger())

	// Another client can neither grab nor move the held point.
	if state, _ := room.Apply("b", op(t, TypePointerDown, PointerPayload{X: 100, Y: 50})); state != nil {
		t.Error("second client stole the drag")
	}
	if state, _ := room.Apply("b", op(t, TypePointerMove, PointerPayload{X: 0, Y: 0})); state != nil {
		t.Error("second client moved the point")
	}

	if _, err := room.Apply("a", op(t, TypePointerMove, PointerPayload{X: 251, Y: 199})); err != nil {
		t.Fatal(err)
	}
	state, err = room.Apply("a", op(t, TypePointerUp, nil))
	if err != nil {
		t.Fatal(err)
	}
	p := scenePayload(t, state)
	if p.Dragging != nil {
		t.Errorf("still dragging %+v", p.Dragging)
	}
	diff(t, &editor.Link{Curve: 0, Endpoint: "end"}, p.Curves[1].StartLink)
	diff(t, geom.Pt(251, 199), p.Curves[0].End)
	diff(t, "", room.Dragger())
}

func TestRoomReleaseOnDeparture(t *testing.T) {
	room := NewRoom("sess_test", testEditor())
	if _, err := room.Apply("a", op(t, TypePointerDown, PointerPayload{X: 100, Y: 50})); err != nil {
		t.Fatal(err)
	}
	if room.Release("b") != nil {
		t.Error("release by a non-owner broadcast")
	}
	if room.Release("a") == nil {
		t.Error("owner release did not broadcast")
	}
	diff(t, "", room.Dragger())
}

func TestRoomPresence(t *testing.T) {
	room := NewRoom("sess_test", testEditor())
	room.MoveCursor("b", &CursorPos{X: 7, Y: 8})
	if _, err := room.Apply("a", op(t, TypePointerDown, PointerPayload{X: 100, Y: 50})); err != nil {
		t.Fatal(err)
	}

	msg := room.MoveCursor("a", &CursorPos{X: 101, Y: 52})
	diff(t, "a", msg.ClientID)
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	diff(t, PresencePayload{
		Cursor:   &CursorPos{X: 101, Y: 52},
		Dragging: &editor.PointRef{Curve: 0, Handle: "control1"},
	}, p)

	var st PresenceStatePayload
	if err := json.Unmarshal(room.PresenceMessage().Payload, &st); err != nil {
		t.Fatal(err)
	}
	diff(t, map[string]*PresencePayload{
		"a": {Cursor: &CursorPos{X: 101, Y: 52}, Dragging: &editor.PointRef{Curve: 0, Handle: "control1"}},
		"b": {Cursor: &CursorPos{X: 7, Y: 8}},
	}, st.Presences)

	room.MoveCursor("b", nil)
	room.Release("a")
	st = PresenceStatePayload{}
	if err := json.Unmarshal(room.PresenceMessage().Payload, &st); err != nil {
		t.Fatal(err)
	}
	diff(t, map[string]*PresencePayload{"a": {Cursor: &CursorPos{X: 101, Y: 52}}}, st.Presences)
}

func TestPointUpdateText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"12.5"`, "12.5"},
		{`12.5`, "12.5"},
		{`-3`, "-3"},
		{`null`, ""},
	}
	for _, tt := range tests {
		p := PointUpdatePayload{Value: json.RawMessage(tt.raw)}
		diff(t, tt.want, p.Text())
	}
}

func newTestClient(h *Hub, sessionID, clientID string, seed url.Values) *Client {
	return NewClient(h, nil, sessionID, clientID, seed)
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.outbox:
		return msg
	default:
		t.Fatalf("client %s: no message queued", c.ClientID)
		return nil
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.outbox:
		default:
			return
		}
	}
}

func TestHubJoinBroadcastLeave(t *testing.T) {
	h := NewHub(testEditor)
	seed := url.Values{"curves": {`[[1,1,2,2,3,3,4,4,"#ABCDEF",null,null]]`}}

	a := newTestClient(h, "sess_one", "a", seed)
	h.addClient(a)

	var types []string
	for range 3 {
		types = append(types, recv(t, a).Type)
	}
	diff(t, []string{TypeWelcome, TypeSceneState, TypePresenceState}, types)
	diff(t, 1, h.Len())

	// Seeding only applies when the room is created.
	b := newTestClient(h, "sess_one", "b", nil)
	h.addClient(b)
	diff(t, TypePresenceJoin, recv(t, a).Type)
	recv(t, b)
	p := scenePayload(t, recv(t, b))
	diff(t, "#ABCDEF", p.Curves[0].Color)
	drain(b)

	h.handleMessage(b, &Message{Type: TypeCurveAdd, Seq: 7})
	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		diff(t, 2, len(scenePayload(t, msg).Curves))
		diff(t, "b", msg.ClientID)
		diff(t, int64(7), msg.Seq)
	}

	h.handleMessage(a, &Message{Type: TypeCurveRemove, Seq: 8, Payload: json.RawMessage(`{"index":9}`)})
	nack := recv(t, a)
	diff(t, TypeOpNack, nack.Type)
	diff(t, int64(8), nack.Seq)
	select {
	case <-b.outbox:
		t.Error("nack leaked to another client")
	default:
	}

	h.handleMessage(a, op(t, TypePresenceUpdate, PresencePayload{Cursor: &CursorPos{X: 3, Y: 4}}))
	diff(t, TypePresenceUpdate, recv(t, b).Type)

	h.removeClient(a)
	if _, ok := <-a.outbox; ok {
		t.Error("outbox left open")
	}
	leave := recv(t, b)
	diff(t, TypePresenceLeave, leave.Type)
	diff(t, "a", leave.ClientID)

	h.removeClient(b)
	diff(t, 0, h.Len())
}

func TestHubReleasesDragOfDepartingClient(t *testing.T) {
	h := NewHub(testEditor)
	a := newTestClient(h, "sess_two", "a", nil)
	b := newTestClient(h, "sess_two", "b", nil)
	h.addClient(a)
	h.addClient(b)

	h.handleMessage(a, op(t, TypePointerDown, PointerPayload{X: 50, Y: 200}))
	drain(b)

	h.removeClient(a)
	p := scenePayload(t, recv(t, b))
	if p.Dragging != nil {
		t.Errorf("drag survived its owner: %+v", p.Dragging)
	}
	diff(t, TypePresenceLeave, recv(t, b).Type)
}

func router(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sessions", h.Create).Methods("POST")
	r.HandleFunc("/ws/session/{sessionId}", h.Serve)
	return r
}

func TestCreateSession(t *testing.T) {
	hub := NewHub(testEditor)
	srv := router(NewHandler(hub, []string{"http://localhost:5173"}))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions?curves="+url.QueryEscape("[[oops"), nil))
	diff(t, http.StatusCreated, rec.Code)

	var resp createResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.SessionID, "sess_") {
		t.Errorf("session id %q", resp.SessionID)
	}
	if resp.Notice == "" {
		t.Error("malformed seed produced no notice")
	}
	if _, ok := hub.Room(resp.SessionID); !ok {
		t.Error("room not registered")
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/ws/session/nope", nil))
	diff(t, http.StatusBadRequest, rec.Code)
}

func TestNewHandlerOriginPatterns(t *testing.T) {
	h := NewHandler(NewHub(nil), []string{"http://localhost:5173", "https://example.com/", "*.example.org"})
	diff(t, []string{"localhost:5173", "example.com", "*.example.org"}, h.originPatterns)
}

func TestWebsocketSession(t *testing.T) {
	hub := NewHub(testEditor)
	go hub.Run()
	defer hub.Stop()

	handler := NewHandler(hub, nil)
	room := hub.CreateRoom(nil)
	srv := httptest.NewServer(router(handler))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/" + room.ID()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var welcome Message
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		t.Fatal(err)
	}
	diff(t, TypeWelcome, welcome.Type)
	diff(t, room.ID(), welcome.SessionID)

	var msg Message
	for msg.Type != TypePresenceState {
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatal(err)
		}
	}

	if err := wsjson.Write(ctx, conn, Message{Type: TypeCurveAdd, Seq: 1}); err != nil {
		t.Fatal(err)
	}
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatal(err)
	}
	p := scenePayload(t, &msg)
	diff(t, 2, len(p.Curves))
	diff(t, welcome.ClientID, msg.ClientID)

	// Garbage is answered with a nack and the connection stays usable.
	if err := conn.Write(ctx, websocket.MessageText, []byte("{oops")); err != nil {
		t.Fatal(err)
	}
	var nack Message
	if err := wsjson.Read(ctx, conn, &nack); err != nil {
		t.Fatal(err)
	}
	diff(t, TypeOpNack, nack.Type)

	if err := wsjson.Write(ctx, conn, Message{Type: TypeCurveAdd, Seq: 2}); err != nil {
		t.Fatal(err)
	}
	var next Message
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatal(err)
	}
	diff(t, 3, len(scenePayload(t, &next).Curves))
}
