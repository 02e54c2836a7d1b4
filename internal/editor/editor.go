// Package editor holds the complete state of one editing surface: the curve
// store, the drag controller, the display toggles and the cached encoded
// scene. Front ends (the wasm bridge, live sessions, HTTP export) drive it
// through commands and read it back through queries.
package editor

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/TriangleYJ/spline/internal/codec"
	"github.com/TriangleYJ/spline/internal/drag"
	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/render"
	"github.com/TriangleYJ/spline/internal/scene"
)

// Editor is not safe for concurrent use.
type Editor struct {
	storeOpts []scene.Option
	store     *scene.Store
	drag      *drag.Controller

	opts   render.Options
	notice string

	// Encoded scene, rebuilt lazily after a mutation.
	param string
	dirty bool
}

// New creates an editor showing the default scene.
func New(opts ...scene.Option) *Editor {
	e := &Editor{storeOpts: opts}
	e.reset()
	return e
}

func (e *Editor) reset() {
	e.store = scene.NewStore(e.storeOpts...)
	e.drag = drag.NewController(e.store)
	e.notice = ""
	e.dirty = true
}

// --- Commands ---

// LoadQuery restores the scene carried by q's "curves" parameter. Without
// the parameter the default scene is shown. A malformed parameter also
// leaves the default scene and sets a notice; the returned error is the
// decode failure, for logging.
func (e *Editor) LoadQuery(q url.Values) error {
	e.reset()
	curves, ok, err := codec.FromQuery(q)
	if !ok {
		return nil
	}
	if err != nil {
		e.notice = fmt.Sprintf("The shared scene could not be restored (%v). Showing the default curve instead.", err)
		return err
	}
	e.store.Replace(curves)
	return nil
}

// LoadParam is LoadQuery for a bare "curves" value.
func (e *Editor) LoadParam(text string) error {
	return e.LoadQuery(url.Values{codec.Param: {text}})
}

// AddCurve appends a default curve and returns its index.
func (e *Editor) AddCurve() int {
	e.dirty = true
	return e.store.AddCurve()
}

// RemoveCurve deletes curve i. A drag in progress is dropped since its
// target index may no longer be valid.
func (e *Editor) RemoveCurve(i int) error {
	if err := e.store.RemoveCurve(i); err != nil {
		return fmt.Errorf("remove curve: %w", err)
	}
	e.drag.Reset()
	e.dirty = true
	return nil
}

// UpdatePoint sets one coordinate from text, e.g. ("startX", "120").
func (e *Editor) UpdatePoint(i int, field, value string) error {
	f, err := scene.ParseField(field)
	if err != nil {
		return fmt.Errorf("update point: %w", err)
	}
	if err := e.store.UpdatePoint(i, f, value); err != nil {
		return fmt.Errorf("update point: %w", err)
	}
	e.dirty = true
	return nil
}

// Disconnect breaks the connection on an endpoint ("start" or "end").
func (e *Editor) Disconnect(i int, endpoint string) error {
	h, err := scene.ParseEndpoint(endpoint)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if err := e.store.Disconnect(i, h); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	e.dirty = true
	return nil
}

// PointerDown reports whether a point was grabbed.
func (e *Editor) PointerDown(x, y float64) bool {
	return e.drag.PointerDown(x, y)
}

func (e *Editor) PointerMove(x, y float64) error {
	if e.drag.State() != drag.Dragging {
		return nil
	}
	e.dirty = true
	return e.drag.PointerMove(x, y)
}

func (e *Editor) PointerUp() (drag.Release, bool, error) {
	rel, ok, err := e.drag.PointerUp()
	if ok {
		e.dirty = true
	}
	return rel, ok, err
}

func (e *Editor) PointerLeave() (drag.Release, bool, error) {
	return e.PointerUp()
}

func (e *Editor) SetHideStrokes(v bool) {
	e.opts.HideStrokes = v
}

func (e *Editor) SetForceBlackLine(v bool) {
	e.opts.ForceBlackLine = v
}

func (e *Editor) SetOptions(opts render.Options) {
	e.opts = opts
}

// DismissNotice clears the load notice.
func (e *Editor) DismissNotice() {
	e.notice = ""
}

// --- Queries ---

// Curves returns a copy of the scene.
func (e *Editor) Curves() []scene.Curve {
	return e.store.Curves()
}

func (e *Editor) Len() int {
	return e.store.Len()
}

func (e *Editor) Options() render.Options {
	return e.opts
}

// Notice returns the pending load notice, or "".
func (e *Editor) Notice() string {
	return e.notice
}

// Dragging returns the point being dragged, if any.
func (e *Editor) Dragging() (drag.Target, bool) {
	return e.drag.Target()
}

// Param returns the encoded scene as it appears in the "curves" parameter,
// before percent-encoding.
func (e *Editor) Param() (string, error) {
	if e.dirty {
		text, err := codec.Encode(e.store.Curves())
		if err != nil {
			return "", err
		}
		e.param = text
		e.dirty = false
	}
	return e.param, nil
}

// ShareURL returns base with the current scene in its query.
func (e *Editor) ShareURL(base string) (string, error) {
	return codec.ShareURL(base, e.store.Curves())
}

// Commands compiles the current scene to draw commands.
func (e *Editor) Commands() []render.DrawCommand {
	return render.Compile(e.store.Curves(), e.opts)
}

// Draw replays the current scene on s.
func (e *Editor) Draw(s render.Surface) error {
	return render.Execute(e.Commands(), s)
}

// Render returns the draw commands as JSON.
func (e *Editor) Render() string {
	result, _ := render.ToJSON(e.Commands())
	return result
}

// Link is the JSON form of a connection.
type Link struct {
	Curve    int    `json:"curve"`
	Endpoint string `json:"endpoint"`
}

// PointRef names one point of one curve.
type PointRef struct {
	Curve  int    `json:"curve"`
	Handle string `json:"handle"`
}

// CurveState is the JSON form of a curve.
type CurveState struct {
	Start     geom.Point `json:"start"`
	Control1  geom.Point `json:"control1"`
	Control2  geom.Point `json:"control2"`
	End       geom.Point `json:"end"`
	Color     string     `json:"color"`
	StartLink *Link      `json:"startLink"`
	EndLink   *Link      `json:"endLink"`
}

// State is a full snapshot for front ends.
type State struct {
	Curves   []CurveState         `json:"curves"`
	Commands []render.DrawCommand `json:"commands"`
	Param    string               `json:"param"`
	Options  render.Options       `json:"options"`
	Dragging *PointRef            `json:"dragging,omitempty"`
	Notice   string               `json:"notice,omitempty"`
}

// State returns a snapshot of everything a front end displays.
func (e *Editor) State() (State, error) {
	param, err := e.Param()
	if err != nil {
		return State{}, err
	}
	curves := e.store.Curves()
	st := State{
		Curves:   make([]CurveState, len(curves)),
		Commands: render.Compile(curves, e.opts),
		Param:    param,
		Options:  e.opts,
		Notice:   e.notice,
	}
	for i, c := range curves {
		st.Curves[i] = CurveState{
			Start:     c.Start,
			Control1:  c.Control1,
			Control2:  c.Control2,
			End:       c.End,
			Color:     c.Color,
			StartLink: linkState(c.StartLink),
			EndLink:   linkState(c.EndLink),
		}
	}
	if t, ok := e.drag.Target(); ok {
		st.Dragging = &PointRef{Curve: t.Curve, Handle: t.Handle.String()}
	}
	return st, nil
}

func linkState(c *scene.Connection) *Link {
	if c == nil {
		return nil
	}
	return &Link{Curve: c.Curve, Endpoint: c.Endpoint.String()}
}

// StateJSON returns State as JSON.
func (e *Editor) StateJSON() string {
	st, err := e.State()
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data)
	}
	data, _ := json.Marshal(st)
	return string(data)
}
