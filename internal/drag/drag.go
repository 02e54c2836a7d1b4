// Package drag turns raw pointer events into curve store mutations.
//
// The controller has two states. PointerDown in Idle hit-tests every point
// and, on a hit, binds that point and enters Dragging. PointerMove in
// Dragging moves the bound point. PointerUp (or PointerLeave, which is the
// same thing) tries to connect a dragged endpoint to a nearby endpoint of
// another curve and always returns to Idle.
package drag

import (
	"fmt"

	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/scene"
)

// State is the controller state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Target is a point bound by a drag.
type Target struct {
	Curve  int
	Handle scene.Handle
}

func (t Target) String() string {
	return fmt.Sprintf("%d.%s", t.Curve, t.Handle)
}

// Store is the part of the curve store the controller drives.
type Store interface {
	Curves() []scene.Curve
	MovePoint(i int, h scene.Handle, p geom.Point) error
	Connect(a int, ea scene.Handle, b int, eb scene.Handle) error
}

// Release describes what happened when a drag ended.
type Release struct {
	Target    Target
	Connected bool
	Partner   Target
}

// Controller is the drag state machine. It is not safe for concurrent use.
type Controller struct {
	store  Store
	state  State
	target Target
}

// NewController returns an idle controller driving store.
func NewController(store Store) *Controller {
	return &Controller{store: store}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Target returns the bound point; ok is false while idle.
func (c *Controller) Target() (Target, bool) {
	return c.target, c.state == Dragging
}

// Reset drops any drag in progress without connecting anything. Used when
// the scene is replaced under an active drag.
func (c *Controller) Reset() {
	c.state = Idle
	c.target = Target{}
}

// PointerDown starts a drag if the pointer hits a point. It reports whether
// a point was grabbed. A pointer-down while already dragging is ignored.
func (c *Controller) PointerDown(x, y float64) bool {
	if c.state == Dragging {
		return false
	}
	t, ok := HitTest(c.store.Curves(), x, y)
	if !ok {
		return false
	}
	c.state = Dragging
	c.target = t
	return true
}

// PointerMove moves the bound point to the pointer. It does nothing while idle.
func (c *Controller) PointerMove(x, y float64) error {
	if c.state != Dragging {
		return nil
	}
	if err := c.store.MovePoint(c.target.Curve, c.target.Handle, geom.Truncate(x, y)); err != nil {
		c.Reset()
		return fmt.Errorf("move %s: %w", c.target, err)
	}
	return nil
}

// PointerUp ends the drag. A dragged endpoint connects to the first
// endpoint of another curve within the connect radius. ok is false when no
// drag was in progress.
func (c *Controller) PointerUp() (rel Release, ok bool, err error) {
	if c.state != Dragging {
		return Release{}, false, nil
	}
	t := c.target
	c.Reset()

	rel = Release{Target: t}
	if !t.Handle.IsEndpoint() {
		return rel, true, nil
	}

	partner, found := FindPartner(c.store.Curves(), t)
	if !found {
		return rel, true, nil
	}
	if err := c.store.Connect(t.Curve, t.Handle, partner.Curve, partner.Handle); err != nil {
		return rel, true, fmt.Errorf("connect %s to %s: %w", t, partner, err)
	}
	rel.Connected = true
	rel.Partner = partner
	return rel, true, nil
}

// PointerLeave is PointerUp: leaving the surface ends the drag normally.
func (c *Controller) PointerLeave() (Release, bool, error) {
	return c.PointerUp()
}

// HitTest returns the first point, in curve then handle order, within the
// hit radius of (x, y).
func HitTest(curves []scene.Curve, x, y float64) (Target, bool) {
	for i := range curves {
		for _, h := range scene.Handles {
			if curves[i].Point(h).Hit(x, y) {
				return Target{Curve: i, Handle: h}, true
			}
		}
	}
	return Target{}, false
}

// FindPartner returns the first start or end point of a curve other than
// t.Curve lying within the connect radius of t's position.
func FindPartner(curves []scene.Curve, t Target) (Target, bool) {
	if t.Curve < 0 || t.Curve >= len(curves) {
		return Target{}, false
	}
	p := curves[t.Curve].Point(t.Handle)
	for i := range curves {
		if i == t.Curve {
			continue
		}
		for _, e := range scene.Endpoints {
			if p.Near(curves[i].Point(e)) {
				return Target{Curve: i, Handle: e}, true
			}
		}
	}
	return Target{}, false
}
