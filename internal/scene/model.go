package scene

import (
	"fmt"

	"github.com/TriangleYJ/spline/internal/geom"
)

// Handle names one of the four points of a curve.
type Handle int

const (
	Start Handle = iota
	Control1
	Control2
	End
)

// Handles lists every handle in enumeration order. Hit-testing and
// rendering walk points in this order.
var Handles = [...]Handle{Start, Control1, Control2, End}

// Endpoints lists the handles that can take part in a connection, in the
// order a partner search checks them.
var Endpoints = [...]Handle{Start, End}

func (h Handle) String() string {
	switch h {
	case Start:
		return "start"
	case Control1:
		return "control1"
	case Control2:
		return "control2"
	case End:
		return "end"
	default:
		return fmt.Sprintf("Handle(%d)", int(h))
	}
}

// IsEndpoint reports whether h is start or end.
func (h Handle) IsEndpoint() bool {
	return h == Start || h == End
}

// Opposite returns the other endpoint.
func (h Handle) Opposite() Handle {
	if h == Start {
		return End
	}
	return Start
}

// ParseHandle parses a handle name such as "control1".
func ParseHandle(s string) (Handle, error) {
	for _, h := range Handles {
		if h.String() == s {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// ParseEndpoint parses "start" or "end".
func ParseEndpoint(s string) (Handle, error) {
	h, err := ParseHandle(s)
	if err != nil {
		return 0, err
	}
	if !h.IsEndpoint() {
		return 0, fmt.Errorf("%w: %s", ErrNotEndpoint, h)
	}
	return h, nil
}

// Axis selects one coordinate of a point.
type Axis int

const (
	X Axis = iota
	Y
)

func (a Axis) String() string {
	if a == Y {
		return "Y"
	}
	return "X"
}

// Field identifies a single coordinate of a single handle, e.g. startX.
type Field struct {
	Handle Handle
	Axis   Axis
}

func (f Field) String() string {
	return f.Handle.String() + f.Axis.String()
}

// ParseField parses names like "startX" or "control2Y".
func ParseField(s string) (Field, error) {
	if len(s) < 2 {
		return Field{}, fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	var axis Axis
	switch s[len(s)-1] {
	case 'X':
		axis = X
	case 'Y':
		axis = Y
	default:
		return Field{}, fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	h, err := ParseHandle(s[:len(s)-1])
	if err != nil {
		return Field{}, err
	}
	return Field{Handle: h, Axis: axis}, nil
}

// Connection is the far side of a connected endpoint: the partner curve's
// position in the store and which of its endpoints is linked.
type Connection struct {
	Curve    int
	Endpoint Handle
}

func (c Connection) String() string {
	return fmt.Sprintf("%d.%s", c.Curve, c.Endpoint)
}

// Curve is one cubic Bezier segment. A nil link means the endpoint is free.
type Curve struct {
	Start    geom.Point
	Control1 geom.Point
	Control2 geom.Point
	End      geom.Point
	Color    string

	StartLink *Connection
	EndLink   *Connection
}

// Template returns the geometry every new curve starts with. It has no
// color and no connections.
func Template() Curve {
	return Curve{
		Start:    geom.Pt(50, 200),
		Control1: geom.Pt(100, 50),
		Control2: geom.Pt(200, 50),
		End:      geom.Pt(250, 200),
	}
}

// Point returns the position of handle h.
func (c *Curve) Point(h Handle) geom.Point {
	switch h {
	case Start:
		return c.Start
	case Control1:
		return c.Control1
	case Control2:
		return c.Control2
	default:
		return c.End
	}
}

// SetPoint moves handle h to p without touching any partner.
func (c *Curve) SetPoint(h Handle, p geom.Point) {
	switch h {
	case Start:
		c.Start = p
	case Control1:
		c.Control1 = p
	case Control2:
		c.Control2 = p
	default:
		c.End = p
	}
}

// Link returns the connection held by handle h; always nil for control points.
func (c *Curve) Link(h Handle) *Connection {
	switch h {
	case Start:
		return c.StartLink
	case End:
		return c.EndLink
	default:
		return nil
	}
}

// Connected reports whether handle h currently holds a connection.
func (c *Curve) Connected(h Handle) bool {
	return c.Link(h) != nil
}

// SetLink sets the connection held by endpoint h without touching the
// partner. It is a no-op for control points.
func (c *Curve) SetLink(h Handle, conn *Connection) {
	switch h {
	case Start:
		c.StartLink = conn
	case End:
		c.EndLink = conn
	}
}

// Clone returns a copy that shares no connection pointers with c.
func (c Curve) Clone() Curve {
	out := c
	if c.StartLink != nil {
		l := *c.StartLink
		out.StartLink = &l
	}
	if c.EndLink != nil {
		l := *c.EndLink
		out.EndLink = &l
	}
	return out
}
