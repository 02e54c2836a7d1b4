package scene

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TriangleYJ/spline/internal/geom"
)

var (
	ErrInvalidIndex   = errors.New("invalid curve index")
	ErrInvalidValue   = errors.New("invalid point value")
	ErrInvalidField   = errors.New("invalid point field")
	ErrNotEndpoint    = errors.New("point is not an endpoint")
	ErrNotConnected   = errors.New("endpoint is not connected")
	ErrSelfConnection = errors.New("curve cannot connect to itself")
)

// Store owns the ordered curve collection. A curve's identity is its
// position, so indices shift down when an earlier curve is removed.
//
// Store is not safe for concurrent use. Every method either applies its
// whole change or returns an error and leaves the store untouched.
type Store struct {
	curves []Curve
	colors ColorSource
}

// Option configures a Store.
type Option func(*Store)

// WithColorSource replaces the random color generator.
func WithColorSource(src ColorSource) Option {
	return func(s *Store) {
		s.colors = src
	}
}

// NewStore creates a store holding the single default curve.
func NewStore(opts ...Option) *Store {
	s := &Store{colors: RandomColor}
	for _, opt := range opts {
		opt(s)
	}
	s.curves = []Curve{s.newCurve()}
	return s
}

func (s *Store) newCurve() Curve {
	c := Template()
	c.Color = s.colors()
	return c
}

// Len returns the number of curves.
func (s *Store) Len() int {
	return len(s.curves)
}

// Curve returns a copy of the curve at index i.
func (s *Store) Curve(i int) (Curve, error) {
	if err := s.checkIndex(i); err != nil {
		return Curve{}, err
	}
	return s.curves[i].Clone(), nil
}

// Curves returns a deep copy of the whole scene.
func (s *Store) Curves() []Curve {
	out := make([]Curve, len(s.curves))
	for i, c := range s.curves {
		out[i] = c.Clone()
	}
	return out
}

// Replace swaps in a new scene, e.g. one restored from a URL. Connection
// references are taken as given.
func (s *Store) Replace(curves []Curve) {
	next := make([]Curve, len(curves))
	for i, c := range curves {
		next[i] = c.Clone()
	}
	s.curves = next
}

// AddCurve appends a fresh default curve and returns its index.
func (s *Store) AddCurve() int {
	s.curves = append(s.curves, s.newCurve())
	return len(s.curves) - 1
}

// RemoveCurve deletes curve i. Links to i are severed and links to later
// curves are renumbered so they keep pointing at the same partner.
func (s *Store) RemoveCurve(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}

	next := make([]Curve, 0, len(s.curves)-1)
	for j, c := range s.curves {
		if j == i {
			continue
		}
		for _, e := range Endpoints {
			c.SetLink(e, renumber(c.Link(e), i))
		}
		next = append(next, c)
	}
	s.curves = next
	return nil
}

func renumber(l *Connection, removed int) *Connection {
	switch {
	case l == nil || l.Curve == removed:
		return nil
	case l.Curve > removed:
		return &Connection{Curve: l.Curve - 1, Endpoint: l.Endpoint}
	default:
		return l
	}
}

// ParseCoordinate parses text entered for a coordinate. Fractions are
// truncated toward zero; anything that is not a finite number is rejected.
func ParseCoordinate(value string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}
	return int(math.Trunc(f)), nil
}

// UpdatePoint sets one coordinate from its text form.
func (s *Store) UpdatePoint(i int, field Field, value string) error {
	v, err := ParseCoordinate(value)
	if err != nil {
		return err
	}
	return s.SetCoordinate(i, field, v)
}

// SetCoordinate sets one coordinate of curve i. When the handle is a
// connected endpoint the partner endpoint receives the same value.
func (s *Store) SetCoordinate(i int, field Field, v int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	p := s.curves[i].Point(field.Handle)
	if field.Axis == X {
		p.X = v
	} else {
		p.Y = v
	}
	s.place(i, field.Handle, p)
	return nil
}

// MovePoint moves handle h of curve i to p, carrying a connected partner along.
func (s *Store) MovePoint(i int, h Handle, p geom.Point) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.place(i, h, p)
	return nil
}

func (s *Store) place(i int, h Handle, p geom.Point) {
	s.curves[i].SetPoint(h, p)
	if l := s.curves[i].Link(h); l != nil && s.valid(l.Curve) {
		s.curves[l.Curve].SetPoint(l.Endpoint, p)
	}
}

// Connect links endpoint ea of curve a with endpoint eb of curve b. Curve
// b's endpoint snaps onto a's. Any link either endpoint held before is
// severed on both sides first.
func (s *Store) Connect(a int, ea Handle, b int, eb Handle) error {
	if err := s.checkIndex(a); err != nil {
		return err
	}
	if err := s.checkIndex(b); err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("%w: %d", ErrSelfConnection, a)
	}
	if !ea.IsEndpoint() {
		return fmt.Errorf("%w: %s", ErrNotEndpoint, ea)
	}
	if !eb.IsEndpoint() {
		return fmt.Errorf("%w: %s", ErrNotEndpoint, eb)
	}

	s.sever(a, ea)
	s.sever(b, eb)

	s.curves[b].SetPoint(eb, s.curves[a].Point(ea))
	s.curves[a].SetLink(ea, &Connection{Curve: b, Endpoint: eb})
	s.curves[b].SetLink(eb, &Connection{Curve: a, Endpoint: ea})
	return nil
}

// Disconnect clears the link on endpoint e of curve i and its reciprocal.
// Both endpoints stay where they are.
func (s *Store) Disconnect(i int, e Handle) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if !e.IsEndpoint() {
		return fmt.Errorf("%w: %s", ErrNotEndpoint, e)
	}
	if !s.curves[i].Connected(e) {
		return fmt.Errorf("%w: curve %d %s", ErrNotConnected, i, e)
	}
	s.sever(i, e)
	return nil
}

// sever drops the link on (i, e) and, if the partner still points back,
// the partner's link too.
func (s *Store) sever(i int, e Handle) {
	l := s.curves[i].Link(e)
	if l == nil {
		return
	}
	s.curves[i].SetLink(e, nil)
	if !s.valid(l.Curve) {
		return
	}
	back := s.curves[l.Curve].Link(l.Endpoint)
	if back != nil && back.Curve == i && back.Endpoint == e {
		s.curves[l.Curve].SetLink(l.Endpoint, nil)
	}
}

func (s *Store) valid(i int) bool {
	return i >= 0 && i < len(s.curves)
}

func (s *Store) checkIndex(i int) error {
	if !s.valid(i) {
		return fmt.Errorf("%w: %d (have %d curves)", ErrInvalidIndex, i, len(s.curves))
	}
	return nil
}
