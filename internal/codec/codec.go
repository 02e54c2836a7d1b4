// Package codec maps a scene to the compact array form carried in the
// "curves" query parameter, and back.
//
// Each curve becomes an 11 element tuple:
//
//	[startX, startY, control1X, control1Y, control2X, control2Y, endX, endY,
//	 color, startConnected, endConnected]
//
// where the last two entries are a partner curve index or null.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/scene"
)

// Param is the query parameter holding an encoded scene.
const Param = "curves"

const tupleLen = 11

// DecodeError reports a scene that could not be restored.
type DecodeError struct {
	Curve int // tuple index, -1 when the whole document is unreadable
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Curve < 0 {
		return fmt.Sprintf("decode scene: %v", e.Err)
	}
	return fmt.Sprintf("decode scene: curve %d: %v", e.Curve, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode renders curves as the JSON tuple array.
func Encode(curves []scene.Curve) (string, error) {
	tuples := make([][tupleLen]any, len(curves))
	for i, c := range curves {
		tuples[i] = [tupleLen]any{
			c.Start.X, c.Start.Y,
			c.Control1.X, c.Control1.Y,
			c.Control2.X, c.Control2.Y,
			c.End.X, c.End.Y,
			c.Color,
			linkIndex(c.StartLink),
			linkIndex(c.EndLink),
		}
	}
	data, err := json.Marshal(tuples)
	if err != nil {
		return "", fmt.Errorf("marshal scene: %w", err)
	}
	return string(data), nil
}

func linkIndex(l *scene.Connection) *int {
	if l == nil {
		return nil
	}
	i := l.Curve
	return &i
}

// EncodeParam returns the percent-encoded form used as the query value.
func EncodeParam(curves []scene.Curve) (string, error) {
	text, err := Encode(curves)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(text), nil
}

// ShareURL returns base with its "curves" parameter set to the scene.
// Other query parameters on base are kept.
func ShareURL(base string, curves []scene.Curve) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	text, err := Encode(curves)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(Param, text)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeParam undoes EncodeParam and decodes the result.
func DecodeParam(escaped string) ([]scene.Curve, error) {
	text, err := url.QueryUnescape(escaped)
	if err != nil {
		return nil, &DecodeError{Curve: -1, Err: err}
	}
	return Decode(text)
}

// FromQuery decodes the scene carried by q. ok is false when q has no
// "curves" parameter, in which case the caller keeps its default scene.
func FromQuery(q url.Values) (curves []scene.Curve, ok bool, err error) {
	if !q.Has(Param) {
		return nil, false, nil
	}
	curves, err = Decode(q.Get(Param))
	if err != nil {
		return nil, true, err
	}
	return curves, true, nil
}

// Decode parses the JSON tuple array. Connection indices are not checked
// against the scene length or for symmetry.
func Decode(text string) ([]scene.Curve, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Curve: -1, Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Curve: -1, Err: errors.New("scene must be an array")}
	}
	if dec.More() {
		return nil, &DecodeError{Curve: -1, Err: errors.New("trailing data after scene")}
	}

	curves := make([]scene.Curve, len(raw))
	refs := make([][2]*int, len(raw))
	for i, r := range raw {
		c, ref, err := decodeTuple(r)
		if err != nil {
			return nil, &DecodeError{Curve: i, Err: err}
		}
		curves[i] = c
		refs[i] = ref
	}

	resolveLinks(curves, refs)
	return curves, nil
}

func decodeTuple(r json.RawMessage) (scene.Curve, [2]*int, error) {
	var ref [2]*int

	dec := json.NewDecoder(bytes.NewReader(r))
	dec.UseNumber()
	var fields []any
	if err := dec.Decode(&fields); err != nil {
		return scene.Curve{}, ref, err
	}
	if len(fields) != tupleLen {
		return scene.Curve{}, ref, fmt.Errorf("want %d fields, got %d", tupleLen, len(fields))
	}

	var coords [8]int
	for i := range coords {
		v, err := number(fields[i])
		if err != nil {
			return scene.Curve{}, ref, fmt.Errorf("field %d: %w", i, err)
		}
		coords[i] = v
	}

	color, ok := fields[8].(string)
	if !ok {
		return scene.Curve{}, ref, fmt.Errorf("field 8: color must be a string, got %T", fields[8])
	}

	for k := range ref {
		f := fields[9+k]
		if f == nil {
			continue
		}
		v, err := number(f)
		if err != nil {
			return scene.Curve{}, ref, fmt.Errorf("field %d: %w", 9+k, err)
		}
		ref[k] = &v
	}

	c := scene.Curve{
		Start:    geom.Pt(coords[0], coords[1]),
		Control1: geom.Pt(coords[2], coords[3]),
		Control2: geom.Pt(coords[4], coords[5]),
		End:      geom.Pt(coords[6], coords[7]),
		Color:    color,
	}
	return c, ref, nil
}

func number(v any) (int, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("want a number, got %T", v)
	}
	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return 0, fmt.Errorf("number %s out of range", n)
		}
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("bad number %s", n)
	}
	return int(math.Trunc(f)), nil
}

// resolveLinks turns bare partner indices into tagged connections. The
// array form does not say which endpoint of the partner is linked, so it is
// recovered from the partner's own reference back to this curve, preferring
// an endpoint at the same position, then the opposite kind. A reference
// with no reciprocal stays one-sided and assumes the opposite endpoint.
func resolveLinks(curves []scene.Curve, refs [][2]*int) {
	claimed := make(map[scene.Connection]bool)

	for i := range curves {
		for k, e := range scene.Endpoints {
			ref := refs[i][k]
			if ref == nil {
				continue
			}
			j := *ref
			self := scene.Connection{Curve: i, Endpoint: e}

			// Already paired from the partner's side.
			if claimed[self] {
				continue
			}

			conn := scene.Connection{Curve: j, Endpoint: e.Opposite()}
			if f, ok := reciprocal(curves, refs, claimed, i, e, j); ok {
				conn.Endpoint = f
				claimed[self] = true
				claimed[conn] = true
				curves[j].SetLink(f, &scene.Connection{Curve: i, Endpoint: e})
			}
			curves[i].SetLink(e, &conn)
		}
	}
}

func reciprocal(curves []scene.Curve, refs [][2]*int, claimed map[scene.Connection]bool, i int, e scene.Handle, j int) (scene.Handle, bool) {
	if j < 0 || j >= len(curves) || j == i {
		return 0, false
	}
	var candidates []scene.Handle
	for k, f := range scene.Endpoints {
		if r := refs[j][k]; r != nil && *r == i && !claimed[scene.Connection{Curve: j, Endpoint: f}] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	p := curves[i].Point(e)
	for _, f := range candidates {
		if curves[j].Point(f) == p {
			return f, true
		}
	}
	for _, f := range candidates {
		if f == e.Opposite() {
			return f, true
		}
	}
	return candidates[0], true
}
