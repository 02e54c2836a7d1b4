package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/TriangleYJ/spline/internal/geom"
)

var ErrBadCommand = errors.New("malformed draw command")

// Surface is a drawing target. An empty color means "do not paint".
type Surface interface {
	Clear()
	Circle(center geom.Point, radius float64, fill, stroke string, width float64)
	Polyline(points []geom.Point, stroke string, width float64)
	Bezier(p0, p1, p2, p3 geom.Point, stroke string, width float64)
}

// Execute replays commands on s. Transparent paints are skipped entirely.
func Execute(commands []DrawCommand, s Surface) error {
	for i, cmd := range commands {
		switch cmd.Op {
		case OpClear:
			s.Clear()

		case OpCircle:
			if len(cmd.Points) != 1 {
				return fmt.Errorf("command %d: %w: circle needs 1 point, got %d", i, ErrBadCommand, len(cmd.Points))
			}
			fill, stroke := visible(cmd.Fill), visible(cmd.Stroke)
			if fill == "" && stroke == "" {
				continue
			}
			s.Circle(cmd.Points[0], cmd.Radius, fill, stroke, cmd.StrokeWidth)

		case OpPolyline:
			if len(cmd.Points) < 2 {
				return fmt.Errorf("command %d: %w: polyline needs 2 or more points", i, ErrBadCommand)
			}
			if stroke := visible(cmd.Stroke); stroke != "" {
				s.Polyline(cmd.Points, stroke, cmd.StrokeWidth)
			}

		case OpBezier:
			if len(cmd.Points) != 4 {
				return fmt.Errorf("command %d: %w: bezier needs 4 points, got %d", i, ErrBadCommand, len(cmd.Points))
			}
			if stroke := visible(cmd.Stroke); stroke != "" {
				p := cmd.Points
				s.Bezier(p[0], p[1], p[2], p[3], stroke, cmd.StrokeWidth)
			}

		default:
			return fmt.Errorf("command %d: %w: unknown op %q", i, ErrBadCommand, cmd.Op)
		}
	}
	return nil
}

func visible(paint string) string {
	if paint == Transparent {
		return ""
	}
	return paint
}

var named = map[string]color.RGBA{
	LightGreen: {0x90, 0xEE, 0x90, 0xFF},
	LightGray:  {0xD3, 0xD3, 0xD3, 0xFF},
	DarkGray:   {0xA9, 0xA9, 0xA9, 0xFF},
	Black:      {0x00, 0x00, 0x00, 0xFF},
	"white":    {0xFF, 0xFF, 0xFF, 0xFF},
}

// ParseColor resolves a paint to RGB. It accepts the named paints above and
// #RGB or #RRGGBB hex. Anything else yields black and false, so a decoded
// scene with a junk color still draws.
func ParseColor(paint string) (color.RGBA, bool) {
	if c, ok := named[strings.ToLower(paint)]; ok {
		return c, true
	}
	hex, ok := strings.CutPrefix(paint, "#")
	if !ok {
		return named[Black], false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return named[Black], false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return named[Black], false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, true
}
