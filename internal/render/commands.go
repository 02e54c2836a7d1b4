// Package render turns a scene into draw commands and replays them on a
// drawing surface.
package render

import (
	"encoding/json"

	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/scene"
)

// Draw ops.
const (
	OpClear    = "clear"
	OpCircle   = "circle"
	OpPolyline = "polyline"
	OpBezier   = "bezier"
)

// Paint colors used for markers and guides. Curve strokes use the curve's
// own #RRGGBB color.
const (
	Transparent = "transparent"
	LightGreen  = "lightgreen"
	LightGray   = "lightgray"
	DarkGray    = "darkgray"
	Black       = "black"
)

const (
	MarkerRadius = geom.HitRadius
	GuideWidth   = 1.0
	CurveWidth   = 2.0
)

// DrawCommand is a single drawing operation. Canvas front ends receive a
// list of these and execute them on a 2D context in order.
type DrawCommand struct {
	Op          string       `json:"op"`               // "clear", "circle", "polyline", "bezier"
	Curve       int          `json:"curve"`            // owning curve index, -1 for clear
	Handle      string       `json:"handle,omitempty"` // marker handle name for circle ops
	Points      []geom.Point `json:"points,omitempty"`
	Radius      float64      `json:"radius,omitempty"`
	Fill        string       `json:"fill,omitempty"`
	Stroke      string       `json:"stroke,omitempty"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
}

// Options are the display toggles. They only change paint, never geometry.
type Options struct {
	HideStrokes    bool `json:"hideStrokes"`
	ForceBlackLine bool `json:"forceBlackLine"`
}

// Compile generates the draw command list for curves in painter's order:
// a clear, then for each curve its four point markers, the control polygon
// and finally the curve itself.
func Compile(curves []scene.Curve, opts Options) []DrawCommand {
	commands := make([]DrawCommand, 0, 1+len(curves)*6)
	commands = append(commands, DrawCommand{Op: OpClear, Curve: -1})

	for i := range curves {
		c := &curves[i]

		for _, h := range scene.Handles {
			fill, stroke := LightGray, DarkGray
			if c.Connected(h) {
				fill = LightGreen
			}
			if opts.HideStrokes {
				fill, stroke = Transparent, Transparent
			}
			commands = append(commands, DrawCommand{
				Op:          OpCircle,
				Curve:       i,
				Handle:      h.String(),
				Points:      []geom.Point{c.Point(h)},
				Radius:      MarkerRadius,
				Fill:        fill,
				Stroke:      stroke,
				StrokeWidth: GuideWidth,
			})
		}

		guide := LightGray
		if opts.HideStrokes {
			guide = Transparent
		}
		commands = append(commands, DrawCommand{
			Op:          OpPolyline,
			Curve:       i,
			Points:      controlPolygon(c),
			Stroke:      guide,
			StrokeWidth: GuideWidth,
		})

		line := c.Color
		if opts.ForceBlackLine {
			line = Black
		}
		commands = append(commands, DrawCommand{
			Op:          OpBezier,
			Curve:       i,
			Points:      controlPolygon(c),
			Stroke:      line,
			StrokeWidth: CurveWidth,
		})
	}
	return commands
}

func controlPolygon(c *scene.Curve) []geom.Point {
	return []geom.Point{c.Start, c.Control1, c.Control2, c.End}
}

// ToJSON serializes draw commands to JSON.
func ToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
