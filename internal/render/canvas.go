package render

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"

	"github.com/TriangleYJ/spline/internal/geom"
)

// Canvas is a raster Surface backed by a gg context.
type Canvas struct {
	dc *gg.Context
}

// NewCanvas returns a white width x height raster surface.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{dc: gg.NewContext(width, height)}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	bg, _ := ParseColor("white")
	c.dc.SetColor(bg)
	c.dc.Clear()
}

func (c *Canvas) Circle(center geom.Point, radius float64, fill, stroke string, width float64) {
	c.dc.NewSubPath()
	c.dc.DrawCircle(float64(center.X), float64(center.Y), radius)
	if fill != "" {
		c.setColor(fill)
		c.dc.FillPreserve()
	}
	if stroke != "" {
		c.setColor(stroke)
		c.dc.SetLineWidth(width)
		c.dc.StrokePreserve()
	}
	c.dc.ClearPath()
}

func (c *Canvas) Polyline(points []geom.Point, stroke string, width float64) {
	c.dc.MoveTo(float64(points[0].X), float64(points[0].Y))
	for _, p := range points[1:] {
		c.dc.LineTo(float64(p.X), float64(p.Y))
	}
	c.setColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *Canvas) Bezier(p0, p1, p2, p3 geom.Point, stroke string, width float64) {
	c.dc.MoveTo(float64(p0.X), float64(p0.Y))
	c.dc.CubicTo(
		float64(p1.X), float64(p1.Y),
		float64(p2.X), float64(p2.Y),
		float64(p3.X), float64(p3.Y),
	)
	c.setColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.Stroke()
}

func (c *Canvas) setColor(paint string) {
	rgba, _ := ParseColor(paint)
	c.dc.SetColor(rgba)
}

// Image returns the rendered raster.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the raster as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := c.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
