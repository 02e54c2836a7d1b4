package render

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/TriangleYJ/spline/internal/geom"
)

// PDF is a vector Surface producing a single page sized to the drawing
// area, one PDF point per surface pixel.
type PDF struct {
	doc           *gofpdf.Fpdf
	width, height float64
}

// NewPDF returns a PDF surface of width x height points.
func NewPDF(width, height int) *PDF {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(width), Ht: float64(height)},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	return &PDF{doc: doc, width: float64(width), height: float64(height)}
}

func (p *PDF) Clear() {
	p.setFill("white")
	p.doc.Rect(0, 0, p.width, p.height, "F")
}

func (p *PDF) Circle(center geom.Point, radius float64, fill, stroke string, width float64) {
	style := ""
	if fill != "" {
		p.setFill(fill)
		style += "F"
	}
	if stroke != "" {
		p.setDraw(stroke)
		p.doc.SetLineWidth(width)
		style += "D"
	}
	p.doc.Circle(float64(center.X), float64(center.Y), radius, style)
}

func (p *PDF) Polyline(points []geom.Point, stroke string, width float64) {
	p.setDraw(stroke)
	p.doc.SetLineWidth(width)
	p.doc.MoveTo(float64(points[0].X), float64(points[0].Y))
	for _, pt := range points[1:] {
		p.doc.LineTo(float64(pt.X), float64(pt.Y))
	}
	p.doc.DrawPath("D")
}

func (p *PDF) Bezier(p0, p1, p2, p3 geom.Point, stroke string, width float64) {
	p.setDraw(stroke)
	p.doc.SetLineWidth(width)
	p.doc.CurveBezierCubic(
		float64(p0.X), float64(p0.Y),
		float64(p1.X), float64(p1.Y),
		float64(p2.X), float64(p2.Y),
		float64(p3.X), float64(p3.Y),
		"D",
	)
}

func (p *PDF) setDraw(paint string) {
	c, _ := ParseColor(paint)
	p.doc.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func (p *PDF) setFill(paint string) {
	c, _ := ParseColor(paint)
	p.doc.SetFillColor(int(c.R), int(c.G), int(c.B))
}

// Output writes the finished document to w.
func (p *PDF) Output(w io.Writer) error {
	if err := p.doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
