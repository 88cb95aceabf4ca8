// Package export rasterizes an element list to a PNG image. It is a
// pure function of the elements: no document or network state.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"sketchboard/drawing"
)

const (
	arrowHeadLength = 20.0
	arrowHeadAngle  = math.Pi / 6
)

// PNG renders elements onto a width x height canvas and writes the
// encoded image to w. The dark flag selects the background to match
// the on-screen theme.
func PNG(w io.Writer, elements []drawing.Element, width, height int, dark bool) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("export: invalid size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	if dark {
		dc.SetRGB(0.06, 0.06, 0.08)
	} else {
		dc.SetRGB(1, 1, 1)
	}
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for _, el := range elements {
		drawElement(dc, el)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func drawElement(dc *gg.Context, el drawing.Element) {
	setStroke(dc, el.Style)

	switch el.Type {
	case drawing.TypePen:
		if len(el.Points) < 2 {
			return
		}
		dc.MoveTo(el.Points[0].X, el.Points[0].Y)
		for _, p := range el.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()

	case drawing.TypeRectangle:
		if len(el.Points) < 2 {
			return
		}
		start, end := el.Points[0], el.Points[1]
		dc.DrawRectangle(start.X, start.Y, end.X-start.X, end.Y-start.Y)
		strokeAndFill(dc, el.Style)

	case drawing.TypeCircle:
		if len(el.Points) < 2 {
			return
		}
		center, edge := el.Points[0], el.Points[1]
		radius := math.Hypot(edge.X-center.X, edge.Y-center.Y)
		dc.DrawCircle(center.X, center.Y, radius)
		strokeAndFill(dc, el.Style)

	case drawing.TypeArrow:
		if len(el.Points) < 2 {
			return
		}
		start, end := el.Points[0], el.Points[1]
		dc.DrawLine(start.X, start.Y, end.X, end.Y)
		dc.Stroke()

		angle := math.Atan2(end.Y-start.Y, end.X-start.X)
		dc.DrawLine(end.X, end.Y,
			end.X-arrowHeadLength*math.Cos(angle-arrowHeadAngle),
			end.Y-arrowHeadLength*math.Sin(angle-arrowHeadAngle))
		dc.Stroke()
		dc.DrawLine(end.X, end.Y,
			end.X-arrowHeadLength*math.Cos(angle+arrowHeadAngle),
			end.Y-arrowHeadLength*math.Sin(angle+arrowHeadAngle))
		dc.Stroke()

	case drawing.TypeText:
		if el.Text == "" || len(el.Points) == 0 {
			return
		}
		dc.DrawString(el.Text, el.Points[0].X, el.Points[0].Y)
	}
}

func setStroke(dc *gg.Context, style drawing.Style) {
	// Non-hex color strings parse to black.
	if style.Stroke != "" {
		dc.SetHexColor(style.Stroke)
	} else {
		dc.SetRGB(0, 0, 0)
	}
	width := style.StrokeWidth
	if width <= 0 {
		width = 2
	}
	dc.SetLineWidth(width)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
}

func strokeAndFill(dc *gg.Context, style drawing.Style) {
	if style.Fill != "" {
		dc.StrokePreserve()
		dc.SetHexColor(style.Fill)
		dc.Fill()
		return
	}
	dc.Stroke()
}
