package drawing

import "math"

// Hit-test radii, in canvas units. Selection and erasing both use 10;
// the eraser stroke is 20 units wide so its half-width matches.
const (
	hitRadius    = 10.0
	eraserRadius = 10.0
	textCellW    = 10.0
	textCellH    = 16.0
)

// DistanceToSegment returns the distance from p to the closest point
// on segment [a,b], clamping the projection to the segment ends.
func DistanceToSegment(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y

	lenSq := dx*dx + dy*dy
	t := -1.0
	if lenSq != 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	}

	var cx, cy float64
	switch {
	case t < 0:
		cx, cy = a.X, a.Y
	case t > 1:
		cx, cy = b.X, b.Y
	default:
		cx, cy = a.X+t*dx, a.Y+t*dy
	}

	return math.Hypot(p.X-cx, p.Y-cy)
}

// PointInElement reports whether p hits el, using the per-type rules
// selection relies on: strokes hit within 10 units of a segment,
// rectangles by their axis-aligned bounds, circles by center+radius,
// text by an approximate bounding box above its anchor.
func PointInElement(p Point, el Element) bool {
	switch el.Type {
	case TypePen:
		for i := 0; i+1 < len(el.Points); i++ {
			if DistanceToSegment(p, el.Points[i], el.Points[i+1]) < hitRadius {
				return true
			}
		}
		return false

	case TypeRectangle:
		if len(el.Points) < 2 {
			return false
		}
		minX, maxX := minMax(el.Points[0].X, el.Points[1].X)
		minY, maxY := minMax(el.Points[0].Y, el.Points[1].Y)
		return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY

	case TypeCircle:
		if len(el.Points) < 2 {
			return false
		}
		center, edge := el.Points[0], el.Points[1]
		radius := math.Hypot(edge.X-center.X, edge.Y-center.Y)
		return math.Hypot(p.X-center.X, p.Y-center.Y) <= radius

	case TypeArrow:
		if len(el.Points) < 2 {
			return false
		}
		return DistanceToSegment(p, el.Points[0], el.Points[1]) < hitRadius

	case TypeText:
		if len(el.Points) == 0 {
			return false
		}
		anchor := el.Points[0]
		w := float64(len(el.Text)) * textCellW
		return p.X >= anchor.X && p.X <= anchor.X+w &&
			p.Y >= anchor.Y-textCellH && p.Y <= anchor.Y
	}
	return false
}

// ElementAtPoint returns the first element hit by p, or nil.
func ElementAtPoint(elements []Element, p Point) *Element {
	for i := range elements {
		if PointInElement(p, elements[i]) {
			return &elements[i]
		}
	}
	return nil
}

// EraserIntersects reports whether any sampled point along the
// eraser's traversed path comes within the eraser radius of el. The
// whole path is tested so that fast drags still catch elements the
// cursor skipped over between move events.
func EraserIntersects(path []Point, el Element) bool {
	for _, ep := range path {
		if eraserHits(ep, el) {
			return true
		}
	}
	return false
}

func eraserHits(p Point, el Element) bool {
	switch el.Type {
	case TypePen:
		for i := 0; i+1 < len(el.Points); i++ {
			if DistanceToSegment(p, el.Points[i], el.Points[i+1]) < eraserRadius {
				return true
			}
		}

	case TypeRectangle:
		if len(el.Points) < 2 {
			return false
		}
		minX, maxX := minMax(el.Points[0].X, el.Points[1].X)
		minY, maxY := minMax(el.Points[0].Y, el.Points[1].Y)
		return p.X >= minX-eraserRadius && p.X <= maxX+eraserRadius &&
			p.Y >= minY-eraserRadius && p.Y <= maxY+eraserRadius

	case TypeCircle:
		if len(el.Points) < 2 {
			return false
		}
		center, edge := el.Points[0], el.Points[1]
		radius := math.Hypot(edge.X-center.X, edge.Y-center.Y)
		return math.Hypot(p.X-center.X, p.Y-center.Y) <= radius+eraserRadius

	case TypeArrow:
		if len(el.Points) < 2 {
			return false
		}
		return DistanceToSegment(p, el.Points[0], el.Points[1]) < eraserRadius

	case TypeText:
		if len(el.Points) == 0 {
			return false
		}
		anchor := el.Points[0]
		w := float64(len(el.Text)) * textCellW
		return p.X >= anchor.X-eraserRadius && p.X <= anchor.X+w+eraserRadius &&
			p.Y >= anchor.Y-textCellH-eraserRadius && p.Y <= anchor.Y+eraserRadius
	}
	return false
}

func minMax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
