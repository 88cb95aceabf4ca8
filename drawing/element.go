package drawing

import "fmt"

// ElementType identifies what an element's points mean.
type ElementType string

const (
	TypePen       ElementType = "pen"
	TypeRectangle ElementType = "rectangle"
	TypeCircle    ElementType = "circle"
	TypeArrow     ElementType = "arrow"
	TypeText      ElementType = "text"
)

// Point is a canvas-space coordinate, already inverse-transformed
// from screen space by the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style holds the stroke settings an element was drawn with.
type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Fill        string  `json:"fill,omitempty"`
}

// Element is a single drawn item. Elements are treated as immutable
// after creation; an update replaces fields wholesale rather than
// editing points in place.
//
// Point semantics by type: pen carries the full stroke polyline,
// rectangle/circle/arrow carry exactly [start, end], text carries a
// single anchor point.
type Element struct {
	ID        string      `json:"id"`
	Type      ElementType `json:"type"`
	Points    []Point     `json:"points"`
	Style     Style       `json:"style"`
	Text      string      `json:"text,omitempty"`
	UserID    string      `json:"userId"`
	Timestamp int64       `json:"timestamp"`
}

// NewElementID builds the conventional element id from its author and
// creation time in millis. Uniqueness relies on timestamps being
// distinct per author; there is no server-side collision check.
func NewElementID(userID string, millis int64) string {
	return fmt.Sprintf("%s-%d", userID, millis)
}

// User is a connected participant. Color is assigned by the relay at
// join time and stays stable for the session.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Cursor *Point `json:"cursor,omitempty"`
}

// Viewport is the client-local pan/zoom. It is never part of the
// shared document and never goes over the wire.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}
