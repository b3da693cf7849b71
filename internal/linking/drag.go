package linking

import (
	"math"

	"github.com/starford/anchorage/internal/extent"
)

// Point is a pointer position in image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragSession tracks one rectangle drag over an image node, from pointer
// down to pointer up. It is passed by value through move and end.
type DragSession struct {
	NodeID  string
	Origin  Point
	Current Point
}

// BeginDrag starts a drag at p.
func BeginDrag(nodeID string, p Point) DragSession {
	return DragSession{NodeID: nodeID, Origin: p, Current: p}
}

// Move returns the session with the pointer at p.
func (d DragSession) Move(p Point) DragSession {
	d.Current = p
	return d
}

// Rect is the rectangle spanned so far, clamped to the image origin.
func (d DragSession) Rect() extent.Image {
	left := math.Max(0, math.Min(d.Origin.X, d.Current.X))
	top := math.Max(0, math.Min(d.Origin.Y, d.Current.Y))
	right := math.Max(d.Origin.X, d.Current.X)
	bottom := math.Max(d.Origin.Y, d.Current.Y)
	return extent.Image{Top: top, Left: left, Width: math.Max(0, right-left), Height: math.Max(0, bottom-top)}
}

// End finishes the drag at p. A drag without area selects nothing and yields
// the whole node.
func (d DragSession) End(p Point) extent.Extent {
	r := d.Move(p).Rect()
	if r.Width == 0 || r.Height == 0 {
		return extent.None{}
	}
	return r
}
