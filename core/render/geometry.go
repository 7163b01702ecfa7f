// Package render projects chart entities into screen-space primitives.
// It produces points, segments and rectangles for the drawing collaborator
// and answers the inverse question of where a mouse position lands on the
// chart. Nothing here draws pixels.
package render

// Point is a screen-space coordinate in pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned screen rectangle.
type Rect struct {
	Min, Max Point
}

func RectAt(x, y, w, h float64) Rect {
	return Rect{Min: Point{X: x, Y: y}, Max: Point{X: x + w, Y: y + h}}
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Contains tests point-in-rect with inclusive edges. Hit cells sit edge to
// edge, so a point exactly on a shared boundary belongs to the first cell
// in scan order.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}
