package grid

import "github.com/chewxy/math32"

// Bounds is an axis-aligned pixel box in sheet (world) coordinates.
// The zero value is an empty box.
type Bounds struct {
	X, Y          float32
	Width, Height float32
}

// EmptyBounds returns a box that acts as the identity for Union.
func EmptyBounds() Bounds {
	return Bounds{
		X:      math32.Inf(1),
		Y:      math32.Inf(1),
		Width:  math32.Inf(-1),
		Height: math32.Inf(-1),
	}
}

// BoundsFromEdges builds a box from its edges.
func BoundsFromEdges(left, top, right, bottom float32) Bounds {
	return Bounds{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Left returns the left edge.
func (b Bounds) Left() float32 { return b.X }

// Top returns the top edge.
func (b Bounds) Top() float32 { return b.Y }

// Right returns the right edge.
func (b Bounds) Right() float32 { return b.X + b.Width }

// Bottom returns the bottom edge.
func (b Bounds) Bottom() float32 { return b.Y + b.Height }

// IsEmpty reports whether b covers no area.
func (b Bounds) IsEmpty() bool {
	return !(b.Width > 0 && b.Height > 0)
}

// Center returns the center point of b.
func (b Bounds) Center() (x, y float32) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Intersects reports whether b and o overlap. Touching edges do not count.
func (b Bounds) Intersects(o Bounds) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Left() < o.Right() && o.Left() < b.Right() &&
		b.Top() < o.Bottom() && o.Top() < b.Bottom()
}

// Contains reports whether o lies entirely inside b.
func (b Bounds) Contains(o Bounds) bool {
	return o.Left() >= b.Left() && o.Right() <= b.Right() &&
		o.Top() >= b.Top() && o.Bottom() <= b.Bottom()
}

// Union returns the smallest box containing both b and o.
// Empty boxes are ignored.
func (b Bounds) Union(o Bounds) Bounds {
	if o.Width < 0 || o.Height < 0 {
		return b
	}
	if b.Width < 0 || b.Height < 0 {
		return o
	}
	left := math32.Min(b.Left(), o.Left())
	top := math32.Min(b.Top(), o.Top())
	right := math32.Max(b.Right(), o.Right())
	bottom := math32.Max(b.Bottom(), o.Bottom())
	return BoundsFromEdges(left, top, right, bottom)
}

// Expand grows b by dx on the left and right and by dy on the top and
// bottom.
func (b Bounds) Expand(dx, dy float32) Bounds {
	return Bounds{X: b.X - dx, Y: b.Y - dy, Width: b.Width + 2*dx, Height: b.Height + 2*dy}
}

// Translate returns b moved by (dx, dy).
func (b Bounds) Translate(dx, dy float32) Bounds {
	b.X += dx
	b.Y += dy
	return b
}

// DistanceSquared returns the squared distance between the centers of b
// and o.
func (b Bounds) DistanceSquared(o Bounds) float32 {
	bx, by := b.Center()
	ox, oy := o.Center()
	dx, dy := bx-ox, by-oy
	return dx*dx + dy*dy
}
