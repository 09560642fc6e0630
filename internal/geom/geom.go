// Package geom provides the small 2-D numeric primitives shared by the
// entity store, the pick index and the snapshot codec.
package geom

import "math"

// Point is a position or vector in document (world) space.
type Point struct {
	X, Y float64
}

// AABB is an axis-aligned bounding box. A zero AABB is valid and empty.
type AABB struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewAABB returns the box spanning the two corner points in any order.
func NewAABB(x0, y0, x1, y1 float64) AABB {
	return AABB{
		MinX: math.Min(x0, x1),
		MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1),
		MaxY: math.Max(y0, y1),
	}
}

// Contains reports whether the point lies inside or on the boundary.
func (b AABB) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Intersects reports whether the two boxes overlap, boundaries included.
func (b AABB) Intersects(o AABB) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// ContainsAABB reports whether o lies entirely within b.
func (b AABB) ContainsAABB(o AABB) bool {
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX && o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Expand grows the box by pad on every side.
func (b AABB) Expand(pad float64) AABB {
	return AABB{MinX: b.MinX - pad, MinY: b.MinY - pad, MaxX: b.MaxX + pad, MaxY: b.MaxY + pad}
}

// Union returns the smallest box covering both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Width returns the horizontal extent.
func (b AABB) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b AABB) Height() float64 { return b.MaxY - b.MinY }

// RotatedExtents returns the half extents of an rx-by-ry ellipse (or the
// circumscribed bound of a box with those half sizes) rotated by rot radians.
func RotatedExtents(rx, ry, rot float64) (ex, ey float64) {
	sin, cos := math.Sincos(rot)
	ex = math.Sqrt(rx*cos*rx*cos + ry*sin*ry*sin)
	ey = math.Sqrt(rx*sin*rx*sin + ry*cos*ry*cos)
	return ex, ey
}

// WorldToLocal maps a world point into the unrotated frame of an entity
// centered at (cx, cy), undoing a rotation of rot radians. The result stays
// in world coordinates so callers can compare it against unrotated bounds.
func WorldToLocal(px, py, cx, cy, rot float64) (lx, ly float64) {
	if math.Abs(rot) < 1e-6 {
		return px, py
	}
	dx := px - cx
	dy := py - cy
	sin, cos := math.Sincos(-rot)
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

// LocalToWorld is the inverse of WorldToLocal, applying the rotation.
func LocalToWorld(lx, ly, cx, cy, rot float64) (wx, wy float64) {
	if math.Abs(rot) < 1e-6 {
		return lx, ly
	}
	dx := lx - cx
	dy := ly - cy
	sin, cos := math.Sincos(rot)
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

// DistToSegmentSq returns the squared distance from point p to the segment
// a-b, clamping to the nearest endpoint when the projection falls outside.
func DistToSegmentSq(px, py, ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		ex := px - ax
		ey := py - ay
		return ex*ex + ey*ey
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	qx := ax + t*dx
	qy := ay + t*dy
	ex := px - qx
	ey := py - qy
	return ex*ex + ey*ey
}
