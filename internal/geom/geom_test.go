package geom

import (
	"math"
	"testing"
)

func TestNewAABBNormalizesCorners(t *testing.T) {
	b := NewAABB(10, 20, -5, 4)
	if b.MinX != -5 || b.MinY != 4 || b.MaxX != 10 || b.MaxY != 20 {
		t.Fatalf("unexpected box %+v", b)
	}
}

func TestAABBContainsAndIntersects(t *testing.T) {
	b := AABB{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	cases := []struct {
		name string
		x, y float64
		want bool
	}{
		{"inside", 5, 5, true},
		{"on edge", 10, 0, true},
		{"outside", 10.01, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Contains(tc.x, tc.y); got != tc.want {
				t.Fatalf("Contains(%v,%v)=%v want %v", tc.x, tc.y, got, tc.want)
			}
		})
	}
	if !b.Intersects(AABB{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}) {
		t.Fatalf("boxes touching at a corner should intersect")
	}
	if b.Intersects(AABB{MinX: 11, MinY: 0, MaxX: 20, MaxY: 10}) {
		t.Fatalf("disjoint boxes should not intersect")
	}
	if !b.ContainsAABB(AABB{MinX: 1, MinY: 1, MaxX: 9, MaxY: 9}) {
		t.Fatalf("inner box should be contained")
	}
	if b.ContainsAABB(AABB{MinX: 1, MinY: 1, MaxX: 11, MaxY: 9}) {
		t.Fatalf("overhanging box should not be contained")
	}
}

func TestRotatedExtents(t *testing.T) {
	ex, ey := RotatedExtents(4, 2, 0)
	if math.Abs(ex-4) > 1e-9 || math.Abs(ey-2) > 1e-9 {
		t.Fatalf("no rotation should keep extents, got %v %v", ex, ey)
	}
	ex, ey = RotatedExtents(4, 2, math.Pi/2)
	if math.Abs(ex-2) > 1e-9 || math.Abs(ey-4) > 1e-9 {
		t.Fatalf("quarter turn should swap extents, got %v %v", ex, ey)
	}
}

func TestWorldToLocalUndoesRotation(t *testing.T) {
	// Point one unit along the rotated x axis of a frame at (5,5) turned 90 deg.
	lx, ly := WorldToLocal(5, 6, 5, 5, math.Pi/2)
	if math.Abs(lx-6) > 1e-9 || math.Abs(ly-5) > 1e-9 {
		t.Fatalf("got local (%v,%v), want (6,5)", lx, ly)
	}
	// Round trip back to world space.
	wx, wy := LocalToWorld(lx, ly, 5, 5, math.Pi/2)
	if math.Abs(wx-5) > 1e-9 || math.Abs(wy-6) > 1e-9 {
		t.Fatalf("round trip gave (%v,%v), want (5,6)", wx, wy)
	}
	// Near-zero rotation is an identity.
	lx, ly = WorldToLocal(3, 4, 5, 5, 0)
	if lx != 3 || ly != 4 {
		t.Fatalf("zero rotation should be identity, got (%v,%v)", lx, ly)
	}
}

func TestDistToSegmentSq(t *testing.T) {
	cases := []struct {
		name           string
		px, py         float64
		ax, ay, bx, by float64
		want           float64
	}{
		{"perpendicular", 5, 3, 0, 0, 10, 0, 9},
		{"clamp to start", -4, 3, 0, 0, 10, 0, 25},
		{"clamp to end", 13, 4, 0, 0, 10, 0, 25},
		{"degenerate segment", 3, 4, 0, 0, 0, 0, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistToSegmentSq(tc.px, tc.py, tc.ax, tc.ay, tc.bx, tc.by)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
