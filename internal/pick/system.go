package pick

import (
	"math"
	"sort"

	"drawcore/internal/entity"
	"drawcore/internal/geom"
)

// SubTarget names the part of an entity a pick resolved to.
type SubTarget uint8

const (
	SubNone SubTarget = iota
	SubBody
	SubEdge
	SubVertex
	SubResizeHandle
	SubRotateHandle
	SubTextBody
	SubTextCaret
)

// EntityKind mirrors entity.Kind in the pick result wire layout.
type EntityKind uint16

const (
	KindUnknown EntityKind = iota
	KindRect
	KindCircle
	KindLine
	KindPolyline
	KindPolygon
	KindArrow
	KindText
)

// Mask bits select which sub-targets a pick considers.
const (
	MaskBody      uint32 = 1 << 0
	MaskEdge      uint32 = 1 << 1
	MaskVertex    uint32 = 1 << 2
	MaskHandles   uint32 = 1 << 3
	MaskTextCaret uint32 = 1 << 4
)

// Rotate handle placement in screen pixels; converted to world units by the
// caller's view scale.
const (
	rotateHandleOffsetPx = 15.0
	rotateHandleRadiusPx = 10.0
)

// Result is the outcome of a point pick. A zero ID means nothing was hit.
type Result struct {
	ID        entity.ID
	Kind      EntityKind
	SubTarget SubTarget
	SubIndex  int
	Distance  float64
	HitX      float64
	HitY      float64
}

// Stats counts the work done by the most recent query.
type Stats struct {
	CellsQueried      uint32
	CandidatesChecked uint32
}

type candidate struct {
	id        entity.ID
	kind      EntityKind
	subTarget SubTarget
	subIndex  int
	zIndex    uint32
	distance  float64
}

func subTargetPriority(t SubTarget) int {
	switch t {
	case SubResizeHandle:
		return 10
	case SubRotateHandle:
		return 9
	case SubVertex, SubTextCaret:
		return 8
	case SubEdge:
		return 5
	case SubBody, SubTextBody:
		return 1
	default:
		return 0
	}
}

// less orders candidates best-first: higher sub-target priority, then higher
// z (later in draw order), then smaller distance.
func (c candidate) less(o candidate) bool {
	p1 := subTargetPriority(c.subTarget)
	p2 := subTargetPriority(o.subTarget)
	if p1 != p2 {
		return p1 > p2
	}
	if c.zIndex != o.zIndex {
		return c.zIndex > o.zIndex
	}
	return c.distance < o.distance
}

// System pairs the spatial grid with the draw-order ranks needed to break
// ties between overlapping entities.
type System struct {
	index     *Grid
	zIndex    map[entity.ID]uint32
	lastStats Stats
}

// NewSystem returns a pick system with the default cell size.
func NewSystem() *System {
	return &System{
		index:  NewGrid(DefaultCellSize),
		zIndex: make(map[entity.ID]uint32),
	}
}

// Clear drops all indexed entities and ranks.
func (s *System) Clear() {
	s.index.Clear()
	s.zIndex = make(map[entity.ID]uint32)
	s.lastStats = Stats{}
}

// Update replaces the indexed bounds for id.
func (s *System) Update(id entity.ID, bounds geom.AABB) {
	s.index.Remove(id)
	s.index.Insert(id, bounds)
}

// Remove drops id from the index. The z rank is kept until the next
// SetDrawOrder; stale ranks for absent ids are harmless.
func (s *System) Remove(id entity.ID) {
	s.index.Remove(id)
	delete(s.zIndex, id)
}

// SetDrawOrder rebuilds the z ranks from a draw order, back to front.
func (s *System) SetDrawOrder(order []entity.ID) {
	s.zIndex = make(map[entity.ID]uint32, len(order))
	for i, id := range order {
		s.zIndex[id] = uint32(i)
	}
}

// SetZ assigns a single rank, for incremental maintenance.
func (s *System) SetZ(id entity.ID, z uint32) {
	s.zIndex[id] = z
}

// Len returns the number of indexed entities.
func (s *System) Len() int { return s.index.Len() }

// LastStats reports the work done by the most recent Pick or QueryArea.
func (s *System) LastStats() Stats { return s.lastStats }

// Sync recomputes the bounds for id from the stores and updates the index,
// removing the id when it no longer exists.
func (s *System) Sync(store *entity.Store, texts *entity.TextStore, id entity.ID) {
	if bounds, ok := EntityAABB(store, texts, id); ok {
		s.Update(id, bounds)
		return
	}
	s.Remove(id)
}

// EntityAABB computes the conservative world bounds for an entity. Rotation
// is folded into the bounds so the grid never misses a rotated shape.
func EntityAABB(store *entity.Store, texts *entity.TextStore, id entity.ID) (geom.AABB, bool) {
	switch store.KindOf(id) {
	case entity.KindRect:
		r := store.GetRect(id)
		cx := float64(r.X) + float64(r.W)*0.5
		cy := float64(r.Y) + float64(r.H)*0.5
		// Circumradius covers any rotation.
		radius := math.Sqrt(float64(r.W)*float64(r.W)+float64(r.H)*float64(r.H)) * 0.5
		return geom.AABB{MinX: cx - radius, MinY: cy - radius, MaxX: cx + radius, MaxY: cy + radius}, true
	case entity.KindLine:
		l := store.GetLine(id)
		return geom.NewAABB(float64(l.X0), float64(l.Y0), float64(l.X1), float64(l.Y1)), true
	case entity.KindPolyline:
		pl := store.GetPolyline(id)
		pts := store.PolylinePoints(pl)
		if len(pts) == 0 {
			return geom.AABB{}, true
		}
		b := geom.AABB{
			MinX: float64(pts[0].X), MinY: float64(pts[0].Y),
			MaxX: float64(pts[0].X), MaxY: float64(pts[0].Y),
		}
		for _, p := range pts[1:] {
			b.MinX = math.Min(b.MinX, float64(p.X))
			b.MinY = math.Min(b.MinY, float64(p.Y))
			b.MaxX = math.Max(b.MaxX, float64(p.X))
			b.MaxY = math.Max(b.MaxY, float64(p.Y))
		}
		return b, true
	case entity.KindCircle:
		c := store.GetCircle(id)
		return ellipseAABB(float64(c.CX), float64(c.CY), float64(c.RX), float64(c.RY),
			float64(c.SX), float64(c.SY), float64(c.Rot)), true
	case entity.KindPolygon:
		p := store.GetPolygon(id)
		return ellipseAABB(float64(p.CX), float64(p.CY), float64(p.RX), float64(p.RY),
			float64(p.SX), float64(p.SY), float64(p.Rot)), true
	case entity.KindArrow:
		a := store.GetArrow(id)
		head := float64(a.Head)
		b := geom.NewAABB(float64(a.AX), float64(a.AY), float64(a.BX), float64(a.BY))
		return b.Expand(head), true
	case entity.KindText:
		t := texts.Get(id)
		if t == nil {
			return geom.AABB{}, false
		}
		return geom.AABB{
			MinX: float64(t.MinX), MinY: float64(t.MinY),
			MaxX: float64(t.MaxX), MaxY: float64(t.MaxY),
		}, true
	default:
		return geom.AABB{}, false
	}
}

func ellipseAABB(cx, cy, rx, ry, sx, sy, rot float64) geom.AABB {
	erx := math.Abs(rx * sx)
	ery := math.Abs(ry * sy)
	if rot == 0 {
		return geom.AABB{MinX: cx - erx, MinY: cy - ery, MaxX: cx + erx, MaxY: cy + ery}
	}
	ex, ey := geom.RotatedExtents(erx, ery, rot)
	return geom.AABB{MinX: cx - ex, MinY: cy - ey, MaxX: cx + ex, MaxY: cy + ey}
}

// Pick returns the id of the topmost body or edge hit, or zero.
func (s *System) Pick(x, y, tolerance, viewScale float64, store *entity.Store, texts *entity.TextStore) entity.ID {
	return s.PickEx(x, y, tolerance, viewScale, MaskBody|MaskEdge, store, texts).ID
}

// PickEx runs a full point pick: broad phase over the grid, then a narrow
// phase per candidate, keeping the best by sub-target priority, z, distance.
func (s *System) PickEx(x, y, tolerance, viewScale float64, mask uint32, store *entity.Store, texts *entity.TextStore) Result {
	s.lastStats = Stats{}

	bounds := geom.AABB{MinX: x - tolerance, MinY: y - tolerance, MaxX: x + tolerance, MaxY: y + tolerance}
	candidates := s.index.Query(bounds, nil)
	s.lastStats.CellsQueried = 1

	miss := Result{Kind: KindUnknown, SubTarget: SubNone, SubIndex: -1, Distance: math.Inf(1)}
	if len(candidates) == 0 {
		return miss
	}
	sortUnique(&candidates)

	var best candidate
	best.distance = math.MaxFloat64
	found := false
	for _, id := range candidates {
		s.lastStats.CandidatesChecked++
		cand, hit := s.checkCandidate(id, x, y, tolerance, viewScale, mask, store, texts)
		if hit && (!found || cand.less(best)) {
			best = cand
			found = true
		}
	}
	if !found {
		return miss
	}
	return Result{
		ID:        best.id,
		Kind:      best.kind,
		SubTarget: best.subTarget,
		SubIndex:  best.subIndex,
		Distance:  best.distance,
		HitX:      x,
		HitY:      y,
	}
}

// QueryArea returns every indexed id whose cells overlap the area, ordered
// z descending then id ascending. Callers narrow against exact bounds.
func (s *System) QueryArea(area geom.AABB) []entity.ID {
	s.lastStats = Stats{}
	candidates := s.index.Query(area, nil)
	if len(candidates) == 0 {
		return nil
	}
	s.lastStats.CellsQueried = 1
	s.lastStats.CandidatesChecked = uint32(len(candidates))
	sortUnique(&candidates)
	sort.Slice(candidates, func(i, j int) bool {
		za := s.zIndex[candidates[i]]
		zb := s.zIndex[candidates[j]]
		if za != zb {
			return za > zb
		}
		return candidates[i] < candidates[j]
	})
	return candidates
}

func sortUnique(ids *[]entity.ID) {
	list := *ids
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	out := list[:0]
	for i, id := range list {
		if i == 0 || id != list[i-1] {
			out = append(out, id)
		}
	}
	*ids = out
}

func distSq(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

// tryResizeHandles tests the four corners of an axis-aligned box, indexed
// BL, BR, TR, TL.
func tryResizeHandles(x, y, tol, minX, minY, maxX, maxY float64, bestDist *float64, c *candidate) bool {
	corners := [4][2]float64{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
	hit := false
	for i, p := range corners {
		d := math.Sqrt(distSq(x, y, p[0], p[1]))
		if d <= tol && d < *bestDist {
			*bestDist = d
			c.subTarget = SubResizeHandle
			c.subIndex = i
			hit = true
		}
	}
	return hit
}

func tryResizeHandlesRotated(x, y, tol, cx, cy, hw, hh, rot float64, bestDist *float64, c *candidate) bool {
	corners := [4][2]float64{
		{cx - hw, cy - hh}, {cx + hw, cy - hh}, {cx + hw, cy + hh}, {cx - hw, cy + hh},
	}
	hit := false
	for i, p := range corners {
		wx, wy := geom.LocalToWorld(p[0], p[1], cx, cy, rot)
		d := math.Sqrt(distSq(x, y, wx, wy))
		if d <= tol && d < *bestDist {
			*bestDist = d
			c.subTarget = SubResizeHandle
			c.subIndex = i
			hit = true
		}
	}
	return hit
}

// tryRotateHandles tests the circular grab zones offset diagonally outside
// each corner. Offset and radius are screen-space constants scaled by view.
func tryRotateHandles(x, y, viewScale, minX, minY, maxX, maxY float64, bestDist *float64, c *candidate) bool {
	offsetWorld := rotateHandleOffsetPx / viewScale
	radiusWorld := rotateHandleRadiusPx / viewScale
	corners := [4][4]float64{
		{minX, minY, -0.707, -0.707},
		{maxX, minY, 0.707, -0.707},
		{maxX, maxY, 0.707, 0.707},
		{minX, maxY, -0.707, 0.707},
	}
	hit := false
	for i, p := range corners {
		hx := p[0] + p[2]*offsetWorld
		hy := p[1] + p[3]*offsetWorld
		d := math.Sqrt(distSq(x, y, hx, hy))
		if d <= radiusWorld && d < *bestDist {
			*bestDist = d
			c.subTarget = SubRotateHandle
			c.subIndex = i
			hit = true
		}
	}
	return hit
}

func tryRotateHandlesRotated(x, y, viewScale, cx, cy, hw, hh, rot float64, bestDist *float64, c *candidate) bool {
	offsetWorld := rotateHandleOffsetPx / viewScale
	radiusWorld := rotateHandleRadiusPx / viewScale
	corners := [4][2]float64{
		{cx - hw, cy - hh}, {cx + hw, cy - hh}, {cx + hw, cy + hh}, {cx - hw, cy + hh},
	}
	dirs := [4][2]float64{
		{-0.707, -0.707}, {0.707, -0.707}, {0.707, 0.707}, {-0.707, 0.707},
	}
	sin, cos := math.Sincos(rot)
	hit := false
	for i := range corners {
		wx, wy := geom.LocalToWorld(corners[i][0], corners[i][1], cx, cy, rot)
		dx := dirs[i][0]*cos - dirs[i][1]*sin
		dy := dirs[i][0]*sin + dirs[i][1]*cos
		hx := wx + dx*offsetWorld
		hy := wy + dy*offsetWorld
		d := math.Sqrt(distSq(x, y, hx, hy))
		if d <= radiusWorld && d < *bestDist {
			*bestDist = d
			c.subTarget = SubRotateHandle
			c.subIndex = i
			hit = true
		}
	}
	return hit
}

func fillEnabled(store *entity.Store, id entity.ID) bool {
	return store.ResolveStyle(id, store.KindOf(id)).Fill.Enabled
}

func (s *System) checkCandidate(id entity.ID, x, y, tol, viewScale float64, mask uint32, store *entity.Store, texts *entity.TextStore) (candidate, bool) {
	c := candidate{
		id:       id,
		kind:     KindUnknown,
		subIndex: -1,
		distance: math.MaxFloat64,
		zIndex:   s.zIndex[id],
	}
	if !store.IsPickable(id) {
		return c, false
	}

	hit := false
	bestDist := math.MaxFloat64

	switch store.KindOf(id) {
	case entity.KindRect:
		r := store.GetRect(id)
		c.kind = KindRect
		minX := float64(r.X)
		minY := float64(r.Y)
		maxX := float64(r.X) + float64(r.W)
		maxY := float64(r.Y) + float64(r.H)
		cx := minX + float64(r.W)*0.5
		cy := minY + float64(r.H)*0.5
		hw := float64(r.W) * 0.5
		hh := float64(r.H) * 0.5
		rot := float64(r.Rot)
		rotated := math.Abs(rot) > 1e-6

		lx, ly := geom.WorldToLocal(x, y, cx, cy, rot)

		if mask&MaskHandles != 0 {
			if rotated {
				if tryResizeHandlesRotated(x, y, tol, cx, cy, hw, hh, rot, &bestDist, &c) {
					c.distance = bestDist
					return c, true
				}
				if tryRotateHandlesRotated(x, y, viewScale, cx, cy, hw, hh, rot, &bestDist, &c) {
					c.distance = bestDist
					return c, true
				}
			} else {
				if tryResizeHandles(x, y, tol, minX, minY, maxX, maxY, &bestDist, &c) {
					c.distance = bestDist
					return c, true
				}
				if tryRotateHandles(x, y, viewScale, minX, minY, maxX, maxY, &bestDist, &c) {
					c.distance = bestDist
					return c, true
				}
			}
		}

		if mask&MaskVertex != 0 {
			corners := [4][2]float64{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
			for i, p := range corners {
				px, py := p[0], p[1]
				if rotated {
					px, py = geom.LocalToWorld(px, py, cx, cy, rot)
				}
				d := math.Sqrt(distSq(x, y, px, py))
				if d <= tol && d < bestDist {
					bestDist = d
					c.subTarget = SubVertex
					c.subIndex = i
				}
			}
		}

		if bestDist > tol && mask&MaskEdge != 0 {
			inside := lx >= minX && lx <= maxX && ly >= minY && ly <= maxY
			if inside {
				dEdge := math.Min(
					math.Min(math.Abs(lx-minX), math.Abs(lx-maxX)),
					math.Min(math.Abs(ly-minY), math.Abs(ly-maxY)),
				)
				if dEdge <= tol {
					bestDist = dEdge
					c.subTarget = SubEdge
					c.subIndex = -1
				} else if mask&MaskBody != 0 && fillEnabled(store, id) {
					bestDist = 0
					c.subTarget = SubBody
				}
			} else {
				dx := math.Max(math.Max(minX-lx, 0), lx-maxX)
				dy := math.Max(math.Max(minY-ly, 0), ly-maxY)
				d := math.Sqrt(dx*dx + dy*dy)
				if d <= tol {
					bestDist = d
					c.subTarget = SubEdge
				}
			}
		}
		hit = c.subTarget != SubNone

	case entity.KindCircle:
		rec := store.GetCircle(id)
		c.kind = KindCircle
		rx := math.Abs(float64(rec.RX) * float64(rec.SX))
		ry := math.Abs(float64(rec.RY) * float64(rec.SY))
		if rx < 1e-6 || ry < 1e-6 {
			return c, false
		}
		cx := float64(rec.CX)
		cy := float64(rec.CY)

		if mask&MaskHandles != 0 {
			if tryResizeHandles(x, y, tol, cx-rx, cy-ry, cx+rx, cy+ry, &bestDist, &c) {
				c.distance = bestDist
				return c, true
			}
			if tryRotateHandles(x, y, viewScale, cx-rx, cy-ry, cx+rx, cy+ry, &bestDist, &c) {
				c.distance = bestDist
				return c, true
			}
		}

		localX := x - cx
		localY := y - cy
		if rec.Rot != 0 {
			sin, cos := math.Sincos(-float64(rec.Rot))
			localX, localY = localX*cos-localY*sin, localX*sin+localY*cos
		}
		nx := localX / rx
		ny := localY / ry
		normDist := math.Sqrt(nx*nx + ny*ny)
		avgRadius := (rx + ry) * 0.5
		distToEdge := math.Abs(normDist-1) * avgRadius

		if mask&MaskEdge != 0 && distToEdge <= tol {
			bestDist = distToEdge
			c.subTarget = SubEdge
			hit = true
		}
		if !hit && mask&MaskBody != 0 && normDist <= 1+tol/avgRadius && fillEnabled(store, id) {
			bestDist = distToEdge
			c.subTarget = SubBody
			hit = true
		}

	case entity.KindLine:
		l := store.GetLine(id)
		c.kind = KindLine
		x0, y0 := float64(l.X0), float64(l.Y0)
		x1, y1 := float64(l.X1), float64(l.Y1)
		dSeg := math.Sqrt(geom.DistToSegmentSq(x, y, x0, y0, x1, y1))

		if mask&MaskVertex != 0 {
			d0 := math.Sqrt(distSq(x, y, x0, y0))
			d1 := math.Sqrt(distSq(x, y, x1, y1))
			if d0 <= tol || d1 <= tol {
				if d0 < d1 {
					bestDist = d0
					c.subIndex = 0
				} else {
					bestDist = d1
					c.subIndex = 1
				}
				c.subTarget = SubVertex
				hit = true
			}
		}
		if !hit && mask&MaskEdge != 0 {
			effectiveTol := tol + float64(l.StrokeWidthPx)*0.5/viewScale
			if dSeg <= effectiveTol {
				bestDist = dSeg
				c.subTarget = SubEdge
				hit = true
			}
		}

	case entity.KindPolyline:
		pl := store.GetPolyline(id)
		c.kind = KindPolyline
		pts := store.PolylinePoints(pl)
		vertexHit := false

		if mask&MaskVertex != 0 {
			for i, p := range pts {
				d := math.Sqrt(distSq(x, y, float64(p.X), float64(p.Y)))
				if d <= tol && d < bestDist {
					bestDist = d
					c.subTarget = SubVertex
					c.subIndex = i
					vertexHit = true
				}
			}
		}
		if !vertexHit && mask&MaskEdge != 0 {
			effectiveTol := tol + float64(pl.StrokeWidthPx)*0.5/viewScale
			for i := 0; i+1 < len(pts); i++ {
				d := math.Sqrt(geom.DistToSegmentSq(x, y,
					float64(pts[i].X), float64(pts[i].Y),
					float64(pts[i+1].X), float64(pts[i+1].Y)))
				if d <= effectiveTol && d < bestDist {
					bestDist = d
					c.subTarget = SubEdge
					c.subIndex = i
				}
			}
		}
		hit = bestDist < math.MaxFloat64

	case entity.KindPolygon:
		p := store.GetPolygon(id)
		c.kind = KindPolygon
		cx := float64(p.CX)
		cy := float64(p.CY)
		rx := math.Abs(float64(p.RX) * float64(p.SX))
		ry := math.Abs(float64(p.RY) * float64(p.SY))

		if mask&MaskHandles != 0 {
			if tryResizeHandles(x, y, tol, cx-rx, cy-ry, cx+rx, cy+ry, &bestDist, &c) {
				c.distance = bestDist
				return c, true
			}
			if tryRotateHandles(x, y, viewScale, cx-rx, cy-ry, cx+rx, cy+ry, &bestDist, &c) {
				c.distance = bestDist
				return c, true
			}
		}

		// Body approximated by the circumscribed circle.
		dist := math.Sqrt(distSq(x, y, cx, cy))
		maxR := math.Max(float64(p.RX), float64(p.RY))
		if dist <= maxR+tol && mask&MaskBody != 0 && fillEnabled(store, id) {
			bestDist = dist
			c.subTarget = SubBody
			hit = true
		}

	case entity.KindArrow:
		a := store.GetArrow(id)
		c.kind = KindArrow
		ax, ay := float64(a.AX), float64(a.AY)
		bx, by := float64(a.BX), float64(a.BY)
		dSeg := math.Sqrt(geom.DistToSegmentSq(x, y, ax, ay, bx, by))

		if mask&MaskVertex != 0 {
			d0 := math.Sqrt(distSq(x, y, ax, ay))
			d1 := math.Sqrt(distSq(x, y, bx, by))
			if d0 <= tol || d1 <= tol {
				if d0 < d1 {
					bestDist = d0
					c.subIndex = 0
				} else {
					bestDist = d1
					c.subIndex = 1
				}
				c.subTarget = SubVertex
				hit = true
			}
		}
		if !hit && mask&MaskEdge != 0 {
			// Shaft tolerance padded for the head geometry.
			if dSeg <= tol+2 {
				bestDist = dSeg
				c.subTarget = SubEdge
				hit = true
			}
		}

	case entity.KindText:
		t := texts.Get(id)
		if t == nil {
			return c, false
		}
		c.kind = KindText
		minX, minY := float64(t.MinX), float64(t.MinY)
		maxX, maxY := float64(t.MaxX), float64(t.MaxY)

		if mask&MaskHandles != 0 {
			if tryRotateHandles(x, y, viewScale, minX, minY, maxX, maxY, &bestDist, &c) {
				c.distance = bestDist
				return c, true
			}
		}

		if x >= minX-tol && x <= maxX+tol && y >= minY-tol && y <= maxY+tol {
			if mask&MaskTextCaret != 0 {
				bestDist = 0
				c.subTarget = SubTextCaret
				hit = true
			} else if mask&MaskBody != 0 {
				bestDist = 0
				c.subTarget = SubTextBody
				hit = true
			}
		}

	default:
		return c, false
	}

	c.distance = bestDist
	return c, hit
}
