package engine

import (
	"math"
	"sort"

	"drawcore/internal/entity"
	"drawcore/internal/snapshot"
)

// Digest is a 64-bit content fingerprint of the document, split into two
// words for hosts without 64-bit integers. Two documents with equal digests
// hold the same entities, layers, order and selection; ephemeral state such
// as the viewport, caret and undo stack is excluded.
type Digest struct {
	Lo, Hi uint32
}

const (
	digestOffset uint64 = 14695981039346656037
	digestPrime  uint64 = 1099511628211
	digestSeed   uint32 = 0x45444F43
)

func hashU32(h uint64, v uint32) uint64 { return (h ^ uint64(v)) * digestPrime }

func hashBytes(h uint64, b []byte) uint64 {
	for _, c := range b {
		h = (h ^ uint64(c)) * digestPrime
	}
	return h
}

// canonicalF32 folds every NaN payload to the quiet NaN pattern and both
// zero signs to +0 so equal-valued documents hash equally.
func canonicalF32(v float32) uint32 {
	bits := math.Float32bits(v)
	if v != v {
		return 0x7FC00000
	}
	if bits == 0x80000000 {
		return 0
	}
	return bits
}

func hashF32(h uint64, v float32) uint64 { return hashU32(h, canonicalF32(v)) }

// ComputeDigest hashes the document content in a fixed traversal order.
func (e *Engine) ComputeDigest() Digest {
	h := digestOffset
	h = hashU32(h, digestSeed)
	h = hashU32(h, snapshot.Version)

	layerOrder := e.store.Layers.Order()
	h = hashU32(h, uint32(len(layerOrder)))
	for _, id := range layerOrder {
		layer := e.store.Layers.Get(id)
		if layer == nil {
			continue
		}
		h = hashU32(h, layer.ID)
		h = hashU32(h, layer.Order)
		h = hashU32(h, layer.Flags)
		h = hashU32(h, uint32(len(layer.Name)))
		h = hashBytes(h, []byte(layer.Name))
	}

	ids := e.store.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	h = hashU32(h, uint32(len(ids)))
	for _, id := range ids {
		h = e.hashEntity(h, id)
	}

	order := e.store.DrawOrder()
	h = hashU32(h, uint32(len(order)))
	for _, id := range order {
		h = hashU32(h, id)
	}

	h = hashU32(h, uint32(len(e.selection)))
	for _, id := range e.selection {
		h = hashU32(h, id)
	}

	h = hashU32(h, e.nextID)
	return Digest{Lo: uint32(h & 0xFFFFFFFF), Hi: uint32(h >> 32)}
}

func (e *Engine) hashEntity(h uint64, id entity.ID) uint64 {
	kind := e.store.KindOf(id)
	h = hashU32(h, id)
	h = hashU32(h, uint32(kind))
	h = hashU32(h, e.store.EntityLayer(id))
	h = hashU32(h, e.store.EntityFlags(id))

	switch kind {
	case entity.KindRect:
		r := e.store.GetRect(id)
		for _, v := range []float32{r.X, r.Y, r.W, r.H, r.R, r.G, r.B, r.A,
			r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx} {
			h = hashF32(h, v)
		}
	case entity.KindLine:
		l := e.store.GetLine(id)
		for _, v := range []float32{l.X0, l.Y0, l.X1, l.Y1, l.R, l.G, l.B, l.A,
			l.Enabled, l.StrokeWidthPx} {
			h = hashF32(h, v)
		}
	case entity.KindPolyline:
		p := e.store.GetPolyline(id)
		h = hashU32(h, p.Count)
		for _, v := range []float32{p.R, p.G, p.B, p.A, p.SR, p.SG, p.SB, p.SA,
			p.Enabled, p.StrokeEnabled, p.StrokeWidthPx} {
			h = hashF32(h, v)
		}
		for _, pt := range e.store.PolylinePoints(p) {
			h = hashF32(h, pt.X)
			h = hashF32(h, pt.Y)
		}
	case entity.KindCircle:
		c := e.store.GetCircle(id)
		for _, v := range []float32{c.CX, c.CY, c.RX, c.RY, c.Rot, c.SX, c.SY,
			c.R, c.G, c.B, c.A, c.SR, c.SG, c.SB, c.SA,
			c.StrokeEnabled, c.StrokeWidthPx} {
			h = hashF32(h, v)
		}
	case entity.KindPolygon:
		p := e.store.GetPolygon(id)
		for _, v := range []float32{p.CX, p.CY, p.RX, p.RY, p.Rot, p.SX, p.SY} {
			h = hashF32(h, v)
		}
		h = hashU32(h, p.Sides)
		for _, v := range []float32{p.R, p.G, p.B, p.A, p.SR, p.SG, p.SB, p.SA,
			p.StrokeEnabled, p.StrokeWidthPx} {
			h = hashF32(h, v)
		}
	case entity.KindArrow:
		a := e.store.GetArrow(id)
		for _, v := range []float32{a.AX, a.AY, a.BX, a.BY, a.Head,
			a.SR, a.SG, a.SB, a.SA, a.StrokeEnabled, a.StrokeWidthPx} {
			h = hashF32(h, v)
		}
	case entity.KindText:
		t := e.texts.Get(id)
		if t == nil {
			break
		}
		h = hashF32(h, t.X)
		h = hashF32(h, t.Y)
		h = hashF32(h, t.Rotation)
		h = hashU32(h, uint32(t.BoxMode))
		h = hashU32(h, uint32(t.Align))
		h = hashF32(h, t.ConstraintWidth)
		for _, v := range []float32{t.LayoutWidth, t.LayoutHeight, t.MinX, t.MinY, t.MaxX, t.MaxY} {
			h = hashF32(h, v)
		}
		h = hashU32(h, uint32(len(t.Content)))
		h = hashBytes(h, t.Content)
		h = hashU32(h, uint32(len(t.Runs)))
		for _, run := range t.Runs {
			h = hashU32(h, run.StartIndex)
			h = hashU32(h, run.Length)
			h = hashU32(h, run.FontID)
			h = hashF32(h, run.FontSize)
			h = hashU32(h, run.ColorRGBA)
			h = hashU32(h, uint32(run.Flags))
		}
	}
	return h
}
