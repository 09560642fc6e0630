// Package snapshot captures and restores whole documents through the ESNP
// binary format. A Document is an expanded, store-independent image of the
// engine state; Decode fully validates the bytes before any store is
// touched, so a corrupt snapshot never leaves a half-restored document.
package snapshot

import (
	"sort"

	"drawcore/internal/entity"
)

// RectEntry pairs a rectangle record with its placement metadata.
type RectEntry struct {
	Rec     entity.RectRec
	LayerID entity.ID
	Flags   uint32
}

// LineEntry pairs a line record with its placement metadata.
type LineEntry struct {
	Rec     entity.LineRec
	LayerID entity.ID
	Flags   uint32
}

// PolyEntry pairs a polyline record with its placement metadata. Offset and
// Count index the Document's point pool, not the live store's.
type PolyEntry struct {
	Rec     entity.PolyRec
	LayerID entity.ID
	Flags   uint32
}

// CircleEntry pairs an ellipse record with its placement metadata.
type CircleEntry struct {
	Rec     entity.CircleRec
	LayerID entity.ID
	Flags   uint32
}

// PolygonEntry pairs a polygon record with its placement metadata.
type PolygonEntry struct {
	Rec     entity.PolygonRec
	LayerID entity.ID
	Flags   uint32
}

// ArrowEntry pairs an arrow record with its placement metadata.
type ArrowEntry struct {
	Rec     entity.ArrowRec
	LayerID entity.ID
	Flags   uint32
}

// TextEntry pairs a text record with its placement metadata.
type TextEntry struct {
	Rec     entity.TextRec
	LayerID entity.ID
	Flags   uint32
}

// OverrideEntry is one entity style override.
type OverrideEntry struct {
	ID       entity.ID
	Override entity.StyleOverride
}

// Document is a complete snapshot of engine state. Entries within each kind
// are kept in ascending id order so identical documents encode to identical
// bytes.
type Document struct {
	Rects     []RectEntry
	Lines     []LineEntry
	Polylines []PolyEntry
	Points    []entity.Point2
	Circles   []CircleEntry
	Polygons  []PolygonEntry
	Arrows    []ArrowEntry
	Texts     []TextEntry

	Layers    []entity.LayerRecord
	DrawOrder []entity.ID
	Selection []entity.ID
	Overrides []OverrideEntry

	History []byte
	NextID  uint32
}

// Capture builds a Document from live stores. The polyline point pool is
// rebuilt compactly in entry order. History is referenced, not copied.
func Capture(store *entity.Store, texts *entity.TextStore, selection []entity.ID, nextID uint32, history []byte) *Document {
	doc := &Document{
		Layers:    store.Layers.Export(),
		DrawOrder: append([]entity.ID(nil), store.DrawOrder()...),
		Selection: append([]entity.ID(nil), selection...),
		History:   history,
		NextID:    nextID,
	}

	ids := append([]entity.ID(nil), store.IDs()...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		layerID := store.EntityLayer(id)
		flags := store.EntityFlags(id)
		switch store.KindOf(id) {
		case entity.KindRect:
			doc.Rects = append(doc.Rects, RectEntry{Rec: *store.GetRect(id), LayerID: layerID, Flags: flags})
		case entity.KindLine:
			doc.Lines = append(doc.Lines, LineEntry{Rec: *store.GetLine(id), LayerID: layerID, Flags: flags})
		case entity.KindPolyline:
			rec := *store.GetPolyline(id)
			pts := store.PolylinePoints(store.GetPolyline(id))
			rec.Offset = uint32(len(doc.Points))
			rec.Count = uint32(len(pts))
			doc.Points = append(doc.Points, pts...)
			doc.Polylines = append(doc.Polylines, PolyEntry{Rec: rec, LayerID: layerID, Flags: flags})
		case entity.KindCircle:
			doc.Circles = append(doc.Circles, CircleEntry{Rec: *store.GetCircle(id), LayerID: layerID, Flags: flags})
		case entity.KindPolygon:
			doc.Polygons = append(doc.Polygons, PolygonEntry{Rec: *store.GetPolygon(id), LayerID: layerID, Flags: flags})
		case entity.KindArrow:
			doc.Arrows = append(doc.Arrows, ArrowEntry{Rec: *store.GetArrow(id), LayerID: layerID, Flags: flags})
		case entity.KindText:
			rec := texts.Get(id)
			if rec == nil {
				continue
			}
			doc.Texts = append(doc.Texts, TextEntry{Rec: *rec.Clone(), LayerID: layerID, Flags: flags})
		}
	}

	ovIDs := store.StyleOverrideIDs()
	sort.Slice(ovIDs, func(i, j int) bool { return ovIDs[i] < ovIDs[j] })
	for _, id := range ovIDs {
		if ov := store.StyleOverrideFor(id); ov != nil {
			doc.Overrides = append(doc.Overrides, OverrideEntry{ID: id, Override: *ov})
		}
	}

	return doc
}

// Restore replaces the stores' content with the Document. The caller owns
// selection and next-id bookkeeping; Restore only rebuilds entity state.
func (doc *Document) Restore(store *entity.Store, texts *entity.TextStore) {
	store.Clear()
	texts.Clear()

	store.Layers.Import(doc.Layers)
	store.Reserve(len(doc.Rects), len(doc.Lines), len(doc.Polylines), len(doc.Points),
		len(doc.Circles), len(doc.Polygons), len(doc.Arrows))

	for i := range doc.Rects {
		e := &doc.Rects[i]
		r := &e.Rec
		store.UpsertRect(r.ID, r.X, r.Y, r.W, r.H,
			r.R, r.G, r.B, r.A, r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx)
		// Rotation and scale are not part of the upsert signature.
		live := store.GetRect(r.ID)
		live.Rot, live.SX, live.SY = r.Rot, r.SX, r.SY
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Lines {
		e := &doc.Lines[i]
		r := &e.Rec
		store.UpsertLine(r.ID, r.X0, r.Y0, r.X1, r.Y1, r.R, r.G, r.B, r.A, r.Enabled, r.StrokeWidthPx)
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Polylines {
		e := &doc.Polylines[i]
		r := &e.Rec
		pts := doc.Points[r.Offset : r.Offset+r.Count]
		offset, count := store.AppendPoints(pts)
		store.UpsertPolyline(r.ID, offset, count, r.R, r.G, r.B, r.A, r.Enabled, r.StrokeWidthPx)
		live := store.GetPolyline(r.ID)
		live.SR, live.SG, live.SB, live.SA = r.SR, r.SG, r.SB, r.SA
		live.StrokeEnabled = r.StrokeEnabled
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Circles {
		e := &doc.Circles[i]
		r := &e.Rec
		store.UpsertCircle(r.ID, r.CX, r.CY, r.RX, r.RY, r.Rot, r.SX, r.SY,
			r.R, r.G, r.B, r.A, r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx)
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Polygons {
		e := &doc.Polygons[i]
		r := &e.Rec
		store.UpsertPolygon(r.ID, r.CX, r.CY, r.RX, r.RY, r.Rot, r.SX, r.SY, r.Sides,
			r.R, r.G, r.B, r.A, r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx)
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Arrows {
		e := &doc.Arrows[i]
		r := &e.Rec
		store.UpsertArrow(r.ID, r.AX, r.AY, r.BX, r.BY, r.Head,
			r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx)
		restoreMeta(store, r.ID, e.LayerID, e.Flags)
	}
	for i := range doc.Texts {
		e := &doc.Texts[i]
		store.RegisterText(e.Rec.ID)
		texts.Restore(e.Rec.Clone())
		restoreMeta(store, e.Rec.ID, e.LayerID, e.Flags)
	}

	for _, ov := range doc.Overrides {
		store.SetStyleOverride(ov.ID, ov.Override)
	}

	store.SetDrawOrder(append([]entity.ID(nil), doc.DrawOrder...))
}

func restoreMeta(store *entity.Store, id, layerID entity.ID, flags uint32) {
	store.SetEntityLayer(id, layerID)
	store.SetEntityFlags(id, ^uint32(0), flags)
}
