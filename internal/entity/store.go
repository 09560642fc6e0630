package entity

// Store is the structure-of-arrays entity container. Geometry lives in dense
// per-kind vectors; the entities map is the only place ids are resolved to
// slots. Not safe for concurrent use; the engine is a single-actor model.
type Store struct {
	Rects     []RectRec
	Lines     []LineRec
	Polylines []PolyRec
	Points    []Point2
	Circles   []CircleRec
	Polygons  []PolygonRec
	Arrows    []ArrowRec

	entities       map[ID]Ref
	drawOrder      []ID
	entityFlags    map[ID]uint32
	entityLayers   map[ID]ID
	styleOverrides map[ID]*StyleOverride

	Layers *LayerStore
}

// NewStore returns an empty store with the default layer installed.
func NewStore() *Store {
	s := &Store{Layers: NewLayerStore()}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.Rects = s.Rects[:0]
	s.Lines = s.Lines[:0]
	s.Polylines = s.Polylines[:0]
	s.Points = s.Points[:0]
	s.Circles = s.Circles[:0]
	s.Polygons = s.Polygons[:0]
	s.Arrows = s.Arrows[:0]
	s.entities = make(map[ID]Ref)
	s.drawOrder = s.drawOrder[:0]
	s.entityFlags = make(map[ID]uint32)
	s.entityLayers = make(map[ID]ID)
	s.styleOverrides = make(map[ID]*StyleOverride)
}

// Clear drops every entity, layer and override, restoring the initial state.
func (s *Store) Clear() {
	s.reset()
	s.Layers.Clear()
}

// Reserve pre-sizes the geometry vectors ahead of a bulk load.
func (s *Store) Reserve(rects, lines, polylines, points, circles, polygons, arrows int) {
	grow := func(n, want int) int {
		if want > n {
			return want
		}
		return n
	}
	s.Rects = append(make([]RectRec, 0, grow(cap(s.Rects), rects)), s.Rects...)
	s.Lines = append(make([]LineRec, 0, grow(cap(s.Lines), lines)), s.Lines...)
	s.Polylines = append(make([]PolyRec, 0, grow(cap(s.Polylines), polylines)), s.Polylines...)
	s.Points = append(make([]Point2, 0, grow(cap(s.Points), points)), s.Points...)
	s.Circles = append(make([]CircleRec, 0, grow(cap(s.Circles), circles)), s.Circles...)
	s.Polygons = append(make([]PolygonRec, 0, grow(cap(s.Polygons), polygons)), s.Polygons...)
	s.Arrows = append(make([]ArrowRec, 0, grow(cap(s.Arrows), arrows)), s.Arrows...)
}

// Lookup resolves an id, reporting false when the entity does not exist.
func (s *Store) Lookup(id ID) (Ref, bool) {
	ref, ok := s.entities[id]
	return ref, ok
}

// KindOf returns the entity's kind, KindNone if absent.
func (s *Store) KindOf(id ID) Kind {
	return s.entities[id].Kind
}

// Len returns the number of live entities.
func (s *Store) Len() int { return len(s.entities) }

// DrawOrder returns the paint-order id sequence. The slice is owned by the
// store and only valid until the next mutation.
func (s *Store) DrawOrder() []ID { return s.drawOrder }

// SetDrawOrder replaces the paint-order sequence wholesale.
func (s *Store) SetDrawOrder(ids []ID) {
	s.drawOrder = append(s.drawOrder[:0], ids...)
}

func (s *Store) ensureEntityMetadata(id ID) {
	if _, ok := s.entityFlags[id]; !ok {
		s.entityFlags[id] = FlagVisible
	}
	if _, ok := s.entityLayers[id]; !ok {
		s.entityLayers[id] = DefaultLayerID
	}
}

// UpsertRect inserts or mutates a rect. A same-id entity of another kind is
// deleted first; same-kind upsert keeps the slot and draw-order position.
func (s *Store) UpsertRect(id ID, x, y, w, h, r, g, b, a, sr, sg, sb, sa, strokeEnabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindRect {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Rects[ref.Index]
		rec.X, rec.Y, rec.W, rec.H = x, y, w, h
		rec.R, rec.G, rec.B, rec.A = r, g, b, a
		rec.SR, rec.SG, rec.SB, rec.SA = sr, sg, sb, sa
		rec.StrokeEnabled, rec.StrokeWidthPx = strokeEnabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Rects = append(s.Rects, RectRec{
		ID: id, X: x, Y: y, W: w, H: h, SX: 1, SY: 1,
		R: r, G: g, B: b, A: a, SR: sr, SG: sg, SB: sb, SA: sa,
		StrokeEnabled: strokeEnabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindRect, Index: uint32(len(s.Rects) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// UpsertLine inserts or mutates a line segment.
func (s *Store) UpsertLine(id ID, x0, y0, x1, y1, r, g, b, a, enabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindLine {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Lines[ref.Index]
		rec.X0, rec.Y0, rec.X1, rec.Y1 = x0, y0, x1, y1
		rec.R, rec.G, rec.B, rec.A = r, g, b, a
		rec.Enabled, rec.StrokeWidthPx = enabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Lines = append(s.Lines, LineRec{
		ID: id, X0: x0, Y0: y0, X1: x1, Y1: y1,
		R: r, G: g, B: b, A: a, Enabled: enabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindLine, Index: uint32(len(s.Lines) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// AppendPoints adds vertices to the shared pool, returning their offset.
func (s *Store) AppendPoints(pts []Point2) (offset, count uint32) {
	offset = uint32(len(s.Points))
	s.Points = append(s.Points, pts...)
	return offset, uint32(len(pts))
}

// UpsertPolyline inserts or mutates a polyline referencing pooled points.
func (s *Store) UpsertPolyline(id ID, offset, count uint32, r, g, b, a, enabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindPolyline {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Polylines[ref.Index]
		rec.Offset, rec.Count = offset, count
		rec.R, rec.G, rec.B, rec.A = r, g, b, a
		rec.Enabled, rec.StrokeWidthPx = enabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Polylines = append(s.Polylines, PolyRec{
		ID: id, Offset: offset, Count: count,
		R: r, G: g, B: b, A: a, Enabled: enabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindPolyline, Index: uint32(len(s.Polylines) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// UpsertCircle inserts or mutates an ellipse.
func (s *Store) UpsertCircle(id ID, cx, cy, rx, ry, rot, sx, sy, fr, fg, fb, fa, sr, sg, sb, sa, strokeEnabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindCircle {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Circles[ref.Index]
		rec.CX, rec.CY, rec.RX, rec.RY = cx, cy, rx, ry
		rec.Rot, rec.SX, rec.SY = rot, sx, sy
		rec.R, rec.G, rec.B, rec.A = fr, fg, fb, fa
		rec.SR, rec.SG, rec.SB, rec.SA = sr, sg, sb, sa
		rec.StrokeEnabled, rec.StrokeWidthPx = strokeEnabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Circles = append(s.Circles, CircleRec{
		ID: id, CX: cx, CY: cy, RX: rx, RY: ry, Rot: rot, SX: sx, SY: sy,
		R: fr, G: fg, B: fb, A: fa, SR: sr, SG: sg, SB: sb, SA: sa,
		StrokeEnabled: strokeEnabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindCircle, Index: uint32(len(s.Circles) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// UpsertPolygon inserts or mutates a regular polygon.
func (s *Store) UpsertPolygon(id ID, cx, cy, rx, ry, rot, sx, sy float32, sides uint32, fr, fg, fb, fa, sr, sg, sb, sa, strokeEnabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindPolygon {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Polygons[ref.Index]
		rec.CX, rec.CY, rec.RX, rec.RY = cx, cy, rx, ry
		rec.Rot, rec.SX, rec.SY, rec.Sides = rot, sx, sy, sides
		rec.R, rec.G, rec.B, rec.A = fr, fg, fb, fa
		rec.SR, rec.SG, rec.SB, rec.SA = sr, sg, sb, sa
		rec.StrokeEnabled, rec.StrokeWidthPx = strokeEnabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Polygons = append(s.Polygons, PolygonRec{
		ID: id, CX: cx, CY: cy, RX: rx, RY: ry, Rot: rot, SX: sx, SY: sy, Sides: sides,
		R: fr, G: fg, B: fb, A: fa, SR: sr, SG: sg, SB: sb, SA: sa,
		StrokeEnabled: strokeEnabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindPolygon, Index: uint32(len(s.Polygons) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// UpsertArrow inserts or mutates an arrow.
func (s *Store) UpsertArrow(id ID, ax, ay, bx, by, head, sr, sg, sb, sa, strokeEnabled, strokeWidthPx float32) {
	if ref, ok := s.entities[id]; ok && ref.Kind != KindArrow {
		s.DeleteEntity(id)
	}
	if ref, ok := s.entities[id]; ok {
		rec := &s.Arrows[ref.Index]
		rec.AX, rec.AY, rec.BX, rec.BY, rec.Head = ax, ay, bx, by, head
		rec.SR, rec.SG, rec.SB, rec.SA = sr, sg, sb, sa
		rec.StrokeEnabled, rec.StrokeWidthPx = strokeEnabled, strokeWidthPx
		s.ensureEntityMetadata(id)
		return
	}
	s.Arrows = append(s.Arrows, ArrowRec{
		ID: id, AX: ax, AY: ay, BX: bx, BY: by, Head: head,
		SR: sr, SG: sg, SB: sb, SA: sa,
		StrokeEnabled: strokeEnabled, StrokeWidthPx: strokeWidthPx,
	})
	s.entities[id] = Ref{Kind: KindArrow, Index: uint32(len(s.Arrows) - 1)}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// RegisterText indexes a text entity. Content lives in the TextStore; the
// index slot mirrors the id.
func (s *Store) RegisterText(id ID) {
	if ref, ok := s.entities[id]; ok {
		if ref.Kind != KindText {
			s.DeleteEntity(id)
		} else {
			s.ensureEntityMetadata(id)
			return
		}
	}
	s.entities[id] = Ref{Kind: KindText, Index: id}
	s.drawOrder = append(s.drawOrder, id)
	s.ensureEntityMetadata(id)
}

// DeleteEntity removes id from the index, metadata maps and draw order, and
// swap-removes its geometry slot. The survivor moved into the freed slot is
// reindexed in the same step. Unknown ids are a no-op.
func (s *Store) DeleteEntity(id ID) {
	ref, ok := s.entities[id]
	if !ok {
		return
	}
	delete(s.entities, id)
	delete(s.entityFlags, id)
	delete(s.entityLayers, id)
	delete(s.styleOverrides, id)
	for i, oid := range s.drawOrder {
		if oid == id {
			s.drawOrder = append(s.drawOrder[:i], s.drawOrder[i+1:]...)
			break
		}
	}
	switch ref.Kind {
	case KindRect:
		last := uint32(len(s.Rects) - 1)
		if ref.Index != last {
			s.Rects[ref.Index] = s.Rects[last]
			s.entities[s.Rects[ref.Index].ID] = Ref{Kind: KindRect, Index: ref.Index}
		}
		s.Rects = s.Rects[:last]
	case KindLine:
		last := uint32(len(s.Lines) - 1)
		if ref.Index != last {
			s.Lines[ref.Index] = s.Lines[last]
			s.entities[s.Lines[ref.Index].ID] = Ref{Kind: KindLine, Index: ref.Index}
		}
		s.Lines = s.Lines[:last]
	case KindPolyline:
		last := uint32(len(s.Polylines) - 1)
		if ref.Index != last {
			s.Polylines[ref.Index] = s.Polylines[last]
			s.entities[s.Polylines[ref.Index].ID] = Ref{Kind: KindPolyline, Index: ref.Index}
		}
		s.Polylines = s.Polylines[:last]
	case KindCircle:
		last := uint32(len(s.Circles) - 1)
		if ref.Index != last {
			s.Circles[ref.Index] = s.Circles[last]
			s.entities[s.Circles[ref.Index].ID] = Ref{Kind: KindCircle, Index: ref.Index}
		}
		s.Circles = s.Circles[:last]
	case KindPolygon:
		last := uint32(len(s.Polygons) - 1)
		if ref.Index != last {
			s.Polygons[ref.Index] = s.Polygons[last]
			s.entities[s.Polygons[ref.Index].ID] = Ref{Kind: KindPolygon, Index: ref.Index}
		}
		s.Polygons = s.Polygons[:last]
	case KindArrow:
		last := uint32(len(s.Arrows) - 1)
		if ref.Index != last {
			s.Arrows[ref.Index] = s.Arrows[last]
			s.entities[s.Arrows[ref.Index].ID] = Ref{Kind: KindArrow, Index: ref.Index}
		}
		s.Arrows = s.Arrows[:last]
	case KindText:
		// Content cleanup happens in the TextStore; only indexing is removed here.
	}
}

// GetRect returns the rect record for id, nil when absent or another kind.
func (s *Store) GetRect(id ID) *RectRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindRect {
		return &s.Rects[ref.Index]
	}
	return nil
}

// GetLine returns the line record for id.
func (s *Store) GetLine(id ID) *LineRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindLine {
		return &s.Lines[ref.Index]
	}
	return nil
}

// GetPolyline returns the polyline record for id.
func (s *Store) GetPolyline(id ID) *PolyRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindPolyline {
		return &s.Polylines[ref.Index]
	}
	return nil
}

// GetCircle returns the circle record for id.
func (s *Store) GetCircle(id ID) *CircleRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindCircle {
		return &s.Circles[ref.Index]
	}
	return nil
}

// GetPolygon returns the polygon record for id.
func (s *Store) GetPolygon(id ID) *PolygonRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindPolygon {
		return &s.Polygons[ref.Index]
	}
	return nil
}

// GetArrow returns the arrow record for id.
func (s *Store) GetArrow(id ID) *ArrowRec {
	if ref, ok := s.entities[id]; ok && ref.Kind == KindArrow {
		return &s.Arrows[ref.Index]
	}
	return nil
}

// PolylinePoints returns the pooled vertex slice for a polyline record.
func (s *Store) PolylinePoints(rec *PolyRec) []Point2 {
	if rec == nil {
		return nil
	}
	end := rec.Offset + rec.Count
	if int(end) > len(s.Points) {
		return nil
	}
	return s.Points[rec.Offset:end]
}

// SetEntityLayer assigns the entity to a layer.
func (s *Store) SetEntityLayer(id, layerID ID) {
	s.ensureEntityMetadata(id)
	s.entityLayers[id] = layerID
}

// EntityLayer returns the entity's layer, defaulting when unset.
func (s *Store) EntityLayer(id ID) ID {
	if l, ok := s.entityLayers[id]; ok {
		return l
	}
	return DefaultLayerID
}

// SetEntityFlags applies value under mask to the entity's flags word.
func (s *Store) SetEntityFlags(id ID, mask, value uint32) {
	s.ensureEntityMetadata(id)
	s.entityFlags[id] = (s.entityFlags[id] &^ mask) | (value & mask)
}

// EntityFlags returns the entity's flags word, FlagVisible when unset.
func (s *Store) EntityFlags(id ID) uint32 {
	if f, ok := s.entityFlags[id]; ok {
		return f
	}
	return FlagVisible
}

// IsVisible combines the entity and layer visible bits.
func (s *Store) IsVisible(id ID) bool {
	return s.EntityFlags(id)&FlagVisible != 0 && s.Layers.IsVisible(s.EntityLayer(id))
}

// IsLocked reports whether the entity or its layer is locked.
func (s *Store) IsLocked(id ID) bool {
	return s.EntityFlags(id)&FlagLocked != 0 || s.Layers.IsLocked(s.EntityLayer(id))
}

// IsPickable reports whether the entity participates in hit testing.
func (s *Store) IsPickable(id ID) bool {
	return s.IsVisible(id) && !s.IsLocked(id)
}

// StyleOverrideFor returns the override record, nil when absent.
func (s *Store) StyleOverrideFor(id ID) *StyleOverride {
	return s.styleOverrides[id]
}

// SetStyleOverride installs or replaces the entity's override record.
func (s *Store) SetStyleOverride(id ID, ov StyleOverride) {
	s.ensureEntityMetadata(id)
	cp := ov
	s.styleOverrides[id] = &cp
}

// ClearStyleOverride drops the bits named in the masks, removing the record
// when nothing remains.
func (s *Store) ClearStyleOverride(id ID, colorMask, enabledMask uint8) {
	ov, ok := s.styleOverrides[id]
	if !ok {
		return
	}
	ov.ColorMask &^= colorMask
	ov.EnabledMask &^= enabledMask
	if ov.ColorMask == 0 && ov.EnabledMask == 0 {
		delete(s.styleOverrides, id)
	}
}

// StyleOverrideIDs returns the ids carrying override records, unordered.
func (s *Store) StyleOverrideIDs() []ID {
	out := make([]ID, 0, len(s.styleOverrides))
	for id := range s.styleOverrides {
		out = append(out, id)
	}
	return out
}

// ResolveStyle layers the entity's override over its layer style. Stroke and
// fill color overrides re-expose the colors drawn in the geometry record so
// that toggling a channel never loses the per-entity color.
func (s *Store) ResolveStyle(id ID, kind Kind) ResolvedStyle {
	layer := s.Layers.Get(s.EntityLayer(id))
	resolved := ResolvedStyle{
		Stroke:         layer.Style.Stroke,
		Fill:           layer.Style.Fill,
		TextColor:      layer.Style.TextColor,
		TextBackground: layer.Style.TextBackground,
	}
	ov := s.styleOverrides[id]
	if ov == nil {
		return resolved
	}
	caps := StyleCapabilities(kind)
	colorMask := ov.ColorMask & caps
	enabledMask := ov.EnabledMask & caps

	strokeBit := StyleTargetMask(StyleStroke)
	fillBit := StyleTargetMask(StyleFill)
	textColorBit := StyleTargetMask(StyleTextColor)
	textBgBit := StyleTargetMask(StyleTextBackground)

	if colorMask&textColorBit != 0 {
		resolved.TextColor.Color = ov.TextColor
	}
	if colorMask&textBgBit != 0 {
		resolved.TextBackground.Color = ov.TextBackground
	}
	if enabledMask&fillBit != 0 {
		resolved.Fill.Enabled = ov.FillEnabled
	}
	if enabledMask&textBgBit != 0 {
		resolved.TextBackground.Enabled = ov.TextBackgroundEnabled
	}
	if colorMask&(strokeBit|fillBit) == 0 && enabledMask&(strokeBit|fillBit) == 0 {
		return resolved
	}

	var fill, stroke *StyleColor
	var strokeEnabled *bool
	boolOf := func(v float32) *bool { b := v != 0; return &b }
	switch kind {
	case KindRect:
		if rec := s.GetRect(id); rec != nil {
			fill = &StyleColor{rec.R, rec.G, rec.B, rec.A}
			stroke = &StyleColor{rec.SR, rec.SG, rec.SB, rec.SA}
			strokeEnabled = boolOf(rec.StrokeEnabled)
		}
	case KindCircle:
		if rec := s.GetCircle(id); rec != nil {
			fill = &StyleColor{rec.R, rec.G, rec.B, rec.A}
			stroke = &StyleColor{rec.SR, rec.SG, rec.SB, rec.SA}
			strokeEnabled = boolOf(rec.StrokeEnabled)
		}
	case KindPolygon:
		if rec := s.GetPolygon(id); rec != nil {
			fill = &StyleColor{rec.R, rec.G, rec.B, rec.A}
			stroke = &StyleColor{rec.SR, rec.SG, rec.SB, rec.SA}
			strokeEnabled = boolOf(rec.StrokeEnabled)
		}
	case KindLine:
		if rec := s.GetLine(id); rec != nil {
			stroke = &StyleColor{rec.R, rec.G, rec.B, rec.A}
			strokeEnabled = boolOf(rec.Enabled)
		}
	case KindPolyline:
		if rec := s.GetPolyline(id); rec != nil {
			stroke = &StyleColor{rec.R, rec.G, rec.B, rec.A}
			strokeEnabled = boolOf(rec.Enabled)
		}
	case KindArrow:
		if rec := s.GetArrow(id); rec != nil {
			stroke = &StyleColor{rec.SR, rec.SG, rec.SB, rec.SA}
			strokeEnabled = boolOf(rec.StrokeEnabled)
		}
	}
	if colorMask&fillBit != 0 && fill != nil {
		resolved.Fill.Color = *fill
	}
	if colorMask&strokeBit != 0 && stroke != nil {
		resolved.Stroke.Color = *stroke
	}
	if enabledMask&strokeBit != 0 && strokeEnabled != nil {
		resolved.Stroke.Enabled = *strokeEnabled
	}
	return resolved
}

// CompactPolylinePoints rewrites the shared point pool, dropping vertices no
// live polyline references and rebasing each record's offset.
func (s *Store) CompactPolylinePoints() {
	if len(s.Polylines) == 0 {
		s.Points = s.Points[:0]
		return
	}
	compact := make([]Point2, 0, len(s.Points))
	for i := range s.Polylines {
		rec := &s.Polylines[i]
		pts := s.PolylinePoints(rec)
		rec.Offset = uint32(len(compact))
		rec.Count = uint32(len(pts))
		compact = append(compact, pts...)
	}
	s.Points = compact
}

// IDs returns all live entity ids, unordered.
func (s *Store) IDs() []ID {
	out := make([]ID, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	return out
}
