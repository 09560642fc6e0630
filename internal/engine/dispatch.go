package engine

import (
	"math"

	"drawcore/internal/entity"
	"drawcore/internal/history"
	"drawcore/internal/protocol"
)

// ApplyCommands runs one command buffer as a single undo step. Commands
// before a failing command stay applied; the in-flight history entry is
// discarded on failure, so a partially applied buffer is not undoable.
// Callers that need atomicity reload from the last snapshot on error.
func (e *Engine) ApplyCommands(buf []byte) protocol.Result {
	started := e.journal.Begin(e.nextID)
	e.docChanged = false

	res := protocol.Walk(buf, e.dispatch)

	if res.Code != protocol.Ok {
		if started {
			e.journal.Discard()
		}
	} else if started {
		if e.journal.Commit(e.nextID, e.generation+1, e.selection) {
			e.pushHistoryEvent()
		}
	}
	if e.docChanged {
		e.docChanged = false
		e.generation++
		e.snapshotDirty = true
		e.renderDirty = true
		e.store.CompactPolylinePoints()
		e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	}
	return res
}

func (e *Engine) dispatch(c protocol.Command) protocol.ErrorCode {
	switch c.Op {
	case protocol.OpClearAll:
		return e.clearAll()

	case protocol.OpUpsertRect:
		p, code := protocol.ParseRect(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertRect(c.ID, p)

	case protocol.OpUpsertLine:
		p, code := protocol.ParseLine(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertLine(c.ID, p)

	case protocol.OpUpsertPolyline:
		p, code := protocol.ParsePolyline(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertPolyline(c.ID, p)

	case protocol.OpDeleteEntity:
		if c.ID == 0 {
			return protocol.ErrInvalidOperation
		}
		return e.deleteEntity(c.ID)

	case protocol.OpSetDrawOrder:
		ids, code := protocol.ParseDrawOrder(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setDrawOrder(ids)

	case protocol.OpSetViewScale:
		p, code := protocol.ParseViewScale(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setViewScale(p)

	case protocol.OpUpsertCircle:
		p, code := protocol.ParseCircle(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertCircle(c.ID, p)

	case protocol.OpUpsertPolygon:
		p, code := protocol.ParsePolygon(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertPolygon(c.ID, p)

	case protocol.OpUpsertArrow:
		p, code := protocol.ParseArrow(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertArrow(c.ID, p)

	case protocol.OpUpsertText:
		p, code := protocol.ParseText(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.upsertText(c.ID, p)

	case protocol.OpDeleteText:
		if c.ID == 0 {
			return protocol.ErrInvalidOperation
		}
		// Idempotent: deleting an absent text is not an error.
		if e.store.KindOf(c.ID) != entity.KindText {
			return protocol.Ok
		}
		return e.deleteEntity(c.ID)

	case protocol.OpSetTextCaret:
		p, code := protocol.ParseTextCaret(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		if !e.texts.SetCaret(p.TextID, p.CaretIndex) {
			return protocol.ErrInvalidOperation
		}
		e.renderDirty = true
		return protocol.Ok

	case protocol.OpSetTextSelection:
		p, code := protocol.ParseTextSelection(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		if !e.texts.SetSelection(p.TextID, p.Start, p.End) {
			return protocol.ErrInvalidOperation
		}
		e.renderDirty = true
		return protocol.Ok

	case protocol.OpInsertTextContent:
		p, code := protocol.ParseTextInsert(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		return e.editText(p.TextID, func() bool {
			return e.texts.Insert(p.TextID, p.InsertIndex, p.Content)
		})

	case protocol.OpDeleteTextContent:
		p, code := protocol.ParseTextDelete(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		return e.editText(p.TextID, func() bool {
			return e.texts.DeleteRange(p.TextID, p.Start, p.End)
		})

	case protocol.OpReplaceTextContent:
		p, code := protocol.ParseTextReplace(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		return e.editText(p.TextID, func() bool {
			return e.texts.ReplaceRange(p.TextID, p.Start, p.End, p.Content)
		})

	case protocol.OpApplyTextStyle:
		p, code := protocol.ParseApplyTextStyle(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		return e.applyTextStyle(p)

	case protocol.OpSetTextAlign:
		p, code := protocol.ParseTextAlign(c.Payload)
		if code != protocol.Ok {
			return code
		}
		if c.ID != 0 && c.ID != p.TextID {
			return protocol.ErrInvalidPayloadSize
		}
		return e.setTextAlign(p)

	case protocol.OpSetLayerStyle:
		p, code := protocol.ParseLayerStyle(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setLayerStyle(c.ID, p)

	case protocol.OpSetLayerStyleEnabled:
		p, code := protocol.ParseLayerStyleEnabled(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setLayerStyleEnabled(c.ID, p)

	case protocol.OpSetEntityStyleOverride:
		p, code := protocol.ParseEntityStyle(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setEntityStyle(p)

	case protocol.OpClearEntityStyleOverride:
		p, code := protocol.ParseEntityStyleClear(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.clearEntityStyle(p)

	case protocol.OpSetEntityStyleEnabled:
		p, code := protocol.ParseEntityStyleEnabled(c.Payload)
		if code != protocol.Ok {
			return code
		}
		return e.setEntityStyleEnabled(p)

	default:
		return protocol.ErrUnknownCommand
	}
}

func (e *Engine) clearAll() protocol.ErrorCode {
	e.journal.MarkLayers()
	e.journal.MarkOrder()
	e.journal.MarkSelection(e.selection)
	for _, id := range e.store.IDs() {
		e.journal.MarkEntity(id)
		e.queue.push(Event{Type: EventEntityDeleted, A: id})
	}
	e.store.Clear()
	e.texts.Clear()
	e.picker.Clear()
	e.store.Layers.EnsureLayer(entity.DefaultLayerID)
	if len(e.selection) > 0 {
		e.selection = e.selection[:0]
		e.rebuildSelectionSet()
		e.queue.push(Event{Type: EventSelectionChanged})
	}
	e.queue.push(Event{Type: EventLayerChanged})
	e.queue.push(Event{Type: EventOrderChanged})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) afterUpsert(id entity.ID, created bool, mask uint16) {
	e.noteID(id)
	e.picker.Sync(e.store, e.texts, id)
	if created {
		e.picker.SetDrawOrder(e.store.DrawOrder())
		e.queue.push(Event{Type: EventEntityCreated, A: id, B: uint32(e.store.KindOf(id))})
	} else {
		e.queue.push(Event{Type: EventEntityChanged, Flags: mask, A: id})
	}
	e.docChanged = true
}

func (e *Engine) upsertRect(id entity.ID, p protocol.RectPayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.UpsertRect(id, p.X, p.Y, p.W, p.H,
		p.FillR, p.FillG, p.FillB, p.FillA,
		p.StrokeR, p.StrokeG, p.StrokeB, p.StrokeA,
		p.StrokeEnabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) upsertLine(id entity.ID, p protocol.LinePayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.UpsertLine(id, p.X0, p.Y0, p.X1, p.Y1, p.R, p.G, p.B, p.A, p.Enabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) upsertPolyline(id entity.ID, p protocol.PolylinePayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	// A degenerate polyline is a delete, not an error.
	if len(p.Points) < 2 {
		if e.store.KindOf(id) == entity.KindNone {
			return protocol.Ok
		}
		return e.deleteEntity(id)
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	pts := make([]entity.Point2, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = entity.Point2{X: pt.X, Y: pt.Y}
	}
	offset, count := e.store.AppendPoints(pts)
	e.store.UpsertPolyline(id, offset, count, p.R, p.G, p.B, p.A, p.Enabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) upsertCircle(id entity.ID, p protocol.CirclePayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.UpsertCircle(id, p.CX, p.CY, p.RX, p.RY, p.Rot, p.SX, p.SY,
		p.FillR, p.FillG, p.FillB, p.FillA,
		p.StrokeR, p.StrokeG, p.StrokeB, p.StrokeA,
		p.StrokeEnabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) upsertPolygon(id entity.ID, p protocol.PolygonPayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	if p.Sides < 3 {
		return protocol.ErrInvalidOperation
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.UpsertPolygon(id, p.CX, p.CY, p.RX, p.RY, p.Rot, p.SX, p.SY, p.Sides,
		p.FillR, p.FillG, p.FillB, p.FillA,
		p.StrokeR, p.StrokeG, p.StrokeB, p.StrokeA,
		p.StrokeEnabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) upsertArrow(id entity.ID, p protocol.ArrowPayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.UpsertArrow(id, p.AX, p.AY, p.BX, p.BY, p.Head,
		p.StrokeR, p.StrokeG, p.StrokeB, p.StrokeA,
		p.StrokeEnabled, p.StrokeWidthPx)
	e.afterUpsert(id, created, ChangeGeometry|ChangeStyle)
	return protocol.Ok
}

func (e *Engine) deleteEntity(id entity.ID) protocol.ErrorCode {
	kind := e.store.KindOf(id)
	if kind == entity.KindNone {
		return protocol.Ok
	}
	e.journal.MarkEntity(id)
	if e.isSelected(id) {
		e.journal.MarkSelection(e.selection)
		e.removeFromSelection(id)
		e.queue.push(Event{Type: EventSelectionChanged, A: uint32(len(e.selection))})
	}
	if kind == entity.KindText {
		e.texts.Delete(id)
	}
	e.store.DeleteEntity(id)
	e.picker.Remove(id)
	e.queue.push(Event{Type: EventEntityDeleted, A: id, B: uint32(kind)})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) setDrawOrder(ids []uint32) protocol.ErrorCode {
	next := make([]entity.ID, 0, e.store.Len())
	seen := make(map[entity.ID]struct{}, len(ids))
	// Live ids absent from the request keep their relative order at the back.
	for _, id := range e.store.DrawOrder() {
		found := false
		for _, want := range ids {
			if want == id {
				found = true
				break
			}
		}
		if !found {
			next = append(next, id)
			seen[id] = struct{}{}
		}
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		if e.store.KindOf(id) == entity.KindNone {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	e.journal.MarkOrder()
	e.store.SetDrawOrder(next)
	e.picker.SetDrawOrder(next)
	if len(e.selection) > 0 {
		e.rebuildSelectionOrder()
	}
	e.queue.push(Event{Type: EventOrderChanged})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) setViewScale(p protocol.ViewScalePayload) protocol.ErrorCode {
	scale := float64(p.Scale)
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 1e-6 {
		p.Scale = 1
	}
	e.view = Viewport{Scale: p.Scale, X: sanitize(p.X), Y: sanitize(p.Y),
		Width: sanitize(p.Width), Height: sanitize(p.Height)}
	e.renderDirty = true
	return protocol.Ok
}

func sanitize(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return v
}

func (e *Engine) upsertText(id entity.ID, p protocol.TextPayload) protocol.ErrorCode {
	if id == 0 {
		return protocol.ErrInvalidOperation
	}
	if kind := e.store.KindOf(id); kind != entity.KindNone && kind != entity.KindText {
		return protocol.ErrInvalidOperation
	}
	if p.Align > entity.TextAlignRight || p.BoxMode > entity.TextBoxFixed {
		return protocol.ErrInvalidOperation
	}
	runs := make([]entity.TextRun, len(p.Runs))
	for i, r := range p.Runs {
		if int(r.StartIndex)+int(r.Length) > len(p.Content) {
			return protocol.ErrInvalidOperation
		}
		runs[i] = entity.TextRun{
			StartIndex: r.StartIndex,
			Length:     r.Length,
			FontID:     r.FontID,
			FontSize:   r.FontSize,
			ColorRGBA:  r.ColorRGBA,
			Flags:      r.Flags,
		}
	}
	created := e.store.KindOf(id) == entity.KindNone
	e.journal.MarkEntity(id)
	e.store.RegisterText(id)
	rec := e.texts.Upsert(id, p.X, p.Y, p.Rotation, p.BoxMode, p.Align, p.ConstraintWidth, runs, p.Content)
	e.layoutText(rec)
	e.afterUpsert(id, created, ChangeGeometry|ChangeText|ChangeBounds)
	return protocol.Ok
}

// editText runs one content mutation under the text-edit merge tag so that
// consecutive keystrokes on the same entity coalesce into one undo step.
func (e *Engine) editText(id entity.ID, mutate func() bool) protocol.ErrorCode {
	rec := e.texts.Get(id)
	if rec == nil {
		return protocol.ErrInvalidOperation
	}
	e.journal.MarkEntity(id)
	if !mutate() {
		return protocol.ErrInvalidOperation
	}
	e.journal.SetMergeTag(history.MergeTextEdit, id)
	e.layoutText(rec)
	e.picker.Sync(e.store, e.texts, id)
	e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeText | ChangeBounds, A: id})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) applyTextStyle(p protocol.ApplyTextStylePayload) protocol.ErrorCode {
	rec := e.texts.Get(p.TextID)
	if rec == nil {
		return protocol.ErrInvalidOperation
	}
	mask := p.FlagsMask
	var value uint8
	switch p.Mode {
	case protocol.TextStyleModeSet:
		value = p.FlagsValue & mask
	case protocol.TextStyleModeClear:
		value = 0
	case protocol.TextStyleModeToggle:
		// Toggle clears only when the whole range already carries the bits.
		if mask != 0 && e.texts.RunsCovering(p.TextID, p.RangeStart, p.RangeEnd, mask) {
			value = 0
		} else {
			value = mask
		}
	default:
		return protocol.ErrInvalidPayloadSize
	}
	e.journal.MarkEntity(p.TextID)
	e.texts.ApplyRunStyle(p.TextID, p.RangeStart, p.RangeEnd, func(run *entity.TextRun) {
		if mask != 0 {
			run.Flags = run.Flags&^mask | value
		}
		if p.Params.FontSize != nil {
			run.FontSize = *p.Params.FontSize
		}
		if p.Params.FontID != nil {
			run.FontID = *p.Params.FontID
		}
		if p.Params.FontWeight != nil {
			if *p.Params.FontWeight >= 600 {
				run.Flags |= protocol.TextStyleBold
			} else {
				run.Flags &^= protocol.TextStyleBold
			}
		}
	})
	e.layoutText(rec)
	e.picker.Sync(e.store, e.texts, p.TextID)
	e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeText | ChangeStyle | ChangeBounds, A: p.TextID})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) setTextAlign(p protocol.TextAlignPayload) protocol.ErrorCode {
	if p.Align > uint32(entity.TextAlignRight) {
		return protocol.ErrInvalidPayloadSize
	}
	rec := e.texts.Get(p.TextID)
	if rec == nil {
		return protocol.ErrInvalidOperation
	}
	e.journal.MarkEntity(p.TextID)
	e.texts.SetAlign(p.TextID, uint8(p.Align))
	e.layoutText(rec)
	e.picker.Sync(e.store, e.texts, p.TextID)
	e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeText | ChangeBounds, A: p.TextID})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) layoutText(rec *entity.TextRec) {
	w, h, minX, minY, maxX, maxY := e.measure.Measure(rec)
	e.texts.SetLayoutBounds(rec.ID, w, h, minX, minY, maxX, maxY)
}

func styleTarget(v uint32) (entity.StyleTarget, bool) {
	if v > uint32(entity.StyleTextBackground) {
		return 0, false
	}
	return entity.StyleTarget(v), true
}

func (e *Engine) setLayerStyle(layerID entity.ID, p protocol.LayerStylePayload) protocol.ErrorCode {
	target, ok := styleTarget(p.Target)
	if !ok {
		return protocol.ErrInvalidPayloadSize
	}
	if layerID == 0 {
		return protocol.ErrInvalidOperation
	}
	e.journal.MarkLayers()
	e.store.Layers.EnsureLayer(layerID)
	e.store.Layers.SetStyleColor(layerID, target, entity.UnpackRGBA(p.ColorRGBA))
	e.queue.push(Event{Type: EventLayerChanged, A: layerID})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) setLayerStyleEnabled(layerID entity.ID, p protocol.LayerStyleEnabledPayload) protocol.ErrorCode {
	target, ok := styleTarget(p.Target)
	if !ok {
		return protocol.ErrInvalidPayloadSize
	}
	if layerID == 0 {
		return protocol.ErrInvalidOperation
	}
	e.journal.MarkLayers()
	e.store.Layers.EnsureLayer(layerID)
	e.store.Layers.SetStyleEnabled(layerID, target, p.Enabled != 0)
	e.queue.push(Event{Type: EventLayerChanged, A: layerID})
	e.docChanged = true
	return protocol.Ok
}

func (e *Engine) setEntityStyle(p protocol.EntityStylePayload) protocol.ErrorCode {
	target, ok := styleTarget(p.Target)
	if !ok {
		return protocol.ErrInvalidPayloadSize
	}
	color := entity.UnpackRGBA(p.ColorRGBA)
	bit := entity.StyleTargetMask(target)
	for _, id := range p.IDs {
		kind := e.store.KindOf(id)
		if kind == entity.KindNone || entity.StyleCapabilities(kind)&bit == 0 {
			continue
		}
		e.journal.MarkEntity(id)
		ov := entity.StyleOverride{}
		if cur := e.store.StyleOverrideFor(id); cur != nil {
			ov = *cur
		}
		ov.ColorMask |= bit
		switch target {
		case entity.StyleStroke:
			e.writeStrokeColor(id, kind, color)
		case entity.StyleFill:
			e.writeFillColor(id, kind, color)
		case entity.StyleTextColor:
			ov.TextColor = color
		case entity.StyleTextBackground:
			ov.TextBackground = color
		}
		e.store.SetStyleOverride(id, ov)
		e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeStyle, A: id})
		e.docChanged = true
	}
	return protocol.Ok
}

// Stroke and fill overrides write straight into the geometry records; the
// override mask only marks that the entity no longer follows its layer.
func (e *Engine) writeStrokeColor(id entity.ID, kind entity.Kind, c entity.StyleColor) {
	switch kind {
	case entity.KindLine:
		if rec := e.store.GetLine(id); rec != nil {
			rec.R, rec.G, rec.B, rec.A = c.R, c.G, c.B, c.A
		}
	case entity.KindPolyline:
		if rec := e.store.GetPolyline(id); rec != nil {
			rec.R, rec.G, rec.B, rec.A = c.R, c.G, c.B, c.A
		}
	case entity.KindArrow:
		if rec := e.store.GetArrow(id); rec != nil {
			rec.SR, rec.SG, rec.SB, rec.SA = c.R, c.G, c.B, c.A
		}
	case entity.KindRect:
		if rec := e.store.GetRect(id); rec != nil {
			rec.SR, rec.SG, rec.SB, rec.SA = c.R, c.G, c.B, c.A
		}
	case entity.KindCircle:
		if rec := e.store.GetCircle(id); rec != nil {
			rec.SR, rec.SG, rec.SB, rec.SA = c.R, c.G, c.B, c.A
		}
	case entity.KindPolygon:
		if rec := e.store.GetPolygon(id); rec != nil {
			rec.SR, rec.SG, rec.SB, rec.SA = c.R, c.G, c.B, c.A
		}
	}
}

func (e *Engine) writeFillColor(id entity.ID, kind entity.Kind, c entity.StyleColor) {
	switch kind {
	case entity.KindRect:
		if rec := e.store.GetRect(id); rec != nil {
			rec.R, rec.G, rec.B, rec.A = c.R, c.G, c.B, c.A
		}
	case entity.KindCircle:
		if rec := e.store.GetCircle(id); rec != nil {
			rec.R, rec.G, rec.B, rec.A = c.R, c.G, c.B, c.A
		}
	case entity.KindPolygon:
		if rec := e.store.GetPolygon(id); rec != nil {
			rec.R, rec.G, rec.B, rec.A = c.R, c.G, c.B, c.A
		}
	}
}

func (e *Engine) clearEntityStyle(p protocol.EntityStyleClearPayload) protocol.ErrorCode {
	target, ok := styleTarget(p.Target)
	if !ok {
		return protocol.ErrInvalidPayloadSize
	}
	mask := entity.StyleTargetMask(target)
	for _, id := range p.IDs {
		if e.store.StyleOverrideFor(id) == nil {
			continue
		}
		e.journal.MarkEntity(id)
		e.store.ClearStyleOverride(id, mask, mask)
		e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeStyle, A: id})
		e.docChanged = true
	}
	return protocol.Ok
}

func (e *Engine) setEntityStyleEnabled(p protocol.EntityStyleEnabledPayload) protocol.ErrorCode {
	target, ok := styleTarget(p.Target)
	if !ok {
		return protocol.ErrInvalidPayloadSize
	}
	enabled := p.Enabled != 0
	bit := entity.StyleTargetMask(target)
	for _, id := range p.IDs {
		kind := e.store.KindOf(id)
		if kind == entity.KindNone || entity.StyleCapabilities(kind)&bit == 0 {
			continue
		}
		e.journal.MarkEntity(id)
		ov := entity.StyleOverride{}
		if cur := e.store.StyleOverrideFor(id); cur != nil {
			ov = *cur
		}
		ov.EnabledMask |= bit
		switch target {
		case entity.StyleStroke:
			e.writeStrokeEnabled(id, kind, enabled)
		case entity.StyleFill:
			ov.FillEnabled = enabled
		case entity.StyleTextBackground:
			ov.TextBackgroundEnabled = enabled
		}
		e.store.SetStyleOverride(id, ov)
		e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeStyle, A: id})
		e.docChanged = true
	}
	return protocol.Ok
}

func (e *Engine) writeStrokeEnabled(id entity.ID, kind entity.Kind, enabled bool) {
	v := float32(0)
	if enabled {
		v = 1
	}
	switch kind {
	case entity.KindLine:
		if rec := e.store.GetLine(id); rec != nil {
			rec.Enabled = v
		}
	case entity.KindPolyline:
		if rec := e.store.GetPolyline(id); rec != nil {
			rec.Enabled = v
		}
	case entity.KindArrow:
		if rec := e.store.GetArrow(id); rec != nil {
			rec.StrokeEnabled = v
		}
	case entity.KindRect:
		if rec := e.store.GetRect(id); rec != nil {
			rec.StrokeEnabled = v
		}
	case entity.KindCircle:
		if rec := e.store.GetCircle(id); rec != nil {
			rec.StrokeEnabled = v
		}
	case entity.KindPolygon:
		if rec := e.store.GetPolygon(id); rec != nil {
			rec.StrokeEnabled = v
		}
	}
}
