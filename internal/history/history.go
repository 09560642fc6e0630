// Package history records undoable transactions against the entity and text
// stores. A transaction captures before-images on first touch and completes
// the after-images at commit, so callers only mark what they are about to
// change.
package history

import (
	"sort"

	"drawcore/internal/entity"
)

// MergeTag lets rapid successive transactions of the same kind against the
// same entity coalesce into a single undo step.
type MergeTag uint8

const (
	MergeNone MergeTag = iota
	MergeTextEdit
)

// EntitySnapshot is the full restorable state of one entity.
type EntitySnapshot struct {
	ID       entity.ID
	Kind     entity.Kind
	LayerID  entity.ID
	Flags    uint32
	Override *entity.StyleOverride

	Rect    entity.RectRec
	Line    entity.LineRec
	Poly    entity.PolyRec
	Circle  entity.CircleRec
	Polygon entity.PolygonRec
	Arrow   entity.ArrowRec
	Points  []entity.Point2
	Text    *entity.TextRec
}

// EntityChange pairs the before and after images of one touched entity.
type EntityChange struct {
	ID            entity.ID
	ExistedBefore bool
	ExistedAfter  bool
	Before        EntitySnapshot
	After         EntitySnapshot
}

// Entry is one committed undo step. Sections that did not change are dropped
// at commit so replay touches only what the transaction actually moved.
type Entry struct {
	HasLayerChange bool
	LayersBefore   []entity.LayerRecord
	LayersAfter    []entity.LayerRecord

	Entities []EntityChange

	HasOrderChange bool
	OrderBefore    []entity.ID
	OrderAfter     []entity.ID

	HasSelectionChange bool
	SelectionBefore    []entity.ID
	SelectionAfter     []entity.ID

	NextIDBefore uint32
	NextIDAfter  uint32

	Generation    uint32
	MergeTag      MergeTag
	MergeEntityID entity.ID
}

// ApplyReport tells the caller what an undo or redo touched so it can sync
// the pick index, selection and event stream.
type ApplyReport struct {
	Entities         []entity.ID
	LayerChanged     bool
	OrderChanged     bool
	SelectionChanged bool
	Selection        []entity.ID
	NextID           uint32
}

// Journal is the undo/redo stack plus the in-flight transaction.
type Journal struct {
	store *entity.Store
	texts *entity.TextStore

	entries    []Entry
	cursor     int
	generation uint32
	suppressed bool

	active  bool
	tx      Entry
	txIndex map[entity.ID]int
}

// NewJournal returns an empty journal bound to the given stores.
func NewJournal(store *entity.Store, texts *entity.TextStore) *Journal {
	return &Journal{store: store, texts: texts, txIndex: make(map[entity.ID]int)}
}

// Clear drops all entries and any open transaction.
func (j *Journal) Clear() {
	j.entries = nil
	j.cursor = 0
	j.active = false
	j.tx = Entry{}
	j.txIndex = make(map[entity.ID]int)
	j.generation++
}

// CanUndo reports whether an entry precedes the cursor.
func (j *Journal) CanUndo() bool { return j.cursor > 0 }

// CanRedo reports whether an entry follows the cursor.
func (j *Journal) CanRedo() bool { return j.cursor < len(j.entries) }

// Generation increments on every stack mutation, for change detection.
func (j *Journal) Generation() uint32 { return j.generation }

// SetSuppressed disables journaling; used while replaying entries.
func (j *Journal) SetSuppressed(v bool) { j.suppressed = v }

// Suppressed reports whether journaling is disabled.
func (j *Journal) Suppressed() bool { return j.suppressed }

// Active reports whether a transaction is open.
func (j *Journal) Active() bool { return j.active }

// Len returns the number of committed entries.
func (j *Journal) Len() int { return len(j.entries) }

// Cursor returns the redo boundary: entries[:Cursor] are undoable.
func (j *Journal) Cursor() int { return j.cursor }

// Begin opens a transaction, capturing the allocator position. It reports
// whether it opened one; an already-open transaction keeps recording.
func (j *Journal) Begin(nextID uint32) bool {
	if j.suppressed || j.active {
		return false
	}
	j.active = true
	j.tx = Entry{NextIDBefore: nextID, NextIDAfter: nextID}
	j.txIndex = make(map[entity.ID]int)
	return true
}

// Discard abandons the open transaction without recording anything.
func (j *Journal) Discard() {
	j.active = false
	j.tx = Entry{}
	j.txIndex = make(map[entity.ID]int)
}

// MarkEntity captures the before-image of id on its first touch in the open
// transaction. Later touches are no-ops; the after-image is taken at commit.
func (j *Journal) MarkEntity(id entity.ID) {
	if !j.active || j.suppressed {
		return
	}
	if _, seen := j.txIndex[id]; seen {
		return
	}
	j.txIndex[id] = len(j.tx.Entities)
	change := EntityChange{ID: id}
	change.Before, change.ExistedBefore = j.captureSnapshot(id)
	j.tx.Entities = append(j.tx.Entities, change)
}

// MarkLayers captures the whole layer sequence once per transaction.
func (j *Journal) MarkLayers() {
	if !j.active || j.suppressed || j.tx.HasLayerChange {
		return
	}
	j.tx.LayersBefore = j.store.Layers.Export()
	j.tx.HasLayerChange = true
}

// MarkOrder captures the draw order once per transaction.
func (j *Journal) MarkOrder() {
	if !j.active || j.suppressed || j.tx.HasOrderChange {
		return
	}
	j.tx.OrderBefore = append([]entity.ID(nil), j.store.DrawOrder()...)
	j.tx.HasOrderChange = true
}

// MarkSelection captures the current selection once per transaction.
func (j *Journal) MarkSelection(selection []entity.ID) {
	if !j.active || j.suppressed || j.tx.HasSelectionChange {
		return
	}
	j.tx.SelectionBefore = append([]entity.ID(nil), selection...)
	j.tx.HasSelectionChange = true
}

// SetMergeTag tags the open transaction for coalescing at commit.
func (j *Journal) SetMergeTag(tag MergeTag, id entity.ID) {
	if !j.active || j.suppressed {
		return
	}
	j.tx.MergeTag = tag
	j.tx.MergeEntityID = id
}

// Commit closes the transaction: after-images are captured, no-op sections
// dropped, and the entry pushed (truncating any redo tail). It reports
// whether an entry was recorded.
func (j *Journal) Commit(nextID, generation uint32, selection []entity.ID) bool {
	if !j.active {
		return false
	}
	entry := j.tx
	j.active = false
	j.tx = Entry{}
	j.txIndex = make(map[entity.ID]int)

	j.finalize(&entry, nextID, selection)

	if entry.HasLayerChange && layersEqual(entry.LayersBefore, entry.LayersAfter) {
		entry.HasLayerChange = false
		entry.LayersBefore = nil
		entry.LayersAfter = nil
	}
	if entry.HasOrderChange && idsEqual(entry.OrderBefore, entry.OrderAfter) {
		entry.HasOrderChange = false
		entry.OrderBefore = nil
		entry.OrderAfter = nil
	}
	if entry.HasSelectionChange && idsEqual(entry.SelectionBefore, entry.SelectionAfter) {
		entry.HasSelectionChange = false
		entry.SelectionBefore = nil
		entry.SelectionAfter = nil
	}
	if len(entry.Entities) == 0 && !entry.HasLayerChange && !entry.HasOrderChange && !entry.HasSelectionChange {
		return false
	}

	sort.Slice(entry.Entities, func(a, b int) bool {
		return entry.Entities[a].ID < entry.Entities[b].ID
	})
	entry.Generation = generation

	if j.tryMerge(&entry) {
		j.generation++
		return true
	}
	j.push(entry)
	return true
}

func (j *Journal) finalize(entry *Entry, nextID uint32, selection []entity.ID) {
	entry.NextIDAfter = nextID
	for i := range entry.Entities {
		change := &entry.Entities[i]
		change.After, change.ExistedAfter = j.captureSnapshot(change.ID)
	}
	if entry.HasLayerChange {
		entry.LayersAfter = j.store.Layers.Export()
	}
	if entry.HasOrderChange {
		entry.OrderAfter = append([]entity.ID(nil), j.store.DrawOrder()...)
	}
	if entry.HasSelectionChange {
		entry.SelectionAfter = append([]entity.ID(nil), selection...)
	}
}

// tryMerge folds the entry into the stack top when both carry the same merge
// tag and target, keeping the top's before-images and the entry's afters.
func (j *Journal) tryMerge(entry *Entry) bool {
	if entry.MergeTag == MergeNone || j.cursor == 0 || j.cursor != len(j.entries) {
		return false
	}
	top := &j.entries[j.cursor-1]
	if top.MergeTag != entry.MergeTag || top.MergeEntityID != entry.MergeEntityID {
		return false
	}
	for _, change := range entry.Entities {
		merged := false
		for i := range top.Entities {
			if top.Entities[i].ID == change.ID {
				top.Entities[i].After = change.After
				top.Entities[i].ExistedAfter = change.ExistedAfter
				merged = true
				break
			}
		}
		if !merged {
			top.Entities = append(top.Entities, change)
		}
	}
	sort.Slice(top.Entities, func(a, b int) bool {
		return top.Entities[a].ID < top.Entities[b].ID
	})
	if entry.HasLayerChange {
		if !top.HasLayerChange {
			top.HasLayerChange = true
			top.LayersBefore = entry.LayersBefore
		}
		top.LayersAfter = entry.LayersAfter
	}
	if entry.HasOrderChange {
		if !top.HasOrderChange {
			top.HasOrderChange = true
			top.OrderBefore = entry.OrderBefore
		}
		top.OrderAfter = entry.OrderAfter
	}
	if entry.HasSelectionChange {
		if !top.HasSelectionChange {
			top.HasSelectionChange = true
			top.SelectionBefore = entry.SelectionBefore
		}
		top.SelectionAfter = entry.SelectionAfter
	}
	top.NextIDAfter = entry.NextIDAfter
	top.Generation = entry.Generation
	return true
}

// Push appends a pre-built entry, truncating the redo tail.
func (j *Journal) Push(entry Entry) {
	if j.suppressed {
		return
	}
	j.push(entry)
}

func (j *Journal) push(entry Entry) {
	if j.cursor < len(j.entries) {
		j.entries = j.entries[:j.cursor]
	}
	j.entries = append(j.entries, entry)
	j.cursor = len(j.entries)
	j.generation++
}

// Undo replays the previous entry's before-images. The report tells the
// caller what to resync; ok is false when nothing can be undone.
func (j *Journal) Undo() (ApplyReport, bool) {
	if j.cursor == 0 {
		return ApplyReport{}, false
	}
	j.cursor--
	report := j.applyEntry(&j.entries[j.cursor], false)
	j.generation++
	return report, true
}

// Redo replays the next entry's after-images.
func (j *Journal) Redo() (ApplyReport, bool) {
	if j.cursor >= len(j.entries) {
		return ApplyReport{}, false
	}
	entry := &j.entries[j.cursor]
	j.cursor++
	report := j.applyEntry(entry, true)
	j.generation++
	return report, true
}

func (j *Journal) applyEntry(entry *Entry, useAfter bool) ApplyReport {
	wasSuppressed := j.suppressed
	j.suppressed = true
	defer func() { j.suppressed = wasSuppressed }()

	report := ApplyReport{NextID: entry.NextIDBefore}
	if useAfter {
		report.NextID = entry.NextIDAfter
	}

	if entry.HasLayerChange {
		layers := entry.LayersBefore
		if useAfter {
			layers = entry.LayersAfter
		}
		j.store.Layers.Import(layers)
		report.LayerChanged = true
	}

	for i := range entry.Entities {
		change := &entry.Entities[i]
		exists := change.ExistedBefore
		snap := &change.Before
		if useAfter {
			exists = change.ExistedAfter
			snap = &change.After
		}
		if !exists {
			j.store.DeleteEntity(change.ID)
			j.texts.Delete(change.ID)
		} else {
			j.applySnapshot(snap)
		}
		report.Entities = append(report.Entities, change.ID)
	}

	if entry.HasOrderChange {
		order := entry.OrderBefore
		if useAfter {
			order = entry.OrderAfter
		}
		j.store.SetDrawOrder(order)
		report.OrderChanged = true
	}

	if entry.HasSelectionChange {
		selection := entry.SelectionBefore
		if useAfter {
			selection = entry.SelectionAfter
		}
		report.SelectionChanged = true
		report.Selection = append([]entity.ID(nil), selection...)
	}

	return report
}

func (j *Journal) captureSnapshot(id entity.ID) (EntitySnapshot, bool) {
	ref, ok := j.store.Lookup(id)
	if !ok {
		return EntitySnapshot{}, false
	}
	snap := EntitySnapshot{
		ID:      id,
		Kind:    ref.Kind,
		LayerID: j.store.EntityLayer(id),
		Flags:   j.store.EntityFlags(id),
	}
	if ov := j.store.StyleOverrideFor(id); ov != nil {
		copied := *ov
		snap.Override = &copied
	}
	switch ref.Kind {
	case entity.KindRect:
		snap.Rect = *j.store.GetRect(id)
	case entity.KindLine:
		snap.Line = *j.store.GetLine(id)
	case entity.KindPolyline:
		rec := j.store.GetPolyline(id)
		snap.Poly = *rec
		snap.Points = append([]entity.Point2(nil), j.store.PolylinePoints(rec)...)
		snap.Poly.Offset = 0
		snap.Poly.Count = uint32(len(snap.Points))
	case entity.KindCircle:
		snap.Circle = *j.store.GetCircle(id)
	case entity.KindPolygon:
		snap.Polygon = *j.store.GetPolygon(id)
	case entity.KindArrow:
		snap.Arrow = *j.store.GetArrow(id)
	case entity.KindText:
		rec := j.texts.Get(id)
		if rec == nil {
			return EntitySnapshot{}, false
		}
		snap.Text = rec.Clone()
	default:
		return EntitySnapshot{}, false
	}
	return snap, true
}

func (j *Journal) applySnapshot(snap *EntitySnapshot) {
	id := snap.ID
	if id == 0 {
		return
	}
	switch snap.Kind {
	case entity.KindRect:
		r := snap.Rect
		j.store.UpsertRect(id, r.X, r.Y, r.W, r.H, r.R, r.G, r.B, r.A,
			r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx)
		if rec := j.store.GetRect(id); rec != nil {
			rec.Rot = r.Rot
			rec.SX = r.SX
			rec.SY = r.SY
		}
	case entity.KindLine:
		l := snap.Line
		j.store.UpsertLine(id, l.X0, l.Y0, l.X1, l.Y1, l.R, l.G, l.B, l.A,
			l.Enabled, l.StrokeWidthPx)
	case entity.KindPolyline:
		if len(snap.Points) < 2 {
			j.store.DeleteEntity(id)
			return
		}
		offset, count := j.store.AppendPoints(snap.Points)
		p := snap.Poly
		j.store.UpsertPolyline(id, offset, count, p.R, p.G, p.B, p.A, p.Enabled, p.StrokeWidthPx)
		if rec := j.store.GetPolyline(id); rec != nil {
			rec.SR = p.SR
			rec.SG = p.SG
			rec.SB = p.SB
			rec.SA = p.SA
			rec.StrokeEnabled = p.StrokeEnabled
		}
	case entity.KindCircle:
		c := snap.Circle
		j.store.UpsertCircle(id, c.CX, c.CY, c.RX, c.RY, c.Rot, c.SX, c.SY,
			c.R, c.G, c.B, c.A, c.SR, c.SG, c.SB, c.SA, c.StrokeEnabled, c.StrokeWidthPx)
	case entity.KindPolygon:
		p := snap.Polygon
		j.store.UpsertPolygon(id, p.CX, p.CY, p.RX, p.RY, p.Rot, p.SX, p.SY, p.Sides,
			p.R, p.G, p.B, p.A, p.SR, p.SG, p.SB, p.SA, p.StrokeEnabled, p.StrokeWidthPx)
	case entity.KindArrow:
		a := snap.Arrow
		j.store.UpsertArrow(id, a.AX, a.AY, a.BX, a.BY, a.Head,
			a.SR, a.SG, a.SB, a.SA, a.StrokeEnabled, a.StrokeWidthPx)
	case entity.KindText:
		if snap.Text == nil {
			return
		}
		j.store.RegisterText(id)
		j.texts.Restore(snap.Text.Clone())
	default:
		return
	}

	if _, ok := j.store.Lookup(id); !ok {
		return
	}
	if j.store.EntityLayer(id) != snap.LayerID {
		j.store.SetEntityLayer(id, snap.LayerID)
	}
	mask := entity.FlagVisible | entity.FlagLocked
	if j.store.EntityFlags(id) != snap.Flags {
		j.store.SetEntityFlags(id, mask, snap.Flags)
	}
	if snap.Override != nil {
		j.store.SetStyleOverride(id, *snap.Override)
	} else {
		j.store.ClearStyleOverride(id, 0xFF, 0xFF)
	}
}

func layersEqual(a, b []entity.LayerRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func idsEqual(a, b []entity.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
