// Package engine is the document core: it owns the entity store, the text
// store, the history journal, the pick index and the event queue, and keeps
// them consistent across command buffers, selection edits, undo/redo and
// snapshot load. All mutation funnels through it; the packages below it
// never call each other.
package engine

import (
	"fmt"

	"drawcore/internal/entity"
	"drawcore/internal/history"
	"drawcore/internal/pick"
	"drawcore/internal/snapshot"
)

// Viewport is the host view transform last pushed through a command buffer.
// It is ephemeral state: not journaled and not part of snapshots.
type Viewport struct {
	Scale         float32
	X, Y          float32
	Width, Height float32
}

// HistoryMeta summarizes the undo stack for the host UI.
type HistoryMeta struct {
	Depth      uint32
	Cursor     uint32
	Generation uint32
}

// Stats is a cheap point-in-time census of the document.
type Stats struct {
	Generation    uint32
	RectCount     uint32
	LineCount     uint32
	PolylineCount uint32
	PointCount    uint32
	CircleCount   uint32
	PolygonCount  uint32
	ArrowCount    uint32
	TextCount     uint32
	LayerCount    uint32
	SelectionSize uint32
	HistoryDepth  uint32
	HistoryCursor uint32
}

// Engine is a single drawing document. It is not safe for concurrent use;
// callers serialize access (the service layer holds a mutex).
type Engine struct {
	store   *entity.Store
	texts   *entity.TextStore
	journal *history.Journal
	picker  *pick.System
	measure TextMeasurer
	queue   eventQueue

	selection    []entity.ID
	selectionSet map[entity.ID]struct{}

	nextID     uint32
	generation uint32

	view Viewport

	snapshotDirty bool
	renderDirty   bool
	docChanged    bool
}

// New returns an empty document with the default layer in place.
func New() *Engine {
	store := entity.NewStore()
	texts := entity.NewTextStore()
	e := &Engine{
		store:        store,
		texts:        texts,
		journal:      history.NewJournal(store, texts),
		picker:       pick.NewSystem(),
		measure:      ApproxMeasurer{},
		selectionSet: make(map[entity.ID]struct{}),
		nextID:       1,
		view:         Viewport{Scale: 1},
	}
	store.Layers.EnsureLayer(entity.DefaultLayerID)
	return e
}

// SetTextMeasurer installs the host's text shaper. Passing nil restores the
// built-in approximation.
func (e *Engine) SetTextMeasurer(m TextMeasurer) {
	if m == nil {
		m = ApproxMeasurer{}
	}
	e.measure = m
}

// Store exposes the entity tables for read access.
func (e *Engine) Store() *entity.Store { return e.store }

// Texts exposes the text records for read access.
func (e *Engine) Texts() *entity.TextStore { return e.texts }

// Generation increments on every document mutation, including undo/redo.
func (e *Engine) Generation() uint32 { return e.generation }

// View returns the last viewport pushed by the host.
func (e *Engine) View() Viewport { return e.view }

// NextID returns the next unused entity id. Ids are allocated by the host
// in command buffers; the engine only tracks the high-water mark.
func (e *Engine) NextID() uint32 { return e.nextID }

// SnapshotDirty reports whether the document changed since the last
// SaveSnapshot.
func (e *Engine) SnapshotDirty() bool { return e.snapshotDirty }

// RenderDirty reports and clears the render-invalidation flag.
func (e *Engine) RenderDirty() bool {
	d := e.renderDirty
	e.renderDirty = false
	return d
}

// PollEvents drains the queued notifications.
func (e *Engine) PollEvents() []Event { return e.queue.drain() }

// CanUndo reports whether an undo step is available.
func (e *Engine) CanUndo() bool { return e.journal.CanUndo() }

// CanRedo reports whether a redo step is available.
func (e *Engine) CanRedo() bool { return e.journal.CanRedo() }

// History returns the undo stack summary.
func (e *Engine) History() HistoryMeta {
	return HistoryMeta{
		Depth:      uint32(e.journal.Len()),
		Cursor:     uint32(e.journal.Cursor()),
		Generation: e.journal.Generation(),
	}
}

// Stats returns the document census.
func (e *Engine) Stats() Stats {
	return Stats{
		Generation:    e.generation,
		RectCount:     uint32(len(e.store.Rects)),
		LineCount:     uint32(len(e.store.Lines)),
		PolylineCount: uint32(len(e.store.Polylines)),
		PointCount:    uint32(len(e.store.Points)),
		CircleCount:   uint32(len(e.store.Circles)),
		PolygonCount:  uint32(len(e.store.Polygons)),
		ArrowCount:    uint32(len(e.store.Arrows)),
		TextCount:     uint32(e.texts.Len()),
		LayerCount:    uint32(len(e.store.Layers.Order())),
		SelectionSize: uint32(len(e.selection)),
		HistoryDepth:  uint32(e.journal.Len()),
		HistoryCursor: uint32(e.journal.Cursor()),
	}
}

// PickAt resolves the topmost entity at a world point.
func (e *Engine) PickAt(x, y, tolerance float64) entity.ID {
	return e.picker.Pick(x, y, tolerance, float64(e.view.Scale), e.store, e.texts)
}

// PickAtEx resolves the best sub-target at a world point under a mask.
func (e *Engine) PickAtEx(x, y, tolerance float64, mask uint32) pick.Result {
	return e.picker.PickEx(x, y, tolerance, float64(e.view.Scale), mask, e.store, e.texts)
}

// Undo rolls the document back one committed step.
func (e *Engine) Undo() bool {
	report, ok := e.journal.Undo()
	if !ok {
		return false
	}
	e.applyHistory(report)
	return true
}

// Redo replays the step most recently undone.
func (e *Engine) Redo() bool {
	report, ok := e.journal.Redo()
	if !ok {
		return false
	}
	e.applyHistory(report)
	return true
}

func (e *Engine) applyHistory(r history.ApplyReport) {
	e.nextID = r.NextID
	for _, id := range r.Entities {
		// Journal records restored from a snapshot carry no layout bounds,
		// so text entities are re-measured before the pick index syncs.
		if rec := e.texts.Get(id); rec != nil {
			e.layoutText(rec)
		}
		e.picker.Sync(e.store, e.texts, id)
		e.queue.push(Event{Type: EventEntityChanged, Flags: changeAll, A: id})
	}
	e.picker.SetDrawOrder(e.store.DrawOrder())
	if r.LayerChanged {
		e.queue.push(Event{Type: EventLayerChanged})
	}
	if r.OrderChanged {
		e.queue.push(Event{Type: EventOrderChanged})
	}
	if r.SelectionChanged {
		e.selection = append(e.selection[:0], r.Selection...)
		e.rebuildSelectionSet()
		e.queue.push(Event{Type: EventSelectionChanged, A: uint32(len(e.selection))})
	}
	e.pruneSelection()
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.pushHistoryEvent()
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
}

func (e *Engine) pushHistoryEvent() {
	m := e.History()
	e.queue.push(Event{Type: EventHistoryChanged, A: m.Depth, B: m.Cursor, C: m.Generation})
}

// SaveSnapshot serializes the full document, including the undo journal,
// and clears the snapshot-dirty flag.
func (e *Engine) SaveSnapshot() []byte {
	var hist []byte
	if e.journal.Len() > 0 {
		hist = e.journal.EncodeBytes()
	}
	doc := snapshot.Capture(e.store, e.texts, e.selection, e.nextID, hist)
	e.snapshotDirty = false
	return snapshot.Encode(doc)
}

// LoadSnapshot replaces the document with the serialized state. The current
// document is untouched when decoding fails.
func (e *Engine) LoadSnapshot(data []byte) error {
	doc, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	if len(doc.History) > 0 {
		if _, _, err := history.DecodeEntries(doc.History); err != nil {
			return fmt.Errorf("snapshot history: %w", err)
		}
	}

	doc.Restore(e.store, e.texts)
	e.journal.Clear()
	if len(doc.History) > 0 {
		// Validated above, cannot fail now.
		_ = e.journal.DecodeBytes(doc.History)
	}
	e.nextID = doc.NextID
	if e.nextID == 0 {
		e.nextID = 1
	}
	e.selection = e.selection[:0]
	for _, id := range doc.Selection {
		if e.store.KindOf(id) != entity.KindNone {
			e.selection = append(e.selection, id)
		}
	}
	e.rebuildSelectionSet()
	e.rebuildPickIndex()
	e.generation++
	e.snapshotDirty = false
	e.renderDirty = true
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	e.pushHistoryEvent()
	return nil
}

func (e *Engine) rebuildPickIndex() {
	e.picker.Clear()
	for _, id := range e.store.IDs() {
		e.picker.Sync(e.store, e.texts, id)
	}
	e.picker.SetDrawOrder(e.store.DrawOrder())
}

func (e *Engine) noteID(id entity.ID) {
	if id >= e.nextID {
		e.nextID = id + 1
	}
}
