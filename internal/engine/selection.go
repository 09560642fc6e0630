package engine

import (
	"drawcore/internal/entity"
	"drawcore/internal/geom"
	"drawcore/internal/pick"
)

// SelectionMode controls how a selection edit combines with the current set.
type SelectionMode uint8

const (
	SelectionReplace SelectionMode = iota
	SelectionAdd
	SelectionRemove
	SelectionToggle
)

// MarqueeMode controls area selection: Window takes entities fully inside
// the rectangle, Crossing takes everything the rectangle touches.
type MarqueeMode uint8

const (
	MarqueeWindow MarqueeMode = iota
	MarqueeCrossing
)

// Selection returns the selected ids in draw order. The slice is a copy.
func (e *Engine) Selection() []entity.ID {
	return append([]entity.ID(nil), e.selection...)
}

// IsSelected reports whether the id is in the selection.
func (e *Engine) IsSelected(id entity.ID) bool { return e.isSelected(id) }

func (e *Engine) isSelected(id entity.ID) bool {
	_, ok := e.selectionSet[id]
	return ok
}

// Select applies ids to the selection under mode. Ids that do not exist or
// are not pickable (hidden or locked, directly or via their layer) are
// ignored. The edit is one undo step; a no-op edit is dropped.
func (e *Engine) Select(ids []entity.ID, mode SelectionMode) bool {
	eligible := make([]entity.ID, 0, len(ids))
	for _, id := range ids {
		if e.store.KindOf(id) == entity.KindNone {
			continue
		}
		if !e.store.IsPickable(id) {
			continue
		}
		eligible = append(eligible, id)
	}

	next := make(map[entity.ID]struct{}, len(e.selection)+len(eligible))
	if mode != SelectionReplace {
		for _, id := range e.selection {
			next[id] = struct{}{}
		}
	}
	switch mode {
	case SelectionReplace, SelectionAdd:
		for _, id := range eligible {
			next[id] = struct{}{}
		}
	case SelectionRemove:
		for _, id := range eligible {
			delete(next, id)
		}
	case SelectionToggle:
		for _, id := range eligible {
			if _, ok := next[id]; ok {
				delete(next, id)
			} else {
				next[id] = struct{}{}
			}
		}
	}

	ordered := e.inDrawOrder(next)
	if sameIDs(e.selection, ordered) {
		return false
	}
	e.commitSelection(ordered)
	return true
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection() bool {
	if len(e.selection) == 0 {
		return false
	}
	e.commitSelection(nil)
	return true
}

// SelectAt picks at a world point and applies the hit under mode. A miss
// with SelectionReplace clears the selection. Returns the hit id.
func (e *Engine) SelectAt(x, y, tolerance float64, mode SelectionMode) entity.ID {
	id := e.PickAt(x, y, tolerance)
	if id == 0 {
		if mode == SelectionReplace {
			e.ClearSelection()
		}
		return 0
	}
	e.Select([]entity.ID{id}, mode)
	return id
}

// SelectArea runs a marquee selection over the world rectangle and applies
// the result under mode. Returns the number of entities that matched.
func (e *Engine) SelectArea(x0, y0, x1, y1 float64, marquee MarqueeMode, mode SelectionMode) int {
	area := geom.NewAABB(x0, y0, x1, y1)
	var hits []entity.ID
	for _, id := range e.picker.QueryArea(area) {
		if !e.store.IsPickable(id) {
			continue
		}
		bounds, ok := pick.EntityAABB(e.store, e.texts, id)
		if !ok {
			continue
		}
		switch marquee {
		case MarqueeWindow:
			if area.ContainsAABB(bounds) {
				hits = append(hits, id)
			}
		case MarqueeCrossing:
			if area.Intersects(bounds) {
				hits = append(hits, id)
			}
		}
	}
	if len(hits) == 0 && mode == SelectionReplace {
		e.ClearSelection()
		return 0
	}
	e.Select(hits, mode)
	return len(hits)
}

// commitSelection installs the new ordered selection as an undo step and
// bumps the generation: selection is document state and part of snapshots.
func (e *Engine) commitSelection(next []entity.ID) {
	started := e.journal.Begin(e.nextID)
	e.journal.MarkSelection(e.selection)
	e.selection = next
	e.rebuildSelectionSet()
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventSelectionChanged, A: uint32(len(e.selection))})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
}

func (e *Engine) rebuildSelectionSet() {
	clear(e.selectionSet)
	for _, id := range e.selection {
		e.selectionSet[id] = struct{}{}
	}
}

func (e *Engine) removeFromSelection(id entity.ID) {
	out := e.selection[:0]
	for _, sel := range e.selection {
		if sel != id {
			out = append(out, sel)
		}
	}
	e.selection = out
	delete(e.selectionSet, id)
}

// pruneSelection drops ids that no longer exist, after undo/redo replay.
func (e *Engine) pruneSelection() {
	out := e.selection[:0]
	for _, id := range e.selection {
		if e.store.KindOf(id) != entity.KindNone {
			out = append(out, id)
		}
	}
	changed := len(out) != len(e.selection)
	e.selection = out
	if changed {
		e.rebuildSelectionSet()
		e.queue.push(Event{Type: EventSelectionChanged, A: uint32(len(e.selection))})
	}
}

// rebuildSelectionOrder reorders the selection to match the draw order.
func (e *Engine) rebuildSelectionOrder() {
	e.selection = e.inDrawOrder(e.selectionSet)
}

func (e *Engine) inDrawOrder(set map[entity.ID]struct{}) []entity.ID {
	if len(set) == 0 {
		return nil
	}
	ordered := make([]entity.ID, 0, len(set))
	for _, id := range e.store.DrawOrder() {
		if _, ok := set[id]; ok {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func sameIDs(a, b []entity.ID) bool {
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
