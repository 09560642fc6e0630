package engine

import "drawcore/internal/entity"

// ReorderAction names a z-order move applied to a set of entities.
type ReorderAction uint8

const (
	ReorderBringToFront ReorderAction = 1
	ReorderSendToBack   ReorderAction = 2
	ReorderBringForward ReorderAction = 3
	ReorderSendBackward ReorderAction = 4
)

// Reorder moves ids within the draw order, preserving their relative order.
// Index 0 paints first, so the end of the order is the visual front. The
// move is one undo step; reports whether the order changed.
func (e *Engine) Reorder(action ReorderAction, ids []entity.ID) bool {
	member := make(map[entity.ID]struct{}, len(ids))
	for _, id := range ids {
		if e.store.KindOf(id) != entity.KindNone {
			member[id] = struct{}{}
		}
	}
	if len(member) == 0 {
		return false
	}

	order := e.store.DrawOrder()
	next := make([]entity.ID, len(order))
	copy(next, order)

	switch action {
	case ReorderBringToFront:
		next = partitionOrder(next, member, false)
	case ReorderSendToBack:
		next = partitionOrder(next, member, true)
	case ReorderBringForward:
		for i := len(next) - 2; i >= 0; i-- {
			if inSet(member, next[i]) && !inSet(member, next[i+1]) {
				next[i], next[i+1] = next[i+1], next[i]
			}
		}
	case ReorderSendBackward:
		for i := 1; i < len(next); i++ {
			if inSet(member, next[i]) && !inSet(member, next[i-1]) {
				next[i-1], next[i] = next[i], next[i-1]
			}
		}
	default:
		return false
	}

	if sameIDs(order, next) {
		return false
	}

	started := e.journal.Begin(e.nextID)
	e.journal.MarkOrder()
	e.store.SetDrawOrder(next)
	e.picker.SetDrawOrder(next)
	if len(e.selection) > 0 {
		e.rebuildSelectionOrder()
	}
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventOrderChanged})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	return true
}

// partitionOrder stably splits the order into members and the rest; members
// go to the front of the paint order (end of slice) or the back.
func partitionOrder(order []entity.ID, member map[entity.ID]struct{}, toBack bool) []entity.ID {
	rest := make([]entity.ID, 0, len(order))
	moved := make([]entity.ID, 0, len(member))
	for _, id := range order {
		if inSet(member, id) {
			moved = append(moved, id)
		} else {
			rest = append(rest, id)
		}
	}
	if toBack {
		return append(moved, rest...)
	}
	return append(rest, moved...)
}

func inSet(set map[entity.ID]struct{}, id entity.ID) bool {
	_, ok := set[id]
	return ok
}
