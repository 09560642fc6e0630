package engine

import "drawcore/internal/entity"

// LayerPropMask selects which layer properties SetLayerProps writes.
type LayerPropMask uint32

const (
	LayerPropName    LayerPropMask = 1 << 0
	LayerPropVisible LayerPropMask = 1 << 1
	LayerPropLocked  LayerPropMask = 1 << 2
)

// SetLayerProps writes the masked properties of a layer, creating the layer
// when absent. Flag bits are taken from flags (entity.FlagVisible,
// entity.FlagLocked) only where the mask selects them. The edit is one undo
// step. Selected entities that stop being pickable leave the selection.
func (e *Engine) SetLayerProps(layerID entity.ID, mask LayerPropMask, flags uint32, name string) bool {
	if layerID == 0 || mask == 0 {
		return false
	}
	started := e.journal.Begin(e.nextID)
	e.journal.MarkLayers()
	e.store.Layers.EnsureLayer(layerID)
	if mask&LayerPropName != 0 {
		e.store.Layers.SetName(layerID, name)
	}
	var flagMask uint32
	if mask&LayerPropVisible != 0 {
		flagMask |= entity.FlagVisible
	}
	if mask&LayerPropLocked != 0 {
		flagMask |= entity.FlagLocked
	}
	if flagMask != 0 {
		e.store.Layers.SetFlags(layerID, flagMask, flags)
		e.dropUnpickableSelection()
	}
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventLayerChanged, A: layerID})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	return true
}

// DeleteLayer removes a layer. The default layer cannot be deleted; entities
// still carrying the deleted id fall back to the default layer's flags and
// style. Returns false when the layer does not exist.
func (e *Engine) DeleteLayer(layerID entity.ID) bool {
	if !e.store.Layers.Has(layerID) || layerID == entity.DefaultLayerID {
		return false
	}
	started := e.journal.Begin(e.nextID)
	e.journal.MarkLayers()
	e.store.Layers.DeleteLayer(layerID)
	e.dropUnpickableSelection()
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventLayerChanged, A: layerID})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	return true
}

// SetEntityFlags applies value under mask to one entity's flags word as one
// undo step. A locked or hidden entity leaves the selection.
func (e *Engine) SetEntityFlags(id entity.ID, mask, value uint32) bool {
	if e.store.KindOf(id) == entity.KindNone || mask == 0 {
		return false
	}
	started := e.journal.Begin(e.nextID)
	e.journal.MarkEntity(id)
	e.store.SetEntityFlags(id, mask, value)
	e.dropUnpickableSelection()
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeFlags, A: id})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	return true
}

// SetEntityLayer moves one entity onto a layer, creating the layer when
// absent. One undo step.
func (e *Engine) SetEntityLayer(id, layerID entity.ID) bool {
	if e.store.KindOf(id) == entity.KindNone || layerID == 0 {
		return false
	}
	if e.store.EntityLayer(id) == layerID {
		return false
	}
	started := e.journal.Begin(e.nextID)
	e.journal.MarkEntity(id)
	e.journal.MarkLayers()
	e.store.Layers.EnsureLayer(layerID)
	e.store.SetEntityLayer(id, layerID)
	e.dropUnpickableSelection()
	if started {
		e.journal.Commit(e.nextID, e.generation+1, e.selection)
		e.pushHistoryEvent()
	}
	e.generation++
	e.snapshotDirty = true
	e.renderDirty = true
	e.queue.push(Event{Type: EventEntityChanged, Flags: ChangeLayer, A: id})
	e.queue.push(Event{Type: EventDocChanged, A: e.generation})
	return true
}

// dropUnpickableSelection removes selected ids that are no longer pickable.
// Runs inside an open journal transaction so the change is undoable.
func (e *Engine) dropUnpickableSelection() {
	kept := make([]entity.ID, 0, len(e.selection))
	for _, id := range e.selection {
		if e.store.IsPickable(id) {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(e.selection) {
		return
	}
	e.journal.MarkSelection(e.selection)
	e.selection = kept
	e.rebuildSelectionSet()
	e.queue.push(Event{Type: EventSelectionChanged, A: uint32(len(e.selection))})
}
