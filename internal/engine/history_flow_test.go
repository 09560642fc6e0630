package engine

import (
	"testing"

	"drawcore/internal/entity"
	"drawcore/internal/protocol"
)

func TestUndoRedoEntityLifecycle(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendRect(1, rectPayload(0, 0, 10, 10)).Finish())
	mustApply(t, e, protocol.NewBuilder().AppendRect(1, rectPayload(50, 50, 10, 10)).Finish())

	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if r := e.Store().GetRect(1); r == nil || r.X != 0 {
		t.Fatalf("undo did not restore geometry: %+v", r)
	}
	if id := e.PickAt(55, 55, 1); id != 0 {
		t.Fatal("pick index not resynced after undo")
	}
	if id := e.PickAt(5, 5, 1); id != 1 {
		t.Fatal("pick index lost the restored position")
	}

	if !e.Undo() {
		t.Fatal("second undo failed")
	}
	if e.Store().KindOf(1) != entity.KindNone {
		t.Fatal("undo of the creation left the entity")
	}
	if e.Undo() {
		t.Fatal("undo past the beginning succeeded")
	}

	if !e.Redo() || !e.Redo() {
		t.Fatal("redo failed")
	}
	if r := e.Store().GetRect(1); r == nil || r.X != 50 {
		t.Fatalf("redo did not reapply: %+v", r)
	}
	if e.Redo() {
		t.Fatal("redo past the end succeeded")
	}
}

func TestUndoBumpsGeneration(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendRect(1, rectPayload(0, 0, 1, 1)).Finish())
	gen := e.Generation()
	e.Undo()
	if e.Generation() <= gen {
		t.Fatal("undo must advance the generation")
	}
	if !e.SnapshotDirty() {
		t.Fatal("undo must dirty the snapshot")
	}
}

func TestNewMutationTruncatesRedo(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendRect(1, rectPayload(0, 0, 1, 1)).Finish())
	mustApply(t, e, protocol.NewBuilder().AppendRect(2, rectPayload(5, 0, 1, 1)).Finish())
	e.Undo()
	if !e.CanRedo() {
		t.Fatal("redo should be available")
	}
	mustApply(t, e, protocol.NewBuilder().AppendRect(3, rectPayload(9, 0, 1, 1)).Finish())
	if e.CanRedo() {
		t.Fatal("mutation must truncate the redo tail")
	}
}

func TestUndoRestoresSelectionAndOrder(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().
		AppendRect(1, rectPayload(0, 0, 10, 10)).
		AppendRect(2, rectPayload(20, 0, 10, 10)).
		Finish())
	e.Select([]entity.ID{1}, SelectionReplace)
	mustApply(t, e, protocol.NewBuilder().AppendDrawOrder([]uint32{2, 1}).Finish())

	e.Undo() // order
	order := e.Store().DrawOrder()
	if order[0] != 1 || order[1] != 2 {
		t.Fatalf("order after undo = %v, want [1 2]", order)
	}

	e.Undo() // selection
	if len(e.Selection()) != 0 {
		t.Fatalf("selection after undo = %v, want empty", e.Selection())
	}
	e.Redo()
	sel := e.Selection()
	if len(sel) != 1 || sel[0] != 1 {
		t.Fatalf("selection after redo = %v, want [1]", sel)
	}
}

func TestUndoRestoresNextID(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendRect(10, rectPayload(0, 0, 1, 1)).Finish())
	if e.NextID() != 11 {
		t.Fatalf("next id = %d, want 11", e.NextID())
	}
	e.Undo()
	if e.NextID() != 1 {
		t.Fatalf("next id after undo = %d, want 1", e.NextID())
	}
	e.Redo()
	if e.NextID() != 11 {
		t.Fatalf("next id after redo = %d, want 11", e.NextID())
	}
}

func TestUndoClearAllRestoresEverything(t *testing.T) {
	e := New()
	mustApply(t, e, protocol.NewBuilder().
		AppendRect(1, rectPayload(0, 0, 10, 10)).
		AppendText(2, protocol.TextPayload{X: 5, Y: 5, Content: []byte("keep"),
			Runs: []protocol.TextRunPayload{{StartIndex: 0, Length: 4, FontSize: 12}}}).
		AppendLayerStyle(3, uint32(entity.StyleStroke), 0xAABBCCFF).
		Finish())
	e.Select([]entity.ID{1}, SelectionReplace)
	digest := e.ComputeDigest()

	mustApply(t, e, protocol.NewBuilder().AppendClearAll().Finish())
	if e.Store().Len() != 0 {
		t.Fatal("clear all incomplete")
	}

	if !e.Undo() {
		t.Fatal("undo of clear all failed")
	}
	if e.Store().KindOf(1) != entity.KindRect || e.Store().KindOf(2) != entity.KindText {
		t.Fatal("entities not restored")
	}
	if e.Texts().Get(2) == nil {
		t.Fatal("text record not restored")
	}
	if layer := e.Store().Layers.Get(3); layer == nil {
		t.Fatal("layer not restored")
	}
	sel := e.Selection()
	if len(sel) != 1 || sel[0] != 1 {
		t.Fatalf("selection not restored: %v", sel)
	}
	if got := e.ComputeDigest(); got != digest {
		t.Fatalf("digest after undo = %+v, want %+v", got, digest)
	}
}
