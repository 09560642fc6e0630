package engine

import (
	"testing"

	"drawcore/internal/entity"
	"drawcore/internal/protocol"
)

func threeRects(t *testing.T) *Engine {
	t.Helper()
	e := New()
	mustApply(t, e, protocol.NewBuilder().
		AppendRect(1, rectPayload(0, 0, 10, 10)).
		AppendRect(2, rectPayload(20, 0, 10, 10)).
		AppendRect(3, rectPayload(40, 0, 10, 10)).
		Finish())
	return e
}

func TestSelectionModes(t *testing.T) {
	e := threeRects(t)

	e.Select([]entity.ID{1, 2}, SelectionReplace)
	if sel := e.Selection(); len(sel) != 2 {
		t.Fatalf("replace: %v", sel)
	}
	e.Select([]entity.ID{3}, SelectionAdd)
	if sel := e.Selection(); len(sel) != 3 {
		t.Fatalf("add: %v", sel)
	}
	e.Select([]entity.ID{2}, SelectionRemove)
	if e.IsSelected(2) {
		t.Fatal("remove left 2 selected")
	}
	e.Select([]entity.ID{2, 3}, SelectionToggle)
	if !e.IsSelected(2) || e.IsSelected(3) {
		t.Fatalf("toggle: %v", e.Selection())
	}
}

func TestSelectionKeepsDrawOrder(t *testing.T) {
	e := threeRects(t)
	e.Select([]entity.ID{3, 1}, SelectionReplace)
	sel := e.Selection()
	if len(sel) != 2 || sel[0] != 1 || sel[1] != 3 {
		t.Fatalf("selection = %v, want draw order [1 3]", sel)
	}
}

func TestSelectIgnoresMissingAndLocked(t *testing.T) {
	e := threeRects(t)
	e.Store().SetEntityFlags(2, entity.FlagLocked, entity.FlagLocked)

	e.Select([]entity.ID{1, 2, 99}, SelectionReplace)
	sel := e.Selection()
	if len(sel) != 1 || sel[0] != 1 {
		t.Fatalf("selection = %v, want [1]", sel)
	}
}

func TestNoopSelectionCreatesNoUndoStep(t *testing.T) {
	e := threeRects(t)
	e.Select([]entity.ID{1}, SelectionReplace)
	depth := e.History().Depth
	if e.Select([]entity.ID{1}, SelectionReplace) {
		t.Fatal("identical selection reported a change")
	}
	if e.History().Depth != depth {
		t.Fatal("no-op selection grew the undo stack")
	}
}

func TestSelectAtReplaceAndMiss(t *testing.T) {
	e := threeRects(t)
	if id := e.SelectAt(5, 5, 1, SelectionReplace); id != 1 {
		t.Fatalf("select at = %d, want 1", id)
	}
	if id := e.SelectAt(500, 500, 1, SelectionReplace); id != 0 {
		t.Fatalf("miss returned %d", id)
	}
	if len(e.Selection()) != 0 {
		t.Fatal("miss with replace must clear the selection")
	}
}

func TestMarqueeWindowVersusCrossing(t *testing.T) {
	e := threeRects(t)

	// Rect 1 fully inside, rect 2 straddling the right boundary.
	if n := e.SelectArea(-5, -5, 25, 15, MarqueeWindow, SelectionReplace); n != 1 {
		t.Fatalf("window hits = %d, want 1", n)
	}
	if sel := e.Selection(); len(sel) != 1 || sel[0] != 1 {
		t.Fatalf("window selection = %v", sel)
	}

	if n := e.SelectArea(-5, -5, 25, 15, MarqueeCrossing, SelectionReplace); n != 2 {
		t.Fatalf("crossing hits = %d, want 2", n)
	}
	if !e.IsSelected(1) || !e.IsSelected(2) {
		t.Fatalf("crossing selection = %v", e.Selection())
	}
}

func TestMarqueeMissClearsOnReplace(t *testing.T) {
	e := threeRects(t)
	e.Select([]entity.ID{1}, SelectionReplace)
	if n := e.SelectArea(200, 200, 300, 300, MarqueeWindow, SelectionReplace); n != 0 {
		t.Fatalf("hits = %d", n)
	}
	if len(e.Selection()) != 0 {
		t.Fatal("selection not cleared")
	}
}

func TestReorderActions(t *testing.T) {
	e := threeRects(t)

	if !e.Reorder(ReorderBringToFront, []entity.ID{1}) {
		t.Fatal("bring to front reported no change")
	}
	if order := e.Store().DrawOrder(); order[2] != 1 {
		t.Fatalf("bring to front: %v", order)
	}

	if !e.Reorder(ReorderSendToBack, []entity.ID{1}) {
		t.Fatal("send to back reported no change")
	}
	if order := e.Store().DrawOrder(); order[0] != 1 {
		t.Fatalf("send to back: %v", order)
	}

	if !e.Reorder(ReorderBringForward, []entity.ID{1}) {
		t.Fatal("bring forward reported no change")
	}
	if order := e.Store().DrawOrder(); order[1] != 1 {
		t.Fatalf("bring forward: %v", order)
	}

	if !e.Reorder(ReorderSendBackward, []entity.ID{1}) {
		t.Fatal("send backward reported no change")
	}
	if order := e.Store().DrawOrder(); order[0] != 1 {
		t.Fatalf("send backward: %v", order)
	}
}

func TestReorderPreservesRelativeOrder(t *testing.T) {
	e := threeRects(t)
	e.Reorder(ReorderBringToFront, []entity.ID{1, 2})
	order := e.Store().DrawOrder()
	if order[0] != 3 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("order = %v, want [3 1 2]", order)
	}
}

func TestReorderAtBoundaryIsNoop(t *testing.T) {
	e := threeRects(t)
	if e.Reorder(ReorderSendBackward, []entity.ID{1}) {
		t.Fatal("send backward at the back reported a change")
	}
	if e.Reorder(ReorderBringForward, []entity.ID{3}) {
		t.Fatal("bring forward at the front reported a change")
	}
	if e.Reorder(ReorderBringToFront, []entity.ID{99}) {
		t.Fatal("reorder of a missing id reported a change")
	}
}

func TestReorderIsUndoable(t *testing.T) {
	e := threeRects(t)
	e.Reorder(ReorderBringToFront, []entity.ID{1})
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	order := e.Store().DrawOrder()
	if order[0] != 1 || order[2] != 3 {
		t.Fatalf("order after undo = %v, want [1 2 3]", order)
	}
}
