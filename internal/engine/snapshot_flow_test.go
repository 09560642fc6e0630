package engine

import (
	"bytes"
	"testing"

	"drawcore/internal/entity"
	"drawcore/internal/protocol"
)

func buildDocument(t *testing.T) *Engine {
	t.Helper()
	e := New()
	mustApply(t, e, protocol.NewBuilder().
		AppendRect(1, rectPayload(0, 0, 10, 10)).
		AppendLine(2, protocol.LinePayload{X0: 0, Y0: 0, X1: 9, Y1: 9, A: 1, Enabled: 1, StrokeWidthPx: 1}).
		AppendPolyline(3, protocol.PolylinePayload{A: 1, Enabled: 1, StrokeWidthPx: 2,
			Points: []protocol.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}}}).
		AppendText(4, protocol.TextPayload{X: 30, Y: 30, Content: []byte("snap"),
			Runs: []protocol.TextRunPayload{{StartIndex: 0, Length: 4, FontSize: 12, ColorRGBA: 0xFF}}}).
		AppendLayerStyle(2, uint32(entity.StyleFill), 0x11223344).
		AppendEntityStyle(uint32(entity.StyleTextColor), 0xFF00FF00, []uint32{4}).
		Finish())
	e.Select([]entity.ID{1, 4}, SelectionReplace)
	return e
}

func TestSnapshotRoundTripPreservesDigest(t *testing.T) {
	src := buildDocument(t)
	digest := src.ComputeDigest()
	data := src.SaveSnapshot()
	if src.SnapshotDirty() {
		t.Fatal("save must clear the dirty flag")
	}

	dst := New()
	if err := dst.LoadSnapshot(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := dst.ComputeDigest(); got != digest {
		t.Fatalf("digest mismatch: %+v vs %+v", got, digest)
	}
	if dst.NextID() != src.NextID() {
		t.Fatalf("next id = %d, want %d", dst.NextID(), src.NextID())
	}
	sel := dst.Selection()
	if len(sel) != 2 || sel[0] != 1 || sel[1] != 4 {
		t.Fatalf("selection = %v, want [1 4]", sel)
	}
	if got := dst.Texts().Get(4); got == nil || !bytes.Equal(got.Content, []byte("snap")) {
		t.Fatal("text content lost")
	}
	if id := dst.PickAt(5, 5, 1); id == 0 {
		t.Fatal("pick index not rebuilt after load")
	}
}

func TestSnapshotCarriesHistory(t *testing.T) {
	src := buildDocument(t)
	mustApply(t, src, protocol.NewBuilder().AppendRect(1, rectPayload(40, 40, 5, 5)).Finish())

	dst := New()
	if err := dst.LoadSnapshot(src.SaveSnapshot()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !dst.CanUndo() {
		t.Fatal("undo stack not carried by the snapshot")
	}
	if !dst.Undo() {
		t.Fatal("undo after load failed")
	}
	if r := dst.Store().GetRect(1); r == nil || r.X != 0 {
		t.Fatalf("undo after load restored %+v", r)
	}
}

func TestUndoAfterLoadRemeasuresText(t *testing.T) {
	src := New()
	mustApply(t, src, protocol.NewBuilder().
		AppendText(1, protocol.TextPayload{X: 30, Y: 30, Content: []byte("snap"),
			Runs: []protocol.TextRunPayload{{StartIndex: 0, Length: 4, FontSize: 12, ColorRGBA: 0xFF}}}).
		Finish())
	mustApply(t, src, protocol.NewBuilder().
		AppendText(1, protocol.TextPayload{X: 200, Y: 200, Content: []byte("moved"),
			Runs: []protocol.TextRunPayload{{StartIndex: 0, Length: 5, FontSize: 12, ColorRGBA: 0xFF}}}).
		Finish())

	dst := New()
	if err := dst.LoadSnapshot(src.SaveSnapshot()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !dst.Undo() {
		t.Fatal("undo after load failed")
	}

	rec := dst.Texts().Get(1)
	if rec == nil {
		t.Fatal("text missing after undo")
	}
	if rec.MaxX <= rec.MinX || rec.MaxY <= rec.MinY {
		t.Fatalf("degenerate bounds after undo: min(%v,%v) max(%v,%v)",
			rec.MinX, rec.MinY, rec.MaxX, rec.MaxY)
	}
	if id := dst.PickAt(float64(rec.MinX)+1, float64(rec.MinY)+1, 1); id != 1 {
		t.Fatalf("pick after undo = %d, want 1", id)
	}
	// The next save must persist the measured bounds, not zeroes.
	reload := New()
	if err := reload.LoadSnapshot(dst.SaveSnapshot()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reload.Texts().Get(1)
	if got == nil || got.MaxX <= got.MinX {
		t.Fatal("re-saved snapshot lost text bounds")
	}
}

func TestLoadSnapshotRejectsGarbageAndKeepsDocument(t *testing.T) {
	e := buildDocument(t)
	digest := e.ComputeDigest()

	if err := e.LoadSnapshot([]byte("not a snapshot at all")); err == nil {
		t.Fatal("garbage load succeeded")
	}
	if got := e.ComputeDigest(); got != digest {
		t.Fatal("failed load must not touch the document")
	}
}

func TestLoadSnapshotReplacesCurrentContent(t *testing.T) {
	data := buildDocument(t).SaveSnapshot()

	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendRect(77, rectPayload(1, 1, 1, 1)).Finish())
	if err := e.LoadSnapshot(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.Store().KindOf(77) != entity.KindNone {
		t.Fatal("stale entity survived the load")
	}
	if e.Store().KindOf(1) != entity.KindRect {
		t.Fatal("loaded entity missing")
	}
}

func TestPolylinePointsSurviveRoundTrip(t *testing.T) {
	src := buildDocument(t)
	dst := New()
	if err := dst.LoadSnapshot(src.SaveSnapshot()); err != nil {
		t.Fatalf("load: %v", err)
	}
	rec := dst.Store().GetPolyline(3)
	if rec == nil {
		t.Fatal("polyline missing")
	}
	pts := dst.Store().PolylinePoints(rec)
	if len(pts) != 3 || pts[1].X != 5 || pts[1].Y != 5 {
		t.Fatalf("points = %v", pts)
	}
}
