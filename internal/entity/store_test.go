package entity

import (
	"testing"
)

func TestUpsertAppendsDrawOrderOnce(t *testing.T) {
	s := NewStore()
	s.UpsertRect(1, 0, 0, 10, 10, 1, 0, 0, 1, 0, 0, 0, 1, 1, 2)
	s.UpsertRect(1, 5, 5, 10, 10, 1, 0, 0, 1, 0, 0, 0, 1, 1, 2)
	if got := len(s.DrawOrder()); got != 1 {
		t.Fatalf("draw order length %d, want 1", got)
	}
	rec := s.GetRect(1)
	if rec == nil || rec.X != 5 {
		t.Fatalf("same-kind upsert should mutate in place, got %+v", rec)
	}
}

func TestDeleteSwapRemoveKeepsSurvivorResolvable(t *testing.T) {
	s := NewStore()
	for id := ID(1); id <= 3; id++ {
		s.UpsertRect(id, float32(id), 0, 10, 10, 0, 0, 0, 1, 0, 0, 0, 1, 0, 1)
	}
	// Deleting the first slot moves the last record into it.
	s.DeleteEntity(1)
	if got := len(s.Rects); got != 2 {
		t.Fatalf("rect vector length %d, want 2", got)
	}
	for id := ID(2); id <= 3; id++ {
		rec := s.GetRect(id)
		if rec == nil {
			t.Fatalf("entity %d lost after swap-remove", id)
		}
		if rec.X != float32(id) {
			t.Fatalf("entity %d resolved to wrong record (x=%v)", id, rec.X)
		}
	}
	if s.GetRect(1) != nil {
		t.Fatalf("deleted entity still resolvable")
	}
}

func TestKindChangeUpsertFreesOldSlot(t *testing.T) {
	s := NewStore()
	s.UpsertRect(1, 0, 0, 10, 10, 0, 0, 0, 1, 0, 0, 0, 1, 0, 1)
	s.UpsertRect(2, 1, 0, 10, 10, 0, 0, 0, 1, 0, 0, 0, 1, 0, 1)
	s.UpsertCircle(1, 5, 5, 3, 3, 0, 1, 1, 1, 0, 0, 1, 0, 0, 0, 1, 1, 2)

	if s.KindOf(1) != KindCircle {
		t.Fatalf("entity 1 kind %v, want circle", s.KindOf(1))
	}
	if len(s.Rects) != 1 || len(s.Circles) != 1 {
		t.Fatalf("slot counts rects=%d circles=%d, want 1/1", len(s.Rects), len(s.Circles))
	}
	// Entity 2 was swapped into slot 0 and must still resolve.
	rec := s.GetRect(2)
	if rec == nil || rec.X != 1 {
		t.Fatalf("swapped rect not re-findable, got %+v", rec)
	}
}

func TestDeleteUnknownIsNoOp(t *testing.T) {
	s := NewStore()
	s.DeleteEntity(42)
	if s.Len() != 0 {
		t.Fatalf("store should stay empty")
	}
}

func TestEntityMetadataDefaults(t *testing.T) {
	s := NewStore()
	s.UpsertLine(7, 0, 0, 1, 1, 0, 0, 0, 1, 1, 1)
	if s.EntityLayer(7) != DefaultLayerID {
		t.Fatalf("new entity should sit on the default layer")
	}
	if s.EntityFlags(7) != FlagVisible {
		t.Fatalf("new entity flags %#x, want visible", s.EntityFlags(7))
	}
	if !s.IsPickable(7) {
		t.Fatalf("visible unlocked entity should be pickable")
	}
	s.SetEntityFlags(7, FlagLocked, FlagLocked)
	if s.IsPickable(7) {
		t.Fatalf("locked entity should not be pickable")
	}
}

func TestLayerVisibilityGatesEntities(t *testing.T) {
	s := NewStore()
	s.UpsertRect(1, 0, 0, 1, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 1)
	s.Layers.EnsureLayer(5)
	s.SetEntityLayer(1, 5)
	s.Layers.SetFlags(5, FlagVisible, 0)
	if s.IsVisible(1) {
		t.Fatalf("entity on hidden layer should be invisible")
	}
}

func TestDefaultLayerUndeletable(t *testing.T) {
	ls := NewLayerStore()
	if ls.DeleteLayer(DefaultLayerID) {
		t.Fatalf("default layer must not be deletable")
	}
	ls.EnsureLayer(2)
	ls.EnsureLayer(3)
	if !ls.DeleteLayer(2) {
		t.Fatalf("layer 2 should delete")
	}
	if got := ls.Get(3).Order; got != 1 {
		t.Fatalf("layer 3 order %d after delete, want 1", got)
	}
	// Unknown layers fall back to the default record.
	if ls.Get(99).ID != DefaultLayerID {
		t.Fatalf("unknown layer should fall back to default")
	}
}

func TestResolveStylePullsLiveGeometryColors(t *testing.T) {
	s := NewStore()
	s.UpsertRect(1, 0, 0, 1, 1, 0.5, 0.25, 0, 1, 0.9, 0.8, 0.7, 1, 0, 3)
	s.SetStyleOverride(1, StyleOverride{
		ColorMask:   StyleTargetMask(StyleFill) | StyleTargetMask(StyleStroke),
		EnabledMask: StyleTargetMask(StyleStroke),
	})
	resolved := s.ResolveStyle(1, KindRect)
	if resolved.Fill.Color != (StyleColor{0.5, 0.25, 0, 1}) {
		t.Fatalf("fill color %+v should come from the rect record", resolved.Fill.Color)
	}
	if resolved.Stroke.Color != (StyleColor{0.9, 0.8, 0.7, 1}) {
		t.Fatalf("stroke color %+v should come from the rect record", resolved.Stroke.Color)
	}
	if resolved.Stroke.Enabled {
		t.Fatalf("stroke enabled should mirror the record's disabled stroke")
	}
}

func TestResolveStyleIgnoresNonCapableBits(t *testing.T) {
	s := NewStore()
	s.UpsertLine(1, 0, 0, 1, 1, 0.1, 0.2, 0.3, 1, 1, 1)
	s.SetStyleOverride(1, StyleOverride{
		ColorMask: StyleTargetMask(StyleFill), // lines have no fill channel
	})
	resolved := s.ResolveStyle(1, KindLine)
	def := defaultLayerStyle()
	if resolved.Fill != def.Fill {
		t.Fatalf("fill override on a line must be inert")
	}
}

func TestClearStyleOverrideDropsEmptyRecords(t *testing.T) {
	s := NewStore()
	s.UpsertRect(1, 0, 0, 1, 1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1)
	s.SetStyleOverride(1, StyleOverride{ColorMask: StyleTargetMask(StyleFill)})
	s.ClearStyleOverride(1, StyleTargetMask(StyleFill), 0)
	if s.StyleOverrideFor(1) != nil {
		t.Fatalf("empty override record should be removed")
	}
}

func TestCompactPolylinePoints(t *testing.T) {
	s := NewStore()
	off1, n1 := s.AppendPoints([]Point2{{0, 0}, {1, 1}, {2, 2}})
	s.UpsertPolyline(1, off1, n1, 0, 0, 0, 1, 1, 1)
	off2, n2 := s.AppendPoints([]Point2{{5, 5}, {6, 6}})
	s.UpsertPolyline(2, off2, n2, 0, 0, 0, 1, 1, 1)
	s.DeleteEntity(1)

	s.CompactPolylinePoints()
	if len(s.Points) != 2 {
		t.Fatalf("pool length %d after compaction, want 2", len(s.Points))
	}
	pts := s.PolylinePoints(s.GetPolyline(2))
	if len(pts) != 2 || pts[0] != (Point2{5, 5}) {
		t.Fatalf("surviving polyline points wrong: %+v", pts)
	}
}

func TestPackUnpackRGBA(t *testing.T) {
	c := StyleColor{R: 1, G: 0.5, B: 0, A: 1}
	packed := PackRGBA(c)
	if packed>>24 != 255 || packed&0xFF != 255 {
		t.Fatalf("packed %#x has wrong channels", packed)
	}
	round := UnpackRGBA(packed)
	if round.R != 1 || round.A != 1 {
		t.Fatalf("round trip lost full channels: %+v", round)
	}
	if diff := round.G - 0.5; diff < -0.01 || diff > 0.01 {
		t.Fatalf("green channel drifted: %v", round.G)
	}
}

func TestTextStoreEditing(t *testing.T) {
	ts := NewTextStore()
	ts.Upsert(9, 0, 0, 0, TextBoxAuto, TextAlignLeft, 0, nil, []byte("hello"))

	if !ts.Insert(9, 5, []byte(" world")) {
		t.Fatalf("insert failed")
	}
	if got := string(ts.Get(9).Content); got != "hello world" {
		t.Fatalf("content %q", got)
	}
	if !ts.DeleteRange(9, 5, 11) {
		t.Fatalf("delete range failed")
	}
	if got := string(ts.Get(9).Content); got != "hello" {
		t.Fatalf("content %q after delete", got)
	}
	if !ts.ReplaceRange(9, 0, 5, []byte("bye")) {
		t.Fatalf("replace failed")
	}
	if got := string(ts.Get(9).Content); got != "bye" {
		t.Fatalf("content %q after replace", got)
	}
	if ts.Get(9).CaretIndex != 3 {
		t.Fatalf("caret %d, want 3", ts.Get(9).CaretIndex)
	}
	// Out-of-range indices clamp rather than fail.
	if !ts.SetCaret(9, 99) || ts.Get(9).CaretIndex != 3 {
		t.Fatalf("caret should clamp to content length")
	}
	if ts.Insert(42, 0, []byte("x")) {
		t.Fatalf("editing a missing text must fail")
	}
}

func TestTextStoreUpsertPreservesCaret(t *testing.T) {
	ts := NewTextStore()
	ts.Upsert(1, 0, 0, 0, TextBoxAuto, TextAlignLeft, 0, nil, []byte("abcdef"))
	ts.SetCaret(1, 3)
	ts.Upsert(1, 10, 10, 0, TextBoxFixed, TextAlignCenter, 120, nil, []byte("abcdef"))
	rec := ts.Get(1)
	if rec.CaretIndex != 3 {
		t.Fatalf("caret lost on upsert")
	}
	if rec.BoxMode != TextBoxFixed || rec.Align != TextAlignCenter {
		t.Fatalf("header not updated: %+v", rec)
	}
}
