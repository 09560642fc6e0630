package history

import (
	"encoding/binary"
	"reflect"
	"testing"

	"drawcore/internal/entity"
)

func newJournal() (*Journal, *entity.Store, *entity.TextStore) {
	store := entity.NewStore()
	texts := entity.NewTextStore()
	return NewJournal(store, texts), store, texts
}

func upsertRect(store *entity.Store, id entity.ID, x, y, w, h float32) {
	store.UpsertRect(id, x, y, w, h, 1, 0, 0, 1, 0, 0, 0, 1, 1, 2)
}

func TestUndoRestoresEntityState(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)

	if !j.Begin(2) {
		t.Fatalf("begin should open a transaction")
	}
	j.MarkEntity(1)
	upsertRect(store, 1, 50, 50, 20, 20)
	if !j.Commit(2, 1, nil) {
		t.Fatalf("commit should record the change")
	}

	report, ok := j.Undo()
	if !ok {
		t.Fatalf("undo should succeed")
	}
	if len(report.Entities) != 1 || report.Entities[0] != 1 {
		t.Fatalf("report should list entity 1, got %+v", report)
	}
	rec := store.GetRect(1)
	if rec == nil || rec.X != 0 || rec.W != 10 {
		t.Fatalf("undo should restore original geometry, got %+v", rec)
	}

	if _, ok := j.Redo(); !ok {
		t.Fatalf("redo should succeed")
	}
	rec = store.GetRect(1)
	if rec.X != 50 || rec.W != 20 {
		t.Fatalf("redo should reapply the change, got %+v", rec)
	}
}

func TestUndoRecreatesDeletedEntity(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 7, 1, 2, 3, 4)
	store.SetEntityLayer(7, 9)
	store.SetEntityFlags(7, entity.FlagLocked, entity.FlagLocked)
	store.SetStyleOverride(7, entity.StyleOverride{
		EnabledMask: entity.StyleTargetMask(entity.StyleFill),
		FillEnabled: false,
	})

	j.Begin(8)
	j.MarkEntity(7)
	store.DeleteEntity(7)
	j.Commit(8, 1, nil)

	if _, ok := j.Undo(); !ok {
		t.Fatalf("undo should succeed")
	}
	rec := store.GetRect(7)
	if rec == nil || rec.X != 1 || rec.H != 4 {
		t.Fatalf("entity should be recreated, got %+v", rec)
	}
	if store.EntityLayer(7) != 9 {
		t.Fatalf("layer should be restored, got %d", store.EntityLayer(7))
	}
	if store.EntityFlags(7)&entity.FlagLocked == 0 {
		t.Fatalf("flags should be restored")
	}
	if ov := store.StyleOverrideFor(7); ov == nil || ov.EnabledMask == 0 {
		t.Fatalf("style override should be restored, got %+v", ov)
	}

	if _, ok := j.Redo(); !ok {
		t.Fatalf("redo should succeed")
	}
	if store.GetRect(7) != nil {
		t.Fatalf("redo should delete the entity again")
	}
}

func TestBeginIdempotentAndSuppressed(t *testing.T) {
	j, _, _ := newJournal()
	if !j.Begin(1) {
		t.Fatalf("first begin should open")
	}
	if j.Begin(1) {
		t.Fatalf("nested begin should not reopen")
	}
	j.Discard()
	if j.Active() {
		t.Fatalf("discard should close the transaction")
	}

	j.SetSuppressed(true)
	if j.Begin(1) {
		t.Fatalf("suppressed journal should not open transactions")
	}
}

func TestCommitWithoutChangesRecordsNothing(t *testing.T) {
	j, store, _ := newJournal()
	j.Begin(1)
	j.MarkOrder()
	j.MarkLayers()
	j.MarkSelection(nil)
	// Nothing actually changed.
	if j.Commit(1, 1, nil) {
		t.Fatalf("no-op transaction should not commit")
	}
	if j.CanUndo() {
		t.Fatalf("journal should stay empty")
	}
	_ = store
}

func TestNewCommitTruncatesRedoTail(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)

	for i := 0; i < 2; i++ {
		j.Begin(2)
		j.MarkEntity(1)
		upsertRect(store, 1, float32(10*(i+1)), 0, 10, 10)
		j.Commit(2, 1, nil)
	}
	j.Undo()
	if !j.CanRedo() {
		t.Fatalf("redo should be available after undo")
	}

	j.Begin(2)
	j.MarkEntity(1)
	upsertRect(store, 1, 99, 0, 10, 10)
	j.Commit(2, 1, nil)
	if j.CanRedo() {
		t.Fatalf("new commit should truncate redo tail")
	}
	if j.Len() != 2 {
		t.Fatalf("stack should hold 2 entries, got %d", j.Len())
	}
}

func TestOrderAndSelectionSections(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)
	upsertRect(store, 2, 20, 0, 10, 10)

	j.Begin(3)
	j.MarkOrder()
	j.MarkSelection([]entity.ID{1})
	store.SetDrawOrder([]entity.ID{2, 1})
	if !j.Commit(3, 1, []entity.ID{2}) {
		t.Fatalf("order change should commit")
	}

	report, _ := j.Undo()
	if !report.OrderChanged || !report.SelectionChanged {
		t.Fatalf("report should flag order and selection, got %+v", report)
	}
	if got := store.DrawOrder(); got[0] != 1 || got[1] != 2 {
		t.Fatalf("draw order should be restored, got %v", got)
	}
	if len(report.Selection) != 1 || report.Selection[0] != 1 {
		t.Fatalf("report should carry the before selection, got %v", report.Selection)
	}
}

func TestLayerSectionRoundTrip(t *testing.T) {
	j, store, _ := newJournal()
	store.Layers.EnsureLayer(5)
	store.Layers.SetName(5, "annotations")

	j.Begin(1)
	j.MarkLayers()
	store.Layers.SetName(5, "notes")
	store.Layers.SetFlags(5, entity.FlagVisible, 0)
	j.Commit(1, 1, nil)

	j.Undo()
	rec := store.Layers.Get(5)
	if rec.Name != "annotations" || rec.Flags&entity.FlagVisible == 0 {
		t.Fatalf("layer state should be restored, got %+v", rec)
	}
}

func TestTextEditMergeCoalesces(t *testing.T) {
	j, store, texts := newJournal()
	store.RegisterText(4)
	texts.Upsert(4, 0, 0, 0, entity.TextBoxAuto, entity.TextAlignLeft, 0, nil, []byte("a"))

	for _, chunk := range []string{"b", "c"} {
		j.Begin(5)
		j.MarkEntity(4)
		j.SetMergeTag(MergeTextEdit, 4)
		rec := texts.Get(4)
		texts.Insert(4, uint32(len(rec.Content)), []byte(chunk))
		j.Commit(5, 1, nil)
	}
	if j.Len() != 1 {
		t.Fatalf("tagged edits should coalesce into one entry, got %d", j.Len())
	}

	j.Undo()
	if got := string(texts.Get(4).Content); got != "a" {
		t.Fatalf("single undo should drop both edits, got %q", got)
	}
	j.Redo()
	if got := string(texts.Get(4).Content); got != "abc" {
		t.Fatalf("redo should restore both edits, got %q", got)
	}
}

func TestPolylineSnapshotCarriesPoints(t *testing.T) {
	j, store, _ := newJournal()
	offset, count := store.AppendPoints([]entity.Point2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	store.UpsertPolyline(3, offset, count, 0, 0, 1, 1, 1, 2)

	j.Begin(4)
	j.MarkEntity(3)
	store.DeleteEntity(3)
	j.Commit(4, 1, nil)

	j.Undo()
	rec := store.GetPolyline(3)
	if rec == nil {
		t.Fatalf("polyline should be recreated")
	}
	pts := store.PolylinePoints(rec)
	if len(pts) != 3 || pts[2].Y != 10 {
		t.Fatalf("points should be restored, got %v", pts)
	}
}

func TestGenerationBumpsOnStackMutation(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 1, 1)
	start := j.Generation()

	j.Begin(2)
	j.MarkEntity(1)
	upsertRect(store, 1, 5, 0, 1, 1)
	j.Commit(2, 1, nil)
	afterCommit := j.Generation()
	if afterCommit == start {
		t.Fatalf("commit should bump generation")
	}
	j.Undo()
	if j.Generation() == afterCommit {
		t.Fatalf("undo should bump generation")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	j, store, texts := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)
	offset, count := store.AppendPoints([]entity.Point2{{X: 0, Y: 0}, {X: 5, Y: 5}})
	store.UpsertPolyline(2, offset, count, 0, 1, 0, 1, 1, 3)
	store.RegisterText(3)
	texts.Upsert(3, 1, 2, 0, entity.TextBoxFixed, entity.TextAlignCenter, 120,
		[]entity.TextRun{{StartIndex: 0, Length: 5, FontID: 1, FontSize: 14, ColorRGBA: 0xFF0000FF}},
		[]byte("hello"))

	j.Begin(4)
	j.MarkEntity(1)
	j.MarkEntity(2)
	j.MarkEntity(3)
	j.MarkOrder()
	j.MarkSelection([]entity.ID{1})
	upsertRect(store, 1, 7, 7, 10, 10)
	store.DeleteEntity(2)
	texts.Insert(3, 5, []byte("!"))
	store.SetDrawOrder([]entity.ID{3, 1})
	j.Commit(5, 2, []entity.ID{3})

	encoded := j.EncodeBytes()
	if len(encoded) == 0 {
		t.Fatalf("non-empty journal should encode bytes")
	}

	store2 := entity.NewStore()
	texts2 := entity.NewTextStore()
	j2 := NewJournal(store2, texts2)
	if err := j2.DecodeBytes(encoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if j2.Len() != j.Len() || j2.Cursor() != j.Cursor() {
		t.Fatalf("stack shape mismatch: len %d/%d cursor %d/%d", j2.Len(), j.Len(), j2.Cursor(), j.Cursor())
	}

	// The decoded entry must replay against fresh stores.
	report, ok := j2.Redo()
	if ok {
		t.Fatalf("cursor at top should not redo, got %+v", report)
	}
	if _, ok := j2.Undo(); !ok {
		t.Fatalf("decoded journal should undo")
	}
	rec := store2.GetRect(1)
	if rec == nil || rec.X != 0 {
		t.Fatalf("decoded undo should restore the rect, got %+v", rec)
	}
	if store2.GetPolyline(2) == nil {
		t.Fatalf("decoded undo should recreate the polyline")
	}
	if got := string(texts2.Get(3).Content); got != "hello" {
		t.Fatalf("decoded undo should restore text, got %q", got)
	}

	if _, ok := j2.Redo(); !ok {
		t.Fatalf("decoded journal should redo")
	}
	if store2.GetRect(1).X != 7 {
		t.Fatalf("decoded redo should reapply the rect move")
	}
	if store2.GetPolyline(2) != nil {
		t.Fatalf("decoded redo should delete the polyline")
	}
}

func TestEncodeEmptyJournalIsNil(t *testing.T) {
	j, _, _ := newJournal()
	if got := j.EncodeBytes(); got != nil {
		t.Fatalf("empty journal should encode to nil, got %d bytes", len(got))
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)
	j.Begin(2)
	j.MarkEntity(1)
	upsertRect(store, 1, 5, 5, 10, 10)
	j.Commit(2, 1, nil)
	encoded := j.EncodeBytes()

	cases := []struct {
		name string
		data []byte
	}{
		{"truncated header", encoded[:8]},
		{"truncated body", encoded[:len(encoded)-5]},
		{"bad version", func() []byte {
			bad := append([]byte(nil), encoded...)
			bad[0] = 99
			return bad
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j2, _, _ := newJournal()
			if err := j2.DecodeBytes(tc.data); err == nil {
				t.Fatalf("corrupt input should fail")
			}
			if j2.Len() != 0 {
				t.Fatalf("failed decode should leave journal empty")
			}
		})
	}
}

func TestDecodeRejectsOversizedCounts(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 1, 0, 0, 10, 10)
	j.Begin(2)
	j.MarkEntity(1)
	j.MarkLayers()
	upsertRect(store, 1, 5, 5, 10, 10)
	j.Commit(2, 1, nil)
	encoded := j.EncodeBytes()

	// Each case inflates a declared count far past the remaining bytes.
	// Decode must fail cleanly instead of allocating from the count.
	huge := func(offset int) []byte {
		bad := append([]byte(nil), encoded...)
		binary.LittleEndian.PutUint32(bad[offset:], 0xFFFFFFFF)
		return bad
	}
	cases := []struct {
		name string
		data []byte
	}{
		{"entry count", huge(4)},
		{"layer count", huge(36)},
		{"bare header with huge entry count", func() []byte {
			bad := make([]byte, 16)
			binary.LittleEndian.PutUint32(bad[0:], CodecVersion)
			binary.LittleEndian.PutUint32(bad[4:], 0xFFFFFFFF)
			return bad
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := DecodeEntries(tc.data); err == nil {
				t.Fatalf("oversized count should fail decode")
			}
		})
	}
}

func TestEntriesSortedByID(t *testing.T) {
	j, store, _ := newJournal()
	upsertRect(store, 9, 0, 0, 1, 1)
	upsertRect(store, 2, 0, 0, 1, 1)

	j.Begin(10)
	j.MarkEntity(9)
	j.MarkEntity(2)
	upsertRect(store, 9, 1, 1, 1, 1)
	upsertRect(store, 2, 2, 2, 1, 1)
	j.Commit(10, 1, nil)

	entries, cursor, err := DecodeEntries(j.EncodeBytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cursor != 1 || len(entries) != 1 {
		t.Fatalf("unexpected stack shape")
	}
	ids := make([]entity.ID, 0, len(entries[0].Entities))
	for _, c := range entries[0].Entities {
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []entity.ID{2, 9}) {
		t.Fatalf("entity changes should be sorted by id, got %v", ids)
	}
}
