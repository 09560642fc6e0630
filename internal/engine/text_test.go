package engine

import (
	"bytes"
	"testing"

	"drawcore/internal/entity"
	"drawcore/internal/protocol"
)

func newTextEngine(t *testing.T, content string) *Engine {
	t.Helper()
	e := New()
	mustApply(t, e, protocol.NewBuilder().AppendText(1, protocol.TextPayload{
		X: 10, Y: 20, Content: []byte(content),
		Runs: []protocol.TextRunPayload{{
			StartIndex: 0, Length: uint32(len(content)), FontID: 1, FontSize: 14, ColorRGBA: 0xFF,
		}},
	}).Finish())
	return e
}

func TestTextUpsertRegistersAndLaysOut(t *testing.T) {
	e := newTextEngine(t, "hello")
	if e.Store().KindOf(1) != entity.KindText {
		t.Fatal("text not registered in the entity store")
	}
	rec := e.Texts().Get(1)
	if rec == nil {
		t.Fatal("text record missing")
	}
	if rec.LayoutWidth <= 0 || rec.MaxX <= rec.MinX {
		t.Fatalf("layout bounds not computed: %+v", rec)
	}
	if id := e.PickAt(float64(rec.MinX)+1, float64(rec.MinY)+1, 1); id != 1 {
		t.Fatalf("pick inside layout bounds = %d, want 1", id)
	}
}

func TestTextUpsertRejectsBadRuns(t *testing.T) {
	e := New()
	buf := protocol.NewBuilder().AppendText(1, protocol.TextPayload{
		Content: []byte("ab"),
		Runs:    []protocol.TextRunPayload{{StartIndex: 1, Length: 5}},
	}).Finish()
	if res := e.ApplyCommands(buf); res.Code != protocol.ErrInvalidOperation {
		t.Fatalf("code = %v, want ErrInvalidOperation", res.Code)
	}
}

func TestTextContentEdits(t *testing.T) {
	e := newTextEngine(t, "hello")

	mustApply(t, e, protocol.NewBuilder().AppendTextInsert(1, 5, []byte(" world")).Finish())
	rec := e.Texts().Get(1)
	if !bytes.Equal(rec.Content, []byte("hello world")) {
		t.Fatalf("content = %q", rec.Content)
	}
	if len(rec.Runs) != 1 || rec.Runs[0].Length != 11 {
		t.Fatalf("run not extended: %+v", rec.Runs)
	}
	if rec.CaretIndex != 11 {
		t.Fatalf("caret = %d, want 11", rec.CaretIndex)
	}

	mustApply(t, e, protocol.NewBuilder().AppendTextDelete(1, 5, 11).Finish())
	rec = e.Texts().Get(1)
	if !bytes.Equal(rec.Content, []byte("hello")) {
		t.Fatalf("content after delete = %q", rec.Content)
	}
	if rec.Runs[0].Length != 5 {
		t.Fatalf("run not shrunk: %+v", rec.Runs)
	}

	mustApply(t, e, protocol.NewBuilder().AppendTextReplace(1, 0, 5, []byte("bye")).Finish())
	rec = e.Texts().Get(1)
	if !bytes.Equal(rec.Content, []byte("bye")) {
		t.Fatalf("content after replace = %q", rec.Content)
	}
}

func TestTextEditsCoalesceIntoOneUndoStep(t *testing.T) {
	e := newTextEngine(t, "a")
	base := e.History().Depth

	mustApply(t, e, protocol.NewBuilder().AppendTextInsert(1, 1, []byte("b")).Finish())
	mustApply(t, e, protocol.NewBuilder().AppendTextInsert(1, 2, []byte("c")).Finish())
	mustApply(t, e, protocol.NewBuilder().AppendTextInsert(1, 3, []byte("d")).Finish())

	if got := e.History().Depth; got != base+1 {
		t.Fatalf("history depth = %d, want %d (keystrokes must merge)", got, base+1)
	}
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.Texts().Get(1).Content; !bytes.Equal(got, []byte("a")) {
		t.Fatalf("undo of merged edits left %q, want %q", got, "a")
	}
}

func TestTextEditOnMissingEntityFails(t *testing.T) {
	e := New()
	buf := protocol.NewBuilder().AppendTextInsert(9, 0, []byte("x")).Finish()
	if res := e.ApplyCommands(buf); res.Code != protocol.ErrInvalidOperation {
		t.Fatalf("code = %v, want ErrInvalidOperation", res.Code)
	}
}

func TestDeleteTextIsIdempotent(t *testing.T) {
	e := newTextEngine(t, "x")
	mustApply(t, e, protocol.NewBuilder().AppendDeleteText(1).Finish())
	if e.Texts().Get(1) != nil || e.Store().KindOf(1) != entity.KindNone {
		t.Fatal("text not deleted")
	}
	mustApply(t, e, protocol.NewBuilder().AppendDeleteText(1).Finish())
}

func TestCaretAndSelectionAreEphemeral(t *testing.T) {
	e := newTextEngine(t, "hello")
	gen := e.Generation()
	depth := e.History().Depth

	mustApply(t, e, protocol.NewBuilder().
		AppendTextCaret(1, 3).
		AppendTextSelection(1, 1, 4).
		Finish())

	rec := e.Texts().Get(1)
	if rec.CaretIndex != 3 || rec.SelectionStart != 1 || rec.SelectionEnd != 4 {
		t.Fatalf("caret state = %d [%d,%d)", rec.CaretIndex, rec.SelectionStart, rec.SelectionEnd)
	}
	if e.Generation() != gen || e.History().Depth != depth {
		t.Fatal("caret moves must not create document mutations")
	}
}

func TestApplyTextStyleSetAndToggle(t *testing.T) {
	e := newTextEngine(t, "hello world")

	set := protocol.ApplyTextStylePayload{
		TextID: 1, RangeStart: 0, RangeEnd: 5,
		FlagsMask: protocol.TextStyleBold, FlagsValue: protocol.TextStyleBold,
		Mode: protocol.TextStyleModeSet,
	}
	mustApply(t, e, protocol.NewBuilder().AppendApplyTextStyle(set).Finish())

	rec := e.Texts().Get(1)
	if len(rec.Runs) != 2 {
		t.Fatalf("run count = %d, want 2 after split", len(rec.Runs))
	}
	if rec.Runs[0].Flags&protocol.TextStyleBold == 0 || rec.Runs[1].Flags&protocol.TextStyleBold != 0 {
		t.Fatalf("bold not confined to range: %+v", rec.Runs)
	}

	// Toggle over an already-bold range clears it.
	toggle := set
	toggle.Mode = protocol.TextStyleModeToggle
	mustApply(t, e, protocol.NewBuilder().AppendApplyTextStyle(toggle).Finish())
	rec = e.Texts().Get(1)
	if len(rec.Runs) != 1 {
		t.Fatalf("toggled-off runs should merge back: %+v", rec.Runs)
	}
	if rec.Runs[0].Flags&protocol.TextStyleBold != 0 {
		t.Fatal("toggle did not clear bold")
	}

	// Toggle over a mixed range sets everywhere.
	mustApply(t, e, protocol.NewBuilder().AppendApplyTextStyle(set).Finish())
	mixed := set
	mixed.RangeEnd = 11
	mixed.Mode = protocol.TextStyleModeToggle
	mustApply(t, e, protocol.NewBuilder().AppendApplyTextStyle(mixed).Finish())
	rec = e.Texts().Get(1)
	for _, run := range rec.Runs {
		if run.Flags&protocol.TextStyleBold == 0 {
			t.Fatalf("mixed toggle must set everywhere: %+v", rec.Runs)
		}
	}
}

func TestApplyTextStyleParams(t *testing.T) {
	e := newTextEngine(t, "abcdef")
	size := float32(22)
	weight := uint16(700)
	p := protocol.ApplyTextStylePayload{
		TextID: 1, RangeStart: 2, RangeEnd: 4,
		Params: protocol.TextStyleParams{FontSize: &size, FontWeight: &weight},
	}
	mustApply(t, e, protocol.NewBuilder().AppendApplyTextStyle(p).Finish())

	rec := e.Texts().Get(1)
	var styled *entity.TextRun
	for i := range rec.Runs {
		if rec.Runs[i].StartIndex == 2 {
			styled = &rec.Runs[i]
		}
	}
	if styled == nil {
		t.Fatalf("no run at index 2: %+v", rec.Runs)
	}
	if styled.FontSize != 22 {
		t.Fatalf("font size = %v, want 22", styled.FontSize)
	}
	if styled.Flags&protocol.TextStyleBold == 0 {
		t.Fatal("weight 700 must set the bold flag")
	}
}

func TestApplyTextStyleRejectsMismatchedID(t *testing.T) {
	e := newTextEngine(t, "hi")
	p := protocol.ApplyTextStylePayload{
		TextID: 1, RangeStart: 0, RangeEnd: 2,
		FlagsMask: protocol.TextStyleBold, FlagsValue: protocol.TextStyleBold,
	}
	buf := protocol.NewBuilder().AppendApplyTextStyle(p).Finish()
	// Patch the command header id to a different entity.
	buf[protocol.BufferHeaderBytes+4] = 9
	if res := protocol.Walk(buf, func(c protocol.Command) protocol.ErrorCode {
		return e.dispatch(c)
	}); res.Code != protocol.ErrInvalidPayloadSize {
		t.Fatalf("code = %v, want ErrInvalidPayloadSize", res.Code)
	}
}

func TestSetTextAlignRelayouts(t *testing.T) {
	e := newTextEngine(t, "hello")
	before := e.Texts().Get(1).MinX

	mustApply(t, e, protocol.NewBuilder().AppendTextAlign(1, uint32(entity.TextAlignRight)).Finish())
	rec := e.Texts().Get(1)
	if rec.Align != entity.TextAlignRight {
		t.Fatalf("align = %d", rec.Align)
	}
	if rec.MinX >= before {
		t.Fatalf("right align should move bounds left: %v -> %v", before, rec.MinX)
	}

	buf := protocol.NewBuilder().AppendTextAlign(1, 7).Finish()
	if res := e.ApplyCommands(buf); res.Code != protocol.ErrInvalidPayloadSize {
		t.Fatalf("bad align code = %v, want ErrInvalidPayloadSize", res.Code)
	}
}
