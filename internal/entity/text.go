package entity

// Text box layout modes.
const (
	TextBoxAuto  uint8 = 0
	TextBoxFixed uint8 = 1
)

// Text alignment values.
const (
	TextAlignLeft   uint8 = 0
	TextAlignCenter uint8 = 1
	TextAlignRight  uint8 = 2
)

// TextRun styles a byte range of a text record's content.
type TextRun struct {
	StartIndex uint32
	Length     uint32
	FontID     uint32
	FontSize   float32
	ColorRGBA  uint32
	Flags      uint8
}

// TextRec is the engine-owned portion of a text entity: placement, runs and
// UTF-8 content. Shaping and caret math belong to the external text
// collaborator; the engine stores the collaborator's reported layout bounds
// so picking and snapshots work without it.
type TextRec struct {
	ID              ID
	X, Y            float32
	Rotation        float32
	BoxMode         uint8
	Align           uint8
	ConstraintWidth float32
	Runs            []TextRun
	Content         []byte

	LayoutWidth, LayoutHeight float32
	MinX, MinY, MaxX, MaxY    float32

	CaretIndex     uint32
	SelectionStart uint32
	SelectionEnd   uint32
}

// Clone deep-copies the record.
func (t *TextRec) Clone() *TextRec {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Runs = append([]TextRun(nil), t.Runs...)
	cp.Content = append([]byte(nil), t.Content...)
	return &cp
}

// TextStore holds the text records keyed by entity id.
type TextStore struct {
	records map[ID]*TextRec
}

// NewTextStore returns an empty text store.
func NewTextStore() *TextStore {
	return &TextStore{records: make(map[ID]*TextRec)}
}

// Clear drops every record.
func (s *TextStore) Clear() {
	s.records = make(map[ID]*TextRec)
}

// Len returns the number of text records.
func (s *TextStore) Len() int { return len(s.records) }

// Get returns the record for id, nil when absent.
func (s *TextStore) Get(id ID) *TextRec { return s.records[id] }

// IDs returns all text ids, unordered.
func (s *TextStore) IDs() []ID {
	out := make([]ID, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	return out
}

// Upsert creates or replaces the record's header, runs and content while
// preserving caret/selection state on update.
func (s *TextStore) Upsert(id ID, x, y, rotation float32, boxMode, align uint8, constraintWidth float32, runs []TextRun, content []byte) *TextRec {
	rec, ok := s.records[id]
	if !ok {
		rec = &TextRec{ID: id}
		s.records[id] = rec
	}
	rec.X, rec.Y, rec.Rotation = x, y, rotation
	rec.BoxMode, rec.Align = boxMode, align
	rec.ConstraintWidth = constraintWidth
	rec.Runs = append(rec.Runs[:0], runs...)
	rec.Content = append(rec.Content[:0], content...)
	return rec
}

// Restore installs a cloned record wholesale (snapshot load, undo).
func (s *TextStore) Restore(rec *TextRec) {
	if rec == nil {
		return
	}
	s.records[rec.ID] = rec.Clone()
}

// Delete removes the record, reporting whether it existed.
func (s *TextStore) Delete(id ID) bool {
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	return true
}

// SetCaret stores the caret byte index, clamped to the content length.
func (s *TextStore) SetCaret(id ID, index uint32) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	rec.CaretIndex = clampIndex(index, len(rec.Content))
	return true
}

// SetSelection stores the selection byte range, normalized and clamped.
func (s *TextStore) SetSelection(id ID, start, end uint32) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	if start > end {
		start, end = end, start
	}
	rec.SelectionStart = clampIndex(start, len(rec.Content))
	rec.SelectionEnd = clampIndex(end, len(rec.Content))
	return true
}

// Insert splices content at the byte index.
func (s *TextStore) Insert(id ID, index uint32, content []byte) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	i := int(clampIndex(index, len(rec.Content)))
	updated := make([]byte, 0, len(rec.Content)+len(content))
	updated = append(updated, rec.Content[:i]...)
	updated = append(updated, content...)
	updated = append(updated, rec.Content[i:]...)
	rec.Content = updated
	shiftRunsInsert(rec, i, len(content))
	rec.CaretIndex = uint32(i + len(content))
	clampSelection(rec)
	return true
}

// DeleteRange removes the byte range [start, end).
func (s *TextStore) DeleteRange(id ID, start, end uint32) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	if start > end {
		start, end = end, start
	}
	a := int(clampIndex(start, len(rec.Content)))
	b := int(clampIndex(end, len(rec.Content)))
	rec.Content = append(rec.Content[:a], rec.Content[b:]...)
	shrinkRunsDelete(rec, a, b)
	rec.CaretIndex = uint32(a)
	clampSelection(rec)
	return true
}

// ReplaceRange substitutes the byte range [start, end) with content.
func (s *TextStore) ReplaceRange(id ID, start, end uint32, content []byte) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	if start > end {
		start, end = end, start
	}
	a := int(clampIndex(start, len(rec.Content)))
	b := int(clampIndex(end, len(rec.Content)))
	updated := make([]byte, 0, len(rec.Content)-(b-a)+len(content))
	updated = append(updated, rec.Content[:a]...)
	updated = append(updated, content...)
	updated = append(updated, rec.Content[b:]...)
	rec.Content = updated
	shrinkRunsDelete(rec, a, b)
	shiftRunsInsert(rec, a, len(content))
	rec.CaretIndex = uint32(a + len(content))
	clampSelection(rec)
	return true
}

// ApplyStyleFlags applies value under mask to the runs covering the byte
// range [start, end), splitting runs at the range boundaries.
func (s *TextStore) ApplyStyleFlags(id ID, start, end uint32, mask, value uint8) bool {
	return s.ApplyRunStyle(id, start, end, func(run *TextRun) {
		run.Flags = (run.Flags &^ mask) | (value & mask)
	})
}

// ApplyRunStyle invokes apply on every run inside the byte range
// [start, end). Runs straddling a boundary are split first so the edit
// never bleeds outside the range; equal adjacent runs are merged after.
func (s *TextStore) ApplyRunStyle(id ID, start, end uint32, apply func(*TextRun)) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	if start > end {
		start, end = end, start
	}
	start = clampIndex(start, len(rec.Content))
	end = clampIndex(end, len(rec.Content))
	if start == end {
		return true
	}
	splitRunAt(rec, start)
	splitRunAt(rec, end)
	for i := range rec.Runs {
		run := &rec.Runs[i]
		if run.StartIndex >= start && run.StartIndex+run.Length <= end {
			apply(run)
		}
	}
	mergeAdjacentRuns(rec)
	return true
}

// RunsCovering reports whether every run intersecting [start, end) has all
// of the flag bits in mask set. An empty range reports false.
func (s *TextStore) RunsCovering(id ID, start, end uint32, mask uint8) bool {
	rec := s.records[id]
	if rec == nil || start >= end {
		return false
	}
	hit := false
	for i := range rec.Runs {
		run := &rec.Runs[i]
		if run.StartIndex < end && run.StartIndex+run.Length > start {
			hit = true
			if run.Flags&mask != mask {
				return false
			}
		}
	}
	return hit
}

func splitRunAt(rec *TextRec, index uint32) {
	for i := range rec.Runs {
		run := rec.Runs[i]
		if run.StartIndex < index && index < run.StartIndex+run.Length {
			head, tail := run, run
			head.Length = index - run.StartIndex
			tail.StartIndex = index
			tail.Length = run.StartIndex + run.Length - index
			runs := make([]TextRun, 0, len(rec.Runs)+1)
			runs = append(runs, rec.Runs[:i]...)
			runs = append(runs, head, tail)
			runs = append(runs, rec.Runs[i+1:]...)
			rec.Runs = runs
			return
		}
	}
}

func mergeAdjacentRuns(rec *TextRec) {
	out := rec.Runs[:0]
	for _, run := range rec.Runs {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.StartIndex+last.Length == run.StartIndex &&
				last.FontID == run.FontID && last.FontSize == run.FontSize &&
				last.ColorRGBA == run.ColorRGBA && last.Flags == run.Flags {
				last.Length += run.Length
				continue
			}
		}
		out = append(out, run)
	}
	rec.Runs = out
}

// shiftRunsInsert grows the run covering the insertion point by n bytes and
// shifts every later run right. Inserting at a run boundary extends the
// preceding run, matching typing at the caret.
func shiftRunsInsert(rec *TextRec, i, n int) {
	if n == 0 || len(rec.Runs) == 0 {
		return
	}
	grown := -1
	for idx := range rec.Runs {
		run := &rec.Runs[idx]
		start, end := int(run.StartIndex), int(run.StartIndex+run.Length)
		if start < i && i <= end || (i == 0 && idx == 0) {
			run.Length += uint32(n)
			grown = idx
			break
		}
	}
	for idx := range rec.Runs {
		if idx == grown {
			continue
		}
		if int(rec.Runs[idx].StartIndex) >= i {
			rec.Runs[idx].StartIndex += uint32(n)
		}
	}
}

// shrinkRunsDelete removes the byte span [a, b) from the run table, dropping
// runs the deletion fully swallows.
func shrinkRunsDelete(rec *TextRec, a, b int) {
	if b <= a || len(rec.Runs) == 0 {
		return
	}
	n := b - a
	out := rec.Runs[:0]
	for _, run := range rec.Runs {
		start, end := int(run.StartIndex), int(run.StartIndex+run.Length)
		switch {
		case end <= a:
			out = append(out, run)
		case start >= b:
			run.StartIndex -= uint32(n)
			out = append(out, run)
		default:
			prefix := a - start
			if prefix < 0 {
				prefix = 0
			}
			suffix := end - b
			if suffix < 0 {
				suffix = 0
			}
			if prefix+suffix == 0 {
				continue
			}
			if start > a {
				run.StartIndex = uint32(a)
			}
			run.Length = uint32(prefix + suffix)
			out = append(out, run)
		}
	}
	rec.Runs = out
	mergeAdjacentRuns(rec)
}

func clampSelection(rec *TextRec) {
	rec.SelectionStart = clampIndex(rec.SelectionStart, len(rec.Content))
	rec.SelectionEnd = clampIndex(rec.SelectionEnd, len(rec.Content))
}

// SetAlign stores the alignment value.
func (s *TextStore) SetAlign(id ID, align uint8) bool {
	rec := s.records[id]
	if rec == nil {
		return false
	}
	rec.Align = align
	return true
}

// SetLayoutBounds records the collaborator-computed layout box.
func (s *TextStore) SetLayoutBounds(id ID, width, height, minX, minY, maxX, maxY float32) {
	if rec := s.records[id]; rec != nil {
		rec.LayoutWidth, rec.LayoutHeight = width, height
		rec.MinX, rec.MinY, rec.MaxX, rec.MaxY = minX, minY, maxX, maxY
	}
}

func clampIndex(v uint32, n int) uint32 {
	if int(v) > n {
		return uint32(n)
	}
	return v
}
