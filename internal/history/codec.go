package history

import (
	"encoding/binary"
	"fmt"
	"math"

	"drawcore/internal/entity"
)

// CodecVersion is the history wire format version.
const CodecVersion = 1

const entryFlagLayer = 1
const entryFlagOrder = 2
const entryFlagSelection = 4

// Smallest possible wire sizes, used to bound declared counts before any
// slice is allocated from them.
const (
	minEntryBytes  = 24
	minChangeBytes = 8
	minLayerBytes  = 36
)

// EncodeBytes serializes the committed entries for embedding in a document
// snapshot. An empty journal encodes to nil so the section can be omitted.
func (j *Journal) EncodeBytes() []byte {
	return EncodeEntries(j.entries, uint32(j.cursor))
}

// DecodeBytes replaces the journal content with a previously encoded stack.
// The journal is cleared first; a decode error leaves it empty.
func (j *Journal) DecodeBytes(data []byte) error {
	j.Clear()
	if len(data) == 0 {
		return nil
	}
	entries, cursor, err := DecodeEntries(data)
	if err != nil {
		return err
	}
	j.entries = entries
	j.cursor = int(cursor)
	if j.cursor > len(j.entries) {
		j.cursor = len(j.entries)
	}
	return nil
}

// EncodeEntries serializes an entry stack with its cursor position.
func EncodeEntries(entries []Entry, cursor uint32) []byte {
	if len(entries) == 0 {
		return nil
	}
	w := &byteWriter{buf: make([]byte, 0, 256)}
	w.u32(CodecVersion)
	w.u32(uint32(len(entries)))
	w.u32(cursor)
	w.u32(0)

	for i := range entries {
		entry := &entries[i]
		var flags uint32
		if entry.HasLayerChange {
			flags |= entryFlagLayer
		}
		if entry.HasOrderChange {
			flags |= entryFlagOrder
		}
		if entry.HasSelectionChange {
			flags |= entryFlagSelection
		}
		w.u32(flags)
		w.u32(entry.NextIDBefore)
		w.u32(entry.NextIDAfter)
		w.u8(uint8(entry.MergeTag))
		w.u8(0)
		w.u8(0)
		w.u8(0)
		w.u32(uint32(entry.MergeEntityID))

		if entry.HasLayerChange {
			w.layers(entry.LayersBefore)
			w.layers(entry.LayersAfter)
		}
		if entry.HasOrderChange {
			w.ids(entry.OrderBefore)
			w.ids(entry.OrderAfter)
		}
		if entry.HasSelectionChange {
			w.ids(entry.SelectionBefore)
			w.ids(entry.SelectionAfter)
		}

		w.u32(uint32(len(entry.Entities)))
		for ci := range entry.Entities {
			change := &entry.Entities[ci]
			w.u32(uint32(change.ID))
			w.bool8(change.ExistedBefore)
			w.bool8(change.ExistedAfter)
			w.u8(0)
			w.u8(0)
			if change.ExistedBefore {
				w.snapshot(&change.Before)
			}
			if change.ExistedAfter {
				w.snapshot(&change.After)
			}
		}
	}
	return w.buf
}

// DecodeEntries parses an encoded stack, returning the entries and cursor.
func DecodeEntries(data []byte) ([]Entry, uint32, error) {
	r := &byteReader{buf: data}
	version := r.u32()
	count := r.u32()
	cursor := r.u32()
	r.u32() // reserved
	if r.err != nil {
		return nil, 0, r.err
	}
	if version != CodecVersion {
		return nil, 0, fmt.Errorf("history: unsupported version %d", version)
	}
	if uint64(count)*minEntryBytes > uint64(len(r.buf)-r.off) {
		return nil, 0, fmt.Errorf("history: entry count %d exceeds payload", count)
	}

	entries := make([]Entry, count)
	for i := range entries {
		entry := &entries[i]
		flags := r.u32()
		entry.HasLayerChange = flags&entryFlagLayer != 0
		entry.HasOrderChange = flags&entryFlagOrder != 0
		entry.HasSelectionChange = flags&entryFlagSelection != 0
		entry.NextIDBefore = r.u32()
		entry.NextIDAfter = r.u32()
		entry.MergeTag = MergeTag(r.u8())
		r.u8()
		r.u8()
		r.u8()
		entry.MergeEntityID = entity.ID(r.u32())

		if entry.HasLayerChange {
			entry.LayersBefore = r.layers()
			entry.LayersAfter = r.layers()
		}
		if entry.HasOrderChange {
			entry.OrderBefore = r.ids()
			entry.OrderAfter = r.ids()
		}
		if entry.HasSelectionChange {
			entry.SelectionBefore = r.ids()
			entry.SelectionAfter = r.ids()
		}

		changeCount := r.count(minChangeBytes)
		if r.err != nil {
			return nil, 0, r.err
		}
		entry.Entities = make([]EntityChange, changeCount)
		for ci := range entry.Entities {
			change := &entry.Entities[ci]
			change.ID = entity.ID(r.u32())
			change.ExistedBefore = r.u8() != 0
			change.ExistedAfter = r.u8() != 0
			r.u8()
			r.u8()
			if change.ExistedBefore {
				r.snapshot(&change.Before)
				change.Before.ID = change.ID
				if change.Before.Text != nil {
					change.Before.Text.ID = change.ID
				}
			}
			if change.ExistedAfter {
				r.snapshot(&change.After)
				change.After.ID = change.ID
				if change.After.Text != nil {
					change.After.Text.ID = change.ID
				}
			}
			if r.err != nil {
				return nil, 0, r.err
			}
		}
		if r.err != nil {
			return nil, 0, r.err
		}
	}
	if r.err != nil {
		return nil, 0, r.err
	}
	return entries, cursor, nil
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

func (w *byteWriter) bool8(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *byteWriter) ids(ids []entity.ID) {
	w.u32(uint32(len(ids)))
	for _, id := range ids {
		w.u32(uint32(id))
	}
}

func (w *byteWriter) layers(layers []entity.LayerRecord) {
	w.u32(uint32(len(layers)))
	for i := range layers {
		layer := &layers[i]
		w.u32(uint32(layer.ID))
		w.u32(layer.Order)
		w.u32(layer.Flags)
		w.u32(uint32(len(layer.Name)))
		w.buf = append(w.buf, layer.Name...)
		w.u32(entity.PackRGBA(layer.Style.Stroke.Color))
		w.u32(entity.PackRGBA(layer.Style.Fill.Color))
		w.u32(entity.PackRGBA(layer.Style.TextColor.Color))
		w.u32(entity.PackRGBA(layer.Style.TextBackground.Color))
		w.bool8(layer.Style.Stroke.Enabled)
		w.bool8(layer.Style.Fill.Enabled)
		w.bool8(layer.Style.TextBackground.Enabled)
		w.u8(0)
	}
}

func (w *byteWriter) snapshot(snap *EntitySnapshot) {
	w.u32(uint32(snap.Kind))
	w.u32(uint32(snap.LayerID))
	w.u32(snap.Flags)

	if snap.Override != nil {
		w.u8(1)
		w.u8(snap.Override.ColorMask)
		w.u8(snap.Override.EnabledMask)
		var bits uint8
		if snap.Override.FillEnabled {
			bits |= 1
		}
		if snap.Override.TextBackgroundEnabled {
			bits |= 2
		}
		w.u8(bits)
		w.u32(entity.PackRGBA(snap.Override.TextColor))
		w.u32(entity.PackRGBA(snap.Override.TextBackground))
	} else {
		w.u8(0)
		w.u8(0)
		w.u8(0)
		w.u8(0)
		w.u32(0)
		w.u32(0)
	}

	switch snap.Kind {
	case entity.KindRect:
		r := &snap.Rect
		for _, v := range []float32{r.X, r.Y, r.W, r.H, r.Rot, r.SX, r.SY,
			r.R, r.G, r.B, r.A, r.SR, r.SG, r.SB, r.SA, r.StrokeEnabled, r.StrokeWidthPx} {
			w.f32(v)
		}
	case entity.KindLine:
		l := &snap.Line
		for _, v := range []float32{l.X0, l.Y0, l.X1, l.Y1, l.R, l.G, l.B, l.A,
			l.Enabled, l.StrokeWidthPx} {
			w.f32(v)
		}
	case entity.KindPolyline:
		p := &snap.Poly
		w.u32(uint32(len(snap.Points)))
		for _, v := range []float32{p.R, p.G, p.B, p.A, p.SR, p.SG, p.SB, p.SA,
			p.Enabled, p.StrokeEnabled, p.StrokeWidthPx} {
			w.f32(v)
		}
		for _, pt := range snap.Points {
			w.f32(pt.X)
			w.f32(pt.Y)
		}
	case entity.KindCircle:
		c := &snap.Circle
		for _, v := range []float32{c.CX, c.CY, c.RX, c.RY, c.Rot, c.SX, c.SY,
			c.R, c.G, c.B, c.A, c.SR, c.SG, c.SB, c.SA, c.StrokeEnabled, c.StrokeWidthPx} {
			w.f32(v)
		}
	case entity.KindPolygon:
		p := &snap.Polygon
		for _, v := range []float32{p.CX, p.CY, p.RX, p.RY, p.Rot, p.SX, p.SY} {
			w.f32(v)
		}
		w.u32(p.Sides)
		for _, v := range []float32{p.R, p.G, p.B, p.A, p.SR, p.SG, p.SB, p.SA,
			p.StrokeEnabled, p.StrokeWidthPx} {
			w.f32(v)
		}
	case entity.KindArrow:
		a := &snap.Arrow
		for _, v := range []float32{a.AX, a.AY, a.BX, a.BY, a.Head,
			a.SR, a.SG, a.SB, a.SA, a.StrokeEnabled, a.StrokeWidthPx} {
			w.f32(v)
		}
	case entity.KindText:
		t := snap.Text
		w.f32(t.X)
		w.f32(t.Y)
		w.f32(t.Rotation)
		w.u8(t.BoxMode)
		w.u8(t.Align)
		w.u8(0)
		w.u8(0)
		w.f32(t.ConstraintWidth)
		w.u32(uint32(len(t.Runs)))
		w.u32(uint32(len(t.Content)))
		for _, run := range t.Runs {
			w.u32(run.StartIndex)
			w.u32(run.Length)
			w.u32(run.FontID)
			w.f32(run.FontSize)
			w.u32(run.ColorRGBA)
			w.u8(run.Flags)
			w.u8(0)
			w.u8(0)
			w.u8(0)
		}
		w.buf = append(w.buf, t.Content...)
	}
}

type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("history: truncated at offset %d", r.off)
	}
}

func (r *byteReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.buf) {
		r.fail()
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *byteReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.buf) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *byteReader) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	if uint32(len(r.buf)-r.off) < n {
		r.fail()
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += int(n)
	return out
}

// count reads a record count and rejects counts that cannot fit in the
// remaining bytes at min bytes each.
func (r *byteReader) count(min uint32) uint32 {
	n := r.u32()
	if r.err == nil && uint64(n)*uint64(min) > uint64(len(r.buf)-r.off) {
		r.fail()
		return 0
	}
	return n
}

func (r *byteReader) ids() []entity.ID {
	count := r.u32()
	if r.err != nil || count == 0 {
		return nil
	}
	if uint32(len(r.buf)-r.off)/4 < count {
		r.fail()
		return nil
	}
	out := make([]entity.ID, count)
	for i := range out {
		out[i] = entity.ID(r.u32())
	}
	return out
}

func (r *byteReader) layers() []entity.LayerRecord {
	count := r.count(minLayerBytes)
	if r.err != nil {
		return nil
	}
	out := make([]entity.LayerRecord, 0, count)
	for i := uint32(0); i < count && r.err == nil; i++ {
		var rec entity.LayerRecord
		rec.ID = entity.ID(r.u32())
		rec.Order = r.u32()
		rec.Flags = r.u32()
		nameLen := r.u32()
		rec.Name = string(r.bytes(nameLen))
		rec.Style.Stroke.Color = entity.UnpackRGBA(r.u32())
		rec.Style.Fill.Color = entity.UnpackRGBA(r.u32())
		rec.Style.TextColor.Color = entity.UnpackRGBA(r.u32())
		rec.Style.TextBackground.Color = entity.UnpackRGBA(r.u32())
		rec.Style.Stroke.Enabled = r.u8() != 0
		rec.Style.Fill.Enabled = r.u8() != 0
		rec.Style.TextBackground.Enabled = r.u8() != 0
		r.u8()
		out = append(out, rec)
	}
	return out
}

func (r *byteReader) snapshot(snap *EntitySnapshot) {
	snap.Kind = entity.Kind(r.u32())
	snap.LayerID = entity.ID(r.u32())
	snap.Flags = r.u32()

	hasOverride := r.u8() != 0
	colorMask := r.u8()
	enabledMask := r.u8()
	bits := r.u8()
	textColor := r.u32()
	textBackground := r.u32()
	if hasOverride {
		snap.Override = &entity.StyleOverride{
			ColorMask:             colorMask,
			EnabledMask:           enabledMask,
			FillEnabled:           bits&1 != 0,
			TextBackgroundEnabled: bits&2 != 0,
			TextColor:             entity.UnpackRGBA(textColor),
			TextBackground:        entity.UnpackRGBA(textBackground),
		}
	}

	switch snap.Kind {
	case entity.KindRect:
		r0 := &snap.Rect
		for _, p := range []*float32{&r0.X, &r0.Y, &r0.W, &r0.H, &r0.Rot, &r0.SX, &r0.SY,
			&r0.R, &r0.G, &r0.B, &r0.A, &r0.SR, &r0.SG, &r0.SB, &r0.SA, &r0.StrokeEnabled, &r0.StrokeWidthPx} {
			*p = r.f32()
		}
	case entity.KindLine:
		l := &snap.Line
		for _, p := range []*float32{&l.X0, &l.Y0, &l.X1, &l.Y1, &l.R, &l.G, &l.B, &l.A,
			&l.Enabled, &l.StrokeWidthPx} {
			*p = r.f32()
		}
	case entity.KindPolyline:
		p := &snap.Poly
		count := r.u32()
		for _, fp := range []*float32{&p.R, &p.G, &p.B, &p.A, &p.SR, &p.SG, &p.SB, &p.SA,
			&p.Enabled, &p.StrokeEnabled, &p.StrokeWidthPx} {
			*fp = r.f32()
		}
		if r.err == nil && uint32(len(r.buf)-r.off)/8 < count {
			r.fail()
			return
		}
		snap.Points = make([]entity.Point2, count)
		for i := range snap.Points {
			snap.Points[i].X = r.f32()
			snap.Points[i].Y = r.f32()
		}
		p.Offset = 0
		p.Count = count
	case entity.KindCircle:
		c := &snap.Circle
		for _, p := range []*float32{&c.CX, &c.CY, &c.RX, &c.RY, &c.Rot, &c.SX, &c.SY,
			&c.R, &c.G, &c.B, &c.A, &c.SR, &c.SG, &c.SB, &c.SA, &c.StrokeEnabled, &c.StrokeWidthPx} {
			*p = r.f32()
		}
	case entity.KindPolygon:
		p := &snap.Polygon
		for _, fp := range []*float32{&p.CX, &p.CY, &p.RX, &p.RY, &p.Rot, &p.SX, &p.SY} {
			*fp = r.f32()
		}
		p.Sides = r.u32()
		for _, fp := range []*float32{&p.R, &p.G, &p.B, &p.A, &p.SR, &p.SG, &p.SB, &p.SA,
			&p.StrokeEnabled, &p.StrokeWidthPx} {
			*fp = r.f32()
		}
	case entity.KindArrow:
		a := &snap.Arrow
		for _, p := range []*float32{&a.AX, &a.AY, &a.BX, &a.BY, &a.Head,
			&a.SR, &a.SG, &a.SB, &a.SA, &a.StrokeEnabled, &a.StrokeWidthPx} {
			*p = r.f32()
		}
	case entity.KindText:
		rec := &entity.TextRec{}
		rec.X = r.f32()
		rec.Y = r.f32()
		rec.Rotation = r.f32()
		rec.BoxMode = r.u8()
		rec.Align = r.u8()
		r.u8()
		r.u8()
		rec.ConstraintWidth = r.f32()
		runCount := r.u32()
		contentLength := r.u32()
		if r.err == nil && uint32(len(r.buf)-r.off)/24 < runCount {
			r.fail()
			return
		}
		rec.Runs = make([]entity.TextRun, runCount)
		for i := range rec.Runs {
			run := &rec.Runs[i]
			run.StartIndex = r.u32()
			run.Length = r.u32()
			run.FontID = r.u32()
			run.FontSize = r.f32()
			run.ColorRGBA = r.u32()
			run.Flags = r.u8()
			r.u8()
			r.u8()
			r.u8()
		}
		rec.Content = r.bytes(contentLength)
		snap.Text = rec
	default:
		r.fail()
	}
}
