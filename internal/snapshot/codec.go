package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"drawcore/internal/entity"
)

// ESNP container layout: a 16-byte header, a section table of 16-byte
// entries, then the section payloads. Every section is CRC-checked; decode
// rejects the whole snapshot on the first bad section.
const (
	Magic   uint32 = 0x504E5345 // "ESNP" little-endian
	Version uint32 = 1

	headerBytes       = 16
	sectionEntryBytes = 16
)

// Section tags, little-endian fourCCs.
const (
	tagEntities  = 'E' | 'N'<<8 | 'T'<<16 | 'S'<<24
	tagLayers    = 'L' | 'A'<<8 | 'Y'<<16 | 'R'<<24
	tagOrder     = 'O' | 'R'<<8 | 'D'<<16 | 'R'<<24
	tagSelection = 'S' | 'E'<<8 | 'L'<<16 | 'C'<<24
	tagTexts     = 'T' | 'E'<<8 | 'X'<<16 | 'T'<<24
	tagNextID    = 'N' | 'I'<<8 | 'D'<<16 | 'X'<<24
	tagHistory   = 'H' | 'I'<<8 | 'S'<<16 | 'T'<<24
	tagStyles    = 'S' | 'T'<<8 | 'Y'<<16 | 'L'<<24
)

// Per-record wire sizes inside the ENTS section.
const (
	rectRecordBytes     = 12 + 17*4
	lineRecordBytes     = 12 + 10*4
	polyRecordBytes     = 20 + 11*4
	pointRecordBytes    = 8
	circleRecordBytes   = 12 + 17*4
	polygonRecordBytes  = 12 + 17*4 + 4
	arrowRecordBytes    = 12 + 11*4
	textHeaderBytes     = 64
	textRunRecordBytes  = 24
	layerStyleBytes     = 4*4 + 4
	overrideRecordBytes = 24
)

var (
	ErrTruncated          = errors.New("snapshot truncated")
	ErrInvalidMagic       = errors.New("snapshot magic mismatch")
	ErrUnsupportedVersion = errors.New("snapshot version unsupported")
	ErrCorrupt            = errors.New("snapshot corrupt")
)

type sectionWriter struct {
	buf []byte
}

func (w *sectionWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *sectionWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *sectionWriter) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}
func (w *sectionWriter) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *sectionWriter) placement(id entity.ID, layerID entity.ID, flags uint32) {
	w.u32(id)
	w.u32(layerID)
	w.u32(flags)
}

// Encode serializes the Document. Entries are assumed sorted per kind; the
// output is deterministic for equal documents.
func Encode(doc *Document) []byte {
	type section struct {
		tag   uint32
		bytes []byte
	}
	sections := make([]section, 0, 8)

	// ENTS
	{
		var w sectionWriter
		w.u32(uint32(len(doc.Rects)))
		w.u32(uint32(len(doc.Lines)))
		w.u32(uint32(len(doc.Polylines)))
		w.u32(uint32(len(doc.Points)))
		w.u32(uint32(len(doc.Circles)))
		w.u32(uint32(len(doc.Polygons)))
		w.u32(uint32(len(doc.Arrows)))

		for i := range doc.Rects {
			e := &doc.Rects[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.X)
			w.f32(r.Y)
			w.f32(r.W)
			w.f32(r.H)
			w.f32(r.Rot)
			w.f32(r.SX)
			w.f32(r.SY)
			w.f32(r.R)
			w.f32(r.G)
			w.f32(r.B)
			w.f32(r.A)
			w.f32(r.SR)
			w.f32(r.SG)
			w.f32(r.SB)
			w.f32(r.SA)
			w.f32(r.StrokeEnabled)
			w.f32(r.StrokeWidthPx)
		}
		for i := range doc.Lines {
			e := &doc.Lines[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.X0)
			w.f32(r.Y0)
			w.f32(r.X1)
			w.f32(r.Y1)
			w.f32(r.R)
			w.f32(r.G)
			w.f32(r.B)
			w.f32(r.A)
			w.f32(r.Enabled)
			w.f32(r.StrokeWidthPx)
		}
		for i := range doc.Polylines {
			e := &doc.Polylines[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.u32(r.Offset)
			w.u32(r.Count)
			w.f32(r.R)
			w.f32(r.G)
			w.f32(r.B)
			w.f32(r.A)
			w.f32(r.SR)
			w.f32(r.SG)
			w.f32(r.SB)
			w.f32(r.SA)
			w.f32(r.Enabled)
			w.f32(r.StrokeEnabled)
			w.f32(r.StrokeWidthPx)
		}
		for _, p := range doc.Points {
			w.f32(p.X)
			w.f32(p.Y)
		}
		for i := range doc.Circles {
			e := &doc.Circles[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.CX)
			w.f32(r.CY)
			w.f32(r.RX)
			w.f32(r.RY)
			w.f32(r.Rot)
			w.f32(r.SX)
			w.f32(r.SY)
			w.f32(r.R)
			w.f32(r.G)
			w.f32(r.B)
			w.f32(r.A)
			w.f32(r.SR)
			w.f32(r.SG)
			w.f32(r.SB)
			w.f32(r.SA)
			w.f32(r.StrokeEnabled)
			w.f32(r.StrokeWidthPx)
		}
		for i := range doc.Polygons {
			e := &doc.Polygons[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.CX)
			w.f32(r.CY)
			w.f32(r.RX)
			w.f32(r.RY)
			w.f32(r.Rot)
			w.f32(r.SX)
			w.f32(r.SY)
			w.u32(r.Sides)
			w.f32(r.R)
			w.f32(r.G)
			w.f32(r.B)
			w.f32(r.A)
			w.f32(r.SR)
			w.f32(r.SG)
			w.f32(r.SB)
			w.f32(r.SA)
			w.f32(r.StrokeEnabled)
			w.f32(r.StrokeWidthPx)
		}
		for i := range doc.Arrows {
			e := &doc.Arrows[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.AX)
			w.f32(r.AY)
			w.f32(r.BX)
			w.f32(r.BY)
			w.f32(r.Head)
			w.f32(r.SR)
			w.f32(r.SG)
			w.f32(r.SB)
			w.f32(r.SA)
			w.f32(r.StrokeEnabled)
			w.f32(r.StrokeWidthPx)
		}
		sections = append(sections, section{tagEntities, w.buf})
	}

	// LAYR
	{
		var w sectionWriter
		w.u32(uint32(len(doc.Layers)))
		for i := range doc.Layers {
			rec := &doc.Layers[i]
			w.u32(rec.ID)
			w.u32(rec.Order)
			w.u32(rec.Flags)
			w.u32(uint32(len(rec.Name)))
			w.bytes([]byte(rec.Name))
			w.u32(entity.PackRGBA(rec.Style.Stroke.Color))
			w.u32(entity.PackRGBA(rec.Style.Fill.Color))
			w.u32(entity.PackRGBA(rec.Style.TextColor.Color))
			w.u32(entity.PackRGBA(rec.Style.TextBackground.Color))
			w.u8(b2u8(rec.Style.Stroke.Enabled))
			w.u8(b2u8(rec.Style.Fill.Enabled))
			w.u8(b2u8(rec.Style.TextBackground.Enabled))
			w.u8(0)
		}
		sections = append(sections, section{tagLayers, w.buf})
	}

	// ORDR
	{
		var w sectionWriter
		w.u32(uint32(len(doc.DrawOrder)))
		for _, id := range doc.DrawOrder {
			w.u32(id)
		}
		sections = append(sections, section{tagOrder, w.buf})
	}

	// SELC
	{
		var w sectionWriter
		w.u32(uint32(len(doc.Selection)))
		for _, id := range doc.Selection {
			w.u32(id)
		}
		sections = append(sections, section{tagSelection, w.buf})
	}

	// TEXT
	{
		var w sectionWriter
		w.u32(uint32(len(doc.Texts)))
		for i := range doc.Texts {
			e := &doc.Texts[i]
			r := &e.Rec
			w.placement(r.ID, e.LayerID, e.Flags)
			w.f32(r.X)
			w.f32(r.Y)
			w.f32(r.Rotation)
			w.u8(r.BoxMode)
			w.u8(r.Align)
			w.u8(0)
			w.u8(0)
			w.f32(r.ConstraintWidth)
			w.u32(uint32(len(r.Runs)))
			w.u32(uint32(len(r.Content)))
			w.f32(r.LayoutWidth)
			w.f32(r.LayoutHeight)
			w.f32(r.MinX)
			w.f32(r.MinY)
			w.f32(r.MaxX)
			w.f32(r.MaxY)
			for _, run := range r.Runs {
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
			w.bytes(r.Content)
		}
		sections = append(sections, section{tagTexts, w.buf})
	}

	// STYL
	{
		var w sectionWriter
		w.u32(uint32(len(doc.Overrides)))
		for _, rec := range doc.Overrides {
			ov := rec.Override
			w.u32(rec.ID)
			w.u8(ov.ColorMask)
			w.u8(ov.EnabledMask)
			w.u8(0)
			w.u8(0)
			w.u32(entity.PackRGBA(ov.TextColor))
			w.u32(entity.PackRGBA(ov.TextBackground))
			w.u32(uint32(b2u8(ov.FillEnabled)))
			w.u32(uint32(b2u8(ov.TextBackgroundEnabled)))
		}
		sections = append(sections, section{tagStyles, w.buf})
	}

	// NIDX
	{
		var w sectionWriter
		w.u32(doc.NextID)
		sections = append(sections, section{tagNextID, w.buf})
	}

	// HIST is omitted entirely when the journal is empty.
	if len(doc.History) > 0 {
		sections = append(sections, section{tagHistory, doc.History})
	}

	total := headerBytes + len(sections)*sectionEntryBytes
	for _, sec := range sections {
		total += len(sec.bytes)
	}

	out := make([]byte, headerBytes, total)
	binary.LittleEndian.PutUint32(out[0:], Magic)
	binary.LittleEndian.PutUint32(out[4:], Version)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(sections)))
	binary.LittleEndian.PutUint32(out[12:], 0)

	dataOffset := headerBytes + len(sections)*sectionEntryBytes
	for _, sec := range sections {
		out = binary.LittleEndian.AppendUint32(out, sec.tag)
		out = binary.LittleEndian.AppendUint32(out, uint32(dataOffset))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(sec.bytes)))
		out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(sec.bytes))
		dataOffset += len(sec.bytes)
	}
	for _, sec := range sections {
		out = append(out, sec.bytes...)
	}
	return out
}

type sectionReader struct {
	buf []byte
	off int
	err error
}

func (r *sectionReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *sectionReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.fail(ErrTruncated)
		return false
	}
	return true
}

func (r *sectionReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *sectionReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *sectionReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *sectionReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

// count reads a record count and rejects counts that cannot fit in the
// remaining bytes at recordBytes each.
func (r *sectionReader) count(recordBytes int) uint32 {
	n := r.u32()
	if r.err == nil && recordBytes > 0 && uint64(n)*uint64(recordBytes) > uint64(len(r.buf)-r.off) {
		r.fail(ErrTruncated)
		return 0
	}
	return n
}

// Decode parses ESNP bytes into a Document. Nothing is decoded past the
// first failure and no partial Document is ever returned.
func Decode(data []byte) (*Document, error) {
	if len(data) < headerBytes {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != Version {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, v)
	}
	sectionCount := binary.LittleEndian.Uint32(data[8:])
	tableEnd := uint64(headerBytes) + uint64(sectionCount)*sectionEntryBytes
	if tableEnd > uint64(len(data)) {
		return nil, ErrTruncated
	}

	// First tag wins on duplicates.
	sections := make(map[uint32][]byte, sectionCount)
	for i := uint32(0); i < sectionCount; i++ {
		base := headerBytes + int(i)*sectionEntryBytes
		tag := binary.LittleEndian.Uint32(data[base:])
		offset := binary.LittleEndian.Uint32(data[base+4:])
		size := binary.LittleEndian.Uint32(data[base+8:])
		sum := binary.LittleEndian.Uint32(data[base+12:])

		if uint64(offset) < tableEnd {
			return nil, fmt.Errorf("%w: section %08x overlaps table", ErrCorrupt, tag)
		}
		if uint64(offset)+uint64(size) > uint64(len(data)) {
			return nil, ErrTruncated
		}
		payload := data[offset : offset+size]
		if crc32.ChecksumIEEE(payload) != sum {
			return nil, fmt.Errorf("%w: section %08x checksum mismatch", ErrCorrupt, tag)
		}
		if _, ok := sections[tag]; !ok {
			sections[tag] = payload
		}
	}

	for _, tag := range []uint32{tagEntities, tagLayers, tagOrder, tagSelection, tagTexts, tagNextID, tagStyles} {
		if _, ok := sections[tag]; !ok {
			return nil, fmt.Errorf("%w: missing section %08x", ErrCorrupt, tag)
		}
	}

	doc := &Document{}

	// ENTS
	{
		r := sectionReader{buf: sections[tagEntities]}
		rectCount := r.u32()
		lineCount := r.u32()
		polyCount := r.u32()
		pointCount := r.u32()
		circleCount := r.u32()
		polygonCount := r.u32()
		arrowCount := r.u32()
		if r.err != nil {
			return nil, r.err
		}

		for i := uint32(0); i < rectCount; i++ {
			if !r.need(rectRecordBytes) {
				break
			}
			var e RectEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.X, rec.Y, rec.W, rec.H = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Rot, rec.SX, rec.SY = r.f32(), r.f32(), r.f32()
			rec.R, rec.G, rec.B, rec.A = r.f32(), r.f32(), r.f32(), r.f32()
			rec.SR, rec.SG, rec.SB, rec.SA = r.f32(), r.f32(), r.f32(), r.f32()
			rec.StrokeEnabled, rec.StrokeWidthPx = r.f32(), r.f32()
			doc.Rects = append(doc.Rects, e)
		}
		for i := uint32(0); i < lineCount; i++ {
			if !r.need(lineRecordBytes) {
				break
			}
			var e LineEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.X0, rec.Y0, rec.X1, rec.Y1 = r.f32(), r.f32(), r.f32(), r.f32()
			rec.R, rec.G, rec.B, rec.A = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Enabled, rec.StrokeWidthPx = r.f32(), r.f32()
			doc.Lines = append(doc.Lines, e)
		}
		for i := uint32(0); i < polyCount; i++ {
			if !r.need(polyRecordBytes) {
				break
			}
			var e PolyEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.Offset, rec.Count = r.u32(), r.u32()
			rec.R, rec.G, rec.B, rec.A = r.f32(), r.f32(), r.f32(), r.f32()
			rec.SR, rec.SG, rec.SB, rec.SA = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Enabled, rec.StrokeEnabled, rec.StrokeWidthPx = r.f32(), r.f32(), r.f32()
			doc.Polylines = append(doc.Polylines, e)
		}
		for i := uint32(0); i < pointCount; i++ {
			if !r.need(pointRecordBytes) {
				break
			}
			doc.Points = append(doc.Points, entity.Point2{X: r.f32(), Y: r.f32()})
		}
		for i := uint32(0); i < circleCount; i++ {
			if !r.need(circleRecordBytes) {
				break
			}
			var e CircleEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.CX, rec.CY, rec.RX, rec.RY = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Rot, rec.SX, rec.SY = r.f32(), r.f32(), r.f32()
			rec.R, rec.G, rec.B, rec.A = r.f32(), r.f32(), r.f32(), r.f32()
			rec.SR, rec.SG, rec.SB, rec.SA = r.f32(), r.f32(), r.f32(), r.f32()
			rec.StrokeEnabled, rec.StrokeWidthPx = r.f32(), r.f32()
			doc.Circles = append(doc.Circles, e)
		}
		for i := uint32(0); i < polygonCount; i++ {
			if !r.need(polygonRecordBytes) {
				break
			}
			var e PolygonEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.CX, rec.CY, rec.RX, rec.RY = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Rot, rec.SX, rec.SY = r.f32(), r.f32(), r.f32()
			rec.Sides = r.u32()
			rec.R, rec.G, rec.B, rec.A = r.f32(), r.f32(), r.f32(), r.f32()
			rec.SR, rec.SG, rec.SB, rec.SA = r.f32(), r.f32(), r.f32(), r.f32()
			rec.StrokeEnabled, rec.StrokeWidthPx = r.f32(), r.f32()
			doc.Polygons = append(doc.Polygons, e)
		}
		for i := uint32(0); i < arrowCount; i++ {
			if !r.need(arrowRecordBytes) {
				break
			}
			var e ArrowEntry
			e.Rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec := &e.Rec
			rec.AX, rec.AY, rec.BX, rec.BY = r.f32(), r.f32(), r.f32(), r.f32()
			rec.Head = r.f32()
			rec.SR, rec.SG, rec.SB, rec.SA = r.f32(), r.f32(), r.f32(), r.f32()
			rec.StrokeEnabled, rec.StrokeWidthPx = r.f32(), r.f32()
			doc.Arrows = append(doc.Arrows, e)
		}
		if r.err != nil {
			return nil, r.err
		}
		for i := range doc.Polylines {
			rec := &doc.Polylines[i].Rec
			if uint64(rec.Offset)+uint64(rec.Count) > uint64(len(doc.Points)) {
				return nil, fmt.Errorf("%w: polyline %d points out of range", ErrCorrupt, rec.ID)
			}
		}
	}

	// LAYR
	{
		r := sectionReader{buf: sections[tagLayers]}
		layerCount := r.count(16 + layerStyleBytes)
		for i := uint32(0); i < layerCount && r.err == nil; i++ {
			var rec entity.LayerRecord
			rec.ID = r.u32()
			rec.Order = r.u32()
			rec.Flags = r.u32()
			nameLen := r.u32()
			if r.err == nil && uint64(nameLen)+layerStyleBytes > uint64(len(r.buf)-r.off) {
				r.fail(ErrTruncated)
				break
			}
			rec.Name = string(r.bytes(int(nameLen)))
			rec.Style.Stroke.Color = entity.UnpackRGBA(r.u32())
			rec.Style.Fill.Color = entity.UnpackRGBA(r.u32())
			rec.Style.TextColor.Color = entity.UnpackRGBA(r.u32())
			rec.Style.TextBackground.Color = entity.UnpackRGBA(r.u32())
			rec.Style.Stroke.Enabled = r.u8() != 0
			rec.Style.Fill.Enabled = r.u8() != 0
			rec.Style.TextBackground.Enabled = r.u8() != 0
			r.u8()
			// Text color has no wire toggle; it is always drawn.
			rec.Style.TextColor.Enabled = true
			if r.err == nil {
				doc.Layers = append(doc.Layers, rec)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// ORDR
	{
		r := sectionReader{buf: sections[tagOrder]}
		n := r.count(4)
		for i := uint32(0); i < n && r.err == nil; i++ {
			doc.DrawOrder = append(doc.DrawOrder, r.u32())
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// SELC
	{
		r := sectionReader{buf: sections[tagSelection]}
		n := r.count(4)
		for i := uint32(0); i < n && r.err == nil; i++ {
			doc.Selection = append(doc.Selection, r.u32())
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// NIDX
	{
		r := sectionReader{buf: sections[tagNextID]}
		doc.NextID = r.u32()
		if r.err != nil {
			return nil, r.err
		}
	}

	// TEXT
	{
		r := sectionReader{buf: sections[tagTexts]}
		n := r.count(textHeaderBytes)
		for i := uint32(0); i < n && r.err == nil; i++ {
			if !r.need(textHeaderBytes) {
				break
			}
			var e TextEntry
			rec := &e.Rec
			rec.ID = r.u32()
			e.LayerID = r.u32()
			e.Flags = r.u32()
			rec.X, rec.Y, rec.Rotation = r.f32(), r.f32(), r.f32()
			rec.BoxMode = r.u8()
			rec.Align = r.u8()
			r.u8()
			r.u8()
			rec.ConstraintWidth = r.f32()
			runCount := r.u32()
			contentLength := r.u32()
			rec.LayoutWidth, rec.LayoutHeight = r.f32(), r.f32()
			rec.MinX, rec.MinY = r.f32(), r.f32()
			rec.MaxX, rec.MaxY = r.f32(), r.f32()

			if r.err == nil && uint64(runCount)*textRunRecordBytes > uint64(len(r.buf)-r.off) {
				r.fail(ErrTruncated)
				break
			}
			rec.Runs = make([]entity.TextRun, 0, runCount)
			for j := uint32(0); j < runCount && r.err == nil; j++ {
				run := entity.TextRun{
					StartIndex: r.u32(),
					Length:     r.u32(),
					FontID:     r.u32(),
					FontSize:   r.f32(),
					ColorRGBA:  r.u32(),
					Flags:      r.u8(),
				}
				r.u8()
				r.u8()
				r.u8()
				rec.Runs = append(rec.Runs, run)
			}
			rec.Content = append([]byte(nil), r.bytes(int(contentLength))...)
			if r.err == nil {
				doc.Texts = append(doc.Texts, e)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// STYL
	{
		r := sectionReader{buf: sections[tagStyles]}
		n := r.count(overrideRecordBytes)
		for i := uint32(0); i < n && r.err == nil; i++ {
			var rec OverrideEntry
			rec.ID = r.u32()
			rec.Override.ColorMask = r.u8()
			rec.Override.EnabledMask = r.u8()
			r.u8()
			r.u8()
			rec.Override.TextColor = entity.UnpackRGBA(r.u32())
			rec.Override.TextBackground = entity.UnpackRGBA(r.u32())
			rec.Override.FillEnabled = r.u32() != 0
			rec.Override.TextBackgroundEnabled = r.u32() != 0
			if r.err == nil {
				doc.Overrides = append(doc.Overrides, rec)
			}
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	// HIST
	if hist, ok := sections[tagHistory]; ok && len(hist) > 0 {
		doc.History = append([]byte(nil), hist...)
	}

	return doc, nil
}

func b2u8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
