package protocol

import (
	"encoding/binary"
	"math"
)

// Point is one polyline vertex on the wire.
type Point struct {
	X, Y float32
}

// RectPayload carries a 56-byte rectangle upsert.
type RectPayload struct {
	X, Y, W, H                             float32
	FillR, FillG, FillB, FillA             float32
	StrokeR, StrokeG, StrokeB, StrokeA     float32
	StrokeEnabled, StrokeWidthPx           float32
}

// LinePayload carries a 40-byte line upsert.
type LinePayload struct {
	X0, Y0, X1, Y1 float32
	R, G, B, A     float32
	Enabled        float32
	StrokeWidthPx  float32
}

// PolylinePayload carries the polyline style header plus its points.
type PolylinePayload struct {
	R, G, B, A    float32
	Enabled       float32
	StrokeWidthPx float32
	Points        []Point
}

// CirclePayload carries a 68-byte ellipse upsert.
type CirclePayload struct {
	CX, CY, RX, RY                     float32
	Rot, SX, SY                        float32
	FillR, FillG, FillB, FillA         float32
	StrokeR, StrokeG, StrokeB, StrokeA float32
	StrokeEnabled, StrokeWidthPx       float32
}

// PolygonPayload carries a 72-byte regular polygon upsert.
type PolygonPayload struct {
	CX, CY, RX, RY                     float32
	Rot, SX, SY                        float32
	Sides                              uint32
	FillR, FillG, FillB, FillA         float32
	StrokeR, StrokeG, StrokeB, StrokeA float32
	StrokeEnabled, StrokeWidthPx       float32
}

// ArrowPayload carries a 44-byte arrow upsert.
type ArrowPayload struct {
	AX, AY, BX, BY                     float32
	Head                               float32
	StrokeR, StrokeG, StrokeB, StrokeA float32
	StrokeEnabled, StrokeWidthPx       float32
}

// ViewScalePayload carries the 20-byte viewport update.
type ViewScalePayload struct {
	Scale         float32
	X, Y          float32
	Width, Height float32
}

// TextRunPayload is one styled run in a text upsert, 24 bytes on the wire.
type TextRunPayload struct {
	StartIndex uint32
	Length     uint32
	FontID     uint32
	FontSize   float32
	ColorRGBA  uint32
	Flags      uint8
}

// TextPayload carries a text upsert: 28-byte header, runs, UTF-8 content.
type TextPayload struct {
	X, Y, Rotation  float32
	BoxMode, Align  uint8
	ConstraintWidth float32
	Runs            []TextRunPayload
	Content         []byte
}

// TextCaretPayload sets the caret position.
type TextCaretPayload struct {
	TextID     uint32
	CaretIndex uint32
}

// TextSelectionPayload sets the selection range.
type TextSelectionPayload struct {
	TextID uint32
	Start  uint32
	End    uint32
}

// TextInsertPayload inserts content at a byte index.
type TextInsertPayload struct {
	TextID      uint32
	InsertIndex uint32
	Content     []byte
}

// TextDeletePayload removes the byte range [Start, End).
type TextDeletePayload struct {
	TextID uint32
	Start  uint32
	End    uint32
}

// TextReplacePayload replaces the byte range [Start, End) with Content.
type TextReplacePayload struct {
	TextID  uint32
	Start   uint32
	End     uint32
	Content []byte
}

// TextAlignPayload sets the paragraph alignment.
type TextAlignPayload struct {
	TextID uint32
	Align  uint32
}

// Style flag bits applied to text runs.
const (
	TextStyleBold      uint8 = 1 << 0
	TextStyleItalic    uint8 = 1 << 1
	TextStyleUnderline uint8 = 1 << 2
	TextStyleStrike    uint8 = 1 << 3
)

// ApplyTextStyle modes.
const (
	TextStyleModeSet    uint8 = 0
	TextStyleModeClear  uint8 = 1
	TextStyleModeToggle uint8 = 2
)

// Style parameter tags in the ApplyTextStyle TLV block.
const (
	TextStyleTagFontWeight    uint8 = 0x01 // u16
	TextStyleTagLetterSpacing uint8 = 0x02 // f32
	TextStyleTagFontSize      uint8 = 0x03 // f32
	TextStyleTagFontID        uint8 = 0x04 // u32
)

// TextStyleParams holds the optional run parameters decoded from the TLV
// block. Nil pointers mean the parameter was absent.
type TextStyleParams struct {
	FontWeight    *uint16
	LetterSpacing *float32
	FontSize      *float32
	FontID        *uint32
}

// ApplyTextStylePayload carries a styled-range edit: flag bits applied under
// a mask plus optional TLV parameters. The 18-byte header is packed.
type ApplyTextStylePayload struct {
	TextID     uint32
	RangeStart uint32
	RangeEnd   uint32
	FlagsMask  uint8
	FlagsValue uint8
	Mode       uint8
	Params     TextStyleParams
}

// LayerStylePayload recolors one channel of the layer named by the command
// id. Target indexes stroke/fill/text-color/text-background.
type LayerStylePayload struct {
	Target    uint32
	ColorRGBA uint32
}

// LayerStyleEnabledPayload toggles one channel of a layer style.
type LayerStyleEnabledPayload struct {
	Target  uint32
	Enabled uint32
}

// EntityStylePayload applies a color override to a batch of entities.
type EntityStylePayload struct {
	Target    uint32
	ColorRGBA uint32
	IDs       []uint32
}

// EntityStyleClearPayload clears override bits from a batch of entities.
type EntityStyleClearPayload struct {
	Target uint32
	IDs    []uint32
}

// EntityStyleEnabledPayload applies an enable override to a batch.
type EntityStyleEnabledPayload struct {
	Target  uint32
	Enabled uint32
	IDs     []uint32
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

// ParseRect decodes a RectPayload, enforcing the exact wire size.
func ParseRect(payload []byte) (RectPayload, ErrorCode) {
	if len(payload) != 56 {
		return RectPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return RectPayload{
		X: r.f32(), Y: r.f32(), W: r.f32(), H: r.f32(),
		FillR: r.f32(), FillG: r.f32(), FillB: r.f32(), FillA: r.f32(),
		StrokeR: r.f32(), StrokeG: r.f32(), StrokeB: r.f32(), StrokeA: r.f32(),
		StrokeEnabled: r.f32(), StrokeWidthPx: r.f32(),
	}, Ok
}

// ParseLine decodes a LinePayload.
func ParseLine(payload []byte) (LinePayload, ErrorCode) {
	if len(payload) != 40 {
		return LinePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return LinePayload{
		X0: r.f32(), Y0: r.f32(), X1: r.f32(), Y1: r.f32(),
		R: r.f32(), G: r.f32(), B: r.f32(), A: r.f32(),
		Enabled: r.f32(), StrokeWidthPx: r.f32(),
	}, Ok
}

// ParsePolyline decodes the style header and point list. The declared point
// count must match the payload size exactly.
func ParsePolyline(payload []byte) (PolylinePayload, ErrorCode) {
	const headerBytes = 32
	if len(payload) < headerBytes {
		return PolylinePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := PolylinePayload{
		R: r.f32(), G: r.f32(), B: r.f32(), A: r.f32(),
		Enabled: r.f32(), StrokeWidthPx: r.f32(),
	}
	count := r.u32()
	r.u32() // reserved
	if uint32(len(payload)-headerBytes) != count*8 || count > uint32(len(payload))/8 {
		return PolylinePayload{}, ErrInvalidPayloadSize
	}
	p.Points = make([]Point, count)
	for i := range p.Points {
		p.Points[i] = Point{X: r.f32(), Y: r.f32()}
	}
	return p, Ok
}

// ParseCircle decodes a CirclePayload.
func ParseCircle(payload []byte) (CirclePayload, ErrorCode) {
	if len(payload) != 68 {
		return CirclePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return CirclePayload{
		CX: r.f32(), CY: r.f32(), RX: r.f32(), RY: r.f32(),
		Rot: r.f32(), SX: r.f32(), SY: r.f32(),
		FillR: r.f32(), FillG: r.f32(), FillB: r.f32(), FillA: r.f32(),
		StrokeR: r.f32(), StrokeG: r.f32(), StrokeB: r.f32(), StrokeA: r.f32(),
		StrokeEnabled: r.f32(), StrokeWidthPx: r.f32(),
	}, Ok
}

// ParsePolygon decodes a PolygonPayload.
func ParsePolygon(payload []byte) (PolygonPayload, ErrorCode) {
	if len(payload) != 72 {
		return PolygonPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return PolygonPayload{
		CX: r.f32(), CY: r.f32(), RX: r.f32(), RY: r.f32(),
		Rot: r.f32(), SX: r.f32(), SY: r.f32(),
		Sides: r.u32(),
		FillR: r.f32(), FillG: r.f32(), FillB: r.f32(), FillA: r.f32(),
		StrokeR: r.f32(), StrokeG: r.f32(), StrokeB: r.f32(), StrokeA: r.f32(),
		StrokeEnabled: r.f32(), StrokeWidthPx: r.f32(),
	}, Ok
}

// ParseArrow decodes an ArrowPayload.
func ParseArrow(payload []byte) (ArrowPayload, ErrorCode) {
	if len(payload) != 44 {
		return ArrowPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return ArrowPayload{
		AX: r.f32(), AY: r.f32(), BX: r.f32(), BY: r.f32(),
		Head:    r.f32(),
		StrokeR: r.f32(), StrokeG: r.f32(), StrokeB: r.f32(), StrokeA: r.f32(),
		StrokeEnabled: r.f32(), StrokeWidthPx: r.f32(),
	}, Ok
}

// ParseViewScale decodes a ViewScalePayload.
func ParseViewScale(payload []byte) (ViewScalePayload, ErrorCode) {
	if len(payload) != 20 {
		return ViewScalePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return ViewScalePayload{
		Scale: r.f32(), X: r.f32(), Y: r.f32(), Width: r.f32(), Height: r.f32(),
	}, Ok
}

// ParseDrawOrder decodes the id list of a draw order update.
func ParseDrawOrder(payload []byte) ([]uint32, ErrorCode) {
	const headerBytes = 8
	if len(payload) < headerBytes {
		return nil, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	count := r.u32()
	r.u32() // reserved
	if uint32(len(payload)-headerBytes) != count*4 || count > uint32(len(payload))/4 {
		return nil, ErrInvalidPayloadSize
	}
	ids := make([]uint32, count)
	for i := range ids {
		ids[i] = r.u32()
	}
	return ids, Ok
}

// ParseText decodes a text upsert: header, runs, then UTF-8 content.
func ParseText(payload []byte) (TextPayload, ErrorCode) {
	const headerBytes = 28
	const runBytes = 24
	if len(payload) < headerBytes {
		return TextPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := TextPayload{X: r.f32(), Y: r.f32(), Rotation: r.f32()}
	p.BoxMode = r.u8()
	p.Align = r.u8()
	r.u8()
	r.u8()
	p.ConstraintWidth = r.f32()
	runCount := r.u32()
	contentLength := r.u32()

	if runCount > uint32(len(payload))/runBytes {
		return TextPayload{}, ErrInvalidPayloadSize
	}
	expected := uint64(headerBytes) + uint64(runCount)*runBytes + uint64(contentLength)
	if expected != uint64(len(payload)) {
		return TextPayload{}, ErrInvalidPayloadSize
	}

	p.Runs = make([]TextRunPayload, runCount)
	for i := range p.Runs {
		run := &p.Runs[i]
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
	p.Content = payload[r.off:]
	return p, Ok
}

// ParseTextCaret decodes a caret update.
func ParseTextCaret(payload []byte) (TextCaretPayload, ErrorCode) {
	if len(payload) != 8 {
		return TextCaretPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return TextCaretPayload{TextID: r.u32(), CaretIndex: r.u32()}, Ok
}

// ParseTextSelection decodes a selection update.
func ParseTextSelection(payload []byte) (TextSelectionPayload, ErrorCode) {
	if len(payload) != 12 {
		return TextSelectionPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return TextSelectionPayload{TextID: r.u32(), Start: r.u32(), End: r.u32()}, Ok
}

// ParseTextInsert decodes a content insertion.
func ParseTextInsert(payload []byte) (TextInsertPayload, ErrorCode) {
	const headerBytes = 16
	if len(payload) < headerBytes {
		return TextInsertPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := TextInsertPayload{TextID: r.u32(), InsertIndex: r.u32()}
	byteLength := r.u32()
	r.u32() // reserved
	if uint32(len(payload)-headerBytes) != byteLength {
		return TextInsertPayload{}, ErrInvalidPayloadSize
	}
	p.Content = payload[headerBytes:]
	return p, Ok
}

// ParseTextDelete decodes a range deletion.
func ParseTextDelete(payload []byte) (TextDeletePayload, ErrorCode) {
	if len(payload) != 16 {
		return TextDeletePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return TextDeletePayload{TextID: r.u32(), Start: r.u32(), End: r.u32()}, Ok
}

// ParseTextReplace decodes a range replacement.
func ParseTextReplace(payload []byte) (TextReplacePayload, ErrorCode) {
	const headerBytes = 16
	if len(payload) < headerBytes {
		return TextReplacePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := TextReplacePayload{TextID: r.u32(), Start: r.u32(), End: r.u32()}
	byteLength := r.u32()
	if uint32(len(payload)-headerBytes) != byteLength {
		return TextReplacePayload{}, ErrInvalidPayloadSize
	}
	p.Content = payload[headerBytes:]
	return p, Ok
}

// ParseTextAlign decodes an alignment update.
func ParseTextAlign(payload []byte) (TextAlignPayload, ErrorCode) {
	if len(payload) != 8 {
		return TextAlignPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return TextAlignPayload{TextID: r.u32(), Align: r.u32()}, Ok
}

// ParseApplyTextStyle decodes the packed 18-byte header and its TLV block.
func ParseApplyTextStyle(payload []byte) (ApplyTextStylePayload, ErrorCode) {
	const headerBytes = 18
	if len(payload) < headerBytes {
		return ApplyTextStylePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := ApplyTextStylePayload{
		TextID:     r.u32(),
		RangeStart: r.u32(),
		RangeEnd:   r.u32(),
	}
	p.FlagsMask = r.u8()
	p.FlagsValue = r.u8()
	p.Mode = r.u8()
	paramsVersion := r.u8()
	paramsLen := r.u16()
	if int(paramsLen) != len(payload)-headerBytes {
		return ApplyTextStylePayload{}, ErrInvalidPayloadSize
	}
	if paramsVersion == 0 && paramsLen != 0 {
		return ApplyTextStylePayload{}, ErrInvalidPayloadSize
	}
	if paramsLen > 0 {
		params, code := parseStyleParams(payload[headerBytes:])
		if code != Ok {
			return ApplyTextStylePayload{}, code
		}
		p.Params = params
	}
	return p, Ok
}

func parseStyleParams(block []byte) (TextStyleParams, ErrorCode) {
	var params TextStyleParams
	r := reader{buf: block}
	for r.remaining() > 0 {
		tag := r.u8()
		switch {
		case tag == TextStyleTagFontWeight:
			if r.remaining() < 2 {
				return params, ErrInvalidPayloadSize
			}
			v := r.u16()
			params.FontWeight = &v
		case tag == TextStyleTagLetterSpacing:
			if r.remaining() < 4 {
				return params, ErrInvalidPayloadSize
			}
			v := r.f32()
			params.LetterSpacing = &v
		case tag == TextStyleTagFontSize:
			if r.remaining() < 4 {
				return params, ErrInvalidPayloadSize
			}
			v := r.f32()
			params.FontSize = &v
		case tag == TextStyleTagFontID:
			if r.remaining() < 4 {
				return params, ErrInvalidPayloadSize
			}
			v := r.u32()
			params.FontID = &v
		case tag >= 0x10 && tag <= 0x3F:
			// Variable font axis values are accepted and ignored.
			if r.remaining() < 4 {
				return params, ErrInvalidPayloadSize
			}
			r.f32()
		default:
			return params, ErrInvalidPayloadSize
		}
	}
	return params, Ok
}

// ParseLayerStyle decodes a layer color update.
func ParseLayerStyle(payload []byte) (LayerStylePayload, ErrorCode) {
	if len(payload) != 8 {
		return LayerStylePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return LayerStylePayload{Target: r.u32(), ColorRGBA: r.u32()}, Ok
}

// ParseLayerStyleEnabled decodes a layer channel toggle.
func ParseLayerStyleEnabled(payload []byte) (LayerStyleEnabledPayload, ErrorCode) {
	if len(payload) != 8 {
		return LayerStyleEnabledPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	return LayerStyleEnabledPayload{Target: r.u32(), Enabled: r.u32()}, Ok
}

// ParseEntityStyle decodes a batched color override.
func ParseEntityStyle(payload []byte) (EntityStylePayload, ErrorCode) {
	const headerBytes = 12
	if len(payload) < headerBytes {
		return EntityStylePayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := EntityStylePayload{Target: r.u32(), ColorRGBA: r.u32()}
	count := r.u32()
	if uint32(len(payload)-headerBytes) != count*4 || count > uint32(len(payload))/4 {
		return EntityStylePayload{}, ErrInvalidPayloadSize
	}
	p.IDs = make([]uint32, count)
	for i := range p.IDs {
		p.IDs[i] = r.u32()
	}
	return p, Ok
}

// ParseEntityStyleClear decodes a batched override clear.
func ParseEntityStyleClear(payload []byte) (EntityStyleClearPayload, ErrorCode) {
	const headerBytes = 8
	if len(payload) < headerBytes {
		return EntityStyleClearPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := EntityStyleClearPayload{Target: r.u32()}
	count := r.u32()
	if uint32(len(payload)-headerBytes) != count*4 || count > uint32(len(payload))/4 {
		return EntityStyleClearPayload{}, ErrInvalidPayloadSize
	}
	p.IDs = make([]uint32, count)
	for i := range p.IDs {
		p.IDs[i] = r.u32()
	}
	return p, Ok
}

// ParseEntityStyleEnabled decodes a batched enable override.
func ParseEntityStyleEnabled(payload []byte) (EntityStyleEnabledPayload, ErrorCode) {
	const headerBytes = 12
	if len(payload) < headerBytes {
		return EntityStyleEnabledPayload{}, ErrInvalidPayloadSize
	}
	r := reader{buf: payload}
	p := EntityStyleEnabledPayload{Target: r.u32(), Enabled: r.u32()}
	count := r.u32()
	if uint32(len(payload)-headerBytes) != count*4 || count > uint32(len(payload))/4 {
		return EntityStyleEnabledPayload{}, ErrInvalidPayloadSize
	}
	p.IDs = make([]uint32, count)
	for i := range p.IDs {
		p.IDs[i] = r.u32()
	}
	return p, Ok
}
