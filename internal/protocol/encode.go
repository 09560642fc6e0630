package protocol

import (
	"encoding/binary"
	"math"
)

// Builder assembles a command buffer. The zero value is not usable; call
// NewBuilder. Finish patches the command count into the header and returns
// the finished buffer.
type Builder struct {
	buf   []byte
	count uint32
}

// NewBuilder returns a Builder with the buffer header already written.
func NewBuilder() *Builder {
	b := &Builder{buf: make([]byte, 0, 256)}
	b.buf = binary.LittleEndian.AppendUint32(b.buf, Magic)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, Version)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, 0) // count, patched in Finish
	b.buf = binary.LittleEndian.AppendUint32(b.buf, 0) // reserved
	return b
}

// Finish returns the encoded buffer. The Builder may keep being appended to
// afterwards; each Finish re-patches the count.
func (b *Builder) Finish() []byte {
	binary.LittleEndian.PutUint32(b.buf[8:], b.count)
	return b.buf
}

// Count reports the number of commands appended so far.
func (b *Builder) Count() uint32 { return b.count }

// Append adds a raw command.
func (b *Builder) Append(op Op, id uint32, payload []byte) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(op))
	b.buf = binary.LittleEndian.AppendUint32(b.buf, id)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(len(payload)))
	b.buf = binary.LittleEndian.AppendUint32(b.buf, 0) // reserved
	b.buf = append(b.buf, payload...)
	b.count++
	return b
}

func (b *Builder) u8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) u16(v uint16) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

func (b *Builder) u32(v uint32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) f32(v float32) *Builder {
	return b.u32(math.Float32bits(v))
}

// header writes the command header for an op whose payload size is known up
// front, so the payload can be appended field by field.
func (b *Builder) header(op Op, id, payloadLen uint32) {
	b.u32(uint32(op)).u32(id).u32(payloadLen).u32(0)
	b.count++
}

// AppendClearAll appends a document reset.
func (b *Builder) AppendClearAll() *Builder {
	b.header(OpClearAll, 0, 0)
	return b
}

// AppendRect appends a rectangle upsert.
func (b *Builder) AppendRect(id uint32, p RectPayload) *Builder {
	b.header(OpUpsertRect, id, 56)
	b.f32(p.X).f32(p.Y).f32(p.W).f32(p.H)
	b.f32(p.FillR).f32(p.FillG).f32(p.FillB).f32(p.FillA)
	b.f32(p.StrokeR).f32(p.StrokeG).f32(p.StrokeB).f32(p.StrokeA)
	b.f32(p.StrokeEnabled).f32(p.StrokeWidthPx)
	return b
}

// AppendLine appends a line upsert.
func (b *Builder) AppendLine(id uint32, p LinePayload) *Builder {
	b.header(OpUpsertLine, id, 40)
	b.f32(p.X0).f32(p.Y0).f32(p.X1).f32(p.Y1)
	b.f32(p.R).f32(p.G).f32(p.B).f32(p.A)
	b.f32(p.Enabled).f32(p.StrokeWidthPx)
	return b
}

// AppendPolyline appends a polyline upsert.
func (b *Builder) AppendPolyline(id uint32, p PolylinePayload) *Builder {
	b.header(OpUpsertPolyline, id, uint32(32+len(p.Points)*8))
	b.f32(p.R).f32(p.G).f32(p.B).f32(p.A)
	b.f32(p.Enabled).f32(p.StrokeWidthPx)
	b.u32(uint32(len(p.Points))).u32(0)
	for _, pt := range p.Points {
		b.f32(pt.X).f32(pt.Y)
	}
	return b
}

// AppendCircle appends an ellipse upsert.
func (b *Builder) AppendCircle(id uint32, p CirclePayload) *Builder {
	b.header(OpUpsertCircle, id, 68)
	b.f32(p.CX).f32(p.CY).f32(p.RX).f32(p.RY)
	b.f32(p.Rot).f32(p.SX).f32(p.SY)
	b.f32(p.FillR).f32(p.FillG).f32(p.FillB).f32(p.FillA)
	b.f32(p.StrokeR).f32(p.StrokeG).f32(p.StrokeB).f32(p.StrokeA)
	b.f32(p.StrokeEnabled).f32(p.StrokeWidthPx)
	return b
}

// AppendPolygon appends a regular polygon upsert.
func (b *Builder) AppendPolygon(id uint32, p PolygonPayload) *Builder {
	b.header(OpUpsertPolygon, id, 72)
	b.f32(p.CX).f32(p.CY).f32(p.RX).f32(p.RY)
	b.f32(p.Rot).f32(p.SX).f32(p.SY)
	b.u32(p.Sides)
	b.f32(p.FillR).f32(p.FillG).f32(p.FillB).f32(p.FillA)
	b.f32(p.StrokeR).f32(p.StrokeG).f32(p.StrokeB).f32(p.StrokeA)
	b.f32(p.StrokeEnabled).f32(p.StrokeWidthPx)
	return b
}

// AppendArrow appends an arrow upsert.
func (b *Builder) AppendArrow(id uint32, p ArrowPayload) *Builder {
	b.header(OpUpsertArrow, id, 44)
	b.f32(p.AX).f32(p.AY).f32(p.BX).f32(p.BY)
	b.f32(p.Head)
	b.f32(p.StrokeR).f32(p.StrokeG).f32(p.StrokeB).f32(p.StrokeA)
	b.f32(p.StrokeEnabled).f32(p.StrokeWidthPx)
	return b
}

// AppendDeleteEntity appends an entity deletion.
func (b *Builder) AppendDeleteEntity(id uint32) *Builder {
	b.header(OpDeleteEntity, id, 0)
	return b
}

// AppendDrawOrder appends a full draw order replacement.
func (b *Builder) AppendDrawOrder(ids []uint32) *Builder {
	b.header(OpSetDrawOrder, 0, uint32(8+len(ids)*4))
	b.u32(uint32(len(ids))).u32(0)
	for _, id := range ids {
		b.u32(id)
	}
	return b
}

// AppendViewScale appends a viewport update.
func (b *Builder) AppendViewScale(p ViewScalePayload) *Builder {
	b.header(OpSetViewScale, 0, 20)
	b.f32(p.Scale).f32(p.X).f32(p.Y).f32(p.Width).f32(p.Height)
	return b
}

// AppendText appends a text upsert.
func (b *Builder) AppendText(id uint32, p TextPayload) *Builder {
	b.header(OpUpsertText, id, uint32(28+len(p.Runs)*24+len(p.Content)))
	b.f32(p.X).f32(p.Y).f32(p.Rotation)
	b.u8(p.BoxMode).u8(p.Align).u8(0).u8(0)
	b.f32(p.ConstraintWidth)
	b.u32(uint32(len(p.Runs))).u32(uint32(len(p.Content)))
	for _, run := range p.Runs {
		b.u32(run.StartIndex).u32(run.Length).u32(run.FontID)
		b.f32(run.FontSize).u32(run.ColorRGBA)
		b.u8(run.Flags).u8(0).u8(0).u8(0)
	}
	b.buf = append(b.buf, p.Content...)
	return b
}

// AppendDeleteText appends a text deletion.
func (b *Builder) AppendDeleteText(id uint32) *Builder {
	b.header(OpDeleteText, id, 0)
	return b
}

// AppendTextCaret appends a caret update.
func (b *Builder) AppendTextCaret(textID, caretIndex uint32) *Builder {
	b.header(OpSetTextCaret, textID, 8)
	b.u32(textID).u32(caretIndex)
	return b
}

// AppendTextSelection appends a selection update.
func (b *Builder) AppendTextSelection(textID, start, end uint32) *Builder {
	b.header(OpSetTextSelection, textID, 12)
	b.u32(textID).u32(start).u32(end)
	return b
}

// AppendTextInsert appends a content insertion.
func (b *Builder) AppendTextInsert(textID, insertIndex uint32, content []byte) *Builder {
	b.header(OpInsertTextContent, textID, uint32(16+len(content)))
	b.u32(textID).u32(insertIndex).u32(uint32(len(content))).u32(0)
	b.buf = append(b.buf, content...)
	return b
}

// AppendTextDelete appends a range deletion.
func (b *Builder) AppendTextDelete(textID, start, end uint32) *Builder {
	b.header(OpDeleteTextContent, textID, 16)
	b.u32(textID).u32(start).u32(end).u32(0)
	return b
}

// AppendTextReplace appends a range replacement.
func (b *Builder) AppendTextReplace(textID, start, end uint32, content []byte) *Builder {
	b.header(OpReplaceTextContent, textID, uint32(16+len(content)))
	b.u32(textID).u32(start).u32(end).u32(uint32(len(content)))
	b.buf = append(b.buf, content...)
	return b
}

// AppendTextAlign appends an alignment update.
func (b *Builder) AppendTextAlign(textID, align uint32) *Builder {
	b.header(OpSetTextAlign, textID, 8)
	b.u32(textID).u32(align)
	return b
}

// AppendApplyTextStyle appends a styled-range edit with its TLV block.
func (b *Builder) AppendApplyTextStyle(p ApplyTextStylePayload) *Builder {
	params := encodeStyleParams(p.Params)
	b.header(OpApplyTextStyle, p.TextID, uint32(18+len(params)))
	b.u32(p.TextID).u32(p.RangeStart).u32(p.RangeEnd)
	b.u8(p.FlagsMask).u8(p.FlagsValue).u8(p.Mode)
	version := uint8(0)
	if len(params) > 0 {
		version = 1
	}
	b.u8(version)
	b.u16(uint16(len(params)))
	b.buf = append(b.buf, params...)
	return b
}

func encodeStyleParams(p TextStyleParams) []byte {
	var out []byte
	if p.FontWeight != nil {
		out = append(out, TextStyleTagFontWeight)
		out = binary.LittleEndian.AppendUint16(out, *p.FontWeight)
	}
	if p.LetterSpacing != nil {
		out = append(out, TextStyleTagLetterSpacing)
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(*p.LetterSpacing))
	}
	if p.FontSize != nil {
		out = append(out, TextStyleTagFontSize)
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(*p.FontSize))
	}
	if p.FontID != nil {
		out = append(out, TextStyleTagFontID)
		out = binary.LittleEndian.AppendUint32(out, *p.FontID)
	}
	return out
}

// AppendLayerStyle appends a layer color update for the layer in id.
func (b *Builder) AppendLayerStyle(layerID, target, colorRGBA uint32) *Builder {
	b.header(OpSetLayerStyle, layerID, 8)
	b.u32(target).u32(colorRGBA)
	return b
}

// AppendLayerStyleEnabled appends a layer channel toggle.
func (b *Builder) AppendLayerStyleEnabled(layerID, target uint32, enabled bool) *Builder {
	b.header(OpSetLayerStyleEnabled, layerID, 8)
	v := uint32(0)
	if enabled {
		v = 1
	}
	b.u32(target).u32(v)
	return b
}

// AppendEntityStyle appends a batched color override.
func (b *Builder) AppendEntityStyle(target, colorRGBA uint32, ids []uint32) *Builder {
	b.header(OpSetEntityStyleOverride, 0, uint32(12+len(ids)*4))
	b.u32(target).u32(colorRGBA).u32(uint32(len(ids)))
	for _, id := range ids {
		b.u32(id)
	}
	return b
}

// AppendEntityStyleClear appends a batched override clear.
func (b *Builder) AppendEntityStyleClear(target uint32, ids []uint32) *Builder {
	b.header(OpClearEntityStyleOverride, 0, uint32(8+len(ids)*4))
	b.u32(target).u32(uint32(len(ids)))
	for _, id := range ids {
		b.u32(id)
	}
	return b
}

// AppendEntityStyleEnabled appends a batched enable override.
func (b *Builder) AppendEntityStyleEnabled(target uint32, enabled bool, ids []uint32) *Builder {
	b.header(OpSetEntityStyleEnabled, 0, uint32(12+len(ids)*4))
	v := uint32(0)
	if enabled {
		v = 1
	}
	b.u32(target).u32(v).u32(uint32(len(ids)))
	for _, id := range ids {
		b.u32(id)
	}
	return b
}
