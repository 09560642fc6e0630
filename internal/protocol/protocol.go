// Package protocol defines the binary command buffer format: a fixed header
// followed by length-prefixed commands. Decoding is zero-copy; payload
// slices alias the input buffer.
package protocol

import "encoding/binary"

// Magic spells "EWDC" when read little-endian from the wire.
const Magic uint32 = 0x43445745

// Version is the only supported command buffer version.
const Version uint32 = 1

// BufferHeaderBytes is the size of the buffer header: magic, version,
// command count, reserved.
const BufferHeaderBytes = 16

// CommandHeaderBytes is the size of each per-command header: op, id,
// payload length, reserved.
const CommandHeaderBytes = 16

// Op identifies a command.
type Op uint32

const (
	OpClearAll                 Op = 1
	OpUpsertRect               Op = 2
	OpUpsertLine               Op = 3
	OpUpsertPolyline           Op = 4
	OpDeleteEntity             Op = 5
	OpSetDrawOrder             Op = 6
	OpSetViewScale             Op = 7
	OpUpsertCircle             Op = 8
	OpUpsertPolygon            Op = 9
	OpUpsertArrow              Op = 10
	OpUpsertText               Op = 11
	OpDeleteText               Op = 12
	OpSetTextCaret             Op = 13
	OpSetTextSelection         Op = 14
	OpInsertTextContent        Op = 15
	OpDeleteTextContent        Op = 16
	OpApplyTextStyle           Op = 17
	OpSetTextAlign             Op = 18
	OpReplaceTextContent       Op = 19
	OpSetLayerStyle            Op = 20
	OpSetLayerStyleEnabled     Op = 21
	OpSetEntityStyleOverride   Op = 22
	OpClearEntityStyleOverride Op = 23
	OpSetEntityStyleEnabled    Op = 24
)

func (op Op) String() string {
	switch op {
	case OpClearAll:
		return "ClearAll"
	case OpUpsertRect:
		return "UpsertRect"
	case OpUpsertLine:
		return "UpsertLine"
	case OpUpsertPolyline:
		return "UpsertPolyline"
	case OpDeleteEntity:
		return "DeleteEntity"
	case OpSetDrawOrder:
		return "SetDrawOrder"
	case OpSetViewScale:
		return "SetViewScale"
	case OpUpsertCircle:
		return "UpsertCircle"
	case OpUpsertPolygon:
		return "UpsertPolygon"
	case OpUpsertArrow:
		return "UpsertArrow"
	case OpUpsertText:
		return "UpsertText"
	case OpDeleteText:
		return "DeleteText"
	case OpSetTextCaret:
		return "SetTextCaret"
	case OpSetTextSelection:
		return "SetTextSelection"
	case OpInsertTextContent:
		return "InsertTextContent"
	case OpDeleteTextContent:
		return "DeleteTextContent"
	case OpApplyTextStyle:
		return "ApplyTextStyle"
	case OpSetTextAlign:
		return "SetTextAlign"
	case OpReplaceTextContent:
		return "ReplaceTextContent"
	case OpSetLayerStyle:
		return "SetLayerStyle"
	case OpSetLayerStyleEnabled:
		return "SetLayerStyleEnabled"
	case OpSetEntityStyleOverride:
		return "SetEntityStyleOverride"
	case OpClearEntityStyleOverride:
		return "ClearEntityStyleOverride"
	case OpSetEntityStyleEnabled:
		return "SetEntityStyleEnabled"
	default:
		return "Unknown"
	}
}

// ErrorCode classifies command buffer failures on the wire.
type ErrorCode uint32

const (
	Ok ErrorCode = iota
	ErrInvalidMagic
	ErrUnsupportedVersion
	ErrBufferTruncated
	ErrInvalidPayloadSize
	ErrUnknownCommand
	ErrInvalidOperation
)

func (e ErrorCode) String() string {
	switch e {
	case Ok:
		return "ok"
	case ErrInvalidMagic:
		return "invalid magic"
	case ErrUnsupportedVersion:
		return "unsupported version"
	case ErrBufferTruncated:
		return "buffer truncated"
	case ErrInvalidPayloadSize:
		return "invalid payload size"
	case ErrUnknownCommand:
		return "unknown command"
	case ErrInvalidOperation:
		return "invalid operation"
	default:
		return "unknown error"
	}
}

// Command is one decoded command. Payload aliases the source buffer and is
// only valid during the Walk callback.
type Command struct {
	Op      Op
	ID      uint32
	Payload []byte
}

// Result reports how a Walk ended. Index is the zero-based position of the
// failing command, or -1 for header failures; Processed counts commands the
// callback completed.
type Result struct {
	Code      ErrorCode
	Index     int
	Processed int
}

// Walk validates the buffer header, then streams commands to fn in order.
// A header failure aborts before any command runs. A non-Ok return from fn
// stops the walk; commands already applied stay applied.
func Walk(buf []byte, fn func(cmd Command) ErrorCode) Result {
	if len(buf) < BufferHeaderBytes {
		return Result{Code: ErrBufferTruncated, Index: -1}
	}
	if binary.LittleEndian.Uint32(buf[0:]) != Magic {
		return Result{Code: ErrInvalidMagic, Index: -1}
	}
	if binary.LittleEndian.Uint32(buf[4:]) != Version {
		return Result{Code: ErrUnsupportedVersion, Index: -1}
	}
	count := binary.LittleEndian.Uint32(buf[8:])

	offset := BufferHeaderBytes
	for i := uint32(0); i < count; i++ {
		if offset+CommandHeaderBytes > len(buf) {
			return Result{Code: ErrBufferTruncated, Index: int(i), Processed: int(i)}
		}
		op := Op(binary.LittleEndian.Uint32(buf[offset:]))
		id := binary.LittleEndian.Uint32(buf[offset+4:])
		payloadLen := binary.LittleEndian.Uint32(buf[offset+8:])
		offset += CommandHeaderBytes

		if uint32(len(buf)-offset) < payloadLen {
			return Result{Code: ErrBufferTruncated, Index: int(i), Processed: int(i)}
		}
		payload := buf[offset : offset+int(payloadLen)]
		offset += int(payloadLen)

		if code := fn(Command{Op: op, ID: id, Payload: payload}); code != Ok {
			return Result{Code: code, Index: int(i), Processed: int(i)}
		}
	}
	return Result{Code: Ok, Index: -1, Processed: int(count)}
}
