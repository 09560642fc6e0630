// Package entity owns all geometric and structural document state: typed
// geometry records in dense per-kind vectors, the id index that resolves an
// entity id to its kind and slot, layer and flag metadata, per-entity style
// overrides, and the global draw order. It has no dependencies on the other
// engine subsystems.
package entity

// ID is a process-unique 32-bit entity identifier. Ids are allocated
// monotonically and never reused within a session.
type ID = uint32

// Kind tags the geometry table an entity lives in.
type Kind uint32

const (
	KindNone Kind = iota
	KindRect
	KindLine
	KindPolyline
	KindCircle
	KindPolygon
	KindArrow
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	case KindArrow:
		return "arrow"
	case KindText:
		return "text"
	default:
		return "none"
	}
}

// Entity flag bits. Shared with layers, which use the same word layout.
const (
	FlagVisible uint32 = 1 << 0
	FlagLocked  uint32 = 1 << 1
)

// Ref resolves an id to a kind plus slot index. Text entities have no slot
// in the geometry vectors; their index mirrors the id.
type Ref struct {
	Kind  Kind
	Index uint32
}
