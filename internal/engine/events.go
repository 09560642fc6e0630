package engine

// EventType identifies one engine notification record.
type EventType uint16

// Event types drained by the host after each batch of work.
const (
	EventNone EventType = iota
	EventOverflow
	EventDocChanged
	EventEntityChanged
	EventEntityCreated
	EventEntityDeleted
	EventLayerChanged
	EventSelectionChanged
	EventOrderChanged
	EventHistoryChanged
)

// Change mask bits carried in the Flags field of entity-changed events.
const (
	ChangeGeometry   uint16 = 1 << 0
	ChangeStyle      uint16 = 1 << 1
	ChangeFlags      uint16 = 1 << 2
	ChangeLayer      uint16 = 1 << 3
	ChangeOrder      uint16 = 1 << 4
	ChangeText       uint16 = 1 << 5
	ChangeBounds     uint16 = 1 << 6
	ChangeRenderData uint16 = 1 << 7
)

const changeAll = ChangeGeometry | ChangeStyle | ChangeFlags | ChangeLayer |
	ChangeOrder | ChangeText | ChangeBounds | ChangeRenderData

// Event is a fixed-size notification. The meaning of A..D depends on the
// type: entity events carry the id in A, the doc-changed event carries the
// generation, history events carry depth/cursor/generation.
type Event struct {
	Type       EventType
	Flags      uint16
	A, B, C, D uint32
}

// eventQueue buffers events until the host polls them. When the buffer
// fills, further events are dropped and a single Overflow record marks the
// loss; a host that sees Overflow must treat the whole document as changed.
const eventQueueCapacity = 1024

type eventQueue struct {
	events     []Event
	overflowed bool
}

func (q *eventQueue) push(ev Event) {
	if q.overflowed {
		return
	}
	if len(q.events) >= eventQueueCapacity {
		q.events = append(q.events, Event{Type: EventOverflow})
		q.overflowed = true
		return
	}
	q.events = append(q.events, ev)
}

func (q *eventQueue) drain() []Event {
	out := q.events
	q.events = nil
	q.overflowed = false
	return out
}
