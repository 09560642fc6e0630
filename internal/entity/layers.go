package entity

// DefaultLayerID is the reserved layer every entity falls back to. It always
// exists and cannot be deleted.
const DefaultLayerID ID = 1

// DefaultLayerFlags is the flags word installed on new layers.
const DefaultLayerFlags = FlagVisible

// LayerRecord is the engine-authoritative state of one layer.
type LayerRecord struct {
	ID    ID
	Order uint32
	Flags uint32
	Name  string
	Style LayerStyle
}

// LayerStore owns the ordered layer sequence, layer names, flags and style
// blocks. The default layer is created on construction and re-created by
// Clear.
type LayerStore struct {
	layers map[ID]*LayerRecord
	order  []ID
}

// NewLayerStore returns a store holding only the default layer.
func NewLayerStore() *LayerStore {
	s := &LayerStore{}
	s.Clear()
	return s
}

// Clear resets to the initial single default layer.
func (s *LayerStore) Clear() {
	s.layers = make(map[ID]*LayerRecord)
	s.order = s.order[:0]
	s.EnsureLayer(DefaultLayerID)
}

// EnsureLayer creates the layer if missing, appending it to the order.
func (s *LayerStore) EnsureLayer(id ID) *LayerRecord {
	if rec, ok := s.layers[id]; ok {
		return rec
	}
	rec := &LayerRecord{
		ID:    id,
		Order: uint32(len(s.order)),
		Flags: DefaultLayerFlags,
		Style: defaultLayerStyle(),
	}
	s.layers[id] = rec
	s.order = append(s.order, id)
	return rec
}

func defaultLayerStyle() LayerStyle {
	return LayerStyle{
		Stroke:         StyleEntry{Color: StyleColor{A: 1}, Enabled: true},
		Fill:           StyleEntry{Color: StyleColor{R: 1, G: 1, B: 1, A: 1}, Enabled: true},
		TextColor:      StyleEntry{Color: StyleColor{A: 1}, Enabled: true},
		TextBackground: StyleEntry{Color: StyleColor{R: 1, G: 1, B: 1, A: 1}},
	}
}

// DeleteLayer removes a layer and its order slot. The default layer is
// undeletable; entities on a deleted layer fall back to it.
func (s *LayerStore) DeleteLayer(id ID) bool {
	if id == DefaultLayerID {
		return false
	}
	if _, ok := s.layers[id]; !ok {
		return false
	}
	delete(s.layers, id)
	for i, lid := range s.order {
		if lid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for i, lid := range s.order {
		s.layers[lid].Order = uint32(i)
	}
	return true
}

// Get returns the layer record, falling back to the default layer when the
// id is unknown.
func (s *LayerStore) Get(id ID) *LayerRecord {
	if rec, ok := s.layers[id]; ok {
		return rec
	}
	return s.layers[DefaultLayerID]
}

// Has reports whether the layer exists.
func (s *LayerStore) Has(id ID) bool {
	_, ok := s.layers[id]
	return ok
}

// Order returns the layer ids in insertion-stable order. The slice is owned
// by the store.
func (s *LayerStore) Order() []ID { return s.order }

// SetFlags applies value under mask to the layer's flags word.
func (s *LayerStore) SetFlags(id ID, mask, value uint32) {
	rec := s.EnsureLayer(id)
	rec.Flags = (rec.Flags &^ mask) | (value & mask)
}

// SetName renames the layer, creating it if missing.
func (s *LayerStore) SetName(id ID, name string) {
	s.EnsureLayer(id).Name = name
}

// SetStyleColor sets one channel color on the layer style.
func (s *LayerStore) SetStyleColor(id ID, target StyleTarget, color StyleColor) {
	if entry := s.EnsureLayer(id).Style.Entry(target); entry != nil {
		entry.Color = color
	}
}

// SetStyleEnabled toggles one channel on the layer style.
func (s *LayerStore) SetStyleEnabled(id ID, target StyleTarget, enabled bool) {
	if entry := s.EnsureLayer(id).Style.Entry(target); entry != nil {
		entry.Enabled = enabled
	}
}

// IsVisible reports the layer's visible bit (default layer fallback applies).
func (s *LayerStore) IsVisible(id ID) bool {
	return s.Get(id).Flags&FlagVisible != 0
}

// IsLocked reports the layer's locked bit.
func (s *LayerStore) IsLocked(id ID) bool {
	return s.Get(id).Flags&FlagLocked != 0
}

// Export returns deep copies of all layer records in order.
func (s *LayerStore) Export() []LayerRecord {
	out := make([]LayerRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.layers[id])
	}
	return out
}

// Import replaces the store content with the given records. The default
// layer is re-created if the records omit it.
func (s *LayerStore) Import(records []LayerRecord) {
	s.layers = make(map[ID]*LayerRecord, len(records))
	s.order = s.order[:0]
	for _, rec := range records {
		cp := rec
		cp.Order = uint32(len(s.order))
		s.layers[cp.ID] = &cp
		s.order = append(s.order, cp.ID)
	}
	if _, ok := s.layers[DefaultLayerID]; !ok {
		s.EnsureLayer(DefaultLayerID)
	}
}
