package entity

// StyleTarget names one of the four style channels an override can touch.
type StyleTarget uint8

const (
	StyleStroke StyleTarget = iota
	StyleFill
	StyleTextColor
	StyleTextBackground
)

// StyleTargetMask returns the bitmask bit for a target.
func StyleTargetMask(target StyleTarget) uint8 {
	return 1 << uint8(target)
}

// StyleColor is a float RGBA color as drawn.
type StyleColor struct {
	R, G, B, A float32
}

// PackRGBA packs a StyleColor into the 0xRRGGBBAA wire form used by layer
// and override records.
func PackRGBA(c StyleColor) uint32 {
	clamp := func(v float32) uint32 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint32(v*255 + 0.5)
	}
	return clamp(c.R)<<24 | clamp(c.G)<<16 | clamp(c.B)<<8 | clamp(c.A)
}

// UnpackRGBA is the inverse of PackRGBA.
func UnpackRGBA(v uint32) StyleColor {
	return StyleColor{
		R: float32(v>>24&0xFF) / 255,
		G: float32(v>>16&0xFF) / 255,
		B: float32(v>>8&0xFF) / 255,
		A: float32(v&0xFF) / 255,
	}
}

// StyleEntry is one channel of a layer style block.
type StyleEntry struct {
	Color   StyleColor
	Enabled bool
}

// LayerStyle is the four-channel style block carried by every layer.
type LayerStyle struct {
	Stroke         StyleEntry
	Fill           StyleEntry
	TextColor      StyleEntry
	TextBackground StyleEntry
}

// Entry returns the channel for a target, or nil for an unknown target.
func (s *LayerStyle) Entry(target StyleTarget) *StyleEntry {
	switch target {
	case StyleStroke:
		return &s.Stroke
	case StyleFill:
		return &s.Fill
	case StyleTextColor:
		return &s.TextColor
	case StyleTextBackground:
		return &s.TextBackground
	default:
		return nil
	}
}

// ResolvedStyle is the effective style for one entity after layering the
// entity override over its layer block.
type ResolvedStyle struct {
	Stroke         StyleEntry
	Fill           StyleEntry
	TextColor      StyleEntry
	TextBackground StyleEntry
}

// StyleOverride narrows an entity's layer style. ColorMask and EnabledMask
// hold StyleTargetMask bits; bits outside the kind's capabilities are inert.
type StyleOverride struct {
	ColorMask             uint8
	EnabledMask           uint8
	TextColor             StyleColor
	TextBackground        StyleColor
	FillEnabled           bool
	TextBackgroundEnabled bool
}

// StyleCapabilities returns the override bits a kind responds to.
func StyleCapabilities(kind Kind) uint8 {
	switch kind {
	case KindRect, KindCircle, KindPolygon:
		return StyleTargetMask(StyleStroke) | StyleTargetMask(StyleFill)
	case KindLine, KindPolyline, KindArrow:
		return StyleTargetMask(StyleStroke)
	case KindText:
		return StyleTargetMask(StyleTextColor) | StyleTargetMask(StyleTextBackground)
	default:
		return 0
	}
}
