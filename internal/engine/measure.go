package engine

import "drawcore/internal/entity"

// TextMeasurer computes world-space layout bounds for a text record. The
// engine owns placement, runs and content; shaping lives outside it, so
// layout comes back through this interface after every content or style
// edit.
type TextMeasurer interface {
	Measure(rec *entity.TextRec) (width, height, minX, minY, maxX, maxY float32)
}

// ApproxMeasurer is the built-in fallback measurer: a monospace advance
// estimated from run font sizes, one line per newline. Hosts with a real
// shaper install their own measurer via SetTextMeasurer.
type ApproxMeasurer struct{}

const (
	approxDefaultFontSize = 16.0
	approxAdvanceFactor   = 0.6
	approxLineFactor      = 1.2
)

func (ApproxMeasurer) Measure(rec *entity.TextRec) (width, height, minX, minY, maxX, maxY float32) {
	size := float32(approxDefaultFontSize)
	if len(rec.Runs) > 0 && rec.Runs[0].FontSize > 0 {
		size = rec.Runs[0].FontSize
	}
	advance := size * approxAdvanceFactor

	lines := 1
	lineLen, maxLen := 0, 0
	for _, b := range rec.Content {
		if b == '\n' {
			lines++
			lineLen = 0
			continue
		}
		// Count UTF-8 code points, not bytes.
		if b&0xC0 != 0x80 {
			lineLen++
			if lineLen > maxLen {
				maxLen = lineLen
			}
		}
	}

	width = float32(maxLen) * advance
	if rec.BoxMode == entity.TextBoxFixed && rec.ConstraintWidth > 0 {
		width = rec.ConstraintWidth
	}
	height = float32(lines) * size * approxLineFactor

	switch rec.Align {
	case entity.TextAlignCenter:
		minX = rec.X - width/2
	case entity.TextAlignRight:
		minX = rec.X - width
	default:
		minX = rec.X
	}
	maxX = minX + width
	minY = rec.Y
	maxY = rec.Y + height
	return width, height, minX, minY, maxX, maxY
}
