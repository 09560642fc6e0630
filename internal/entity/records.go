package entity

// Point2 is one polyline vertex in the shared point pool.
type Point2 struct {
	X, Y float32
}

// RectRec is an axis-origin rectangle with rotation and scale applied around
// its center. Fill and stroke colors are stored per entity so that style
// overrides can re-expose the drawn values.
type RectRec struct {
	ID             ID
	X, Y, W, H     float32
	Rot            float32
	SX, SY         float32
	R, G, B, A     float32 // fill
	SR, SG, SB, SA float32 // stroke
	StrokeEnabled  float32
	StrokeWidthPx  float32
}

// LineRec is a two-point segment.
type LineRec struct {
	ID             ID
	X0, Y0, X1, Y1 float32
	R, G, B, A     float32
	Enabled        float32
	StrokeWidthPx  float32
}

// PolyRec references Count points at Offset in the shared point pool.
type PolyRec struct {
	ID             ID
	Offset, Count  uint32
	R, G, B, A     float32
	SR, SG, SB, SA float32
	Enabled        float32
	StrokeEnabled  float32
	StrokeWidthPx  float32
}

// CircleRec is an ellipse centered at (CX, CY) with half radii RX/RY.
type CircleRec struct {
	ID             ID
	CX, CY, RX, RY float32
	Rot            float32
	SX, SY         float32
	R, G, B, A     float32
	SR, SG, SB, SA float32
	StrokeEnabled  float32
	StrokeWidthPx  float32
}

// PolygonRec is a regular polygon inscribed in the RX/RY ellipse.
type PolygonRec struct {
	ID             ID
	CX, CY, RX, RY float32
	Rot            float32
	SX, SY         float32
	Sides          uint32
	R, G, B, A     float32
	SR, SG, SB, SA float32
	StrokeEnabled  float32
	StrokeWidthPx  float32
}

// ArrowRec is a segment from A to B with a head of the given length at B.
type ArrowRec struct {
	ID             ID
	AX, AY, BX, BY float32
	Head           float32
	SR, SG, SB, SA float32
	StrokeEnabled  float32
	StrokeWidthPx  float32
}
