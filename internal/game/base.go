package game

// Base is the scrolling ground, drawn as two tiles placed end to end.
type Base struct {
	Y  float64
	X1 float64
	X2 float64
}

// NewBase creates the ground strip with its top edge at y.
func NewBase(y float64) *Base {
	return &Base{Y: y, X1: 0, X2: BaseWidth}
}

// Move scrolls both tiles and wraps a tile to the right once it leaves the screen.
func (b *Base) Move() {
	b.X1 -= BaseVelocity
	b.X2 -= BaseVelocity
	if b.X1+BaseWidth < 0 {
		b.X1 = b.X2 + BaseWidth
	}
	if b.X2+BaseWidth < 0 {
		b.X2 = b.X1 + BaseWidth
	}
}
