package model

// Band is a disjoint zIndex range. Bands are ordered bottom to top.
type Band uint8

// Layer bands, bottom to top.
const (
	BandBackground Band = iota
	BandConnectors
	BandCards
	BandForeground
	BandStickers
)

// BandSize is the number of zIndex slots per band.
const BandSize = 1000

// Base returns the lowest zIndex of the band.
func (b Band) Base() int {
	return int(b) * BandSize
}

// Max returns the highest zIndex of the band.
func (b Band) Max() int {
	return b.Base() + BandSize - 1
}

// Contains reports whether z falls inside the band.
func (b Band) Contains(z int) bool {
	return z >= b.Base() && z <= b.Max()
}

// Clamp forces z into the band.
func (b Band) Clamp(z int) int {
	if z < b.Base() {
		return b.Base()
	}
	if z > b.Max() {
		return b.Max()
	}
	return z
}

// ConnectorZ is the draw order of every connector.
const ConnectorZ = int(BandConnectors) * BandSize
