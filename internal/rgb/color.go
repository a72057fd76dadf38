package rgb

import (
	"math"
)

// Color is one LED value.
type Color struct {
	Red   uint8 `json:"r"`
	Green uint8 `json:"g"`
	Blue  uint8 `json:"b"`
}

var Black = Color{}

// Fill returns n copies of c.
func Fill(n int, c Color) []Color {
	if n <= 0 {
		return []Color{}
	}
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = c
	}
	return colors
}

// Resize returns colors truncated or grown to n. Growing repeats the first element.
// An empty slice has nothing to repeat and is returned unchanged with ok false.
func Resize(colors []Color, n int) ([]Color, bool) {
	if len(colors) == 0 {
		return colors, false
	}
	if n <= len(colors) {
		return colors[:n:n], true
	}
	grown := make([]Color, n)
	copy(grown, colors)
	for i := len(colors); i < n; i++ {
		grown[i] = colors[0]
	}
	return grown, true
}

// Mean averages a sequence of LED colors. An empty sequence is black.
func Mean(colors []Color) Color {
	if len(colors) == 0 {
		return Black
	}
	var sumR, sumG, sumB uint64
	for _, c := range colors {
		sumR += uint64(c.Red)
		sumG += uint64(c.Green)
		sumB += uint64(c.Blue)
	}
	n := uint64(len(colors))
	return Color{
		Red:   uint8(sumR / n),
		Green: uint8(sumG / n),
		Blue:  uint8(sumB / n),
	}
}

func RgbToHsb(r, g, b uint8) (uint16, uint16, uint16) {
	red := float64(r) / 255.0
	green := float64(g) / 255.0
	blue := float64(b) / 255.0

	max := math.Max(red, math.Max(green, blue))
	min := math.Min(red, math.Min(green, blue))
	delta := max - min

	var h, s, v float64
	v = max // Brightness is the max of RGB

	if delta != 0 {
		s = delta / max

		deltaR := (((max - red) / 6) + (delta / 2)) / delta
		deltaG := (((max - green) / 6) + (delta / 2)) / delta
		deltaB := (((max - blue) / 6) + (delta / 2)) / delta

		switch max {
		case red:
			h = deltaB - deltaG
		case green:
			h = (1.0 / 3.0) + deltaR - deltaB
		default:
			h = (2.0 / 3.0) + deltaG - deltaR
		}

		if h < 0 {
			h += 1
		}
		if h > 1 {
			h -= 1
		}
	}

	hue := uint16(math.Round(h * 0xFFFF))
	saturation := uint16(math.Round(s * 0xFFFF))
	brightness := uint16(math.Round(v * 0xFFFF))

	return hue, saturation, brightness
}
