package rgb

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"
)

// Reducer collapses a frame into a single color, sampling every pixelGridSize pixels.
type Reducer func(img *image.RGBA, pixelGridSize int) Color

// ReducerByName maps a COLOR_ALGO value to its reducer.
func ReducerByName(name string) (Reducer, error) {
	switch strings.ToUpper(name) {
	case "AVERAGE":
		return AverageColor, nil
	case "SQUARED_AVERAGE":
		return SquaredAverageColor, nil
	case "MEDIAN":
		return MedianColor, nil
	case "MODE":
		return ModeColor, nil
	default:
		return nil, fmt.Errorf("unknown color algorithm: %v", name)
	}
}

// IsEmpty reports whether img carries no pixels.
func IsEmpty(img *image.RGBA) bool {
	return img == nil || img.Bounds().Empty()
}

func sample(img *image.RGBA, pixelGridSize int, f func(c Color)) {
	if pixelGridSize < 1 {
		pixelGridSize = 1
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += pixelGridSize {
		for x := bounds.Min.X; x < bounds.Max.X; x += pixelGridSize {
			c := img.RGBAAt(x, y)
			f(Color{Red: c.R, Green: c.G, Blue: c.B})
		}
	}
}

func AverageColor(img *image.RGBA, pixelGridSize int) Color {
	if IsEmpty(img) {
		return Black
	}
	var sumR, sumG, sumB, totalPixels uint64
	sample(img, pixelGridSize, func(c Color) {
		totalPixels++
		sumR += uint64(c.Red)
		sumG += uint64(c.Green)
		sumB += uint64(c.Blue)
	})

	return Color{
		Red:   uint8(sumR / totalPixels),
		Green: uint8(sumG / totalPixels),
		Blue:  uint8(sumB / totalPixels),
	}
}

// SquaredAverageColor calculates the root mean square of each channel
func SquaredAverageColor(img *image.RGBA, pixelGridSize int) Color {
	if IsEmpty(img) {
		return Black
	}
	var sumR, sumG, sumB, totalPixels uint64
	sample(img, pixelGridSize, func(c Color) {
		totalPixels++
		sumR += uint64(c.Red) * uint64(c.Red)
		sumG += uint64(c.Green) * uint64(c.Green)
		sumB += uint64(c.Blue) * uint64(c.Blue)
	})

	return Color{
		Red:   uint8(math.Sqrt(float64(sumR) / float64(totalPixels))),
		Green: uint8(math.Sqrt(float64(sumG) / float64(totalPixels))),
		Blue:  uint8(math.Sqrt(float64(sumB) / float64(totalPixels))),
	}
}

// MedianColor calculates the median of each channel independently
func MedianColor(img *image.RGBA, pixelGridSize int) Color {
	if IsEmpty(img) {
		return Black
	}
	var reds, greens, blues []uint8
	sample(img, pixelGridSize, func(c Color) {
		reds = append(reds, c.Red)
		greens = append(greens, c.Green)
		blues = append(blues, c.Blue)
	})

	median := func(values []uint8) uint8 {
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		n := len(values)
		if n%2 == 0 {
			return uint8((int(values[n/2-1]) + int(values[n/2])) / 2)
		}
		return values[n/2]
	}

	return Color{
		Red:   median(reds),
		Green: median(greens),
		Blue:  median(blues),
	}
}

// ModeColor returns the most frequent sampled color
func ModeColor(img *image.RGBA, pixelGridSize int) Color {
	if IsEmpty(img) {
		return Black
	}
	colorCount := make(map[Color]int)
	var order []Color
	sample(img, pixelGridSize, func(c Color) {
		if colorCount[c] == 0 {
			order = append(order, c)
		}
		colorCount[c]++
	})

	// ties resolve to the color sampled first
	var modeColor Color
	maxCount := 0
	for _, c := range order {
		if colorCount[c] > maxCount {
			maxCount = colorCount[c]
			modeColor = c
		}
	}

	return modeColor
}
