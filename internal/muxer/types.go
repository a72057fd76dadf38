package muxer

import (
	"image"
	"slices"

	"github.com/scheerer/ledmux/internal/rgb"
)

const (
	// LowestPriority is the always present fallback input.
	LowestPriority = 255

	// ManualUnset marks that no priority was selected manually.
	ManualUnset = 256

	// TimeoutInactive marks a registered input that awaits its first data.
	TimeoutInactive int64 = -100

	// TimeoutNever marks an input that does not expire.
	TimeoutNever int64 = -1

	// countdownCeiling excludes 254 and the fallback from countdown notifications.
	countdownCeiling = LowestPriority - 1
)

// Component identifies the kind of producer behind an input.
type Component int

const (
	ComponentInvalid Component = iota
	ComponentColor
	ComponentEffect
	ComponentGrabber
	ComponentRemote
	ComponentSystem
)

func (c Component) String() string {
	switch c {
	case ComponentColor:
		return "COLOR"
	case ComponentEffect:
		return "EFFECT"
	case ComponentGrabber:
		return "GRABBER"
	case ComponentRemote:
		return "REMOTE"
	case ComponentSystem:
		return "SYSTEM"
	default:
		return "INVALID"
	}
}

// InputInfo describes one registered priority.
//
// A producer writes either LedColors or Image per update. Setting colors drops the
// image, so a non-empty Image is always the most recent write.
type InputInfo struct {
	Priority         int
	Component        Component
	Origin           string
	Owner            string
	TimeoutMs        int64
	LedColors        []rgb.Color
	Image            *image.RGBA
	SmoothingProfile uint
}

// Active reports whether the input has data.
func (i InputInfo) Active() bool {
	return i.TimeoutMs != TimeoutInactive
}

// clone copies the color slice so callers never share it with the table. Images are
// treated as immutable once handed to the muxer.
func (i InputInfo) clone() InputInfo {
	i.LedColors = slices.Clone(i.LedColors)
	return i
}

func fallbackInput(ledCount int) InputInfo {
	return InputInfo{
		Priority:  LowestPriority,
		Component: ComponentColor,
		Origin:    "System",
		TimeoutMs: TimeoutNever,
		LedColors: rgb.Fill(ledCount, rgb.Black),
	}
}
