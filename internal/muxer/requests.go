package muxer

import (
	"fmt"
	"image"

	"github.com/scheerer/ledmux/internal/rgb"
)

// Request is an intent record a producer running on its own goroutine hands to
// Muxer.Submit. Done, when set, receives the outcome on the muxer goroutine and must
// not call back into the Muxer.
type Request interface {
	fmt.Stringer
	apply(c *core) error
	callback() func(error)
}

type RegisterRequest struct {
	Priority         int
	Component        Component
	Origin           string
	Owner            string
	SmoothingProfile uint
	Done             func(error)
}

func (r RegisterRequest) apply(c *core) error {
	return c.register(r.Priority, r.Component, r.Origin, r.Owner, r.SmoothingProfile)
}

func (r RegisterRequest) callback() func(error) { return r.Done }

func (r RegisterRequest) String() string {
	return fmt.Sprintf("register(%d, %v, %q)", r.Priority, r.Component, r.Origin)
}

type SetColorsRequest struct {
	Priority  int
	Colors    []rgb.Color
	TimeoutMs int64
	Done      func(error)
}

func (r SetColorsRequest) apply(c *core) error {
	return c.setColors(r.Priority, r.Colors, r.TimeoutMs)
}

func (r SetColorsRequest) callback() func(error) { return r.Done }

func (r SetColorsRequest) String() string {
	return fmt.Sprintf("setColors(%d, %d leds, %dms)", r.Priority, len(r.Colors), r.TimeoutMs)
}

type SetImageRequest struct {
	Priority  int
	Image     *image.RGBA
	TimeoutMs int64
	Done      func(error)
}

func (r SetImageRequest) apply(c *core) error {
	return c.setImage(r.Priority, r.Image, r.TimeoutMs)
}

func (r SetImageRequest) callback() func(error) { return r.Done }

func (r SetImageRequest) String() string {
	return fmt.Sprintf("setImage(%d, %dms)", r.Priority, r.TimeoutMs)
}

type SetInactiveRequest struct {
	Priority int
	Done     func(error)
}

func (r SetInactiveRequest) apply(c *core) error {
	return c.setInactive(r.Priority)
}

func (r SetInactiveRequest) callback() func(error) { return r.Done }

func (r SetInactiveRequest) String() string {
	return fmt.Sprintf("setInactive(%d)", r.Priority)
}

type ClearRequest struct {
	Priority int
	Done     func(error)
}

func (r ClearRequest) apply(c *core) error {
	return c.clear(r.Priority)
}

func (r ClearRequest) callback() func(error) { return r.Done }

func (r ClearRequest) String() string {
	return fmt.Sprintf("clear(%d)", r.Priority)
}
