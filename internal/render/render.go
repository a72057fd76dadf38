package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/lights"
	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/muxer"
	"github.com/scheerer/ledmux/internal/rgb"
)

var logger = logging.New("render")

// Source is the part of the muxer the render stage reads.
type Source interface {
	CurrentPriority() int
	InputInfo(priority int) muxer.InputInfo
}

type Config struct {
	Interval      time.Duration
	Transition    time.Duration
	PixelGridSize int
	Reducer       rgb.Reducer
}

// Renderer pushes the visible input to a light service once per interval, and
// right away when the visible priority changes.
type Renderer struct {
	config Config
	source Source
	light  lights.LightService

	last     rgb.Color
	rendered bool
}

func New(config Config, source Source, light lights.LightService) *Renderer {
	if config.Reducer == nil {
		config.Reducer = rgb.AverageColor
	}
	if config.Interval <= 0 {
		config.Interval = 100 * time.Millisecond
	}
	return &Renderer{
		config: config,
		source: source,
		light:  light,
	}
}

// Frame collapses the visible input into the color sent to the lights. An image wins
// over led colors when the input carries one.
func (r *Renderer) Frame() (int, rgb.Color) {
	priority := r.source.CurrentPriority()
	info := r.source.InputInfo(priority)

	if !rgb.IsEmpty(info.Image) {
		return info.Priority, r.config.Reducer(info.Image, r.config.PixelGridSize)
	}
	return info.Priority, rgb.Mean(info.LedColors)
}

// Render sends the current frame unless it equals the last one sent.
func (r *Renderer) Render(ctx context.Context) {
	if r.light.LightCount() == 0 {
		return
	}

	priority, color := r.Frame()
	if r.rendered && color == r.last {
		return
	}

	start := time.Now()
	r.light.SetColorWithDuration(ctx, color, r.config.Transition)
	if took := time.Since(start); took > r.config.Interval {
		logger.With(zap.Stringer("took", took), zap.Stringer("interval", r.config.Interval)).
			Warn("Setting the light color is slower than the render interval")
	}

	logger.With(zap.Int("priority", priority), zap.Any("color", color)).Debug("Rendered")
	r.last = color
	r.rendered = true
}

// Run renders until ctx is done. events may be nil.
func (r *Renderer) Run(ctx context.Context, events <-chan muxer.Event) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Kind == muxer.EventVisiblePriorityChanged {
				r.Render(ctx)
			}
		case <-ticker.C:
			r.Render(ctx)
		}
	}
}
