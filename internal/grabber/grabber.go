package grabber

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/muxer"
)

var logger = logging.New("grabber")

// Capture grabs one frame of a display.
type Capture func(display int) (*image.RGBA, error)

// Muxer is what the grabber needs from the priority muxer.
type Muxer interface {
	Register(priority int, component muxer.Component, origin, owner string, smoothingProfile uint) error
	Submit(ctx context.Context, req muxer.Request) error
}

type Config struct {
	Priority         int
	CaptureInterval  time.Duration
	ScreenNumber     int
	Timeout          time.Duration
	SmoothingProfile uint
}

// Grabber captures a display and feeds every frame to the muxer as a screen input.
type Grabber struct {
	config  Config
	mux     Muxer
	capture Capture
	owner   string

	registered atomic.Bool
}

type Option func(*Grabber)

func WithCapture(capture Capture) Option {
	return func(g *Grabber) {
		g.capture = capture
	}
}

func New(config Config, mux Muxer, opts ...Option) *Grabber {
	g := &Grabber{
		config:  config,
		mux:     mux,
		capture: screenshot.CaptureDisplay,
		owner:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Grabber) origin() string {
	return "screen"
}

// Run captures until ctx is done, then clears its priority.
func (g *Grabber) Run(ctx context.Context) error {
	if err := g.mux.Register(g.config.Priority, muxer.ComponentGrabber, g.origin(), g.owner, g.config.SmoothingProfile); err != nil {
		return err
	}
	g.registered.Store(true)

	logger.With(zap.Int("priority", g.config.Priority), zap.Int("screen", g.config.ScreenNumber), zap.String("owner", g.owner)).
		Info("Screen grabber started")

	defer func() {
		if err := g.mux.Submit(context.Background(), muxer.ClearRequest{Priority: g.config.Priority}); err != nil && !errors.Is(err, muxer.ErrStopped) {
			logger.With(zap.Error(err)).Warn("Failed to clear screen grabber input")
		}
	}()

	ticker := time.NewTicker(g.config.CaptureInterval)
	defer ticker.Stop()

	var lastWarning time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		startTime := time.Now()
		if err := g.Grab(ctx); err != nil {
			if errors.Is(err, muxer.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			logger.With(zap.Error(err)).Error("Failed to grab screen")
			continue
		}

		totalDuration := time.Since(startTime)
		if totalDuration > g.config.CaptureInterval && time.Since(lastWarning) > 10*time.Second {
			logger.With(zap.Stringer("totalDuration", totalDuration)).
				Warn("Cannot keep up with CAPTURE_INTERVAL. Consider increasing CAPTURE_INTERVAL.")
			lastWarning = time.Now()
		}
	}
}

// Grab captures one frame and submits it. The input is registered again when the
// muxer dropped it after a timeout or a full reset.
func (g *Grabber) Grab(ctx context.Context) error {
	if !g.registered.Load() {
		err := g.mux.Submit(ctx, muxer.RegisterRequest{
			Priority:         g.config.Priority,
			Component:        muxer.ComponentGrabber,
			Origin:           g.origin(),
			Owner:            g.owner,
			SmoothingProfile: g.config.SmoothingProfile,
		})
		if err != nil {
			return err
		}
		g.registered.Store(true)
	}

	img, err := g.capture(g.config.ScreenNumber)
	if err != nil {
		return err
	}

	return g.mux.Submit(ctx, muxer.SetImageRequest{
		Priority:  g.config.Priority,
		Image:     img,
		TimeoutMs: g.config.Timeout.Milliseconds(),
		Done: func(err error) {
			if errors.Is(err, muxer.ErrUnregisteredPriority) {
				g.registered.Store(false)
			}
		},
	})
}
