package muxer

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/rgb"
)

var logger = logging.New("muxer")

const (
	DefaultUpdateInterval = 250 * time.Millisecond
	defaultQueueSize      = 256
)

type Config struct {
	LedCount       int
	UpdateInterval time.Duration
}

type Option func(*Muxer)

// WithClock replaces the wall clock used for timeouts.
func WithClock(now func() time.Time) Option {
	return func(m *Muxer) {
		m.now = now
	}
}

func WithBus(bus *Bus) Option {
	return func(m *Muxer) {
		m.bus = bus
	}
}

// Muxer selects the visible input among all registered priorities.
//
// All state lives on the goroutine running Run. Every method hands its work to that
// goroutine through one FIFO queue, so calls and submitted requests are applied in the
// order they were issued. Methods block until Run picks them up and fail with
// ErrStopped once Run has returned.
type Muxer struct {
	cfg  Config
	now  func() time.Time
	bus  *Bus
	core *core

	enabled bool

	ops     chan func(*core)
	running atomic.Bool
	stopped chan struct{}
}

func New(cfg Config, opts ...Option) *Muxer {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.LedCount < 0 {
		cfg.LedCount = 0
	}

	m := &Muxer{
		cfg:     cfg,
		now:     time.Now,
		enabled: true,
		ops:     make(chan func(*core), defaultQueueSize),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.bus == nil {
		m.bus = NewBus()
	}
	m.core = newCore(cfg.LedCount, m.now, m.bus.Publish)
	return m
}

// Run owns the muxer state until ctx is done. It can be called once.
func (m *Muxer) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.stopped)

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()
	var armed time.Time

	logger.Infof("Muxer started with %d leds, update interval %v", m.cfg.LedCount, m.cfg.UpdateInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Muxer stopped")
			return nil
		case op := <-m.ops:
			op(m.core)
		case <-ticker.C:
			if m.enabled {
				m.core.reevaluate()
			}
		case <-retry.C:
			armed = time.Time{}
			m.core.retryCountdown()
		}

		deadline, ok := m.core.countdown.deadline()
		switch {
		case !ok && !armed.IsZero():
			retry.Stop()
			armed = time.Time{}
		case ok && !deadline.Equal(armed):
			retry.Reset(max(deadline.Sub(m.now()), 0))
			armed = deadline
		}
	}
}

// Events subscribes to muxer events. See Bus.Subscribe.
func (m *Muxer) Events(buffer int) (<-chan Event, func()) {
	return m.bus.Subscribe(buffer)
}

func (m *Muxer) enqueue(ctx context.Context, op func(*core)) error {
	select {
	case <-m.stopped:
		return ErrStopped
	default:
	}

	select {
	case m.ops <- op:
		return nil
	case <-m.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs op on the loop and waits for it.
func (m *Muxer) do(op func(c *core)) error {
	done := make(chan struct{})
	if err := m.enqueue(context.Background(), func(c *core) {
		defer close(done)
		op(c)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-m.stopped:
		return ErrStopped
	}
}

func (m *Muxer) call(op func(c *core) error) error {
	var err error
	if doErr := m.do(func(c *core) { err = op(c) }); doErr != nil {
		return doErr
	}
	return err
}

// Submit queues req without waiting for it to be applied. It only blocks while the
// queue is full.
func (m *Muxer) Submit(ctx context.Context, req Request) error {
	return m.enqueue(ctx, func(c *core) {
		err := req.apply(c)
		if err != nil {
			logger.With(zap.Stringer("request", req), zap.Error(err)).Debug("Request failed")
		}
		if done := req.callback(); done != nil {
			done(err)
		}
	})
}

// Register creates an inactive input for priority, or updates the metadata of an
// existing one leaving its data and timeout untouched.
func (m *Muxer) Register(priority int, component Component, origin, owner string, smoothingProfile uint) error {
	return m.call(func(c *core) error {
		return c.register(priority, component, origin, owner, smoothingProfile)
	})
}

// SetColors stores colors for a registered priority. A positive timeoutMs is relative
// to now; TimeoutNever and TimeoutInactive are stored as given.
func (m *Muxer) SetColors(priority int, colors []rgb.Color, timeoutMs int64) error {
	return m.call(func(c *core) error {
		return c.setColors(priority, colors, timeoutMs)
	})
}

// SetImage is SetColors for a frame. The muxer keeps img, callers must not modify it
// afterwards.
func (m *Muxer) SetImage(priority int, img *image.RGBA, timeoutMs int64) error {
	return m.call(func(c *core) error {
		return c.setImage(priority, img, timeoutMs)
	})
}

// SetInactive keeps priority registered but marks it as awaiting data.
func (m *Muxer) SetInactive(priority int) error {
	return m.call(func(c *core) error {
		return c.setInactive(priority)
	})
}

// SetColor registers priority as a flat color input and shows col on every led.
func (m *Muxer) SetColor(priority int, col rgb.Color, timeoutMs int64, origin string) error {
	return m.call(func(c *core) error {
		return c.setColor(priority, col, timeoutMs, origin)
	})
}

func (m *Muxer) Clear(priority int) error {
	return m.call(func(c *core) error {
		return c.clear(priority)
	})
}

// ClearAll with force resets to the fallback input. Without force only color and
// effect inputs below 254 are removed.
func (m *Muxer) ClearAll(force bool) error {
	return m.do(func(c *core) {
		c.clearAll(force)
	})
}

func (m *Muxer) SelectManual(priority int) error {
	return m.call(func(c *core) error {
		return c.selectManual(priority)
	})
}

func (m *Muxer) EnableAutoSelect(enabled, propagate bool) error {
	return m.call(func(c *core) error {
		return c.enableAutoSelect(enabled, propagate)
	})
}

func (m *Muxer) ResizeColorBuffers(ledCount int) error {
	return m.call(func(c *core) error {
		return c.resize(ledCount)
	})
}

// SetEnabled pauses or resumes the periodic selector pass.
func (m *Muxer) SetEnabled(enabled bool) error {
	return m.do(func(*core) {
		m.enabled = enabled
	})
}

// Priorities lists registered priorities in ascending order, nil once stopped.
func (m *Muxer) Priorities() []int {
	var keys []int
	_ = m.do(func(c *core) { keys = c.priorities() })
	return keys
}

func (m *Muxer) HasPriority(priority int) bool {
	has := priority == LowestPriority
	_ = m.do(func(c *core) { has = c.hasPriority(priority) })
	return has
}

// InputInfo returns a copy of the input at priority, or of the fallback input when
// priority is unknown or the muxer stopped.
func (m *Muxer) InputInfo(priority int) InputInfo {
	info := fallbackInput(m.cfg.LedCount)
	_ = m.do(func(c *core) { info = c.inputInfo(priority) })
	return info
}

func (m *Muxer) CurrentPriority() int {
	current := LowestPriority
	_ = m.do(func(c *core) { current = c.current })
	return current
}

func (m *Muxer) IsCurrentPriority(priority int) bool {
	return m.CurrentPriority() == priority
}

func (m *Muxer) AutoSelectEnabled() bool {
	enabled := true
	_ = m.do(func(c *core) { enabled = c.mode.autoSelect })
	return enabled
}

func (m *Muxer) LedCount() int {
	count := m.cfg.LedCount
	_ = m.do(func(c *core) { count = c.ledCount })
	return count
}
