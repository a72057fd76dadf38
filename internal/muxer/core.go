package muxer

import (
	"fmt"
	"image"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/rgb"
)

// core is the arbitration state. It is not safe for concurrent use; Muxer confines it
// to its loop goroutine.
type core struct {
	now  func() time.Time
	emit func(Event)

	ledCount int
	inputs   map[int]*InputInfo
	current  int
	mode     mode

	countdown *debouncer
}

func newCore(ledCount int, now func() time.Time, emit func(Event)) *core {
	c := &core{
		now:       now,
		emit:      emit,
		ledCount:  ledCount,
		inputs:    make(map[int]*InputInfo),
		current:   LowestPriority,
		mode:      mode{autoSelect: true, manual: ManualUnset},
		countdown: newDebouncer(),
	}
	c.resetFallback()
	return c
}

func (c *core) resetFallback() {
	fallback := fallbackInput(c.ledCount)
	c.inputs[LowestPriority] = &fallback
}

func validPriority(priority int) error {
	if priority < 0 || priority > LowestPriority {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, priority)
	}
	return nil
}

func (c *core) register(priority int, component Component, origin, owner string, smoothingProfile uint) error {
	if err := validPriority(priority); err != nil {
		return err
	}

	in, exists := c.inputs[priority]
	if !exists {
		in = &InputInfo{Priority: priority, TimeoutMs: TimeoutInactive}
		c.inputs[priority] = in
	}
	in.Component = component
	in.Origin = origin
	in.Owner = owner
	in.SmoothingProfile = smoothingProfile

	if !exists {
		logger.With(zap.Int("priority", priority), zap.String("origin", origin), zap.Stringer("component", component)).
			Debug("Registered new input as inactive")
		c.emit(registered(priority))
		c.emit(changed())
	}
	return nil
}

// update applies data and a relative timeout to a registered input.
func (c *core) update(priority int, timeoutMs int64, write func(in *InputInfo)) error {
	in, ok := c.inputs[priority]
	if !ok {
		logger.With(zap.Int("priority", priority)).Error("Input set without registration, the priority probably timed out")
		return fmt.Errorf("%w: %d", ErrUnregisteredPriority, priority)
	}

	switch {
	case priority == LowestPriority && timeoutMs > 0:
		// the fallback never expires
		timeoutMs = TimeoutNever
	case timeoutMs > 0:
		timeoutMs += c.now().UnixMilli()
	}

	activeChange := false
	active := true
	if in.TimeoutMs == TimeoutInactive && timeoutMs != TimeoutInactive {
		activeChange = true
	} else if in.TimeoutMs != TimeoutInactive && timeoutMs == TimeoutInactive {
		activeChange = true
		active = false
	}

	in.TimeoutMs = timeoutMs
	write(in)

	if activeChange {
		logger.With(zap.Int("priority", priority), zap.Bool("active", active)).Debug("Input active state changed")
		c.emit(activeChanged(priority, active))
		c.emit(changed())
		c.reevaluate()
	}
	return nil
}

func (c *core) setColors(priority int, colors []rgb.Color, timeoutMs int64) error {
	colors = slices.Clone(colors)
	return c.update(priority, timeoutMs, func(in *InputInfo) {
		in.LedColors = colors
		in.Image = nil
	})
}

func (c *core) setImage(priority int, img *image.RGBA, timeoutMs int64) error {
	return c.update(priority, timeoutMs, func(in *InputInfo) {
		in.Image = img
	})
}

func (c *core) setInactive(priority int) error {
	return c.setImage(priority, &image.RGBA{}, TimeoutInactive)
}

// setColor registers priority as a flat color and fills every led with col.
func (c *core) setColor(priority int, col rgb.Color, timeoutMs int64, origin string) error {
	if err := c.register(priority, ComponentColor, origin, "", 0); err != nil {
		return err
	}
	return c.setColors(priority, rgb.Fill(c.ledCount, col), timeoutMs)
}

func (c *core) clear(priority int) error {
	if priority >= LowestPriority {
		return fmt.Errorf("%w: fallback priority %d", ErrInvalidClearTarget, priority)
	}
	if _, ok := c.inputs[priority]; !ok {
		return fmt.Errorf("%w: unknown priority %d", ErrInvalidClearTarget, priority)
	}

	delete(c.inputs, priority)
	logger.With(zap.Int("priority", priority)).Debug("Removed input")
	c.reevaluate()
	c.emit(removed(priority))
	c.emit(changed())
	return nil
}

func (c *core) clearAll(force bool) {
	if force {
		clear(c.inputs)
		c.resetFallback()
		wasManual := !c.mode.autoSelect
		c.mode = mode{autoSelect: true, manual: ManualUnset}
		if c.current != LowestPriority {
			c.current = LowestPriority
			c.emit(visibleChanged(LowestPriority))
		}
		if wasManual {
			c.emit(autoSelectChanged(true))
		}
		c.emit(changed())
		return
	}

	var targets []int
	for _, p := range c.priorities() {
		in := c.inputs[p]
		if (in.Component == ComponentColor || in.Component == ComponentEffect) && p < countdownCeiling {
			targets = append(targets, p)
		}
	}
	for _, p := range targets {
		// an earlier clear may have swept p as expired
		if _, ok := c.inputs[p]; !ok {
			continue
		}
		_ = c.clear(p)
	}
}

func (c *core) resize(ledCount int) error {
	if ledCount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLedCount, ledCount)
	}
	c.ledCount = ledCount
	for _, in := range c.inputs {
		if resized, ok := rgb.Resize(in.LedColors, ledCount); ok {
			in.LedColors = resized
		}
	}
	return nil
}

func (c *core) priorities() []int {
	keys := make([]int, 0, len(c.inputs))
	for p := range c.inputs {
		keys = append(keys, p)
	}
	slices.Sort(keys)
	return keys
}

func (c *core) hasPriority(priority int) bool {
	if priority == LowestPriority {
		return true
	}
	_, ok := c.inputs[priority]
	return ok
}

func (c *core) inputInfo(priority int) InputInfo {
	if in, ok := c.inputs[priority]; ok {
		return in.clone()
	}
	if in, ok := c.inputs[LowestPriority]; ok {
		return in.clone()
	}
	return fallbackInput(c.ledCount)
}

func (c *core) enableAutoSelect(enabled, propagate bool) error {
	if c.mode.autoSelect == enabled {
		return nil
	}
	if !enabled {
		if _, ok := c.inputs[c.mode.manual]; !ok {
			logger.With(zap.Int("priority", c.mode.manual)).Warn("Can't disable auto selection, the manual selected priority is no longer available")
			return fmt.Errorf("%w: %d", ErrManualPriorityUnavailable, c.mode.manual)
		}
	}

	c.mode.autoSelect = enabled
	logger.With(zap.Bool("enabled", enabled)).Debug("Source auto select changed")

	if propagate {
		c.reevaluate()
	}
	c.emit(autoSelectChanged(enabled))
	return nil
}

func (c *core) selectManual(priority int) error {
	if _, ok := c.inputs[priority]; !ok {
		return fmt.Errorf("%w: %d", ErrUnregisteredPriority, priority)
	}
	c.mode.manual = priority
	if !c.mode.autoSelect {
		c.reevaluate()
		return nil
	}
	return c.enableAutoSelect(false, true)
}

// reevaluate runs a selector pass and applies its outcome.
func (c *core) reevaluate() {
	now := c.now()
	sel := reevaluate(now.UnixMilli(), c.inputs, c.mode, c.current)

	for _, p := range sel.expired {
		delete(c.inputs, p)
		logger.With(zap.Int("priority", p)).Debug("Timeout clear for priority")
	}
	if sel.restoreAutoSelect {
		logger.With(zap.Int("priority", c.mode.manual)).Debug("The manual selected priority is no longer available, switching to auto selection")
		c.mode.autoSelect = true
	}
	if sel.visible != c.current {
		logger.With(zap.Int("priority", sel.visible)).Debug("Set visible priority")
		c.current = sel.visible
	}

	for _, ev := range sel.events {
		c.emit(ev)
	}

	if sel.countdown && c.countdown.trigger(now) {
		c.emit(Event{Kind: EventChanged, Countdown: true})
	}
}

// retryCountdown fires a pending countdown notification once it is due.
func (c *core) retryCountdown() {
	if c.countdown.due(c.now()) {
		c.emit(Event{Kind: EventChanged, Countdown: true})
	}
}
