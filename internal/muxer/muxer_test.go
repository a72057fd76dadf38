package muxer

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/ledmux/internal/rgb"
)

type syncClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *syncClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *syncClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func startMuxer(t *testing.T, ledCount int) (*Muxer, *syncClock, context.CancelFunc) {
	t.Helper()

	clock := &syncClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := New(Config{LedCount: ledCount, UpdateInterval: 5 * time.Millisecond}, WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, m.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, clock, cancel
}

func frameOf(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func collect(events <-chan Event, until func(Event) bool, timeout time.Duration) []Event {
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
			if until(ev) {
				return got
			}
		case <-deadline:
			return got
		}
	}
}

func TestMuxerTimedEffectScenario(t *testing.T) {
	m, clock, _ := startMuxer(t, 3)
	events, unsubscribe := m.Events(128)
	defer unsubscribe()

	require.NoError(t, m.Register(50, ComponentEffect, "demo", "", 0))
	require.NoError(t, m.SetColors(50, rgb.Fill(3, red), 5000))

	assert.Equal(t, 50, m.CurrentPriority())
	assert.True(t, m.IsCurrentPriority(50))

	got := collect(events, func(ev Event) bool { return ev == visibleChanged(50) }, time.Second)
	assert.Contains(t, got, registered(50))
	assert.Contains(t, got, activeChanged(50, true))

	clock.Advance(5001 * time.Millisecond)

	got = collect(events, func(ev Event) bool { return ev == visibleChanged(LowestPriority) }, time.Second)
	assert.Contains(t, got, removed(50))
	assert.Contains(t, got, visibleChanged(LowestPriority))

	assert.False(t, m.HasPriority(50))
	assert.Equal(t, LowestPriority, m.CurrentPriority())
	assert.ErrorIs(t, m.SetColors(50, rgb.Fill(3, red), 5000), ErrUnregisteredPriority)
}

func TestMuxerManualScenario(t *testing.T) {
	m, _, _ := startMuxer(t, 1)

	for _, p := range []int{10, 20} {
		require.NoError(t, m.Register(p, ComponentRemote, "test", "", 0))
		require.NoError(t, m.SetColors(p, []rgb.Color{red}, TimeoutNever))
	}
	assert.Equal(t, 10, m.CurrentPriority())

	require.NoError(t, m.SelectManual(20))
	assert.Equal(t, 20, m.CurrentPriority())
	assert.False(t, m.AutoSelectEnabled())

	require.NoError(t, m.Clear(20))
	assert.True(t, m.AutoSelectEnabled())
	assert.Equal(t, 10, m.CurrentPriority())

	assert.ErrorIs(t, m.SelectManual(99), ErrUnregisteredPriority)
	assert.ErrorIs(t, m.EnableAutoSelect(false, true), ErrManualPriorityUnavailable)
	assert.True(t, m.AutoSelectEnabled())
}

func TestMuxerClearAllScenario(t *testing.T) {
	m, _, _ := startMuxer(t, 1)

	require.NoError(t, m.Register(30, ComponentColor, "test", "", 0))
	require.NoError(t, m.SetColors(30, []rgb.Color{red}, TimeoutNever))
	require.NoError(t, m.Register(5, ComponentRemote, "test", "", 0))
	require.NoError(t, m.SetColors(5, []rgb.Color{red}, TimeoutNever))

	require.NoError(t, m.ClearAll(false))
	assert.Equal(t, []int{5, LowestPriority}, m.Priorities())

	require.NoError(t, m.ClearAll(true))
	assert.Equal(t, []int{LowestPriority}, m.Priorities())
	assert.Equal(t, LowestPriority, m.CurrentPriority())

	assert.ErrorIs(t, m.Clear(LowestPriority), ErrInvalidClearTarget)
}

func TestMuxerSubmitPreservesOrder(t *testing.T) {
	m, _, _ := startMuxer(t, 1)
	ctx := context.Background()

	var mu sync.Mutex
	var results []error
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, err)
	}

	require.NoError(t, m.Submit(ctx, SetColorsRequest{Priority: 7, Colors: []rgb.Color{red}, TimeoutMs: TimeoutNever, Done: record}))
	require.NoError(t, m.Submit(ctx, RegisterRequest{Priority: 7, Component: ComponentRemote, Origin: "a", Done: record}))
	require.NoError(t, m.Submit(ctx, SetColorsRequest{Priority: 7, Colors: []rgb.Color{red}, TimeoutMs: TimeoutNever, Done: record}))
	require.NoError(t, m.Submit(ctx, SetInactiveRequest{Priority: 7, Done: record}))
	require.NoError(t, m.Submit(ctx, ClearRequest{Priority: 7, Done: record}))
	require.NoError(t, m.Submit(ctx, ClearRequest{Priority: 7, Done: record}))

	// a synchronous call queues behind the submitted requests
	assert.False(t, m.HasPriority(7))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 6)
	assert.ErrorIs(t, results[0], ErrUnregisteredPriority)
	assert.NoError(t, results[1])
	assert.NoError(t, results[2])
	assert.NoError(t, results[3])
	assert.NoError(t, results[4])
	assert.ErrorIs(t, results[5], ErrInvalidClearTarget)
}

func TestMuxerImageInput(t *testing.T) {
	m, _, _ := startMuxer(t, 1)

	require.NoError(t, m.Register(100, ComponentGrabber, "screen", "", 0))
	assert.Equal(t, LowestPriority, m.CurrentPriority())

	require.NoError(t, m.SetImage(100, frameOf(2, 2), 10_000))
	assert.Equal(t, 100, m.CurrentPriority())
	assert.False(t, rgb.IsEmpty(m.InputInfo(100).Image))

	require.NoError(t, m.SetInactive(100))
	assert.Equal(t, LowestPriority, m.CurrentPriority())
	assert.True(t, m.HasPriority(100))
}

func TestMuxerQueriesAndResize(t *testing.T) {
	m, _, _ := startMuxer(t, 2)

	assert.Equal(t, 2, m.LedCount())
	assert.True(t, m.HasPriority(LowestPriority))
	assert.Equal(t, LowestPriority, m.InputInfo(12).Priority)

	require.NoError(t, m.SetColor(12, red, TimeoutNever, "remote"))
	require.NoError(t, m.ResizeColorBuffers(4))

	assert.Equal(t, 4, m.LedCount())
	assert.Equal(t, rgb.Fill(4, red), m.InputInfo(12).LedColors)
	assert.ErrorIs(t, m.ResizeColorBuffers(-3), ErrInvalidLedCount)
}

func TestMuxerSetEnabledPausesTick(t *testing.T) {
	m, clock, _ := startMuxer(t, 1)

	require.NoError(t, m.Register(20, ComponentRemote, "", "", 0))
	require.NoError(t, m.SetColors(20, []rgb.Color{red}, 100))
	require.NoError(t, m.SetEnabled(false))

	clock.Advance(time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.True(t, m.HasPriority(20))

	require.NoError(t, m.SetEnabled(true))
	assert.Eventually(t, func() bool { return !m.HasPriority(20) }, time.Second, 5*time.Millisecond)
}

func TestMuxerCountdownRetryFires(t *testing.T) {
	m, clock, _ := startMuxer(t, 1)
	events, unsubscribe := m.Events(256)
	defer unsubscribe()

	isCountdown := func(ev Event) bool { return ev.Countdown }

	require.NoError(t, m.SetColor(20, red, 60_000, "test"))
	require.NotEmpty(t, collect(events, isCountdown, time.Second))

	// ticks inside the cooldown arm the retry, then stop pushing it back
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.SetEnabled(false))
	clock.Advance(600 * time.Millisecond)

	got := collect(events, isCountdown, 2*time.Second)
	require.NotEmpty(t, got)
	assert.True(t, got[len(got)-1].Countdown)
}

func TestMuxerStopped(t *testing.T) {
	m := New(Config{LedCount: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Run(ctx))
	assert.ErrorIs(t, m.Run(context.Background()), ErrAlreadyRunning)

	assert.ErrorIs(t, m.Register(1, ComponentColor, "", "", 0), ErrStopped)
	assert.ErrorIs(t, m.Submit(context.Background(), ClearRequest{Priority: 1}), ErrStopped)
	assert.Nil(t, m.Priorities())
	assert.True(t, m.HasPriority(LowestPriority))
	assert.Equal(t, LowestPriority, m.CurrentPriority())
	assert.Equal(t, LowestPriority, m.InputInfo(3).Priority)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe(1)

	bus.Publish(registered(1))
	bus.Publish(registered(2))

	assert.Equal(t, uint64(1), bus.Dropped())
	assert.Equal(t, registered(1), <-events)
	assert.Equal(t, 1, bus.SubscriberCount())

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestMuxerPublishesOnSharedBus(t *testing.T) {
	bus := NewBus()
	events, unsubscribe := bus.Subscribe(8)
	defer unsubscribe()

	m := New(Config{LedCount: 1, UpdateInterval: time.Hour}, WithBus(bus))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, m.Register(10, ComponentColor, "test", "", 0))

	assert.Equal(t, registered(10), <-events)
	assert.Equal(t, changed(), <-events)
	assert.Equal(t, 1, bus.SubscriberCount())
}
