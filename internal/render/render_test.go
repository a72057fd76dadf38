package render

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheerer/ledmux/internal/muxer"
	"github.com/scheerer/ledmux/internal/rgb"
)

type fakeSource struct {
	mu      sync.Mutex
	current int
	inputs  map[int]muxer.InputInfo
}

func (s *fakeSource) CurrentPriority() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *fakeSource) InputInfo(priority int) muxer.InputInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.inputs[priority]; ok {
		return in
	}
	return s.inputs[muxer.LowestPriority]
}

func (s *fakeSource) set(priority int, in muxer.InputInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.Priority = priority
	s.inputs[priority] = in
	s.current = priority
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		current: muxer.LowestPriority,
		inputs: map[int]muxer.InputInfo{
			muxer.LowestPriority: {Priority: muxer.LowestPriority, LedColors: rgb.Fill(3, rgb.Black)},
		},
	}
}

type fakeLights struct {
	mu     sync.Mutex
	count  int
	colors []rgb.Color
}

func (l *fakeLights) Start(context.Context) {}
func (l *fakeLights) Stop() {}

func (l *fakeLights) LightCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *fakeLights) SetColorWithDuration(_ context.Context, c rgb.Color, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colors = append(l.colors, c)
}

func (l *fakeLights) sent() []rgb.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]rgb.Color(nil), l.colors...)
}

func TestFrameUsesFallback(t *testing.T) {
	r := New(Config{}, newFakeSource(), &fakeLights{count: 1})

	priority, c := r.Frame()
	assert.Equal(t, muxer.LowestPriority, priority)
	assert.Equal(t, rgb.Black, c)
}

func TestFramePrefersImage(t *testing.T) {
	source := newFakeSource()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{G: 90, A: 255})
		}
	}
	source.set(100, muxer.InputInfo{Image: img, LedColors: rgb.Fill(3, rgb.Color{Red: 255})})

	r := New(Config{PixelGridSize: 1}, source, &fakeLights{count: 1})
	priority, c := r.Frame()

	assert.Equal(t, 100, priority)
	assert.Equal(t, rgb.Color{Green: 90}, c)
}

func TestFrameAveragesLedColors(t *testing.T) {
	source := newFakeSource()
	source.set(10, muxer.InputInfo{LedColors: []rgb.Color{{Red: 200}, {Blue: 100}}})

	r := New(Config{}, source, &fakeLights{count: 1})
	_, c := r.Frame()

	assert.Equal(t, rgb.Color{Red: 100, Blue: 50}, c)
}

func TestRenderSkipsWithoutLightsAndDuplicates(t *testing.T) {
	source := newFakeSource()
	light := &fakeLights{}
	r := New(Config{}, source, light)
	ctx := context.Background()

	r.Render(ctx)
	assert.Empty(t, light.sent())

	light.count = 2
	r.Render(ctx)
	r.Render(ctx)
	assert.Equal(t, []rgb.Color{rgb.Black}, light.sent())

	source.set(10, muxer.InputInfo{LedColors: []rgb.Color{{Red: 10}}})
	r.Render(ctx)
	assert.Equal(t, []rgb.Color{rgb.Black, {Red: 10}}, light.sent())
}

func TestRunRendersOnVisibleChange(t *testing.T) {
	source := newFakeSource()
	light := &fakeLights{count: 1}
	r := New(Config{Interval: time.Hour}, source, light)

	events := make(chan muxer.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, events)
	}()

	source.set(20, muxer.InputInfo{LedColors: []rgb.Color{{Green: 30}}})
	events <- muxer.Event{Kind: muxer.EventVisiblePriorityChanged, Priority: 20}

	require.Eventually(t, func() bool { return len(light.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, rgb.Color{Green: 30}, light.sent()[0])

	cancel()
	<-done
}
