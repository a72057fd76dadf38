package lifx

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/lights"
	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/rgb"
)

var logger = logging.New("lifx")

const (
	discoveryInterval = 15 * time.Second
	discoveryTimeout  = 5 * time.Second
	kelvin            = 3500
)

type LifxLights struct {
	config Config
	client *golifx.Client

	groupMu sync.RWMutex
	group   common.Group
}

var _ lights.LightService = (*LifxLights)(nil)

type Config struct {
	GroupName     string
	MaxBrightness float64
	MinBrightness float64
}

func NewLifx(ctx context.Context, config Config) (*LifxLights, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, err
	}

	l := &LifxLights{
		config: config,
		client: client,
	}
	go l.Start(ctx)
	return l, nil
}

func (l *LifxLights) Start(ctx context.Context) {
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	if err := l.client.SetDiscoveryInterval(discoveryInterval); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set LIFX discovery interval")
	}

	l.discover(ctx)

	for {
		select {
		case <-ticker.C:
			l.discover(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (l *LifxLights) Stop() {
	if err := l.client.Close(); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to close LIFX client")
	}
}

func (l *LifxLights) discover(ctx context.Context) {
	logger.With(zap.String("group", l.config.GroupName)).Debug("LIFX discovery starting...")

	type result struct {
		group common.Group
		err   error
	}
	completed := make(chan result, 1)
	go func() {
		g, err := l.client.GetGroupByLabel(l.config.GroupName)
		completed <- result{group: g, err: err}
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	select {
	case <-ctxWithTimeout.Done():
		logger.With(zap.Error(ctxWithTimeout.Err())).Warn("LIFX discovery timed out.")
	case r := <-completed:
		if r.err != nil || r.group == nil {
			logger.With(zap.String("group", l.config.GroupName), zap.Error(r.err)).Warn("Couldn't discover group.")
			return
		}
		logger.With(zap.String("group", r.group.GetLabel())).Info("LIFX group found")
		l.groupMu.Lock()
		l.group = r.group
		l.groupMu.Unlock()
	}
}

func (l *LifxLights) currentGroup() common.Group {
	l.groupMu.RLock()
	defer l.groupMu.RUnlock()
	return l.group
}

func (l *LifxLights) LightCount() int {
	g := l.currentGroup()
	if g == nil {
		return 0
	}
	return len(g.Lights())
}

func (l *LifxLights) SetColorWithDuration(_ context.Context, color rgb.Color, duration time.Duration) {
	g := l.currentGroup()
	if g == nil {
		return
	}

	lifxColor := adjustColor(newLifxColor(color), l.config)

	logger.With(zap.Any("color", color), zap.Any("lifxColor", lifxColor)).Debug("Setting LIFX group color")

	if err := g.SetColor(lifxColor, duration); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to set color for LIFX group")
	}
}

func newLifxColor(color rgb.Color) common.Color {
	hue, saturation, brightness := rgb.RgbToHsb(color.Red, color.Green, color.Blue)

	return common.Color{
		Hue:        hue,
		Saturation: saturation,
		Brightness: brightness,
		Kelvin:     kelvin,
	}
}

// adjustColor turns near black off and clamps brightness into the configured range.
func adjustColor(color common.Color, config Config) common.Color {
	blackThreshold := 0.015 * 0xFFFF
	if color.Brightness <= uint16(blackThreshold) && color.Saturation <= uint16(blackThreshold) {
		return common.Color{Kelvin: kelvin}
	}

	color.Brightness = uint16(math.Min(config.MaxBrightness*0xFFFF, math.Max(config.MinBrightness*0xFFFF, float64(color.Brightness))))

	return color
}
