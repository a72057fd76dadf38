package lights

import (
	"context"
	"time"

	"github.com/scheerer/ledmux/internal/rgb"
)

// LightService is the device side of the render stage.
type LightService interface {
	Start(ctx context.Context)
	Stop()
	LightCount() int
	SetColorWithDuration(ctx context.Context, color rgb.Color, duration time.Duration)
}
