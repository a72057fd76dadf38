package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/config"
	"github.com/scheerer/ledmux/internal/grabber"
	"github.com/scheerer/ledmux/internal/lights"
	"github.com/scheerer/ledmux/internal/lights/lifx"
	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/muxer"
	"github.com/scheerer/ledmux/internal/remote"
	"github.com/scheerer/ledmux/internal/render"
	"github.com/scheerer/ledmux/internal/rgb"
)

var logger = logging.New("main")

func main() {
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Invalid configuration")
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Encoding)

	logger.With(zap.Any("config", cfg.Redacted())).Info("Starting ledmux")
	logger.Info("Adjust LED_COUNT to the number of leds each input carries.")
	logger.Info("Adjust GRABBER_PRIORITY to rank the screen grabber. Lower values win, 255 is reserved for the fallback.")
	logger.Info("Adjust COLOR_ALGO to change color algorithm. Valid values are: [AVERAGE, SQUARED_AVERAGE, MEDIAN, MODE]")
	logger.Info("Adjust PIXEL_GRID_SIZE to increase performance or accuracy. Lower values are slower but more accurate. 1 being the most accurate.")
	logger.Info("Set MQTT_ENABLED=true to accept remote colors on MQTT_BROKER.")
	logger.Info("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	Run(ctx, &wg, cfg)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	logger.Info("Shutting down")
	cancel()
	wg.Wait()
}

func Run(ctx context.Context, wg *sync.WaitGroup, cfg config.Config) {
	bus := muxer.NewBus()
	mux := muxer.New(muxer.Config{
		LedCount:       cfg.Muxer.LedCount,
		UpdateInterval: cfg.Muxer.UpdateInterval,
	}, muxer.WithBus(bus))

	// subscribe before the loop starts so no early event is missed
	renderEvents, unsubscribeRender := bus.Subscribe(16)
	var remoteEvents <-chan muxer.Event
	unsubscribeRemote := func() {}
	if cfg.Remote.Enabled {
		remoteEvents, unsubscribeRemote = bus.Subscribe(16)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Run(ctx); err != nil {
			logger.With(zap.Error(err)).Error("Muxer stopped")
		}
		if dropped := bus.Dropped(); dropped > 0 {
			logger.With(zap.Uint64("dropped", dropped)).Warn("Slow event subscribers missed events")
		}
	}()

	var lightService lights.LightService
	switch cfg.Light.LightType {
	case "LIFX":
		l, err := lifx.NewLifx(ctx, lifx.Config{
			GroupName:     cfg.Light.LightGroupName,
			MinBrightness: cfg.Light.MinBrightness,
			MaxBrightness: cfg.Light.MaxBrightness,
		})
		if err != nil {
			logger.With(zap.Error(err)).Fatal("Failed to create LIFX light service")
		}
		lightService = l
	default:
		logger.Fatalf("unknown light type: %v", cfg.Light.LightType)
	}

	reducer, err := rgb.ReducerByName(cfg.Grabber.ColorAlgo)
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Invalid COLOR_ALGO")
	}

	if cfg.Grabber.Enabled {
		g := grabber.New(grabber.Config{
			Priority:        cfg.Grabber.Priority,
			CaptureInterval: cfg.Grabber.CaptureInterval,
			ScreenNumber:    cfg.Grabber.ScreenNumber,
			Timeout:         cfg.Grabber.Timeout,
		}, mux)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Run(ctx); err != nil {
				logger.With(zap.Error(err)).Error("Screen grabber stopped")
			}
		}()
	}

	if cfg.Remote.Enabled {
		client, err := remote.Connect(remote.Config{
			Broker:      cfg.Remote.Broker,
			ClientID:    cfg.Remote.ClientID,
			Username:    cfg.Remote.Username,
			Password:    cfg.Remote.Password,
			TopicPrefix: cfg.Remote.TopicPrefix,
			QoS:         byte(cfg.Remote.QoS),
		})
		if err != nil {
			logger.With(zap.Error(err)).Error("Remote control disabled")
			unsubscribeRemote()
		} else {
			service := remote.NewService(client, remote.Topics{Prefix: cfg.Remote.TopicPrefix}, mux)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer client.Close()
				defer unsubscribeRemote()
				if err := service.Run(ctx, mux.CurrentPriority(), remoteEvents); err != nil {
					logger.With(zap.Error(err)).Error("Remote control stopped")
				}
			}()
		}
	}

	renderer := render.New(render.Config{
		Interval:      cfg.Light.RenderInterval,
		Transition:    cfg.Light.RenderInterval,
		PixelGridSize: cfg.Grabber.PixelGridSize,
		Reducer:       reducer,
	}, mux, lightService)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer lightService.Stop()
		defer unsubscribeRender()
		renderer.Run(ctx, renderEvents)
	}()
}
