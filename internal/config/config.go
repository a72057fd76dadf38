package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"

	"github.com/scheerer/ledmux/internal/rgb"
)

type MuxerConfig struct {
	LedCount       int           `env:"LED_COUNT" envDefault:"1"`
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL" envDefault:"250ms"`
}

type LogConfig struct {
	Level    string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding string `env:"LOG_ENCODING" envDefault:"console"`
}

type GrabberConfig struct {
	Enabled         bool          `env:"GRABBER_ENABLED" envDefault:"true"`
	Priority        int           `env:"GRABBER_PRIORITY" envDefault:"240"`
	CaptureInterval time.Duration `env:"CAPTURE_INTERVAL" envDefault:"80ms"`
	ColorAlgo       string        `env:"COLOR_ALGO" envDefault:"AVERAGE"`
	PixelGridSize   int           `env:"PIXEL_GRID_SIZE" envDefault:"5"`
	ScreenNumber    int           `env:"SCREEN_NUMBER" envDefault:"0"`
	Timeout         time.Duration `env:"GRABBER_TIMEOUT" envDefault:"1s"`
}

type LightConfig struct {
	LightType      string        `env:"LIGHT_TYPE" envDefault:"LIFX"`
	LightGroupName string        `env:"LIGHT_GROUP_NAME" envDefault:"ARCADE"`
	MaxBrightness  float64       `env:"MAX_BRIGHTNESS" envDefault:"0.65"`
	MinBrightness  float64       `env:"MIN_BRIGHTNESS" envDefault:"0"`
	RenderInterval time.Duration `env:"RENDER_INTERVAL" envDefault:"50ms"`
}

type RemoteConfig struct {
	Enabled     bool   `env:"MQTT_ENABLED" envDefault:"false"`
	Broker      string `env:"MQTT_BROKER" envDefault:"tcp://127.0.0.1:1883"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"ledmux"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"ledmux"`
	QoS         int    `env:"MQTT_QOS" envDefault:"1"`
}

// Config is the daemon configuration, read from the environment.
type Config struct {
	Muxer   MuxerConfig
	Log     LogConfig
	Grabber GrabberConfig
	Light   LightConfig
	Remote  RemoteConfig
}

func Load() (Config, error) {
	var c Config
	for _, section := range []any{&c.Muxer, &c.Log, &c.Grabber, &c.Light, &c.Remote} {
		if err := env.Parse(section); err != nil {
			return Config{}, err
		}
	}
	return c, c.Validate()
}

// Validate reports every out of range value at once.
func (c Config) Validate() error {
	var errs []error
	if c.Muxer.LedCount < 1 {
		errs = append(errs, fmt.Errorf("LED_COUNT must be at least 1, got %d", c.Muxer.LedCount))
	}
	if c.Muxer.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("UPDATE_INTERVAL must be positive, got %v", c.Muxer.UpdateInterval))
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_ENCODING must be console or json, got %q", c.Log.Encoding))
	}

	if c.Grabber.Enabled {
		if c.Grabber.Priority < 0 || c.Grabber.Priority > 254 {
			errs = append(errs, fmt.Errorf("GRABBER_PRIORITY must be between 0 and 254, got %d", c.Grabber.Priority))
		}
		if c.Grabber.CaptureInterval <= 0 {
			errs = append(errs, fmt.Errorf("CAPTURE_INTERVAL must be positive, got %v", c.Grabber.CaptureInterval))
		}
		if c.Grabber.PixelGridSize < 1 {
			errs = append(errs, fmt.Errorf("PIXEL_GRID_SIZE must be at least 1, got %d", c.Grabber.PixelGridSize))
		}
		if _, err := rgb.ReducerByName(c.Grabber.ColorAlgo); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Light.LightType != "LIFX" {
		errs = append(errs, fmt.Errorf("unknown light type: %v", c.Light.LightType))
	}
	if c.Light.MinBrightness < 0 || c.Light.MaxBrightness > 1 || c.Light.MinBrightness > c.Light.MaxBrightness {
		errs = append(errs, fmt.Errorf("brightness must satisfy 0 <= MIN_BRIGHTNESS <= MAX_BRIGHTNESS <= 1, got %v and %v",
			c.Light.MinBrightness, c.Light.MaxBrightness))
	}
	if c.Light.RenderInterval <= 0 {
		errs = append(errs, fmt.Errorf("RENDER_INTERVAL must be positive, got %v", c.Light.RenderInterval))
	}

	if c.Remote.Enabled {
		if c.Remote.Broker == "" {
			errs = append(errs, errors.New("MQTT_BROKER is required when MQTT_ENABLED is set"))
		}
		if c.Remote.QoS < 0 || c.Remote.QoS > 2 {
			errs = append(errs, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.Remote.QoS))
		}
	}

	return errors.Join(errs...)
}

// Redacted returns c with secrets masked for logging.
func (c Config) Redacted() Config {
	if c.Remote.Password != "" {
		c.Remote.Password = "***"
	}
	return c
}
