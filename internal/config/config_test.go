package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, c.Muxer.LedCount)
	assert.Equal(t, 250*time.Millisecond, c.Muxer.UpdateInterval)
	assert.Equal(t, "info", c.Log.Level)
	assert.True(t, c.Grabber.Enabled)
	assert.Equal(t, 240, c.Grabber.Priority)
	assert.Equal(t, 80*time.Millisecond, c.Grabber.CaptureInterval)
	assert.Equal(t, time.Second, c.Grabber.Timeout)
	assert.Equal(t, "ARCADE", c.Light.LightGroupName)
	assert.Equal(t, 0.65, c.Light.MaxBrightness)
	assert.False(t, c.Remote.Enabled)
	assert.Equal(t, "ledmux", c.Remote.TopicPrefix)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LED_COUNT", "30")
	t.Setenv("UPDATE_INTERVAL", "100ms")
	t.Setenv("GRABBER_PRIORITY", "200")
	t.Setenv("COLOR_ALGO", "median")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_TOPIC_PREFIX", "living/tv")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, c.Muxer.LedCount)
	assert.Equal(t, 100*time.Millisecond, c.Muxer.UpdateInterval)
	assert.Equal(t, 200, c.Grabber.Priority)
	assert.Equal(t, "median", c.Grabber.ColorAlgo)
	assert.True(t, c.Remote.Enabled)
	assert.Equal(t, "living/tv", c.Remote.TopicPrefix)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("LED_COUNT", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c, err := Load()
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "defaults"},
		{
			name:    "no leds",
			modify:  func(c *Config) { c.Muxer.LedCount = 0 },
			wantErr: "LED_COUNT",
		},
		{
			name:    "grabber on the fallback priority",
			modify:  func(c *Config) { c.Grabber.Priority = 255 },
			wantErr: "GRABBER_PRIORITY",
		},
		{
			name: "disabled grabber is not checked",
			modify: func(c *Config) {
				c.Grabber.Enabled = false
				c.Grabber.Priority = 255
			},
		},
		{
			name:    "unknown color algorithm",
			modify:  func(c *Config) { c.Grabber.ColorAlgo = "BRIGHTEST" },
			wantErr: "unknown color algorithm",
		},
		{
			name:    "inverted brightness",
			modify:  func(c *Config) { c.Light.MinBrightness = 0.8 },
			wantErr: "MIN_BRIGHTNESS",
		},
		{
			name:    "unknown light",
			modify:  func(c *Config) { c.Light.LightType = "HUE" },
			wantErr: "unknown light type",
		},
		{
			name: "mqtt qos",
			modify: func(c *Config) {
				c.Remote.Enabled = true
				c.Remote.QoS = 3
			},
			wantErr: "MQTT_QOS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			if tt.modify != nil {
				tt.modify(&c)
			}

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	c.Muxer.LedCount = 0
	c.Light.RenderInterval = 0

	err = c.Validate()
	assert.ErrorContains(t, err, "LED_COUNT")
	assert.ErrorContains(t, err, "RENDER_INTERVAL")
}

func TestRedacted(t *testing.T) {
	t.Setenv("MQTT_PASSWORD", "secret")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "***", c.Redacted().Remote.Password)
	assert.Equal(t, "secret", c.Remote.Password)
}
