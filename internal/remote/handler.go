package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/muxer"
	"github.com/scheerer/ledmux/internal/rgb"
)

const defaultOrigin = "MQTT"

// Controller is the part of the muxer driven by remote commands.
type Controller interface {
	SetColor(priority int, col rgb.Color, timeoutMs int64, origin string) error
	Clear(priority int) error
	ClearAll(force bool) error
	SelectManual(priority int) error
	EnableAutoSelect(enabled, propagate bool) error
}

// ColorCommand is the payload of a color topic. A missing or non-positive duration
// keeps the color until it is cleared.
type ColorCommand struct {
	Color      []int  `json:"color"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Origin     string `json:"origin,omitempty"`
}

// NewColorCommand builds the payload for c shown for d, zero meaning forever.
func NewColorCommand(c rgb.Color, d time.Duration, origin string) ColorCommand {
	return ColorCommand{
		Color:      []int{int(c.Red), int(c.Green), int(c.Blue)},
		DurationMs: d.Milliseconds(),
		Origin:     origin,
	}
}

func (cmd ColorCommand) rgb() (rgb.Color, error) {
	if len(cmd.Color) != 3 {
		return rgb.Color{}, fmt.Errorf("%w: color needs 3 components, got %d", ErrInvalidPayload, len(cmd.Color))
	}
	for _, v := range cmd.Color {
		if v < 0 || v > 255 {
			return rgb.Color{}, fmt.Errorf("%w: color component %d out of range", ErrInvalidPayload, v)
		}
	}
	return rgb.Color{Red: uint8(cmd.Color[0]), Green: uint8(cmd.Color[1]), Blue: uint8(cmd.Color[2])}, nil
}

func (cmd ColorCommand) timeoutMs() int64 {
	if cmd.DurationMs <= 0 {
		return muxer.TimeoutNever
	}
	return cmd.DurationMs
}

// Handler translates command messages into muxer calls.
type Handler struct {
	topics Topics
	ctrl   Controller
}

func NewHandler(topics Topics, ctrl Controller) *Handler {
	return &Handler{topics: topics, ctrl: ctrl}
}

// Handle dispatches one message. It is safe to call from paho's goroutines since the
// controller serializes every call.
func (h *Handler) Handle(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, h.topics.prefix()+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	command, arg, _ := strings.Cut(rest, "/")
	log := logger.With(zap.String("topic", topic))

	switch command {
	case "color":
		priority, err := parsePriority(arg)
		if err != nil {
			return err
		}
		var cmd ColorCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		c, err := cmd.rgb()
		if err != nil {
			return err
		}
		origin := cmd.Origin
		if origin == "" {
			origin = defaultOrigin
		}
		log.With(zap.Int("priority", priority), zap.Any("color", c), zap.String("origin", origin)).Debug("Remote color")
		return h.ctrl.SetColor(priority, c, cmd.timeoutMs(), origin)

	case "clear":
		priority, err := parsePriority(arg)
		if err != nil {
			return err
		}
		log.With(zap.Int("priority", priority)).Debug("Remote clear")
		return h.ctrl.Clear(priority)

	case "clearall":
		force := strings.EqualFold(strings.TrimSpace(string(payload)), "force")
		log.With(zap.Bool("force", force)).Debug("Remote clear all")
		return h.ctrl.ClearAll(force)

	case "select":
		priority, err := parsePriority(arg)
		if err != nil {
			return err
		}
		log.With(zap.Int("priority", priority)).Debug("Remote select")
		return h.ctrl.SelectManual(priority)

	case "autoselect":
		enabled, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		log.With(zap.Bool("enabled", enabled)).Debug("Remote auto select")
		return h.ctrl.EnableAutoSelect(enabled, true)
	}

	return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

func parsePriority(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: priority %q", ErrInvalidPayload, s)
	}
	return p, nil
}
