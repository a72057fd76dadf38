package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/config"
	"github.com/scheerer/ledmux/internal/logging"
	"github.com/scheerer/ledmux/internal/remote"
	"github.com/scheerer/ledmux/internal/rgb"
)

var logger = logging.New("ctl")

const usage = `usage: ledmuxctl [flags] <command> [args]

commands:
  color <priority> <r> <g> <b>   show a color on priority
  clear <priority>               remove priority
  clearall [force]               remove color inputs, force resets everything
  select <priority>              lock the output on priority
  autoselect <true|false>        toggle automatic selection
  watch                          print the visible priority until interrupted

The broker is read from MQTT_BROKER, MQTT_USERNAME, MQTT_PASSWORD and MQTT_TOPIC_PREFIX.`

func main() {
	defer logger.Sync()

	duration := flag.Duration("duration", 0, "how long a color stays, 0 keeps it until cleared")
	origin := flag.String("origin", "ledmuxctl", "origin reported with a color")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg config.RemoteConfig
	if err := env.Parse(&cfg); err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to parse environment variables")
	}
	topics := remote.Topics{Prefix: cfg.TopicPrefix}

	msg, err := buildMessage(topics, flag.Args(), *duration, *origin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	client, err := remote.Connect(remote.Config{
		Broker:   cfg.Broker,
		ClientID: "ledmuxctl-" + uuid.NewString(),
		Username: cfg.Username,
		Password: cfg.Password,
		QoS:      byte(cfg.QoS),
	})
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Close()

	if msg.watch {
		watch(client, topics)
		return
	}

	if err := client.Publish(msg.topic, msg.payload, false); err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to publish command")
	}
	logger.With(zap.String("topic", msg.topic)).Info("Command sent")
}

type message struct {
	topic   string
	payload []byte
	watch   bool
}

func buildMessage(topics remote.Topics, args []string, duration time.Duration, origin string) (message, error) {
	command, args := args[0], args[1:]

	switch command {
	case "color":
		if len(args) != 4 {
			return message{}, errors.New("color needs a priority and three components")
		}
		priority, err := strconv.Atoi(args[0])
		if err != nil {
			return message{}, fmt.Errorf("invalid priority %q", args[0])
		}
		var parts [3]uint8
		for i, s := range args[1:] {
			v, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return message{}, fmt.Errorf("invalid color component %q", s)
			}
			parts[i] = uint8(v)
		}
		cmd := remote.NewColorCommand(rgb.Color{Red: parts[0], Green: parts[1], Blue: parts[2]}, duration, origin)
		payload, err := json.Marshal(cmd)
		if err != nil {
			return message{}, err
		}
		return message{topic: topics.Color(priority), payload: payload}, nil

	case "clear", "select":
		if len(args) != 1 {
			return message{}, fmt.Errorf("%s needs a priority", command)
		}
		priority, err := strconv.Atoi(args[0])
		if err != nil {
			return message{}, fmt.Errorf("invalid priority %q", args[0])
		}
		if command == "clear" {
			return message{topic: topics.Clear(priority)}, nil
		}
		return message{topic: topics.Select(priority)}, nil

	case "clearall":
		var payload []byte
		if len(args) == 1 && strings.EqualFold(args[0], "force") {
			payload = []byte("force")
		}
		return message{topic: topics.ClearAll(), payload: payload}, nil

	case "autoselect":
		if len(args) != 1 {
			return message{}, errors.New("autoselect needs true or false")
		}
		enabled, err := strconv.ParseBool(args[0])
		if err != nil {
			return message{}, fmt.Errorf("invalid autoselect value %q", args[0])
		}
		return message{topic: topics.AutoSelect(), payload: []byte(strconv.FormatBool(enabled))}, nil

	case "watch":
		return message{watch: true}, nil
	}

	return message{}, fmt.Errorf("unknown command %q", command)
}

func watch(client *remote.Client, topics remote.Topics) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.Subscribe(topics.Visible(), func(_ string, payload []byte) error {
		fmt.Println(string(payload))
		return nil
	})
	if err != nil {
		logger.With(zap.Error(err)).Fatal("Failed to watch the visible priority")
	}
	<-ctx.Done()
}
