package remote

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/scheerer/ledmux/internal/muxer"
)

// Broker is the MQTT surface the service needs. *Client implements it.
type Broker interface {
	Subscribe(topic string, handler MessageHandler) error
	Publish(topic string, payload []byte, retained bool) error
}

// Service accepts commands over MQTT and publishes the visible priority.
type Service struct {
	broker  Broker
	topics  Topics
	handler *Handler
}

func NewService(broker Broker, topics Topics, ctrl Controller) *Service {
	return &Service{
		broker:  broker,
		topics:  topics,
		handler: NewHandler(topics, ctrl),
	}
}

// Run subscribes to the command topics and mirrors visible priority changes from
// events until ctx is done or events is closed. current seeds the state topic.
func (s *Service) Run(ctx context.Context, current int, events <-chan muxer.Event) error {
	for _, topic := range s.topics.Commands() {
		if err := s.broker.Subscribe(topic, s.handler.Handle); err != nil {
			return err
		}
	}
	logger.With(zap.String("prefix", s.topics.prefix())).Info("Remote control listening")

	s.publishVisible(current)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind == muxer.EventVisiblePriorityChanged {
				s.publishVisible(ev.Priority)
			}
		}
	}
}

func (s *Service) publishVisible(priority int) {
	if err := s.broker.Publish(s.topics.Visible(), []byte(strconv.Itoa(priority)), true); err != nil {
		logger.With(zap.Int("priority", priority), zap.Error(err)).Warn("Failed to publish visible priority")
	}
}
