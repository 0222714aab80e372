package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is a domain event published after a state change commits.
type Event struct {
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type Config struct {
	Type     string // none | rabbitmq | kafka
	URL      string
	Exchange string
	Brokers  string
	Topic    string
}

// New builds the publisher selected by cfg.Type.
func New(cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return NoopPublisher{}, nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.URL, cfg.Exchange)
	case "kafka":
		return NewKafkaPublisher(strings.Split(cfg.Brokers, ","), cfg.Topic), nil
	}
	return nil, fmt.Errorf("unknown broker type %q", cfg.Type)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event *Event) error {
	logrus.WithFields(logrus.Fields{"type": event.Type, "key": event.Key}).Debug("Domain event (no broker)")
	return nil
}

func (NoopPublisher) Close() error { return nil }
