// Package kafka publishes check events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/overlap/pkg/eventstream"
	"github.com/papercomputeco/overlap/pkg/logger"
)

var (
	// ErrNoBrokers is returned when the config lists no brokers.
	ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

	// ErrNoTopic is returned when the config has no topic.
	ErrNoTopic = errors.New("kafka publisher requires a topic")
)

const headerEventType = "event_type"

// Config configures the Kafka publisher.
type Config struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Publisher writes check events as JSON messages keyed by event ID.
type Publisher struct {
	writer *kafkago.Writer
	topic  string
	logger *slog.Logger
}

// NewPublisher validates c and creates a writer. No connection is made until
// the first publish.
func NewPublisher(c Config, log *slog.Logger) (*Publisher, error) {
	brokers := make([]string, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(c.Topic) == "" {
		return nil, ErrNoTopic
	}
	if log == nil {
		log = logger.Nop()
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	if c.ClientID != "" {
		w.Transport = &kafkago.Transport{ClientID: c.ClientID}
	}

	log.Debug("kafka publisher configured", "brokers", brokers, "topic", c.Topic)

	return &Publisher{writer: w, topic: c.Topic, logger: log}, nil
}

// PublishCheck marshals and writes one event.
func (p *Publisher) PublishCheck(ctx context.Context, event *eventstream.CheckCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilCheckEvent
	}

	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(event *eventstream.CheckCompletedEvent) (kafkago.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshaling check event: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(event.EventID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: headerEventType, Value: []byte(event.EventType)},
		},
	}, nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
