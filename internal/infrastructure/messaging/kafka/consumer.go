package kafka

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ConsumerConfig holds the reader parameters.
type ConsumerConfig struct {
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	GroupID string        `mapstructure:"group_id"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// messageReader is the subset of kafka.Reader the consumer needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// EventHandler processes one decoded run event. Returning an error stops
// the consume loop.
type EventHandler func(ev RunEvent) error

// Consumer tails the run-event topic and dispatches decoded events to a
// handler. Undecodable messages are logged and skipped so one bad record
// cannot wedge the stream.
type Consumer struct {
	reader messageReader
	logger logging.Logger
}

// NewConsumer builds a consumer for the configured topic.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNop()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 3 * time.Second
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   topic,
		GroupID: cfg.GroupID,
		MaxWait: maxWait,
	})
	return &Consumer{reader: r, logger: logger.Named("kafka_consumer")}
}

// Consume reads events until the context is cancelled, the stream ends, or
// the handler returns an error.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeMessagingError, "reading run event")
		}

		ev, err := DecodeRunEvent(msg.Value)
		if err != nil {
			c.logger.Warn("skipping undecodable run event",
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			continue
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
