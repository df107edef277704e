package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ProducerConfig holds the writer parameters.
type ProducerConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// messageWriter is the subset of kafka.Writer the producer needs; a fake
// stands in during tests.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer publishes run lifecycle events, keyed by run ID so one run's
// events stay ordered within a partition.
type Producer struct {
	writer messageWriter
	logger logging.Logger
}

// NewProducer builds a producer for the configured topic.
func NewProducer(cfg ProducerConfig, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequireOne,
	}
	return &Producer{writer: w, logger: logger.Named("kafka_producer")}
}

// Publish sends one lifecycle event for the run.
func (p *Producer) Publish(ctx context.Context, eventType EventType, rn *run.Run) error {
	ev := NewRunEvent(eventType, rn)
	data, err := ev.Encode()
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(ev.RunID),
		Value: data,
		Time:  ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, errors.ErrCodeMessagingError, "publishing %s event", eventType)
	}

	p.logger.Debug("run event published",
		logging.String("type", string(eventType)),
		logging.String("run_id", ev.RunID))
	return nil
}

// Close flushes buffered messages and releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
