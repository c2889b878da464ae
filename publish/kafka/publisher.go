// Package kafka publishes enrollment events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/registrarkit/enroll/enrollment"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// A TopicMapper routes an event to a topic. It allows per-kind topics; most
// deployments use a single topic for the whole stream.
type TopicMapper func(event *enrollment.Envelope) string

// Publisher delivers enrollment events to Kafka.
//
// Events for the same enrollment share a message key, so they land on the
// same partition and are consumed in the order they were recorded.
type Publisher struct {
	writer *kafkago.Writer
	topics TopicMapper
	logger *zap.Logger
}

// Option configures a [Publisher].
type Option func(*Publisher)

// WithTopicMapper sets a per-event topic routing strategy.
func WithTopicMapper(m TopicMapper) Option {
	return func(p *Publisher) {
		p.topics = m
	}
}

// WithLogger sets the target for messages about delivery.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher returns a publisher that writes to the given topic on the
// given brokers.
func NewPublisher(brokers []string, topic string, options ...Option) *Publisher {
	p := &Publisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  5,
		},
		topics: func(*enrollment.Envelope) string {
			return topic
		},
		logger: zap.NewNop(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish implements [registrar.EventPublisher].
//
// The batch is written in a single call; Kafka's acknowledgement covers all
// of its messages.
func (p *Publisher) Publish(ctx context.Context, events []*enrollment.Envelope) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafkago.Message, 0, len(events))
	for _, event := range events {
		value, err := enrollment.MarshalEnvelope(event)
		if err != nil {
			return fmt.Errorf("event %s cannot be encoded: %w", event.EventID, err)
		}

		messages = append(messages, kafkago.Message{
			Topic: p.topics(event),
			Key:   []byte(event.EnrollmentID.StreamKey()),
			Value: value,
			Time:  event.OccurredAt,
			Headers: []kafkago.Header{
				{Key: "event_id", Value: []byte(event.EventID)},
				{Key: "event_kind", Value: []byte(event.Kind())},
			},
		})
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("unable to publish %d event(s): %w", len(messages), err)
	}

	p.logger.Debug(
		"enrollment events published",
		zap.Int("count", len(messages)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
