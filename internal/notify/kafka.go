package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages to a single topic keyed by event id, so all
// messages about one event land on one partition in order.
type KafkaPublisher struct {
	writer MessageWriter
	source string
}

// NewKafkaWriter returns a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaPublisher wraps writer. source names this service in message headers.
func NewKafkaPublisher(writer MessageWriter, source string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, source: source}
}

// Publish writes msg as JSON.
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.EventID),
		Value: value,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
			{Key: "message_id", Value: []byte(msg.ID)},
			{Key: "source", Value: []byte(p.source)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs messages instead of sending them. It is used when no
// brokers are configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("notification",
		zap.String("message_id", msg.ID),
		zap.String("type", string(msg.Type)),
		zap.String("event_id", msg.EventID),
		zap.String("actor_id", msg.ActorID),
		zap.String("action", msg.Action),
		zap.String("from", string(msg.From)),
		zap.String("to", string(msg.To)),
		zap.String("user_id", msg.UserID),
		zap.String("registration_status", string(msg.RegistrationStatus)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
