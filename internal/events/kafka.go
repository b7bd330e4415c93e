package events

import (
	"context"
	"fmt"
	"time"

	"github.com/efreitasn/otcpool/internal/domain"
	"github.com/segmentio/kafka-go"
)

// KafkaSink produces each event to a Kafka topic keyed by event kind, so
// events of one kind keep their relative order within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a synchronous producer for topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, e domain.Event) error {
	msg, err := kafkaMessage(e)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write event %s: %w", e.Kind, err)
	}
	return nil
}

func kafkaMessage(e domain.Event) (kafka.Message, error) {
	body, err := Encode(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(e.Kind),
		Value: body,
		Time:  e.RecordedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}, nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
