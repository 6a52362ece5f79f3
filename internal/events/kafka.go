// Package events publishes ledger events to Kafka for downstream
// consumers (notifications, analytics, reconciliation jobs).
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/example/points-ledger/internal/ledger"
)

// KafkaPublisher writes ledger events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ ledger.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher targeting the given brokers.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish sends one event to topic. The message key is the account ID
// when the event carries one, keeping a single account's events ordered
// within a partition.
func (p *KafkaPublisher) Publish(topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{Topic: topic, Value: data}
	if settled, ok := event.(ledger.SettledEvent); ok {
		msg.Key = []byte(settled.AccountID)
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
