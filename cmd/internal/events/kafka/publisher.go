// Package kafka publishes committed-transfer events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"tally/cmd/internal/ledger"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "tally.transfer_completed"

// Publisher writes transfer events keyed by source account, so every
// consumer sees one account's transfers in order.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a publisher for the given brokers. An empty topic
// falls back to DefaultTopic.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// PublishTransferCompleted implements ledger.EventPublisher.
func (p *Publisher) PublishTransferCompleted(ctx context.Context, ev ledger.TransferCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.FromAccountID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
