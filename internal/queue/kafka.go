// Package queue publishes committed engine events to Kafka.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"token-launchpad/internal/domain"
)

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes engine events to a topic, keyed by pool so that
// events of one pool keep their order within a partition.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher creates a new Kafka publisher
func NewKafkaPublisher(config KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// Name identifies the publisher as an engine sink.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish sends ev to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.Event) error {
	msg, err := p.message(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Kind, err)
	}
	return nil
}

func (p *KafkaPublisher) message(ev domain.Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}
	return kafka.Message{
		Key:   []byte(ev.Pool),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
		Time: p.now(),
	}, nil
}

// Close closes the publisher
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
