package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"telehealth/models"

	"github.com/segmentio/kafka-go"
)

// Publisher announces sent messages to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, msg models.EmailMessage) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.EmailMessage) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one record per sent message, keyed by recipient.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Printf("INFO: Publishing email events to kafka topic '%s' on %v", topic, brokers)
	return NewKafkaPublisherWithWriter(writer)
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 10 * time.Second}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, msg models.EmailMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  msg.SentAt,
	}); err != nil {
		return fmt.Errorf("write email event: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
