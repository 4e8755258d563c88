package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ridehub/internal/models"
	"ridehub/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer       MessageWriter
	writeTimeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w, writeTimeout)
}

func NewKafkaPublisherWithWriter(writer MessageWriter, writeTimeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, writeTimeout: writeTimeout}
}

// Publish keys messages by ride id so that every event of a ride lands on the
// same partition in order.
func (k *KafkaPublisher) Publish(ctx context.Context, event models.RideEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode ride event: %w", err)
	}

	if k.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.writeTimeout)
		defer cancel()
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RideID.Hex()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return fmt.Errorf("failed to publish ride event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultDelivered).Inc()
	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
