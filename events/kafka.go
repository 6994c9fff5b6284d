package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes events to Kafka topics.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	zap.L().Info("kafka publisher initialized", zap.Strings("brokers", brokers))
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish writes message to topic. The writer has no default topic, so each
// message names its own.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, message []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Value: message})
}

func (p *KafkaPublisher) Close() error {
	zap.L().Info("closing kafka publisher")
	return p.writer.Close()
}
