package eventsink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a synchronous writer acknowledging on all replicas.
func NewKafkaWriter(brokers []string, topic, clientID string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("eventsink: kafka brokers required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("eventsink: kafka topic required")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: clientID},
	}, nil
}

// KafkaSink publishes committed events to a Kafka topic keyed by order key,
// so events of one order stay on one partition.
type KafkaSink struct {
	*dispatcher
	writer MessageWriter
}

func NewKafkaSink(writer MessageWriter, opts ...Option) (*KafkaSink, error) {
	if writer == nil {
		return nil, errors.New("eventsink: kafka writer required")
	}
	sink := &KafkaSink{writer: writer}
	sink.dispatcher = newDispatcher("kafka", sink.send, opts...)
	return sink, nil
}

func (k *KafkaSink) send(ctx context.Context, job delivery) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   job.key,
		Value: job.body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(job.eventType)},
		},
	})
}

// Close drains pending events and closes the writer.
func (k *KafkaSink) Close(ctx context.Context) error {
	drainErr := k.dispatcher.Close(ctx)
	if err := k.writer.Close(); err != nil {
		return err
	}
	return drainErr
}
