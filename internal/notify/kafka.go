package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// KafkaSink writes events to a single topic keyed by Event.Key so all
// events of one order land on the same partition.
type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Deliver(ctx context.Context, e Event) error {
	msg, err := message(e)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, msg)
}

func (k *KafkaSink) Close() error { return k.w.Close() }

func message(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	key := e.Key
	if key == "" {
		key = e.ID
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    e.OccurredAt,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	}, nil
}
