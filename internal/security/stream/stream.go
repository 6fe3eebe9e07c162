// Package stream publishes security events to a Kafka topic so downstream
// consumers (SIEM, case management) receive them without polling the store.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"bankguard/internal/platform/kafka/producer"
	"bankguard/internal/security"
)

// Sink writes events to one Kafka topic, keyed by actor so one actor's
// events stay ordered within a partition.
type Sink struct {
	producer *producer.Producer
	topic    string
}

func NewSink(p *producer.Producer, topic string) (*Sink, error) {
	if p == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &Sink{producer: p, topic: topic}, nil
}

func (s *Sink) Publish(ctx context.Context, event security.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal security event: %w", err)
	}

	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.ActorID),
		Value: value,
		Headers: map[string]string{
			"action":   string(event.Action),
			"severity": string(event.Severity),
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("produce security event: %w", err)
	}
	return nil
}
