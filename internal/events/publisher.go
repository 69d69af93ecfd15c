// Package events emits novelty notifications to Kafka. The publisher is
// sink-agnostic so tests can swap in an in-memory sink and deployments
// without a broker can run with the no-op sink.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Sink delivers one serialized event.
type Sink interface {
	Publish(ctx context.Context, event NoveltyEvent) error
	Close()
}

// Publisher stamps and forwards events to its sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(sink Sink, logger *slog.Logger) *Publisher {
	return &Publisher{
		sink:   sink,
		logger: logger.With("component", "events"),
		now:    time.Now,
	}
}

// Emit publishes one event, defaulting DetectedAt. Delivery failures are
// logged, not propagated; notification loss never fails a watch run.
func (p *Publisher) Emit(ctx context.Context, event NoveltyEvent) {
	if event.DetectedAt.IsZero() {
		event.DetectedAt = p.now()
	}
	if err := p.sink.Publish(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "novelty event delivery failed",
			"watch_id", event.WatchID,
			"source", event.Source,
			"error", err,
		)
	}
}

func (p *Publisher) Close() {
	p.sink.Close()
}

// KafkaSink produces events to a single topic, keyed by watch so per-watch
// ordering is preserved across partitions.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event NoveltyEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal novelty event: %w", err)
	}
	record := &kgo.Record{
		Key:   []byte(event.WatchID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

// NopSink discards events. Used when no broker is configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, NoveltyEvent) error { return nil }
func (NopSink) Close()                                      {}
