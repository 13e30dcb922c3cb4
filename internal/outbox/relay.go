package outbox

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Source provides pending events and records delivery.
type Source interface {
	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventSent(ctx context.Context, seq int64) error
}

// Publisher delivers one event payload.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// ParseBrokers splits a comma separated broker list. An empty result
// disables publishing.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// KafkaPublisher writes events to a single topic, hashing the event key so
// one order's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.Key),
		Value: evt.Payload,
		Time:  evt.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.ID)},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

const (
	defaultRelayInterval = time.Second
	defaultRelayBatch    = 100
)

// Relay polls the source and publishes pending events in append order.
type Relay struct {
	source   Source
	pub      Publisher
	logger   *log.Logger
	interval time.Duration
	batch    int
}

func NewRelay(source Source, pub Publisher, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.Default()
	}
	return &Relay{
		source:   source,
		pub:      pub,
		logger:   logger,
		interval: defaultRelayInterval,
		batch:    defaultRelayBatch,
	}
}

// Run polls until ctx is done. Publish failures are logged and retried on
// the next tick; an event is only marked sent after the broker accepts it.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drain(ctx); err != nil && ctx.Err() == nil {
				r.logger.Printf("outbox relay: %v", err)
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	events, err := r.source.PendingEvents(ctx, r.batch)
	if err != nil {
		return err
	}
	for _, evt := range events {
		if err := r.pub.Publish(ctx, evt); err != nil {
			return err
		}
		if err := r.source.MarkEventSent(ctx, evt.Seq); err != nil {
			return err
		}
	}
	return nil
}
