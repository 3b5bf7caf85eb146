// Package reporting forwards committed clock events to the reporting pipeline
// over Kafka. Publishing is best-effort: a broker outage must never block or
// fail a clock submission.
package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"workclock/internal/clock"
)

// Publisher writes clock events to a Kafka topic, keyed by employee so one
// employee's events stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the given brokers. Returns nil without error when brokers
// is empty, so callers can wire reporting as optional.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish enqueues the event asynchronously. Delivery failures are logged and
// dropped; the event log in the store remains the source of truth.
func (p *Publisher) Publish(ctx context.Context, event clock.ClockEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal clock event for reporting",
			"error", err.Error(),
			"event_id", event.ID,
		)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EmployeeID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish clock event",
				"error", err.Error(),
				"event_id", event.ID,
				"topic", p.topic,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
