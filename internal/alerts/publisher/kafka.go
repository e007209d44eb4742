// Package publisher forwards raised alerts to Kafka for SIEM intake.
// Production is fire-and-forget: a broker outage costs the external copy
// only, never the alert itself.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"opsgate/internal/alerts"
)

// KafkaPublisher produces one record per raised alert, keyed by alert id so
// per-alert ordering survives partitioning.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and returns a publisher for the topic.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

type alertPayload struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	SourceRef   string    `json:"source_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publish produces the alert without waiting for broker acknowledgment.
// Failures are logged; the caller is never blocked or failed.
func (p *KafkaPublisher) Publish(ctx context.Context, alert alerts.Alert) {
	payload, err := json.Marshal(alertPayload{
		ID:          alert.ID.String(),
		Category:    string(alert.Category),
		Severity:    string(alert.Severity),
		Description: alert.Description,
		SourceRef:   alert.SourceRef,
		CreatedAt:   alert.CreatedAt,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode alert for kafka", "error", err, "alert_id", alert.ID.String())
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(alert.ID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka alert produce failed", "error", err, "alert_id", alert.ID.String())
		}
	})
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
