// Package events emits import audit events for downstream cleanup and
// reporting tooling
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ClientImportedEvent marks one client record as touched by an import job.
// Cleanup tooling uses these events to distinguish imported records from
// manually entered ones.
type ClientImportedEvent struct {
	TenantID      string           `json:"tenant_id"`
	JobID         string           `json:"job_id"`
	ClientID      string           `json:"client_id"`
	Action        models.RowAction `json:"action"` // create or update
	TimesImported int              `json:"times_imported"`
	Timestamp     time.Time        `json:"timestamp"`
}

// PublishClientImported publishes a client imported event to Kafka
func (p *Producer) PublishClientImported(ctx context.Context, event *ClientImportedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Producer.PublishClientImported")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ClientID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
			{Key: "job_id", Value: []byte(event.JobID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish client imported event")
		return err
	}

	return nil
}
