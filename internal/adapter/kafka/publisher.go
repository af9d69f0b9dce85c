// Package kafka publishes newly collected measurements to a Kafka topic
// so downstream consumers (dashboards, alerting) see them without polling
// the dataset file.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hydrolab/lindas-hydro-etl/internal/config"
	"github.com/hydrolab/lindas-hydro-etl/internal/domain"
)

// Publisher produces measurement messages to the configured topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes all records in a single WriteMessages
// call. Messages are keyed by station so per-station ordering is
// preserved within a partition.
func (p *Publisher) Publish(ctx context.Context, records []domain.Measurement) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Measurement into a Kafka message.
func serializeToMessage(m domain.Measurement) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize measurement: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(m.Station)},
			{Key: "measured_at", Value: []byte(m.Timestamp.UTC().Format(time.RFC3339))},
		},
	}, nil
}
