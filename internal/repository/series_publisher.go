package repository

import (
	"context"

	"macropull/internal/domain/models"
	"macropull/internal/domain/repository"
	pkgkafka "macropull/pkg/kafka"
)

// KafkaSeriesPublisher implements EventPublisher over a Kafka topic. Each
// successful fetch is announced as one message keyed by entity:indicator, so
// per-key ordering is preserved by the hash balancer.
type KafkaSeriesPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSeriesPublisher creates the Kafka-backed publisher.
func NewKafkaSeriesPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaSeriesPublisher{producer: producer, topic: topic}
}

func (p *KafkaSeriesPublisher) PublishSeries(ctx context.Context, series *models.TimeSeries) error {
	key := models.DataRequest{Entity: series.Entity, Indicator: series.Indicator}.Key()
	return p.producer.Publish(ctx, p.topic, []byte(key), series)
}

func (p *KafkaSeriesPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher discards announcements; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSeries(context.Context, *models.TimeSeries) error { return nil }
func (NopPublisher) Close() error                                            { return nil }
