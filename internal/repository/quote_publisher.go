package repository

import (
	"context"

	"StockCast/internal/domain/models"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaQuotePublisher pushes accepted live quotes onto a Kafka topic, keyed
// by ticker so per-instrument ordering survives partitioning.
type KafkaQuotePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaQuotePublisher(producer *pkgkafka.Producer, topic string) *KafkaQuotePublisher {
	return &KafkaQuotePublisher{producer: producer, topic: topic}
}

func (p *KafkaQuotePublisher) Publish(ctx context.Context, q *models.LiveQuote) error {
	msg := map[string]interface{}{
		"ticker": q.Ticker,
		"date":   q.Date.String(),
		"t":      q.Timestamp,
	}
	if q.Close != nil {
		msg["c"] = *q.Close
	}
	if q.Open != nil {
		msg["o"] = *q.Open
	}
	if q.High != nil {
		msg["h"] = *q.High
	}
	if q.Low != nil {
		msg["l"] = *q.Low
	}
	if q.Volume != nil {
		msg["v"] = *q.Volume
	}
	return p.producer.Publish(ctx, p.topic, []byte(q.Ticker), msg)
}

func (p *KafkaQuotePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
