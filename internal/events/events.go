// Package events publishes job lifecycle events for downstream consumers
// (billing, analytics). Delivery is best effort.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qgo-dispatch/internal/models"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Event types
const (
	TypeJobCreated       = "job.created"
	TypeJobStatusChanged = "job.status_changed"
)

// JobEvent is the message value, JSON encoded
type JobEvent struct {
	Type       string           `json:"type"`
	JobID      string           `json:"jobId"`
	DriverID   string           `json:"driverId,omitempty"`
	Status     models.JobStatus `json:"status"`
	PrevStatus models.JobStatus `json:"prevStatus,omitempty"`
	At         time.Time        `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev JobEvent) error
}

// Noop drops every event. Used when Kafka is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, JobEvent) error { return nil }

// KafkaPublisher sends events to one topic, keyed by job id so a job's
// events stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "qgo-dispatch"
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev JobEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.JobID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("error sending job event: %w", err)
	}

	log.WithFields(log.Fields{
		"topic":     p.topic,
		"partition": partition,
		"offset":    offset,
	}).Debugf("📤 %s sent for job %s", ev.Type, ev.JobID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
