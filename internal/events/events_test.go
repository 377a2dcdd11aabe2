package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"qgo-dispatch/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer producer.Close()

	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev JobEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.JobID != "J200" || ev.Status != models.JobStatusInProgress || ev.PrevStatus != models.JobStatusPending {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "qgo.job-events")
	err := p.Publish(context.Background(), JobEvent{
		Type:       TypeJobStatusChanged,
		JobID:      "J200",
		DriverID:   "D1",
		Status:     models.JobStatusInProgress,
		PrevStatus: models.JobStatusPending,
		At:         at,
	})
	require.NoError(t, err)
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "qgo.job-events")
	err := p.Publish(context.Background(), JobEvent{Type: TypeJobCreated, JobID: "J1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), JobEvent{}))
}
