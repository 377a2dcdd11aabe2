package services

import (
	"context"
	"fmt"

	"qgo-dispatch/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
)

// TokenStore looks up and prunes driver push tokens
type TokenStore interface {
	ForDriver(ctx context.Context, driverID string) ([]string, error)
	Remove(ctx context.Context, tokens []string) error
}

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client multicastSender
	tokens TokenStore
}

// NewFCMService creates the messaging client from an initialized app
func NewFCMService(ctx context.Context, app *firebase.App, tokens TokenStore) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, tokens: tokens}, nil
}

// NotifyJobAssigned pushes a new job to every device of its driver.
// A driver with no registered device is not an error.
func (s *FCMService) NotifyJobAssigned(ctx context.Context, job models.Job) error {
	tokens, err := s.tokens.ForDriver(ctx, job.DriverID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		log.WithField("driver_id", job.DriverID).Debug("📵 No FCM tokens, skipping job notification")
		return nil
	}

	response, err := s.client.SendEachForMulticast(ctx, jobAssignedMessage(job, tokens))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.WithField("job_id", job.ID).Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	var stale []string
	for i, r := range response.Responses {
		if r != nil && !r.Success && messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}
	if len(stale) > 0 {
		if err := s.tokens.Remove(ctx, stale); err != nil {
			log.Printf("⚠️  Failed to prune %d stale FCM tokens: %v", len(stale), err)
		}
	}
	return nil
}

func jobAssignedMessage(job models.Job, tokens []string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "New Job Assigned!",
			Body:  fmt.Sprintf("%s → %s", job.Origin, job.Destination),
		},
		Data: map[string]string{
			"type":   "job_assigned",
			"job_id": job.ID,
			"status": string(job.Status),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}
