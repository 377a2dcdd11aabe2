package dispatch

import (
	"context"
	"fmt"

	"qgo-dispatch/internal/events"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	log "github.com/sirupsen/logrus"
)

var transitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusPending:    {models.JobStatusPending, models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusInProgress: {models.JobStatusInProgress, models.JobStatusCompleted, models.JobStatusCancelled},
}

// CanTransition reports whether a job in from may move to to.
// Re-applying the current status of a non-terminal job is allowed and changes nothing.
func CanTransition(from, to models.JobStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DriverStatusFor is the availability a driver takes when their job enters status.
// Every status other than IN_PROGRESS, CANCELLED included, frees the driver.
func DriverStatusFor(status models.JobStatus) models.DriverStatus {
	if status == models.JobStatusInProgress {
		return models.DriverStatusOnJob
	}
	return models.DriverStatusOnline
}

// AdvanceJobStatus moves a job to status and updates its driver's availability.
//
// The job is written first, then the driver. The two writes are independent:
// if the second fails a *PartialUpdateError is returned and nothing is undone.
func (s *Service) AdvanceJobStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	if _, ok := s.mirror.State().Job(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	// The mirror can trail a write made a moment ago; decide on the stored record
	job, err := s.currentJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !CanTransition(job.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	now := s.now()
	updates := map[string]interface{}{
		models.JobFieldStatus: status,
	}

	switch status {
	case models.JobStatusInProgress:
		if job.StartTime == nil {
			updates[models.JobFieldStartTime] = now
		}

	case models.JobStatusCompleted:
		if job.EndTime == nil {
			updates[models.JobFieldEndTime] = now
		}
		if job.DriverID != "" {
			loc, err := s.lastKnownLocation(ctx, job.DriverID)
			if err != nil {
				return err
			}
			if loc != nil {
				updates[models.JobFieldCurrentLocation] = *loc
			}
		}
	}

	if err := s.store.Patch(ctx, store.CollectionJobs, jobID, updates); err != nil {
		log.WithField("job_id", jobID).Printf("❌ Failed to update job status: %v", err)
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}

	if job.DriverID != "" {
		driverStatus := DriverStatusFor(status)
		err := s.store.Patch(ctx, store.CollectionDrivers, job.DriverID, map[string]interface{}{
			models.DriverFieldStatus: driverStatus,
		})
		if err != nil {
			log.WithFields(log.Fields{
				"job_id":    jobID,
				"driver_id": job.DriverID,
			}).Printf("❌ Job updated but driver status write failed: %v", err)
			return &PartialUpdateError{JobID: jobID, DriverID: job.DriverID, Status: status, Err: err}
		}
	}

	log.WithFields(log.Fields{
		"job_id":    jobID,
		"driver_id": job.DriverID,
	}).Printf("✅ Job %s -> %s", job.Status, status)

	s.publish(ctx, events.JobEvent{
		Type:       events.TypeJobStatusChanged,
		JobID:      jobID,
		DriverID:   job.DriverID,
		Status:     status,
		PrevStatus: job.Status,
		At:         now,
	})
	return nil
}

func (s *Service) currentJob(ctx context.Context, jobID string) (models.Job, error) {
	doc, err := s.store.Get(ctx, store.CollectionJobs, jobID)
	if store.IsNotFound(err) {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}

	var job models.Job
	if err := doc.DataTo(&job); err != nil {
		return models.Job{}, fmt.Errorf("failed to decode job %s: %w", jobID, err)
	}
	job.ID = jobID
	return job, nil
}

// lastKnownLocation reads the driver document fresh from the store.
// A missing driver yields no location rather than an error.
func (s *Service) lastKnownLocation(ctx context.Context, driverID string) (*models.Location, error) {
	doc, err := s.store.Get(ctx, store.CollectionDrivers, driverID)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read driver %s: %w", driverID, err)
	}

	var driver models.Driver
	if err := doc.DataTo(&driver); err != nil {
		return nil, fmt.Errorf("failed to decode driver %s: %w", driverID, err)
	}
	return driver.LastKnownLocation, nil
}
