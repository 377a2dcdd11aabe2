package dispatch

import (
	"context"
	"errors"
	"fmt"

	"qgo-dispatch/internal/events"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid driver credentials")

type NewJob struct {
	DriverID    string `json:"driverId" validate:"required"`
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

type NewDriver struct {
	ID        string `json:"id" validate:"required,alphanum,max=32"`
	Name      string `json:"name" validate:"required"`
	VehicleNo string `json:"vehicleNo" validate:"required"`
	Password  string `json:"password" validate:"omitempty,min=4"`
	Phone     string `json:"phone" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=ONLINE OFFLINE ON_JOB"`
}

// DriverUpdate changes only the non-nil fields
type DriverUpdate struct {
	Name      *string `json:"name" validate:"omitempty,min=1"`
	VehicleNo *string `json:"vehicleNo" validate:"omitempty,min=1"`
	Phone     *string `json:"phone" validate:"omitempty,min=1"`
	Password  *string `json:"password" validate:"omitempty,min=4"`
	Status    *string `json:"status" validate:"omitempty,oneof=ONLINE OFFLINE ON_JOB"`
}

type NewReceipt struct {
	DriverID    string  `json:"driverId" validate:"required"`
	JobID       string  `json:"jobId"`
	Type        string  `json:"type" validate:"required,oneof=FUEL MAINTENANCE TOLL OTHER"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description" validate:"max=500"`
	InvoiceURL  string  `json:"invoiceUrl" validate:"omitempty,url"`
}

// AddJob creates a PENDING job and notifies its driver
func (s *Service) AddJob(ctx context.Context, req NewJob) (models.Job, error) {
	if err := s.ready(); err != nil {
		return models.Job{}, err
	}
	if err := s.check(req); err != nil {
		return models.Job{}, err
	}

	job := models.Job{
		DriverID:    req.DriverID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Status:      models.JobStatusPending,
		AssignedAt:  s.now(),
		Description: req.Description,
	}

	id, err := s.store.Create(ctx, store.CollectionJobs, job)
	if err != nil {
		return models.Job{}, fmt.Errorf("failed to create job: %w", err)
	}
	job.ID = id

	log.WithFields(log.Fields{"job_id": id, "driver_id": job.DriverID}).
		Printf("✅ Job created: %s -> %s", job.Origin, job.Destination)

	if s.notifier != nil {
		if err := s.notifier.NotifyJobAssigned(ctx, job); err != nil {
			log.WithField("job_id", id).Printf("⚠️  Failed to notify driver: %v", err)
		}
	}
	s.publish(ctx, events.JobEvent{
		Type:     events.TypeJobCreated,
		JobID:    id,
		DriverID: job.DriverID,
		Status:   job.Status,
		At:       job.AssignedAt,
	})
	return job, nil
}

// AddDriver stores a driver at the admin supplied id
func (s *Service) AddDriver(ctx context.Context, req NewDriver) (models.Driver, error) {
	if err := s.ready(); err != nil {
		return models.Driver{}, err
	}
	if err := s.check(req); err != nil {
		return models.Driver{}, err
	}
	if _, exists := s.mirror.State().Driver(req.ID); exists {
		return models.Driver{}, fmt.Errorf("%w: %s", ErrDriverExists, req.ID)
	}

	status := models.DriverStatus(req.Status)
	if status == "" {
		status = models.DriverStatusOffline
	}

	driver := models.Driver{
		ID:        req.ID,
		Name:      req.Name,
		VehicleNo: req.VehicleNo,
		Status:    status,
		Phone:     req.Phone,
	}
	if req.Password != "" {
		hashed, err := models.HashPassword(req.Password)
		if err != nil {
			return models.Driver{}, fmt.Errorf("failed to hash password: %w", err)
		}
		driver.Password = hashed
	}

	if err := s.store.Put(ctx, store.CollectionDrivers, driver.ID, driver); err != nil {
		return models.Driver{}, fmt.Errorf("failed to save driver %s: %w", driver.ID, err)
	}

	log.WithField("driver_id", driver.ID).Printf("✅ Driver added: %s (%s)", driver.Name, driver.VehicleNo)
	return driver, nil
}

// UpdateDriver patches the provided fields of an existing driver
func (s *Service) UpdateDriver(ctx context.Context, id string, req DriverUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.check(req); err != nil {
		return err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		fields[models.DriverFieldName] = *req.Name
	}
	if req.VehicleNo != nil {
		fields[models.DriverFieldVehicleNo] = *req.VehicleNo
	}
	if req.Phone != nil {
		fields[models.DriverFieldPhone] = *req.Phone
	}
	if req.Status != nil {
		fields[models.DriverFieldStatus] = models.DriverStatus(*req.Status)
	}
	if req.Password != nil {
		hashed, err := models.HashPassword(*req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fields[models.DriverFieldPassword] = hashed
	}
	if len(fields) == 0 {
		return nil
	}

	if err := s.store.Patch(ctx, store.CollectionDrivers, id, fields); err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrDriverNotFound, id)
		}
		return fmt.Errorf("failed to update driver %s: %w", id, err)
	}
	return nil
}

func (s *Service) DeleteDriver(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionDrivers, id); err != nil {
		return fmt.Errorf("failed to delete driver %s: %w", id, err)
	}
	log.WithField("driver_id", id).Println("🗑️  Driver deleted")
	return nil
}

// LogReceipt records an expense as PENDING approval
func (s *Service) LogReceipt(ctx context.Context, req NewReceipt) (models.ReceiptEntry, error) {
	if err := s.ready(); err != nil {
		return models.ReceiptEntry{}, err
	}
	if err := s.check(req); err != nil {
		return models.ReceiptEntry{}, err
	}

	entry := models.ReceiptEntry{
		DriverID:    req.DriverID,
		JobID:       req.JobID,
		Type:        models.ReceiptType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		InvoiceURL:  req.InvoiceURL,
		Date:        s.now(),
		Status:      models.ReceiptStatusPending,
	}

	id, err := s.store.Create(ctx, store.CollectionReceipts, entry)
	if err != nil {
		return models.ReceiptEntry{}, fmt.Errorf("failed to log receipt: %w", err)
	}
	entry.ID = id

	log.WithFields(log.Fields{"receipt_id": id, "driver_id": entry.DriverID}).
		Printf("🧾 Receipt logged: %s %.2f", entry.Type, entry.Amount)
	return entry, nil
}

// ReviewReceipt approves or rejects a receipt
func (s *Service) ReviewReceipt(ctx context.Context, id string, status models.ReceiptStatus) error {
	if err := s.ready(); err != nil {
		return err
	}
	if status != models.ReceiptStatusApproved && status != models.ReceiptStatusRejected {
		return &ValidationError{Fields: []string{"status:oneof"}, err: fmt.Errorf("unsupported review status %q", status)}
	}

	err := s.store.Patch(ctx, store.CollectionReceipts, id, map[string]interface{}{
		models.ReceiptFieldStatus: status,
	})
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
		}
		return fmt.Errorf("failed to review receipt %s: %w", id, err)
	}
	return nil
}

// UpdateDriverLocation records a location ping
func (s *Service) UpdateDriverLocation(ctx context.Context, driverID string, loc models.Location) error {
	if err := s.ready(); err != nil {
		return err
	}
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 || (loc.Lat == 0 && loc.Lng == 0) {
		return &ValidationError{Fields: []string{"location:range"}, err: errors.New("invalid coordinates")}
	}

	err := s.store.Patch(ctx, store.CollectionDrivers, driverID, map[string]interface{}{
		models.DriverFieldLastKnownLocation: loc.Stamped(s.now()),
	})
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrDriverNotFound, driverID)
		}
		return fmt.Errorf("failed to update location for %s: %w", driverID, err)
	}
	return nil
}

// AuthenticateDriver checks a driver's password against the mirrored record
func (s *Service) AuthenticateDriver(driverID, password string) (models.Driver, error) {
	driver, ok := s.mirror.State().Driver(driverID)
	if !ok {
		return models.Driver{}, fmt.Errorf("%w: %s", ErrDriverNotFound, driverID)
	}
	if !driver.CheckPassword(password) {
		return models.Driver{}, ErrInvalidCredentials
	}
	return driver, nil
}
