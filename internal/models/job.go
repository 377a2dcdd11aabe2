package models

import "time"

// JobStatus is the lifecycle state of a delivery job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"     // Created by admin, not started
	JobStatusInProgress JobStatus = "IN_PROGRESS" // Driver is on the road
	JobStatusCompleted  JobStatus = "COMPLETED"   // Delivered
	JobStatusCancelled  JobStatus = "CANCELLED"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// Job is stored in the "jobs" collection under a generated ID.
// StartTime, EndTime and CurrentLocation are only written by the lifecycle workflow.
type Job struct {
	ID              string     `json:"id,omitempty" firestore:"-"`
	DriverID        string     `json:"driverId" firestore:"driverId"`
	Origin          string     `json:"origin" firestore:"origin"`
	Destination     string     `json:"destination" firestore:"destination"`
	Status          JobStatus  `json:"status" firestore:"status"`
	StartTime       *time.Time `json:"startTime,omitempty" firestore:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty" firestore:"endTime,omitempty"`
	CurrentLocation *Location  `json:"currentLocation,omitempty" firestore:"currentLocation,omitempty"`
	AssignedAt      time.Time  `json:"assignedAt" firestore:"assignedAt"`
	Description     string     `json:"description" firestore:"description"`
}

// Document field names used by partial updates
const (
	JobFieldStatus          = "status"
	JobFieldStartTime       = "startTime"
	JobFieldEndTime         = "endTime"
	JobFieldCurrentLocation = "currentLocation"
	JobFieldAssignedAt      = "assignedAt"

	DriverFieldStatus            = "status"
	DriverFieldName              = "name"
	DriverFieldVehicleNo         = "vehicleNo"
	DriverFieldPhone             = "phone"
	DriverFieldPassword          = "password"
	DriverFieldLastKnownLocation = "lastKnownLocation"

	ReceiptFieldStatus = "status"
	ReceiptFieldDate   = "date"
)
