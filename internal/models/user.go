package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DriverStatus is a driver's availability state
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "ONLINE"
	DriverStatusOffline DriverStatus = "OFFLINE"
	DriverStatusOnJob   DriverStatus = "ON_JOB" // Set while one of the driver's jobs is IN_PROGRESS
)

func (s DriverStatus) Valid() bool {
	switch s {
	case DriverStatusOnline, DriverStatusOffline, DriverStatusOnJob:
		return true
	}
	return false
}

// Driver is stored in the "drivers" collection keyed by ID.
// ID is the document key and is never written into the document body.
type Driver struct {
	ID                string       `json:"id,omitempty" firestore:"-"`
	Name              string       `json:"name" firestore:"name"`
	VehicleNo         string       `json:"vehicleNo" firestore:"vehicleNo"`
	Password          string       `json:"password,omitempty" firestore:"password,omitempty"` // bcrypt hash, or plaintext for legacy records
	Status            DriverStatus `json:"status" firestore:"status"`
	Phone             string       `json:"phone" firestore:"phone"`
	LastKnownLocation *Location    `json:"lastKnownLocation,omitempty" firestore:"lastKnownLocation,omitempty"`
}

// DriverResponse is the driver as shown to clients
type DriverResponse struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	VehicleNo         string       `json:"vehicleNo"`
	Status            DriverStatus `json:"status"`
	Phone             string       `json:"phone"`
	LastKnownLocation *Location    `json:"lastKnownLocation,omitempty"`
}

func (d *Driver) ToDriverResponse() DriverResponse {
	return DriverResponse{
		ID:                d.ID,
		Name:              d.Name,
		VehicleNo:         d.VehicleNo,
		Status:            d.Status,
		Phone:             d.Phone,
		LastKnownLocation: d.LastKnownLocation,
	}
}

// HashPassword returns the bcrypt hash stored for new driver passwords
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored password.
// Records seeded before hashing was introduced hold plaintext and are compared directly.
func (d *Driver) CheckPassword(plain string) bool {
	if d.Password == "" {
		return plain == ""
	}
	if strings.HasPrefix(d.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(d.Password), []byte(plain)) == nil
	}
	return d.Password == plain
}
