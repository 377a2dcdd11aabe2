// Package fixtures holds the static demo data set.
package fixtures

import (
	_ "embed"
	"fmt"
	"time"

	"qgo-dispatch/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Set is a complete demo data set
type Set struct {
	Drivers  []models.Driver
	Jobs     []models.Job
	Receipts []models.ReceiptEntry
}

type fileLocation struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type fileDriver struct {
	ID                string        `yaml:"id"`
	Name              string        `yaml:"name"`
	VehicleNo         string        `yaml:"vehicleNo"`
	Password          string        `yaml:"password"`
	Status            string        `yaml:"status"`
	Phone             string        `yaml:"phone"`
	LastKnownLocation *fileLocation `yaml:"lastKnownLocation"`
}

type fileJob struct {
	ID          string `yaml:"id"`
	DriverID    string `yaml:"driverId"`
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	Status      string `yaml:"status"`
	Description string `yaml:"description"`
	// Relative times keep the demo data fresh on every load
	AssignedAgo string `yaml:"assignedAgo"`
	StartedAgo  string `yaml:"startedAgo"`
}

type fileReceipt struct {
	ID          string  `yaml:"id"`
	DriverID    string  `yaml:"driverId"`
	JobID       string  `yaml:"jobId"`
	Type        string  `yaml:"type"`
	Amount      float64 `yaml:"amount"`
	Description string  `yaml:"description"`
	InvoiceURL  string  `yaml:"invoiceUrl"`
	Status      string  `yaml:"status"`
	DatedAgo    string  `yaml:"datedAgo"`
}

type file struct {
	Drivers  []fileDriver  `yaml:"drivers"`
	Jobs     []fileJob     `yaml:"jobs"`
	Receipts []fileReceipt `yaml:"receipts"`
}

// Default returns the embedded fixture set with times relative to now
func Default(now time.Time) (Set, error) {
	return Parse(defaultFixtures, now)
}

// Parse decodes a YAML fixture document
func Parse(data []byte, now time.Time) (Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Set{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	var set Set
	for _, d := range f.Drivers {
		status := models.DriverStatus(d.Status)
		if !status.Valid() {
			return Set{}, fmt.Errorf("driver %s: invalid status %q", d.ID, d.Status)
		}
		driver := models.Driver{
			ID:        d.ID,
			Name:      d.Name,
			VehicleNo: d.VehicleNo,
			Password:  d.Password,
			Status:    status,
			Phone:     d.Phone,
		}
		if d.LastKnownLocation != nil {
			driver.LastKnownLocation = &models.Location{Lat: d.LastKnownLocation.Lat, Lng: d.LastKnownLocation.Lng}
		}
		set.Drivers = append(set.Drivers, driver)
	}

	for _, j := range f.Jobs {
		status := models.JobStatus(j.Status)
		if !status.Valid() {
			return Set{}, fmt.Errorf("job %s: invalid status %q", j.ID, j.Status)
		}
		assignedAt, err := ago(now, j.AssignedAgo)
		if err != nil {
			return Set{}, fmt.Errorf("job %s: %w", j.ID, err)
		}
		job := models.Job{
			ID:          j.ID,
			DriverID:    j.DriverID,
			Origin:      j.Origin,
			Destination: j.Destination,
			Status:      status,
			AssignedAt:  assignedAt,
			Description: j.Description,
		}
		if j.StartedAgo != "" {
			start, err := ago(now, j.StartedAgo)
			if err != nil {
				return Set{}, fmt.Errorf("job %s: %w", j.ID, err)
			}
			job.StartTime = &start
		}
		set.Jobs = append(set.Jobs, job)
	}

	for _, r := range f.Receipts {
		date, err := ago(now, r.DatedAgo)
		if err != nil {
			return Set{}, fmt.Errorf("receipt %s: %w", r.ID, err)
		}
		status := models.ReceiptStatus(r.Status)
		if status == "" {
			status = models.ReceiptStatusPending
		}
		set.Receipts = append(set.Receipts, models.ReceiptEntry{
			ID:          r.ID,
			DriverID:    r.DriverID,
			JobID:       r.JobID,
			Type:        models.ReceiptType(r.Type),
			Amount:      r.Amount,
			Description: r.Description,
			InvoiceURL:  r.InvoiceURL,
			Date:        date,
			Status:      status,
		})
	}

	return set, nil
}

func ago(now time.Time, d string) (time.Time, error) {
	if d == "" {
		return now, nil
	}
	dur, err := time.ParseDuration(d)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", d, err)
	}
	return now.Add(-dur), nil
}
