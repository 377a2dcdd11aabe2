// Package views builds what each kind of session sees from a mirrored State.
package views

import (
	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
)

const (
	KindAdminDashboard = "admin_dashboard"
	KindDriverPortal   = "driver_portal"
)

// View is an AdminDashboard or a DriverPortal
type View interface {
	Kind() string
}

// Sync describes the health of the mirror
type Sync struct {
	Loading         bool          `json:"loading"`
	Source          mirror.Source `json:"source"`
	Error           string        `json:"error,omitempty"`
	ShowRulesHelper bool          `json:"showRulesHelper"`
	Version         uint64        `json:"version"`
}

type AdminDashboard struct {
	View     string                  `json:"view"`
	Drivers  []models.DriverResponse `json:"drivers"`
	Jobs     []models.Job            `json:"jobs"`
	Receipts []models.ReceiptEntry   `json:"receipts"`
	Stats    Stats                   `json:"stats"`
	Sync     Sync                    `json:"sync"`
}

// Stats are the dashboard counters
type Stats struct {
	DriversOnline    int     `json:"driversOnline"`
	DriversOnJob     int     `json:"driversOnJob"`
	ActiveJobs       int     `json:"activeJobs"`
	PendingReceipts  int     `json:"pendingReceipts"`
	ApprovedExpenses float64 `json:"approvedExpenses"`
}

// DriverPortal is one driver's view. Driver is nil when the id is unknown.
type DriverPortal struct {
	View     string                 `json:"view"`
	Driver   *models.DriverResponse `json:"driver"`
	Jobs     []models.Job           `json:"jobs"`
	Receipts []models.ReceiptEntry  `json:"receipts"`
	Sync     Sync                   `json:"sync"`
}

func (AdminDashboard) Kind() string { return KindAdminDashboard }
func (DriverPortal) Kind() string   { return KindDriverPortal }

// Build selects the view for sess
func Build(sess session.Session, s *mirror.State) View {
	return session.Match(sess,
		func(session.Admin) View { return Dashboard(s) },
		func(d session.Driver) View { return Portal(d.ID, s) },
	)
}

func SyncOf(s *mirror.State) Sync {
	return Sync{
		Loading:         s.Loading,
		Source:          s.Source,
		Error:           s.Err,
		ShowRulesHelper: s.ShowRulesHelper,
		Version:         s.Version,
	}
}

func Dashboard(s *mirror.State) AdminDashboard {
	v := AdminDashboard{
		View:     KindAdminDashboard,
		Drivers:  make([]models.DriverResponse, 0, len(s.Drivers)),
		Jobs:     nonNil(s.Jobs),
		Receipts: nonNil(s.Receipts),
		Sync:     SyncOf(s),
	}
	for i := range s.Drivers {
		d := &s.Drivers[i]
		v.Drivers = append(v.Drivers, d.ToDriverResponse())
		switch d.Status {
		case models.DriverStatusOnline:
			v.Stats.DriversOnline++
		case models.DriverStatusOnJob:
			v.Stats.DriversOnJob++
		}
	}
	for _, j := range s.Jobs {
		if j.Status == models.JobStatusInProgress {
			v.Stats.ActiveJobs++
		}
	}
	for _, r := range s.Receipts {
		switch r.Status {
		case models.ReceiptStatusPending:
			v.Stats.PendingReceipts++
		case models.ReceiptStatusApproved:
			v.Stats.ApprovedExpenses += r.Amount
		}
	}
	return v
}

func Portal(driverID string, s *mirror.State) DriverPortal {
	v := DriverPortal{
		View:     KindDriverPortal,
		Jobs:     nonNil(s.JobsForDriver(driverID)),
		Receipts: nonNil(s.ReceiptsForDriver(driverID)),
		Sync:     SyncOf(s),
	}
	if d, ok := s.Driver(driverID); ok {
		resp := d.ToDriverResponse()
		v.Driver = &resp
	}
	return v
}

// nonNil keeps empty collections as [] in JSON
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
