package mirror

import (
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/store"
)

// Source says where the mirrored data came from
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFixtures Source = "fixtures"
)

// PermissionDeniedMessage is the banner shown when a listener is rejected
const PermissionDeniedMessage = "Firestore permission denied"

// RemediationRules is the ruleset offered to the admin when listeners are
// rejected. It grants unconditional read and write: a development shortcut only.
const RemediationRules = `rules_version = '2';
service cloud.firestore {
  match /databases/{database}/documents {
    match /{document=**} {
      allow read, write: if true;
    }
  }
}`

// State is an immutable view of the mirrored collections. A new State is
// produced for every applied event; never modify one after it is published.
type State struct {
	Drivers  []models.Driver       // snapshot order
	Jobs     []models.Job          // assignedAt descending
	Receipts []models.ReceiptEntry // date descending

	Loading         bool
	Source          Source
	Err             string // user-visible sync failure, empty when healthy
	ShowRulesHelper bool
	Version         uint64

	driverIndex  map[string]int
	jobIndex     map[string]int
	receiptIndex map[string]int
}

func (s *State) Driver(id string) (models.Driver, bool) {
	i, ok := s.driverIndex[id]
	if !ok {
		return models.Driver{}, false
	}
	return s.Drivers[i], true
}

func (s *State) Job(id string) (models.Job, bool) {
	i, ok := s.jobIndex[id]
	if !ok {
		return models.Job{}, false
	}
	return s.Jobs[i], true
}

func (s *State) Receipt(id string) (models.ReceiptEntry, bool) {
	i, ok := s.receiptIndex[id]
	if !ok {
		return models.ReceiptEntry{}, false
	}
	return s.Receipts[i], true
}

// JobsForDriver returns the driver's jobs in mirror order
func (s *State) JobsForDriver(driverID string) []models.Job {
	var out []models.Job
	for _, j := range s.Jobs {
		if j.DriverID == driverID {
			out = append(out, j)
		}
	}
	return out
}

func (s *State) ReceiptsForDriver(driverID string) []models.ReceiptEntry {
	var out []models.ReceiptEntry
	for _, r := range s.Receipts {
		if r.DriverID == driverID {
			out = append(out, r)
		}
	}
	return out
}

// Event is one input to Reduce
type Event interface {
	isEvent()
}

// DriversReplaced carries a full drivers snapshot
type DriversReplaced struct{ Drivers []models.Driver }

// JobsReplaced carries a full jobs snapshot
type JobsReplaced struct{ Jobs []models.Job }

// ReceiptsReplaced carries a full receipts snapshot
type ReceiptsReplaced struct{ Receipts []models.ReceiptEntry }

// SyncFailed reports an error from a collection listener
type SyncFailed struct {
	Collection string
	Err        error
}

// Loaded marks the initial load as finished
type Loaded struct{ Source Source }

func (DriversReplaced) isEvent()  {}
func (JobsReplaced) isEvent()     {}
func (ReceiptsReplaced) isEvent() {}
func (SyncFailed) isEvent()       {}
func (Loaded) isEvent()           {}

// Initial is the state before anything has loaded
func Initial() *State {
	return &State{Loading: true}
}

// Reduce returns the state after ev. Snapshots replace the collection wholesale.
func Reduce(prev *State, ev Event) *State {
	next := *prev
	next.Version = prev.Version + 1

	switch e := ev.(type) {
	case DriversReplaced:
		next.Drivers = e.Drivers
		next.driverIndex = make(map[string]int, len(e.Drivers))
		for i, d := range e.Drivers {
			next.driverIndex[d.ID] = i
		}
		// A healthy drivers listener clears the banner
		next.Err = ""

	case JobsReplaced:
		next.Jobs = e.Jobs
		next.jobIndex = make(map[string]int, len(e.Jobs))
		for i, j := range e.Jobs {
			next.jobIndex[j.ID] = i
		}

	case ReceiptsReplaced:
		next.Receipts = e.Receipts
		next.receiptIndex = make(map[string]int, len(e.Receipts))
		for i, r := range e.Receipts {
			next.receiptIndex[r.ID] = i
		}

	case SyncFailed:
		if !store.IsPermissionDenied(e.Err) {
			return prev
		}
		next.Err = PermissionDeniedMessage
		next.ShowRulesHelper = true

	case Loaded:
		next.Loading = false
		next.Source = e.Source

	default:
		return prev
	}

	return &next
}
