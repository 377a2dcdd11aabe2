package models

import "time"

// Location is a GPS fix. Timestamp is unix millis as reported by the device.
type Location struct {
	Lat       float64 `json:"lat" firestore:"lat"`
	Lng       float64 `json:"lng" firestore:"lng"`
	Timestamp *int64  `json:"timestamp,omitempty" firestore:"timestamp,omitempty"`
}

// Stamped returns a copy of l carrying t as its timestamp when it has none.
func (l Location) Stamped(t time.Time) Location {
	if l.Timestamp == nil {
		ms := t.UnixMilli()
		l.Timestamp = &ms
	}
	return l
}
