package domain

import (
	"fmt"
	"time"
)

// Observation is one forecast value for one grid cell from one source file.
// FcstTime is when the forecast was issued, ValidTime when it applies.
type Observation struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	ValidTime time.Time `json:"valid_time"`
	FcstTime  time.Time `json:"fcst_time"`
	Value     float64   `json:"value"`
}

// Validate checks the fields every downstream stage relies on.
func (o Observation) Validate() error {
	if o.X < 0 || o.Y < 0 {
		return fmt.Errorf("negative cell index (%d, %d)", o.X, o.Y)
	}
	if o.ValidTime.IsZero() {
		return fmt.Errorf("cell (%d, %d): missing valid_time", o.X, o.Y)
	}
	if o.FcstTime.IsZero() {
		return fmt.Errorf("cell (%d, %d) valid %s: missing fcst_time", o.X, o.Y, o.ValidTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// CoalescedRecord is the most recent forecast for one cell and valid time.
// FcstTime records which issuance won.
type CoalescedRecord struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	ValidTime time.Time `json:"valid_time"`
	Value     float64   `json:"value"`
	FcstTime  time.Time `json:"fcst_time"`
}

// Observation converts the record back so coalesced output can be coalesced again.
func (r CoalescedRecord) Observation() Observation {
	return Observation{X: r.X, Y: r.Y, ValidTime: r.ValidTime, FcstTime: r.FcstTime, Value: r.Value}
}

// RecordsToObservations converts a coalesced series back into an observation batch.
func RecordsToObservations(records []CoalescedRecord) []Observation {
	out := make([]Observation, len(records))
	for i, r := range records {
		out[i] = r.Observation()
	}
	return out
}
