package domain

import "time"

// Manifest summarizes one coalesce run for a forecast element.
type Manifest struct {
	Element           string    `json:"element"`
	Output            string    `json:"output"`
	Sources           int       `json:"sources"`
	Months            []string  `json:"months"`
	InputObservations int       `json:"input_observations"`
	DroppedMissing    int       `json:"dropped_missing"`
	OutputRecords     int       `json:"output_records"`
	FirstValidTime    time.Time `json:"first_valid_time,omitzero"`
	LastValidTime     time.Time `json:"last_valid_time,omitzero"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// NewManifest starts a manifest stamped with the package clock.
func NewManifest(element string) Manifest {
	return Manifest{Element: element, GeneratedAt: Now()}
}

// ObserveRange widens the manifest's valid-time range to cover records.
func (m *Manifest) ObserveRange(records []CoalescedRecord) {
	for _, r := range records {
		if m.FirstValidTime.IsZero() || r.ValidTime.Before(m.FirstValidTime) {
			m.FirstValidTime = r.ValidTime
		}
		if r.ValidTime.After(m.LastValidTime) {
			m.LastValidTime = r.ValidTime
		}
	}
}
