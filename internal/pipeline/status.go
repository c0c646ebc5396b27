package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Status tracks the progress of one job run. It is safe for concurrent use
// and backs the readiness and status endpoints.
type Status struct {
	job      string
	total    atomic.Int64
	done     atomic.Int64
	skipped  atomic.Int64
	finished atomic.Bool
}

// StatusSnapshot is a point-in-time copy of a Status.
type StatusSnapshot struct {
	Job      string `json:"job"`
	Total    int64  `json:"total"`
	Done     int64  `json:"done"`
	Skipped  int64  `json:"skipped"`
	Finished bool   `json:"finished"`
}

// NewStatus creates the status of a job that has not started.
func NewStatus(job string) *Status {
	return &Status{job: job}
}

func (s *Status) begin(total int) {
	s.total.Store(int64(total))
	s.done.Store(0)
	s.skipped.Store(0)
	s.finished.Store(false)
}

// CheckReadiness returns nil once the job has completed at least one unit of work.
func (s *Status) CheckReadiness(_ context.Context) error {
	if s.done.Load() == 0 && !s.finished.Load() {
		return fmt.Errorf("%s has not processed any input yet", s.job)
	}
	return nil
}

// Snapshot returns the current progress.
func (s *Status) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		Job:      s.job,
		Total:    s.total.Load(),
		Done:     s.done.Load(),
		Skipped:  s.skipped.Load(),
		Finished: s.finished.Load(),
	}
}
