package model

import "time"

// WorkerStats is the coordinator's view of page processing progress.
type WorkerStats struct {
	PendingPages    int       `json:"pending_pages"`
	ProcessingPages int       `json:"processing_pages"`
	EvaluatedPages  int       `json:"evaluated_pages"`
	FailedPages     int       `json:"failed_pages"`
	WorkersActive   int       `json:"workers_active"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Total returns the number of pages known to the coordinator.
func (s WorkerStats) Total() int {
	return s.PendingPages + s.ProcessingPages + s.EvaluatedPages + s.FailedPages
}

// CompletionPercent returns evaluated pages as a percentage of all pages, or 0
// when there are none.
func (s WorkerStats) CompletionPercent() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.EvaluatedPages) / float64(total) * 100
}
