package domain

import "time"

// JobTransition records an observed status change of an import job.
// From is empty on the first observation of a job.
type JobTransition struct {
	EventID       string    `json:"event_id"`
	SiteID        int64     `json:"site_id"`
	JobID         int64     `json:"job_id"`
	From          JobStatus `json:"from,omitempty"`
	To            JobStatus `json:"to"`
	TotalImported int       `json:"total_imported"`
	TotalClosed   int       `json:"total_closed"`
	TotalErrors   int       `json:"total_errors"`
	LastError     string    `json:"last_error,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}
