package domain

import "time"

// JobStatus is the raw status string reported by the import engine.
// The set is open: values other than the known ones must be tolerated.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobPhase is the interpreted status. PhaseUnknown covers any status string
// the client does not recognise.
type JobPhase int

const (
	PhaseUnknown JobPhase = iota
	PhaseQueued
	PhaseRunning
	PhaseCompleted
	PhaseFailed
)

func (p JobPhase) String() string {
	switch p {
	case PhaseQueued:
		return "queued"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s JobStatus) Phase() JobPhase {
	switch s {
	case JobStatusQueued:
		return PhaseQueued
	case JobStatusRunning:
		return PhaseRunning
	case JobStatusCompleted:
		return PhaseCompleted
	case JobStatusFailed:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

// IsTerminal reports whether no further transition is expected.
// Unknown statuses are non-terminal so that polling continues.
func (s JobStatus) IsTerminal() bool {
	switch s.Phase() {
	case PhaseCompleted, PhaseFailed:
		return true
	default:
		return false
	}
}

type ImportJob struct {
	ID            int64     `json:"id"`
	SiteID        int64     `json:"site_id"`
	NAFCode       string    `json:"naf_code,omitempty"`
	Department    string    `json:"department,omitempty"`
	City          string    `json:"city,omitempty"`
	Status        JobStatus `json:"status"`
	Cursor        string    `json:"cursor,omitempty"`
	TotalImported int       `json:"total_imported"`
	TotalClosed   int       `json:"total_closed"`
	TotalErrors   int       `json:"total_errors"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ImportJobCreate is the filter snapshot of a new import. Every field is optional.
type ImportJobCreate struct {
	NAFCode    string `json:"naf_code,omitempty"`
	Department string `json:"department,omitempty"`
	City       string `json:"city,omitempty"`
}
