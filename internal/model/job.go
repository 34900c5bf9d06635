package model

import "time"

// Job types.
const (
	JobTypeDNSCheck      = "dns_check"
	JobTypeStartIssuance = "start_issuance"
	JobTypeRenewal       = "renewal"
	JobTypeSyncStatus    = "sync_status"
)

// Job statuses. failed is terminal (dead-lettered); queued and running jobs
// are still owned by the consumer.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// KnownJobType reports whether t is a job type the consumer can execute.
func KnownJobType(t string) bool {
	switch t {
	case JobTypeDNSCheck, JobTypeStartIssuance, JobTypeRenewal, JobTypeSyncStatus:
		return true
	}
	return false
}

// Job is one unit of asynchronous work against a domain. Jobs are retained
// after completion for audit; Attempts counts executed attempts exactly.
type Job struct {
	ID        string    `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	DomainID  string    `json:"domain_id" db:"domain_id"`
	Status    string    `json:"status" db:"status"`
	Attempts  int       `json:"attempts" db:"attempts"`
	LastError *string   `json:"last_error,omitempty" db:"last_error"`
	Result    *string   `json:"result,omitempty" db:"result"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the job has finished (successfully or not).
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
