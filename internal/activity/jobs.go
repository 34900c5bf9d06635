package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.temporal.io/sdk/temporal"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/metrics"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

// Jobs contains activities that maintain job rows for the consumer workflow.
// The workflow owns the retry budget; these activities only record outcomes.
type Jobs struct {
	db DB
}

func NewJobs(db DB) *Jobs {
	return &Jobs{db: db}
}

// GetJob loads the current job row. A missing job is a permanent failure:
// the queue delivered a message for a record that does not exist.
func (a *Jobs) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var j model.Job
	err := a.db.QueryRow(ctx,
		`SELECT id, type, domain_id, status, attempts, last_error, result, created_at, updated_at
		 FROM jobs WHERE id = $1`, jobID,
	).Scan(&j.ID, &j.Type, &j.DomainID, &j.Status, &j.Attempts,
		&j.LastError, &j.Result, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("job %s does not exist", jobID), "JOB_NOT_FOUND", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return &j, nil
}

// MarkJobRunning transitions a job to running.
func (a *Jobs) MarkJobRunning(ctx context.Context, jobID string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = now() WHERE id = $2`,
		model.JobStatusRunning, jobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %s running: %w", jobID, err)
	}
	return nil
}

// RecordJobFailureParams captures one failed execution attempt.
type RecordJobFailureParams struct {
	JobID    string `json:"job_id"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// RecordJobFailure stores the attempt counter and last error after a failed
// attempt that will be retried.
func (a *Jobs) RecordJobFailure(ctx context.Context, params RecordJobFailureParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE jobs SET attempts = $1, last_error = $2, updated_at = now() WHERE id = $3`,
		params.Attempts, params.Error, params.JobID,
	)
	if err != nil {
		return fmt.Errorf("record failure for job %s: %w", params.JobID, err)
	}
	return nil
}

// MarkJobSucceededParams finishes a job with an optional result payload.
type MarkJobSucceededParams struct {
	JobID    string  `json:"job_id"`
	JobType  string  `json:"job_type"`
	Attempts int     `json:"attempts"`
	Result   *string `json:"result,omitempty"`
}

func (a *Jobs) MarkJobSucceeded(ctx context.Context, params MarkJobSucceededParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, result = $3, last_error = NULL, updated_at = now()
		 WHERE id = $4`,
		model.JobStatusSucceeded, params.Attempts, params.Result, params.JobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %s succeeded: %w", params.JobID, err)
	}
	metrics.JobsTotal.WithLabelValues(params.JobType, model.JobStatusSucceeded).Inc()
	return nil
}

// MarkJobFailedParams dead-letters a job: terminal failed state, attempts
// counter, and the error that exhausted it.
type MarkJobFailedParams struct {
	JobID    string `json:"job_id"`
	JobType  string `json:"job_type"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func (a *Jobs) MarkJobFailed(ctx context.Context, params MarkJobFailedParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, last_error = $3, updated_at = now()
		 WHERE id = $4`,
		model.JobStatusFailed, params.Attempts, params.Error, params.JobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", params.JobID, err)
	}
	metrics.JobsTotal.WithLabelValues(params.JobType, model.JobStatusFailed).Inc()
	return nil
}
