package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
)

const taskQueue = "dcv-tasks"

// JobService creates job records and hands them to the work queue. Execution
// lives in the worker (workflow.ProcessJobWorkflow).
type JobService struct {
	db          DB
	tc          temporalclient.Client
	maxAttempts int
}

func NewJobService(db DB, tc temporalclient.Client, maxAttempts int) *JobService {
	return &JobService{db: db, tc: tc, maxAttempts: maxAttempts}
}

// Enqueue creates a queued job row for a domain owned by the organization
// and places it on the work queue. The queue message carries only the job id;
// the consumer re-reads current state.
func (s *JobService) Enqueue(ctx context.Context, orgID, jobType, domainID string) (*model.Job, error) {
	if !model.KnownJobType(jobType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM domains WHERE id = $1 AND org_id = $2)`,
		domainID, orgID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check domain ownership: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now()
	job := &model.Job{
		ID:        platform.NewID(),
		Type:      jobType,
		DomainID:  domainID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO jobs (id, type, domain_id, status, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		job.ID, job.Type, job.DomainID, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        "job-" + job.ID,
		TaskQueue: taskQueue,
	}, "ProcessJobWorkflow", job.ID, s.maxAttempts)
	if err != nil {
		// No consumer will ever pick this row up, so fail it instead of
		// leaving a queued orphan that blocks future sweeps for the domain.
		// Best effort: the sweep's open-job age bound reaps anything this
		// update misses.
		_, _ = s.db.Exec(ctx,
			`UPDATE jobs SET status = $1, last_error = $2, updated_at = now() WHERE id = $3`,
			model.JobStatusFailed, "workflow start failed: "+err.Error(), job.ID,
		)
		return nil, fmt.Errorf("start ProcessJobWorkflow: %w", err)
	}

	return job, nil
}

const jobColumns = `SELECT j.id, j.type, j.domain_id, j.status, j.attempts,
	j.last_error, j.result, j.created_at, j.updated_at`

// GetByID reads one job, scoped through the owning domain's organization.
func (s *JobService) GetByID(ctx context.Context, orgID, id string) (*model.Job, error) {
	var j model.Job
	err := s.db.QueryRow(ctx,
		jobColumns+` FROM jobs j
		 JOIN domains d ON d.id = j.domain_id
		 WHERE j.id = $1 AND d.org_id = $2`, id, orgID,
	).Scan(&j.ID, &j.Type, &j.DomainID, &j.Status, &j.Attempts,
		&j.LastError, &j.Result, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &j, nil
}

func (s *JobService) List(ctx context.Context, orgID string, limit int, cursor string) ([]model.Job, bool, error) {
	query := jobColumns + ` FROM jobs j
		 JOIN domains d ON d.id = j.domain_id
		 WHERE d.org_id = $1`
	args := []any{orgID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND j.id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY j.id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list jobs for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Type, &j.DomainID, &j.Status, &j.Attempts,
			&j.LastError, &j.Result, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate jobs: %w", err)
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}
	return jobs, hasMore, nil
}
