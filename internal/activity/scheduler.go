package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
)

// Scheduler contains the sweep's selection queries and bulk job creation.
type Scheduler struct {
	db DB
}

func NewScheduler(db DB) *Scheduler {
	return &Scheduler{db: db}
}

// States that have not settled yet and deserve a sync on every sweep.
var unsettledStates = []string{
	model.StatusPendingCNAME,
	model.StatusIssuing,
	model.StatusPendingValidation,
}

// SelectSyncParams bounds one sweep's sync selection.
type SelectSyncParams struct {
	Batch          int `json:"batch"`
	StalenessHours int `json:"staleness_hours"`
}

// SelectDomainsNeedingSync picks domains in unsettled states, plus active
// domains whose last sync is older than the staleness threshold. Domains
// that already have a recently touched open sync-family job are skipped, and
// the batch is bounded so an outage backlog cannot flood the queue in one
// run. Open jobs older than an hour stop suppressing selection: a queued row
// whose consumer never started (workflow start failed after the insert, or a
// partially retried bulk enqueue) would otherwise hide its domain from every
// future sweep.
func (a *Scheduler) SelectDomainsNeedingSync(ctx context.Context, params SelectSyncParams) ([]string, error) {
	rows, err := a.db.Query(ctx,
		`SELECT d.id FROM domains d
		 WHERE (d.status = ANY($1)
		        OR (d.status = $2 AND d.updated_at < now() - make_interval(hours => $3)))
		   AND NOT EXISTS (
		       SELECT 1 FROM jobs j
		       WHERE j.domain_id = d.id
		         AND j.type IN ($4, $5)
		         AND j.status IN ($6, $7)
		         AND j.updated_at > now() - interval '1 hour')
		 ORDER BY d.updated_at
		 LIMIT $8`,
		unsettledStates, model.StatusActive, params.StalenessHours,
		model.JobTypeSyncStatus, model.JobTypeDNSCheck,
		model.JobStatusQueued, model.JobStatusRunning,
		params.Batch,
	)
	if err != nil {
		return nil, fmt.Errorf("select domains needing sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan domain id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync candidates: %w", err)
	}
	return ids, nil
}

// ExpiringDomain is a renewal candidate with the context the sweep needs to
// notify interested parties.
type ExpiringDomain struct {
	DomainID  string    `json:"domain_id"`
	OrgID     string    `json:"org_id"`
	Hostname  string    `json:"hostname"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SelectRenewalParams bounds one sweep's renewal selection.
type SelectRenewalParams struct {
	Batch      int `json:"batch"`
	WindowDays int `json:"window_days"`
}

// SelectDomainsForRenewal picks domains whose certificate expires within the
// renewal window and that have no open renewal job yet.
func (a *Scheduler) SelectDomainsForRenewal(ctx context.Context, params SelectRenewalParams) ([]ExpiringDomain, error) {
	rows, err := a.db.Query(ctx,
		`SELECT d.id, d.org_id, d.hostname, d.expires_at FROM domains d
		 WHERE d.expires_at IS NOT NULL
		   AND d.expires_at <= now() + make_interval(days => $1)
		   AND NOT EXISTS (
		       SELECT 1 FROM jobs j
		       WHERE j.domain_id = d.id
		         AND j.type = $2
		         AND j.status IN ($3, $4)
		         AND j.updated_at > now() - interval '1 hour')
		 ORDER BY d.expires_at
		 LIMIT $5`,
		params.WindowDays, model.JobTypeRenewal,
		model.JobStatusQueued, model.JobStatusRunning,
		params.Batch,
	)
	if err != nil {
		return nil, fmt.Errorf("select domains for renewal: %w", err)
	}
	defer rows.Close()

	var out []ExpiringDomain
	for rows.Next() {
		var d ExpiringDomain
		if err := rows.Scan(&d.DomainID, &d.OrgID, &d.Hostname, &d.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan renewal candidate: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renewal candidates: %w", err)
	}
	return out, nil
}

// EnqueueJobsParams bulk-creates queued jobs of one type.
type EnqueueJobsParams struct {
	Type      string   `json:"type"`
	DomainIDs []string `json:"domain_ids"`
}

// EnqueueJobs creates one queued job per domain and returns the job ids the
// sweep should start consumer workflows for. Idempotent per (domain, type):
// when a domain already has an open job of this type, no second row is
// inserted and the existing job's id is returned instead, so a retried run
// of this activity re-drives the first run's rows rather than orphaning them.
func (a *Scheduler) EnqueueJobs(ctx context.Context, params EnqueueJobsParams) ([]string, error) {
	ids := make([]string, 0, len(params.DomainIDs))
	for _, domainID := range params.DomainIDs {
		var jobID string
		err := a.db.QueryRow(ctx,
			`INSERT INTO jobs (id, type, domain_id, status, attempts, created_at, updated_at)
			 SELECT $1, $2, $3, $4, 0, now(), now()
			 WHERE NOT EXISTS (
			     SELECT 1 FROM jobs
			     WHERE domain_id = $3 AND type = $2 AND status IN ($4, $5))
			 RETURNING id`,
			platform.NewID(), params.Type, domainID,
			model.JobStatusQueued, model.JobStatusRunning,
		).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			err = a.db.QueryRow(ctx,
				`SELECT id FROM jobs
				 WHERE domain_id = $1 AND type = $2 AND status IN ($3, $4)
				 ORDER BY created_at LIMIT 1`,
				domainID, params.Type, model.JobStatusQueued, model.JobStatusRunning,
			).Scan(&jobID)
		}
		if err != nil {
			return nil, fmt.Errorf("enqueue %s job for domain %s: %w", params.Type, domainID, err)
		}
		ids = append(ids, jobID)
	}
	return ids, nil
}
