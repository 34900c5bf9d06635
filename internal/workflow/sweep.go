package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/activity"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

// SweepParams carries the scheduler policy into the cron workflow.
type SweepParams struct {
	BatchSize         int `json:"batch_size"`
	StalenessHours    int `json:"staleness_hours"`
	RenewalWindowDays int `json:"renewal_window_days"`
	JobMaxAttempts    int `json:"job_max_attempts"`
}

// DomainSweepWorkflow is a cron workflow with two passes: it re-syncs
// domains whose upstream view has gone stale or that sit in an unsettled
// state, and it enqueues renewals plus expiry notices for domains whose
// certificate enters the renewal window. Each enqueued job runs as a child
// ProcessJobWorkflow so one bad domain never stops the sweep.
func DomainSweepWorkflow(ctx workflow.Context, params SweepParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	// Pass 1: domains that need a status sync.
	var staleIDs []string
	err := workflow.ExecuteActivity(ctx, "SelectDomainsNeedingSync", activity.SelectSyncParams{
		Batch:          params.BatchSize,
		StalenessHours: params.StalenessHours,
	}).Get(ctx, &staleIDs)
	if err != nil {
		return fmt.Errorf("select domains needing sync: %w", err)
	}
	logger.Info("sweep found domains needing sync", "count", len(staleIDs))

	if len(staleIDs) > 0 {
		var jobIDs []string
		err := workflow.ExecuteActivity(ctx, "EnqueueJobs", activity.EnqueueJobsParams{
			Type:      model.JobTypeSyncStatus,
			DomainIDs: staleIDs,
		}).Get(ctx, &jobIDs)
		if err != nil {
			return fmt.Errorf("enqueue sync jobs: %w", err)
		}
		runJobChildren(ctx, jobIDs, params.JobMaxAttempts)
	}

	// Pass 2: domains entering the renewal window.
	var expiring []activity.ExpiringDomain
	err = workflow.ExecuteActivity(ctx, "SelectDomainsForRenewal", activity.SelectRenewalParams{
		Batch:      params.BatchSize,
		WindowDays: params.RenewalWindowDays,
	}).Get(ctx, &expiring)
	if err != nil {
		return fmt.Errorf("select domains for renewal: %w", err)
	}
	logger.Info("sweep found domains entering renewal window", "count", len(expiring))

	if len(expiring) == 0 {
		return nil
	}

	domainIDs := make([]string, 0, len(expiring))
	for _, d := range expiring {
		domainIDs = append(domainIDs, d.DomainID)
	}

	var jobIDs []string
	err = workflow.ExecuteActivity(ctx, "EnqueueJobs", activity.EnqueueJobsParams{
		Type:      model.JobTypeRenewal,
		DomainIDs: domainIDs,
	}).Get(ctx, &jobIDs)
	if err != nil {
		return fmt.Errorf("enqueue renewal jobs: %w", err)
	}

	for _, d := range expiring {
		err := workflow.ExecuteActivity(ctx, "SendExpiryNotice", activity.ExpiryNoticeParams{
			DomainID:  d.DomainID,
			OrgID:     d.OrgID,
			Hostname:  d.Hostname,
			ExpiresAt: d.ExpiresAt,
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("send expiry notice", "domainID", d.DomainID, "error", err)
			// Notices are best effort; the renewal job still runs.
		}
	}

	runJobChildren(ctx, jobIDs, params.JobMaxAttempts)
	return nil
}

// runJobChildren drives one ProcessJobWorkflow per enqueued job. The child
// workflow ID matches the API enqueue path so a concurrently submitted job
// for the same row collapses onto one run.
func runJobChildren(ctx workflow.Context, jobIDs []string, maxAttempts int) {
	logger := workflow.GetLogger(ctx)
	for _, jobID := range jobIDs {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "job-" + jobID,
		})
		err := workflow.ExecuteChildWorkflow(childCtx, ProcessJobWorkflow, jobID, maxAttempts).Get(ctx, nil)
		if err != nil {
			logger.Error("job workflow failed", "jobID", jobID, "error", err)
			// Continue processing the rest of the batch.
		}
	}
}
