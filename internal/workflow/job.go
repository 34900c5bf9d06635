package workflow

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/activity"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

const (
	backoffBase = 5 * time.Second
	backoffCap  = 5 * time.Minute
)

// ProcessJobWorkflow consumes a single queued job. The workflow owns the
// retry budget: execution activities run with MaximumAttempts 1 so the
// attempts counter on the job row matches the number of real executions.
// Bookkeeping activities keep their own small retry policy since a flaky
// database write must not burn an execution attempt.
func ProcessJobWorkflow(ctx workflow.Context, jobID string, maxAttempts int) error {
	logger := workflow.GetLogger(ctx)

	dbCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})

	execCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var job model.Job
	if err := workflow.ExecuteActivity(dbCtx, "GetJob", jobID).Get(ctx, &job); err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	// The queue delivers at least once. A redelivered terminal job is done.
	if job.Terminal() {
		logger.Info("job already terminal, skipping", "jobID", job.ID, "status", job.Status)
		return nil
	}

	if !model.KnownJobType(job.Type) {
		_ = workflow.ExecuteActivity(dbCtx, "MarkJobFailed", activity.MarkJobFailedParams{
			JobID:    job.ID,
			JobType:  job.Type,
			Attempts: job.Attempts,
			Error:    fmt.Sprintf("unknown job type %q", job.Type),
		}).Get(ctx, nil)
		logger.Error("unknown job type", "jobID", job.ID, "type", job.Type)
		return nil
	}

	if err := workflow.ExecuteActivity(dbCtx, "MarkJobRunning", job.ID).Get(ctx, nil); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	// Resume from the recorded counter so a redelivered running job does
	// not get a fresh budget.
	attempts := job.Attempts
	var lastErr error

	for attempts < maxAttempts {
		attempts++

		res, err := executeJob(execCtx, &job)
		if err == nil {
			if job.Type == model.JobTypeRenewal && res.Status == model.StatusActive {
				if derr := workflow.ExecuteActivity(dbCtx, "DispatchDomainEvent", activity.DispatchDomainEventParams{
					DomainID: job.DomainID,
					OrgID:    res.OrgID,
					Event:    model.EventDomainRenewed,
					Payload:  map[string]string{"domain_id": job.DomainID, "status": res.Status},
				}).Get(ctx, nil); derr != nil {
					logger.Error("dispatch renewed event", "jobID", job.ID, "error", derr)
				}
			}

			result := fmt.Sprintf("{\"status\":%q}", res.Status)
			if merr := workflow.ExecuteActivity(dbCtx, "MarkJobSucceeded", activity.MarkJobSucceededParams{
				JobID:    job.ID,
				JobType:  job.Type,
				Attempts: attempts,
				Result:   &result,
			}).Get(ctx, nil); merr != nil {
				return fmt.Errorf("mark job succeeded: %w", merr)
			}
			return nil
		}

		lastErr = err

		// A permanent failure is not worth retrying. Fail the job with
		// the attempts it actually used.
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.NonRetryable() {
			logger.Error("job failed permanently", "jobID", job.ID, "type", job.Type, "error", err)
			if merr := workflow.ExecuteActivity(dbCtx, "MarkJobFailed", activity.MarkJobFailedParams{
				JobID:    job.ID,
				JobType:  job.Type,
				Attempts: attempts,
				Error:    err.Error(),
			}).Get(ctx, nil); merr != nil {
				return fmt.Errorf("mark job failed: %w", merr)
			}
			return nil
		}

		logger.Warn("job attempt failed", "jobID", job.ID, "type", job.Type, "attempt", attempts, "error", err)
		if rerr := workflow.ExecuteActivity(dbCtx, "RecordJobFailure", activity.RecordJobFailureParams{
			JobID:    job.ID,
			Attempts: attempts,
			Error:    err.Error(),
		}).Get(ctx, nil); rerr != nil {
			return fmt.Errorf("record job failure: %w", rerr)
		}

		if attempts < maxAttempts {
			if err := workflow.Sleep(ctx, backoff(attempts)); err != nil {
				return err
			}
		}
	}

	// Retry budget exhausted: dead-letter the job and raise an alert.
	errMsg := "retry budget exhausted"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	if merr := workflow.ExecuteActivity(dbCtx, "MarkJobFailed", activity.MarkJobFailedParams{
		JobID:    job.ID,
		JobType:  job.Type,
		Attempts: attempts,
		Error:    errMsg,
	}).Get(ctx, nil); merr != nil {
		return fmt.Errorf("mark job failed: %w", merr)
	}

	if aerr := workflow.ExecuteActivity(dbCtx, "SendDeadLetterAlert", activity.DeadLetterParams{
		JobID:     job.ID,
		JobType:   job.Type,
		DomainID:  job.DomainID,
		Attempts:  attempts,
		LastError: errMsg,
	}).Get(ctx, nil); aerr != nil {
		logger.Error("send dead letter alert", "jobID", job.ID, "error", aerr)
	}

	logger.Error("job dead-lettered", "jobID", job.ID, "type", job.Type, "attempts", attempts, "error", errMsg)
	return nil
}

// executeJob runs the single execution attempt for a job and returns the
// reconcile outcome observed afterwards.
func executeJob(ctx workflow.Context, job *model.Job) (activity.ReconcileResult, error) {
	var res activity.ReconcileResult

	switch job.Type {
	case model.JobTypeDNSCheck, model.JobTypeSyncStatus:
		err := workflow.ExecuteActivity(ctx, "ReconcileDomain", job.DomainID).Get(ctx, &res)
		return res, err

	case model.JobTypeStartIssuance:
		if err := workflow.ExecuteActivity(ctx, "EnsureUpstreamResource", job.DomainID).Get(ctx, nil); err != nil {
			return res, err
		}
		err := workflow.ExecuteActivity(ctx, "RecheckUpstream", job.DomainID).Get(ctx, &res)
		return res, err

	case model.JobTypeRenewal:
		err := workflow.ExecuteActivity(ctx, "RecheckUpstream", job.DomainID).Get(ctx, &res)
		return res, err
	}

	return res, fmt.Errorf("unknown job type %q", job.Type)
}

func backoff(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
