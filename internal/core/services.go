package core

import (
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
)

type Services struct {
	Domain  *DomainService
	Job     *JobService
	Webhook *WebhookService
}

// Options carries the orchestration policy the services need from config.
type Options struct {
	CNAMETarget    string
	JobMaxAttempts int
}

func NewServices(db DB, tc temporalclient.Client, up upstream.Client, logger zerolog.Logger, opts Options) *Services {
	webhooks := NewWebhookService(db, logger)
	jobs := NewJobService(db, tc, opts.JobMaxAttempts)

	return &Services{
		Domain:  NewDomainService(db, up, webhooks, jobs, logger, opts.CNAMETarget),
		Job:     jobs,
		Webhook: webhooks,
	}
}
