package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
)

// Reconcile contains the activities the job consumer runs against domains.
// All of them classify failures for the workflow's retry loop: transient
// upstream failures stay retryable, everything else is permanent.
type Reconcile struct {
	domains *core.DomainService
}

func NewReconcile(domains *core.DomainService) *Reconcile {
	return &Reconcile{domains: domains}
}

// ReconcileResult reports the domain state a reconciliation settled on.
type ReconcileResult struct {
	DomainID string `json:"domain_id"`
	OrgID    string `json:"org_id"`
	Status   string `json:"status"`
}

// ReconcileDomain pulls the upstream snapshot for one domain and persists it.
func (a *Reconcile) ReconcileDomain(ctx context.Context, domainID string) (*ReconcileResult, error) {
	d, err := a.domains.ReconcileByID(ctx, domainID)
	if err != nil {
		return nil, classify("reconcile domain", err)
	}
	return &ReconcileResult{DomainID: d.ID, OrgID: d.OrgID, Status: d.Status}, nil
}

// EnsureUpstreamResource provisions the upstream resource if the domain does
// not have one yet (start_issuance jobs). Idempotent.
func (a *Reconcile) EnsureUpstreamResource(ctx context.Context, domainID string) error {
	if err := a.domains.EnsureProvisioned(ctx, domainID); err != nil {
		return classify("ensure upstream resource", err)
	}
	return nil
}

// RecheckUpstream forces upstream re-validation and reconciles the result
// (renewal jobs).
func (a *Reconcile) RecheckUpstream(ctx context.Context, domainID string) (*ReconcileResult, error) {
	d, err := a.domains.Recheck(ctx, domainID)
	if err != nil {
		return nil, classify("recheck upstream", err)
	}
	return &ReconcileResult{DomainID: d.ID, OrgID: d.OrgID, Status: d.Status}, nil
}

// classify wraps errors for the job consumer: only transient upstream
// failures are worth another attempt. A deleted domain, a missing upstream
// resource, or an upstream 4xx will fail identically on every retry.
func classify(op string, err error) error {
	if upstream.IsTransient(err) {
		return err
	}
	if errors.Is(err, core.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(op+": domain no longer exists", "DOMAIN_GONE", err)
	}
	if errors.Is(err, core.ErrNotProvisioned) {
		return temporal.NewNonRetryableApplicationError(op+": domain has no upstream resource", "NOT_PROVISIONED", err)
	}
	return temporal.NewNonRetryableApplicationError(op+": "+err.Error(), "PERMANENT", err)
}
