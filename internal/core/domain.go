package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/metrics"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
)

// DomainService owns the domain lifecycle: creation (with upstream resource
// provisioning), reconciliation against the upstream authority, and removal
// (with upstream resource release).
type DomainService struct {
	db          DB
	up          upstream.Client
	webhooks    *WebhookService
	jobs        *JobService
	logger      zerolog.Logger
	cnameTarget string
}

func NewDomainService(db DB, up upstream.Client, webhooks *WebhookService, jobs *JobService, logger zerolog.Logger, cnameTarget string) *DomainService {
	return &DomainService{
		db:          db,
		up:          up,
		webhooks:    webhooks,
		jobs:        jobs,
		logger:      logger,
		cnameTarget: cnameTarget,
	}
}

// Create validates the hostname, provisions the upstream resource, and
// persists the domain record in pending_cname state.
func (s *DomainService) Create(ctx context.Context, orgID, rawHostname string) (*model.Domain, error) {
	hostname, err := platform.NormalizeHostname(rawHostname)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM domains WHERE org_id = $1 AND hostname = $2)`,
		orgID, hostname,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check hostname uniqueness: %w", err)
	}
	if exists {
		return nil, ErrHostnameTaken
	}

	res, err := s.up.Create(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("provision upstream resource for %s: %w", hostname, err)
	}

	now := time.Now()
	d := &model.Domain{
		ID:          platform.NewID(),
		OrgID:       orgID,
		Hostname:    hostname,
		Status:      model.StatusPendingCNAME,
		CNAMETarget: s.cnameTarget,
		UpstreamID:  &res.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO domains (id, org_id, hostname, status, cname_target, upstream_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.OrgID, d.Hostname, d.Status, d.CNAMETarget, d.UpstreamID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		// The upstream resource is already provisioned; release it so a
		// failed insert does not leak it.
		if delErr := s.up.Delete(ctx, res.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("upstream_id", res.ID).
				Msg("failed to release upstream resource after insert failure")
		}
		return nil, fmt.Errorf("insert domain: %w", err)
	}

	s.webhooks.DispatchAsync(orgID, model.EventDomainAdded, d)

	// Kick off an initial DNS check. The sweep would pick the domain up
	// anyway, so a failed enqueue is logged rather than surfaced.
	if _, err := s.jobs.Enqueue(ctx, orgID, model.JobTypeDNSCheck, d.ID); err != nil {
		s.logger.Warn().Err(err).Str("domain_id", d.ID).Msg("failed to enqueue initial dns_check")
	}

	return d, nil
}

func (s *DomainService) GetByID(ctx context.Context, orgID, id string) (*model.Domain, error) {
	return s.loadDomain(ctx, id, &orgID)
}

func (s *DomainService) List(ctx context.Context, orgID string, limit int, cursor string) ([]model.Domain, bool, error) {
	query := domainColumns + ` FROM domains WHERE org_id = $1`
	args := []any{orgID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list domains for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var domains []model.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, false, err
		}
		domains = append(domains, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate domains: %w", err)
	}

	hasMore := len(domains) > limit
	if hasMore {
		domains = domains[:limit]
	}
	return domains, hasMore, nil
}

// Delete removes the domain and releases its upstream resource. If the
// upstream release fails the row is kept, so the resource is never leaked.
func (s *DomainService) Delete(ctx context.Context, orgID, id string) error {
	d, err := s.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}

	if d.UpstreamID != nil {
		if err := s.up.Delete(ctx, *d.UpstreamID); err != nil && !errors.Is(err, upstream.ErrNotFound) {
			return fmt.Errorf("release upstream resource %s: %w", *d.UpstreamID, err)
		}
	}

	_, err = s.db.Exec(ctx, `DELETE FROM domains WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", id, err)
	}

	s.webhooks.DispatchAsync(orgID, model.EventDomainRemoved, d)
	return nil
}

// Sync reconciles one domain on demand, scoped to the calling organization.
// Upstream errors are surfaced to the caller without retries; the stored
// state stays untouched on transient failure.
func (s *DomainService) Sync(ctx context.Context, orgID, id string) (*model.Domain, error) {
	d, err := s.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, d)
}

// ReconcileByID reconciles a domain without tenant scoping. Only the job
// consumer and the sweep use this path; the HTTP surface always goes
// through Sync.
func (s *DomainService) ReconcileByID(ctx context.Context, id string) (*model.Domain, error) {
	d, err := s.loadDomain(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, d)
}

// EnsureProvisioned creates the upstream resource for a domain that does not
// have one yet (start_issuance jobs). Safe to call repeatedly.
func (s *DomainService) EnsureProvisioned(ctx context.Context, id string) error {
	d, err := s.loadDomain(ctx, id, nil)
	if err != nil {
		return err
	}
	if d.UpstreamID != nil {
		return nil
	}

	res, err := s.up.Create(ctx, d.Hostname)
	if err != nil {
		return fmt.Errorf("provision upstream resource for %s: %w", d.Hostname, err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE domains SET upstream_id = $1, updated_at = now() WHERE id = $2 AND upstream_id IS NULL`,
		res.ID, id,
	)
	if err != nil {
		return fmt.Errorf("store upstream resource id for domain %s: %w", id, err)
	}
	return nil
}

// Recheck asks the authority to re-run validation (renewal jobs), then
// reconciles the refreshed snapshot.
func (s *DomainService) Recheck(ctx context.Context, id string) (*model.Domain, error) {
	d, err := s.loadDomain(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if d.UpstreamID == nil {
		return nil, ErrNotProvisioned
	}
	if _, err := s.up.Recheck(ctx, *d.UpstreamID); err != nil {
		return nil, err
	}
	return s.reconcile(ctx, d)
}

// reconcile pulls the current upstream snapshot and overwrites the local
// mirror in one atomic update. Concurrent reconciliations of the same domain
// are tolerated: last writer wins and redundant syncs have no destructive
// effect.
func (s *DomainService) reconcile(ctx context.Context, d *model.Domain) (*model.Domain, error) {
	if d.UpstreamID == nil {
		metrics.ReconcilesTotal.WithLabelValues("not_provisioned").Inc()
		return nil, ErrNotProvisioned
	}

	res, err := s.up.Get(ctx, *d.UpstreamID)
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		// The authority no longer knows the resource: a permanent error
		// state, not something retries can fix.
		return s.applySnapshot(ctx, d, snapshot{
			status:   model.StatusError,
			errorMsg: strPtr("upstream resource no longer exists"),
		})
	case err != nil:
		metrics.ReconcilesTotal.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("fetch upstream snapshot for domain %s: %w", d.ID, err)
	}

	snap := snapshot{
		status:            model.MapUpstreamStatus(res.Status, res.SSL.Status),
		upstreamStatus:    res.Status,
		upstreamSSLStatus: res.SSL.Status,
		upstreamErrors:    res.SSL.ValidationErrors,
		issuedAt:          res.SSL.IssuedAt,
		expiresAt:         res.SSL.ExpiresAt,
	}
	if snap.status == model.StatusError {
		msg := "upstream validation failed"
		if len(res.SSL.ValidationErrors) > 0 {
			msg = res.SSL.ValidationErrors[0]
		}
		snap.errorMsg = &msg
	}

	return s.applySnapshot(ctx, d, snap)
}

// snapshot is the reconciler's computed next state for a domain.
type snapshot struct {
	status            string
	upstreamStatus    string
	upstreamSSLStatus string
	upstreamErrors    []string
	issuedAt          *time.Time
	expiresAt         *time.Time
	errorMsg          *string
}

func (s *DomainService) applySnapshot(ctx context.Context, d *model.Domain, snap snapshot) (*model.Domain, error) {
	_, err := s.db.Exec(ctx,
		`UPDATE domains
		 SET status = $1, upstream_status = $2, upstream_ssl_status = $3,
		     upstream_errors = $4, error_message = $5,
		     last_issued_at = COALESCE($6, last_issued_at),
		     expires_at = COALESCE($7, expires_at),
		     updated_at = now()
		 WHERE id = $8`,
		snap.status, snap.upstreamStatus, snap.upstreamSSLStatus,
		snap.upstreamErrors, snap.errorMsg, snap.issuedAt, snap.expiresAt, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("persist reconciled state for domain %s: %w", d.ID, err)
	}

	oldStatus := d.Status
	d.Status = snap.status
	d.UpstreamStatus = snap.upstreamStatus
	d.UpstreamSSLStatus = snap.upstreamSSLStatus
	d.UpstreamErrors = snap.upstreamErrors
	d.ErrorMessage = snap.errorMsg
	if snap.issuedAt != nil {
		d.LastIssuedAt = snap.issuedAt
	}
	if snap.expiresAt != nil {
		d.ExpiresAt = snap.expiresAt
	}
	d.UpdatedAt = time.Now()

	if oldStatus != snap.status {
		metrics.ReconcilesTotal.WithLabelValues("transition").Inc()
		metrics.TransitionsTotal.WithLabelValues(snap.status).Inc()
		s.emitTransitionEvents(oldStatus, d)
	} else {
		metrics.ReconcilesTotal.WithLabelValues("synced").Inc()
	}

	return d, nil
}

// emitTransitionEvents fires the notifications a state change warrants.
// Delivery is fire-and-forget: a subscriber outage never fails the
// reconciliation that observed the transition.
func (s *DomainService) emitTransitionEvents(oldStatus string, d *model.Domain) {
	// Leaving pending_cname for anything but error means the delegation
	// CNAME resolved.
	if oldStatus == model.StatusPendingCNAME && d.Status != model.StatusError {
		s.webhooks.DispatchAsync(d.OrgID, model.EventDNSVerified, d)
	}

	switch d.Status {
	case model.StatusActive:
		s.webhooks.DispatchAsync(d.OrgID, model.EventDomainActive, d)
	case model.StatusError:
		s.webhooks.DispatchAsync(d.OrgID, model.EventDomainError, d)
	}
}

const domainColumns = `SELECT id, org_id, hostname, status, cname_target, upstream_id,
	upstream_status, upstream_ssl_status, upstream_errors,
	last_issued_at, expires_at, error_message, created_at, updated_at`

// loadDomain reads one domain row. With a non-nil orgID the read is
// tenant-scoped and a foreign domain is indistinguishable from a missing one.
func (s *DomainService) loadDomain(ctx context.Context, id string, orgID *string) (*model.Domain, error) {
	query := domainColumns + ` FROM domains WHERE id = $1`
	args := []any{id}
	if orgID != nil {
		query += ` AND org_id = $2`
		args = append(args, *orgID)
	}

	d, err := scanDomain(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain %s: %w", id, err)
	}
	return d, nil
}

func scanDomain(row interface{ Scan(dest ...any) error }) (*model.Domain, error) {
	var d model.Domain
	err := row.Scan(&d.ID, &d.OrgID, &d.Hostname, &d.Status, &d.CNAMETarget, &d.UpstreamID,
		&d.UpstreamStatus, &d.UpstreamSSLStatus, &d.UpstreamErrors,
		&d.LastIssuedAt, &d.ExpiresAt, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan domain: %w", err)
	}
	return &d, nil
}

func strPtr(s string) *string { return &s }
