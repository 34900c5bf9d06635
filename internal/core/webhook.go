package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

// WebhookService manages webhook subscriptions and delivers signed events
// to them.
type WebhookService struct {
	db     DB
	logger zerolog.Logger
	client *http.Client
}

func NewWebhookService(db DB, logger zerolog.Logger) *WebhookService {
	return &WebhookService{
		db:     db,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookService) Create(ctx context.Context, ep *model.WebhookEndpoint) error {
	if err := validateEndpoint(ep.URL, ep.Events); err != nil {
		return err
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO webhook_endpoints (id, org_id, url, secret, events, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ep.ID, ep.OrgID, ep.URL, ep.Secret, ep.Events, ep.Enabled, ep.CreatedAt, ep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook endpoint: %w", err)
	}
	return nil
}

func (s *WebhookService) GetByID(ctx context.Context, orgID, id string) (*model.WebhookEndpoint, error) {
	var ep model.WebhookEndpoint
	err := s.db.QueryRow(ctx,
		`SELECT id, org_id, url, secret, events, enabled, created_at, updated_at
		 FROM webhook_endpoints WHERE id = $1 AND org_id = $2`, id, orgID,
	).Scan(&ep.ID, &ep.OrgID, &ep.URL, &ep.Secret, &ep.Events, &ep.Enabled,
		&ep.CreatedAt, &ep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook endpoint %s: %w", id, err)
	}
	return &ep, nil
}

func (s *WebhookService) List(ctx context.Context, orgID string) ([]model.WebhookEndpoint, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, org_id, url, secret, events, enabled, created_at, updated_at
		 FROM webhook_endpoints WHERE org_id = $1 ORDER BY created_at`, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhook endpoints: %w", err)
	}
	defer rows.Close()

	var eps []model.WebhookEndpoint
	for rows.Next() {
		var ep model.WebhookEndpoint
		if err := rows.Scan(&ep.ID, &ep.OrgID, &ep.URL, &ep.Secret, &ep.Events,
			&ep.Enabled, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook endpoint: %w", err)
		}
		eps = append(eps, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook endpoints: %w", err)
	}
	return eps, nil
}

// UpdateEndpointParams carries the mutable fields of a subscription. Nil
// means leave unchanged.
type UpdateEndpointParams struct {
	URL     *string
	Events  []string
	Enabled *bool
}

func (s *WebhookService) Update(ctx context.Context, orgID, id string, params UpdateEndpointParams) (*model.WebhookEndpoint, error) {
	ep, err := s.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if params.URL != nil {
		ep.URL = *params.URL
	}
	if params.Events != nil {
		ep.Events = params.Events
	}
	if params.Enabled != nil {
		ep.Enabled = *params.Enabled
	}
	if err := validateEndpoint(ep.URL, ep.Events); err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE webhook_endpoints SET url = $1, events = $2, enabled = $3, updated_at = now()
		 WHERE id = $4 AND org_id = $5`,
		ep.URL, ep.Events, ep.Enabled, id, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("update webhook endpoint %s: %w", id, err)
	}
	return ep, nil
}

func (s *WebhookService) Delete(ctx context.Context, orgID, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM webhook_endpoints WHERE id = $1 AND org_id = $2`, id, orgID,
	)
	if err != nil {
		return fmt.Errorf("delete webhook endpoint %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func validateEndpoint(rawURL string, events []string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidEndpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https, got %q", ErrInvalidEndpoint, u.Scheme)
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: must subscribe to at least one event", ErrInvalidEndpoint)
	}
	for _, ev := range events {
		if !model.KnownEvent(ev) {
			return fmt.Errorf("%w: unknown event %q", ErrInvalidEndpoint, ev)
		}
	}
	return nil
}
