package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrz1836/postmark"
	"go.temporal.io/sdk/temporal"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
)

// EmailSender sends one transactional email. Satisfied by the Postmark
// client wrapper below; mocked in tests.
type EmailSender interface {
	Send(ctx context.Context, to, subject, textBody string) error
}

// PostmarkSender sends expiry-warning email through Postmark.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmarkSender(serverToken, from string) *PostmarkSender {
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, ""),
		from:   from,
	}
}

func (s *PostmarkSender) Send(ctx context.Context, to, subject, textBody string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       to,
		Subject:  subject,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("send email to %s: postmark error %d: %s", to, resp.ErrorCode, resp.Message)
	}
	return nil
}

// Notify contains activities that inform interested parties: expiry-warning
// email plus webhook events that do not originate inside the reconciler.
type Notify struct {
	db       DB
	webhooks *core.WebhookService
	email    EmailSender
}

func NewNotify(db DB, webhooks *core.WebhookService, email EmailSender) *Notify {
	return &Notify{db: db, webhooks: webhooks, email: email}
}

// ExpiryNoticeParams identifies one near-expiry domain.
type ExpiryNoticeParams struct {
	DomainID  string    `json:"domain_id"`
	OrgID     string    `json:"org_id"`
	Hostname  string    `json:"hostname"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SendExpiryNotice emails the organization's active members and dispatches a
// domain.expiring_soon webhook event for one near-expiry domain.
func (a *Notify) SendExpiryNotice(ctx context.Context, params ExpiryNoticeParams) error {
	daysLeft := int(time.Until(params.ExpiresAt).Hours() / 24)

	if err := a.webhooks.Dispatch(ctx, params.OrgID, model.EventDomainExpiringSoon, map[string]any{
		"domain_id":  params.DomainID,
		"hostname":   params.Hostname,
		"expires_at": params.ExpiresAt,
		"days_left":  daysLeft,
	}); err != nil {
		return fmt.Errorf("dispatch expiring_soon for %s: %w", params.Hostname, err)
	}

	if a.email == nil {
		return nil
	}

	rows, err := a.db.Query(ctx,
		`SELECT email FROM org_members WHERE org_id = $1 AND active`, params.OrgID,
	)
	if err != nil {
		return fmt.Errorf("list member emails for org %s: %w", params.OrgID, err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return fmt.Errorf("scan member email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate member emails: %w", err)
	}

	subject := fmt.Sprintf("Certificate for %s expires in %d days", params.Hostname, daysLeft)
	body := fmt.Sprintf(
		"The certificate for %s expires at %s (%d days remaining).\n\nA renewal has been scheduled automatically; no action is needed unless the domain's DNS delegation has changed.",
		params.Hostname, params.ExpiresAt.Format(time.RFC3339), daysLeft)

	for _, to := range emails {
		if err := a.email.Send(ctx, to, subject, body); err != nil {
			return err
		}
	}
	return nil
}

// DispatchDomainEventParams fires one webhook event for a domain.
type DispatchDomainEventParams struct {
	DomainID string `json:"domain_id"`
	OrgID    string `json:"org_id"`
	Event    string `json:"event"`
	Payload  any    `json:"payload"`
}

// DispatchDomainEvent delivers a webhook event outside the reconciler's
// transition detection (e.g. domain.renewed after a renewal job).
func (a *Notify) DispatchDomainEvent(ctx context.Context, params DispatchDomainEventParams) error {
	return a.webhooks.Dispatch(ctx, params.OrgID, params.Event, params.Payload)
}

// DeadLetter posts job-exhaustion alerts to the operations webhook so failed
// jobs surface for attention instead of disappearing.
type DeadLetter struct {
	client   *http.Client
	alertURL string
}

func NewDeadLetter(alertURL string) *DeadLetter {
	return &DeadLetter{
		client:   &http.Client{Timeout: 10 * time.Second},
		alertURL: alertURL,
	}
}

// DeadLetterParams describes a job that exhausted its retry budget.
type DeadLetterParams struct {
	JobID     string `json:"job_id"`
	JobType   string `json:"job_type"`
	DomainID  string `json:"domain_id"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

// SendDeadLetterAlert POSTs the dead-letter notification. A 4xx from the
// alert receiver is non-retryable; network errors and 5xx are retried.
func (a *DeadLetter) SendDeadLetterAlert(ctx context.Context, params DeadLetterParams) error {
	if a.alertURL == "" {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"alert":      "job_dead_lettered",
		"job_id":     params.JobID,
		"job_type":   params.JobType,
		"domain_id":  params.DomainID,
		"attempts":   params.Attempts,
		"last_error": params.LastError,
	})
	if err != nil {
		return temporal.NewNonRetryableApplicationError("marshal dead-letter alert", "MARSHAL_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.alertURL, bytes.NewReader(body))
	if err != nil {
		return temporal.NewNonRetryableApplicationError("create alert request", "REQUEST_ERROR", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert POST to %s: %w", a.alertURL, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("alert returned %d", resp.StatusCode), "CLIENT_ERROR", nil)
	}
	return fmt.Errorf("alert returned %d", resp.StatusCode)
}
