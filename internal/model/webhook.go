package model

import "time"

// Webhook event vocabulary.
const (
	EventDomainActive       = "domain.active"
	EventDomainError        = "domain.error"
	EventDomainExpiringSoon = "domain.expiring_soon"
	EventDomainRenewed      = "domain.renewed"
	EventDomainAdded        = "domain.added"
	EventDomainRemoved      = "domain.removed"
	EventDNSVerified        = "dns.verified"
)

// KnownEvents lists every event type a subscription may select.
var KnownEvents = []string{
	EventDomainActive,
	EventDomainError,
	EventDomainExpiringSoon,
	EventDomainRenewed,
	EventDomainAdded,
	EventDomainRemoved,
	EventDNSVerified,
}

// KnownEvent reports whether e is part of the event vocabulary.
func KnownEvent(e string) bool {
	for _, known := range KnownEvents {
		if e == known {
			return true
		}
	}
	return false
}

// WebhookEndpoint is an organization's subscription to domain lifecycle
// events. The secret signs every delivered envelope.
type WebhookEndpoint struct {
	ID        string    `json:"id" db:"id"`
	OrgID     string    `json:"org_id" db:"org_id"`
	URL       string    `json:"url" db:"url"`
	Secret    string    `json:"secret,omitempty" db:"secret"`
	Events    []string  `json:"events" db:"events"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubscribedTo reports whether the endpoint wants deliveries for event.
func (e *WebhookEndpoint) SubscribedTo(event string) bool {
	for _, ev := range e.Events {
		if ev == event {
			return true
		}
	}
	return false
}

// Event is the signed envelope POSTed to webhook endpoints.
type Event struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}
