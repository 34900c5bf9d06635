package model

import "time"

// Domain is a customer hostname whose certificate validation is delegated to
// the upstream PKI authority. Status is always derived from the last-applied
// upstream snapshot via MapUpstreamStatus; there is no independently
// settable state.
type Domain struct {
	ID          string  `json:"id" db:"id"`
	OrgID       string  `json:"org_id" db:"org_id"`
	Hostname    string  `json:"hostname" db:"hostname"`
	Status      string  `json:"status" db:"status"`
	CNAMETarget string  `json:"cname_target" db:"cname_target"`
	UpstreamID  *string `json:"upstream_id,omitempty" db:"upstream_id"`

	UpstreamStatus    string   `json:"upstream_status,omitempty" db:"upstream_status"`
	UpstreamSSLStatus string   `json:"upstream_ssl_status,omitempty" db:"upstream_ssl_status"`
	UpstreamErrors    []string `json:"upstream_errors,omitempty" db:"upstream_errors"`

	LastIssuedAt *time.Time `json:"last_issued_at,omitempty" db:"last_issued_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
