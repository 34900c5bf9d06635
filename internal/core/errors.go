package core

import "errors"

var (
	// ErrNotFound covers both a genuinely missing record and a record owned
	// by another organization. Callers must not be able to tell them apart.
	ErrNotFound = errors.New("not found")

	// ErrNotProvisioned means reconciliation was requested for a domain that
	// has no upstream resource yet.
	ErrNotProvisioned = errors.New("domain has no upstream resource")

	// ErrHostnameTaken means the organization already delegates this hostname.
	ErrHostnameTaken = errors.New("hostname already exists for this organization")

	// ErrUnknownJobType rejects enqueue requests with a type outside the
	// job vocabulary.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidEndpoint rejects webhook subscriptions with a bad URL or
	// unknown events.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint")
)
