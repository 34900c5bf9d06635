package model

// Local domain validation states, derived from the upstream status snapshot.
const (
	StatusPendingCNAME      = "pending_cname"
	StatusIssuing           = "issuing"
	StatusPendingValidation = "pending_validation"
	StatusActive            = "active"
	StatusError             = "error"
)

// Upstream status values the mapper distinguishes. Anything else falls
// through to the generic buckets below.
const (
	UpstreamActive           = "active"
	UpstreamValidationFailed = "validation_failed"
)

// Upstream SSL sub-statuses that indicate the certificate is being issued
// or deployed (CNAME already verified, no customer action pending).
var upstreamIssuingStates = map[string]bool{
	"initializing":       true,
	"pending_issuance":   true,
	"pending_deployment": true,
}

// MapUpstreamStatus derives the local domain state from the upstream
// authority's hostname status and SSL sub-status. Pure and deterministic.
//
// Rules, in priority order:
//  1. both statuses "active"            -> active
//  2. ssl "validation_failed"           -> error
//  3. ssl in issuance/deployment states -> issuing
//  4. ssl present (any other value)     -> pending_validation
//  5. ssl absent                        -> pending_cname
//
// An ssl status of "active" while the hostname status still lags counts as
// pending_validation: the domain is not active until both sides agree.
func MapUpstreamStatus(status, sslStatus string) string {
	switch {
	case sslStatus == UpstreamActive && status == UpstreamActive:
		return StatusActive
	case sslStatus == UpstreamValidationFailed:
		return StatusError
	case upstreamIssuingStates[sslStatus]:
		return StatusIssuing
	case sslStatus != "":
		return StatusPendingValidation
	default:
		return StatusPendingCNAME
	}
}
