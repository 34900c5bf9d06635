package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHostname wraps every hostname rejection so callers can map it
// to a client error.
var ErrInvalidHostname = errors.New("invalid hostname")

// NormalizeHostname lowercases and validates a customer-submitted hostname.
// Rejects anything with a scheme, path, port, or wildcard: the orchestrator
// only delegates validation for concrete hostnames.
func NormalizeHostname(raw string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimSuffix(h, ".")

	if h == "" {
		return "", fmt.Errorf("%w: hostname must not be empty", ErrInvalidHostname)
	}
	if strings.Contains(h, "://") || strings.ContainsAny(h, "/?#@ ") {
		return "", fmt.Errorf("%w: %q must not contain a scheme or path", ErrInvalidHostname, raw)
	}
	if strings.Contains(h, ":") {
		return "", fmt.Errorf("%w: %q must not contain a port", ErrInvalidHostname, raw)
	}
	if !isValidHostname(h) {
		return "", fmt.Errorf("%w: %q is not a valid DNS name", ErrInvalidHostname, raw)
	}
	return h, nil
}

// isValidHostname checks RFC 1123 hostname rules: dot-separated labels of
// letters, digits, and hyphens, no leading/trailing hyphen per label,
// at least two labels, 253 characters total.
func isValidHostname(h string) bool {
	if len(h) > 253 {
		return false
	}
	labels := strings.Split(h, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-' {
				return false
			}
		}
	}
	// The TLD label must not be all-numeric.
	tld := labels[len(labels)-1]
	allDigits := true
	for _, c := range tld {
		if c < '0' || c > '9' {
			allDigits = false
			break
		}
	}
	return !allDigits
}
