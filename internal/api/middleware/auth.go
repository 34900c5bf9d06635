package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/response"
)

type contextKey string

const identityKey contextKey = "api_key_identity"

// Identity holds the authenticated key's ID and owning organization.
type Identity struct {
	KeyID string
	OrgID string
}

// GetIdentity returns the authenticated identity, or nil outside the auth
// middleware.
func GetIdentity(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithIdentity injects an identity into the context. Used by the auth
// middleware and by handler tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// OrgID returns the caller's organization ID, or "" when unauthenticated.
func OrgID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.OrgID
	}
	return ""
}

// Auth returns a middleware that validates the X-API-Key header against the
// api_keys table. Keys are stored as SHA-256 hashes.
func Auth(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			hash := sha256.Sum256([]byte(key))
			keyHash := hex.EncodeToString(hash[:])

			var identity Identity
			err := pool.QueryRow(r.Context(),
				`SELECT id, org_id FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`, keyHash,
			).Scan(&identity.KeyID, &identity.OrgID)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &identity)))
		})
	}
}
