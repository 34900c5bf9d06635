package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	devOrgID      = "org_acme_dev_000000000001"
	devKeyID      = "key_acme_dev_000000000001"
	devEndpointID = "whep_acme_dev_000000000001"

	// Fixed dev credentials. Never use outside local development.
	devRawKey        = "dcv_dev_000000000000000000000001"
	devWebhookSecret = "whsec_dev_00000000000000000000001"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("Seeding development database...")

	_, err = pool.Exec(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		devOrgID, "Acme Dev")
	check(err, "organization")

	_, err = pool.Exec(ctx,
		`INSERT INTO org_members (org_id, email, active) VALUES ($1, $2, TRUE)
		 ON CONFLICT (org_id, email) DO NOTHING`,
		devOrgID, "dev@acme.example.com")
	check(err, "org member")

	keyHash := sha256.Sum256([]byte(devRawKey))
	_, err = pool.Exec(ctx,
		`INSERT INTO api_keys (id, org_id, name, key_hash) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		devKeyID, devOrgID, "dev", hex.EncodeToString(keyHash[:]))
	check(err, "api key")

	_, err = pool.Exec(ctx,
		`INSERT INTO webhook_endpoints (id, org_id, url, secret, events, enabled)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (id) DO NOTHING`,
		devEndpointID, devOrgID, "http://localhost:9999/webhooks",
		devWebhookSecret, []string{
			"domain.active", "domain.error", "domain.expiring_soon",
			"domain.renewed", "domain.added", "domain.removed", "dns.verified",
		})
	check(err, "webhook endpoint")

	fmt.Println("Done.")
	fmt.Printf("  Org:     %s\n", devOrgID)
	fmt.Printf("  API key: %s\n", devRawKey)
}

func check(err error, what string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed %s: %v\n", what, err)
		os.Exit(1)
	}
}
