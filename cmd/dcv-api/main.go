package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/config"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/db"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/logging"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/metrics"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/upstream"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("dcv-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	up := upstream.NewHTTPClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIToken, 10*time.Second)
	services := core.NewServices(pool, tc, up, logger, core.Options{
		CNAMETarget:    cfg.CNAMETarget,
		JobMaxAttempts: cfg.JobMaxAttempts,
	})

	srv := api.NewServer(logger, pool, tc, services)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// createAPIKey provisions a key for an organization and prints the raw
// value once. Only the SHA-256 hash is stored.
func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	orgID := fs.String("org", "", "Organization ID the key belongs to (required)")
	name := fs.String("name", "", "Name for the API key (required)")
	fs.Parse(args)

	if *orgID == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "error: --org and --name are required")
		fmt.Fprintln(os.Stderr, "usage: dcv-api create-api-key --org <org-id> --name <name>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	rawKey := "dcv_" + platform.NewSecret(24)
	hash := sha256.Sum256([]byte(rawKey))
	keyID := platform.NewID()

	_, err = pool.Exec(ctx,
		`INSERT INTO api_keys (id, org_id, name, key_hash, created_at) VALUES ($1, $2, $3, $4, now())`,
		keyID, *orgID, *name, hex.EncodeToString(hash[:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", *name)
	fmt.Printf("  ID:     %s\n", keyID)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key, it will not be shown again.\n")
}
