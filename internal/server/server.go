// Package server orchestrates all components: NATS client, audit DB, actor host, HTTP gateway providers, HTTP health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nkeys"

	"github.com/morezero/actor-dispatch/internal/config"
	"github.com/morezero/actor-dispatch/pkg/actorhost"
	"github.com/morezero/actor-dispatch/pkg/commsutil"
	"github.com/morezero/actor-dispatch/pkg/db"
	"github.com/morezero/actor-dispatch/pkg/dispatcher"
	"github.com/morezero/actor-dispatch/pkg/events"
	"github.com/morezero/actor-dispatch/pkg/hostkey"
	"github.com/morezero/actor-dispatch/pkg/httpgw"
	"github.com/morezero/actor-dispatch/pkg/manifest"
	"github.com/morezero/actor-dispatch/pkg/semver"
	"github.com/morezero/actor-dispatch/pkg/transport"
)

const logPrefix = "server:server"

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	SetupLogging(cfg.LogLevel)

	slog.Info(fmt.Sprintf("%s - Starting actor-dispatch", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Load manifest
	m, err := manifest.Load(cfg.ManifestFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load manifest: %w", logPrefix, err)
	}

	// Step 2: Host signing key
	kp, err := LoadSigner(cfg)
	if err != nil {
		return err
	}
	defer kp.Wipe()
	pub, _ := kp.PublicKey()
	slog.Info(fmt.Sprintf("%s - Host key %s", logPrefix, pub))

	versions, err := semver.NewAcceptor(cfg.EnvelopeVersions)
	if err != nil {
		return fmt.Errorf("%s - invalid ENVELOPE_VERSIONS: %w", logPrefix, err)
	}

	// Step 3: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	defer nc.Close()
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 4: Optional audit database
	var pool *pgxpool.Pool
	var audit actorhost.AuditSink
	var repo *db.Repository
	if cfg.AuditEnabled() {
		pool, err = OpenAuditPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = db.NewRepository(pool)
		audit = repo
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, invocation audit log disabled", logPrefix))
	}

	// Step 5: Actor host
	host, err := actorhost.NewHost(actorhost.HostParams{
		Conn:           nc,
		TrustedIssuers: cfg.TrustedIssuers,
		Versions:       versions,
		Publisher:      events.NewCommsPublisher(nc, nil),
		Audit:          audit,
		HandlerTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("%s - failed to create actor host: %w", logPrefix, err)
	}
	if err := host.RegisterManifest(m); err != nil {
		return fmt.Errorf("%s - failed to register actors: %w", logPrefix, err)
	}
	if err := host.Start(); err != nil {
		return fmt.Errorf("%s - failed to start actor host: %w", logPrefix, err)
	}
	defer host.Stop()

	// Step 6: One dispatcher and HTTP gateway per provider
	tr := transport.NewCommsTransport(nc, &transport.CommsTransportOpts{Timeout: cfg.RequestTimeout})
	gateways := make([]*httpgw.Gateway, 0, len(m.Providers))
	for _, p := range m.Providers {
		disp, err := dispatcher.New(dispatcher.NewParams{
			CapabilityID: p.CapabilityID,
			Binding:      p.Binding,
			Signer:       kp,
			Transport:    tr,
		})
		if err != nil {
			return fmt.Errorf("%s - failed to create dispatcher for %s/%s: %w", logPrefix, p.CapabilityID, p.Binding, err)
		}
		gateways = append(gateways, httpgw.New(httpgw.Config{Listen: p.Listen}, disp))
	}
	var wg sync.WaitGroup
	gwErr := make(chan error, len(gateways))
	if err := startGateways(ctx, gateways, gwErr, &wg); err != nil {
		return err
	}

	// Step 7: HTTP health server
	s := &Server{
		cfg:       cfg,
		comms:     nc,
		db:        poolOrNil(pool),
		audit:     repoOrNil(repo),
		actors:    host.Actors,
		providers: len(m.Providers),
	}
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: s.Routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - actor-dispatch is ready (%d actors, %d providers)", logPrefix, host.Actors(), len(m.Providers)))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	case runErr = <-gwErr:
		slog.Error(fmt.Sprintf("%s - Gateway failed, shutting down: %v", logPrefix, runErr))
	}

	// Graceful shutdown: stop accepting HTTP, then drain the host.
	cancel()
	wg.Wait()
	httpServer.Shutdown(context.Background())
	host.Stop()
	if err := nc.Drain(); err != nil {
		slog.Warn(fmt.Sprintf("%s - drain: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return runErr
}

// startGateways binds every gateway before serving any, so a taken port fails startup instead of being logged
// after ready. Serve errors are sent to errCh.
func startGateways(ctx context.Context, gateways []*httpgw.Gateway, errCh chan<- error, wg *sync.WaitGroup) error {
	for i, gw := range gateways {
		if err := gw.Listen(); err != nil {
			for _, bound := range gateways[:i] {
				bound.Close()
			}
			return fmt.Errorf("%s - failed to start gateway: %w", logPrefix, err)
		}
	}
	for _, gw := range gateways {
		wg.Add(1)
		go func(gw *httpgw.Gateway) {
			defer wg.Done()
			if err := gw.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s - gateway %s stopped: %w", logPrefix, gw.Addr(), err)
			}
		}(gw)
	}
	return nil
}

// SetupLogging installs the default text logger at the given level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// LoadSigner loads the host key from HOST_SEED / HOST_SEED_FILE, or generates an ephemeral one when neither is set.
func LoadSigner(cfg *config.Config) (nkeys.KeyPair, error) {
	kp, err := hostkey.Load(cfg.HostSeed, cfg.HostSeedFile)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, hostkey.ErrNoSeed) {
		return nil, fmt.Errorf("%s - failed to load host key: %w", logPrefix, err)
	}
	slog.Warn(fmt.Sprintf("%s - No HOST_SEED configured, using an ephemeral host key", logPrefix))
	return hostkey.Generate()
}

// OpenAuditPool connects to DATABASE_URL and applies migrations when RUN_MIGRATIONS is set.
func OpenAuditPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if !cfg.RunMigrations {
		return pool, nil
	}
	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	return pool, nil
}

// poolOrNil and repoOrNil keep typed nil pointers out of the interfaces.
func poolOrNil(p *pgxpool.Pool) pinger {
	if p == nil {
		return nil
	}
	return p
}

func repoOrNil(r *db.Repository) auditReader {
	if r == nil {
		return nil
	}
	return r
}
