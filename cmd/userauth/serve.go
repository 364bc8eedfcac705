// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/credential"
	"github.com/holomush/userauth/internal/credential/filestore"
	"github.com/holomush/userauth/internal/credential/objectstore"
	"github.com/holomush/userauth/internal/credential/postgres"
	"github.com/holomush/userauth/internal/dispatch"
	"github.com/holomush/userauth/internal/logging"
	"github.com/holomush/userauth/internal/observability"
	"github.com/holomush/userauth/internal/transport/line"
	"github.com/holomush/userauth/internal/transport/zmq"
	"github.com/holomush/userauth/pkg/errutil"
)

const (
	shutdownTimeout  = 5 * time.Second
	bindWaitTimeout  = 10 * time.Second
	connectBaseDelay = 200 * time.Millisecond
)

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// BackendOpener connects to the configured credential backend.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg *config.Config) (credential.Backend, error)

	// Started is called once every transport is bound.
	Started func(addrs map[string]string)
}

// runner is a transport server.
type runner interface {
	Run(ctx context.Context) error
	Addr() string
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the userauth service",
		Long: `Load the credential table and serve login, logout, register,
reset_request and reset_password requests until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.ResolvePath(configFile), cmd.Flags(), nil)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe runs the service until ctx is cancelled or a transport fails.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendOpener == nil {
		deps.BackendOpener = openBackend
	}

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger, err := logging.New(logging.Options{
		Service: "userauth",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting userauth", "backend", cfg.Backend, "zmq_addr", cfg.ZMQAddr, "line_addr", cfg.LineAddr)

	backend, err := connectWithRetry(ctx, cfg, deps.BackendOpener, logger)
	if err != nil {
		return err
	}

	store, err := credential.NewStore(backend, credential.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		// Release the backend without flushing the empty table over it.
		closeStore(store, logger)
		return oops.Wrapf(err, "failed to load credentials")
	}
	defer closeStore(store, logger)
	logger.Info("credentials loaded", "users", store.Len())

	svc, err := auth.NewService(store, auth.WithLogger(logger))
	if err != nil {
		return err
	}
	dispatcher, err := dispatch.New(svc, dispatch.WithLogger(logger))
	if err != nil {
		return err
	}

	runners := map[string]runner{}
	if cfg.ZMQAddr != "" {
		runners["zmq"] = zmq.NewServer(cfg.ZMQAddr, dispatcher, logger)
	}
	if cfg.LineAddr != "" {
		runners["line"] = line.NewServer(cfg.LineAddr, dispatcher, logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer, err = observability.NewServer(cfg.MetricsAddr, func() bool { return allBound(runners) },
			observability.StateCollectors(svc)...)
		if err != nil {
			return err
		}
		reg := obsServer.Registry()
		dispatch.RegisterMetrics(reg)
		zmq.RegisterMetrics(reg)
		line.RegisterMetrics(reg)

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Wrapf(err, "failed to start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	errChan := make(chan error, len(runners))
	done := make(chan struct{}, len(runners))
	for name, r := range runners {
		go func() {
			defer func() { done <- struct{}{} }()
			if runErr := r.Run(ctx); runErr != nil {
				errChan <- oops.With("transport", name).Wrap(runErr)
			}
		}()
	}

	var runErr error
	if addrs, err := waitBound(ctx, runners, errChan); err != nil {
		runErr = err
	} else if ctx.Err() == nil {
		logger.Info("userauth ready", "addrs", addrs)
		cmd.Println("userauth started")
		if deps.Started != nil {
			deps.Started(addrs)
		}

		select {
		case <-ctx.Done():
			logger.Info("shutdown requested")
		case runErr = <-errChan:
			errutil.LogError(logger, "transport failed", runErr)
		}
	}

	logger.Info("shutting down...")
	cancel()
	for range runners {
		<-done
	}

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// closeStore flushes a loaded store and releases its backend.
func closeStore(store *credential.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		errutil.LogError(logger, "failed to flush credentials", err)
	}
}

// openBackend builds the credential backend named by cfg.Backend.
func openBackend(ctx context.Context, cfg *config.Config) (credential.Backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		b, err := postgres.Connect(ctx, cfg.Secrets.DatabaseURL)
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		return b, nil
	case config.BackendMinIO:
		b, err := objectstore.Connect(ctx, objectstore.Config{
			Endpoint:      cfg.MinIOEndpoint,
			AccessKey:     cfg.Secrets.MinIOAccessKey,
			SecretKey:     cfg.Secrets.MinIOSecretKey,
			UseSSL:        cfg.MinIOUseSSL,
			Bucket:        cfg.MinIOBucket,
			Object:        cfg.MinIOObject,
			CreateMissing: cfg.CreateMissing,
		})
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		return b, nil
	default:
		b, err := filestore.New(cfg.CredentialsFile, filestore.WithCreateMissing(cfg.CreateMissing))
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// connectWithRetry calls open with exponential backoff. Only errors marked
// retryable by open are retried.
func connectWithRetry(
	ctx context.Context,
	cfg *config.Config,
	open func(context.Context, *config.Config) (credential.Backend, error),
	logger *slog.Logger,
) (credential.Backend, error) {
	attempts := max(cfg.ConnectRetries, 1)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(connectBaseDelay)) //nolint:gosec // attempts >= 1

	var backend credential.Backend
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		b, err := open(ctx, cfg)
		if err != nil {
			logger.Warn("credential backend unavailable", "backend", cfg.Backend, "attempt", attempt, "error", err)
			return err
		}
		backend = b
		return nil
	})
	if err != nil {
		return nil, oops.Code("CREDENTIAL_CONNECT_FAILED").
			With("backend", cfg.Backend).
			With("attempts", attempt).
			Wrap(err)
	}
	return backend, nil
}

// waitBound blocks until every runner reports an address, a runner fails,
// or ctx ends.
func waitBound(ctx context.Context, runners map[string]runner, errChan <-chan error) (map[string]string, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(bindWaitTimeout)

	for !allBound(runners) {
		select {
		case <-ctx.Done():
			return nil, nil
		case err := <-errChan:
			return nil, err
		case <-deadline:
			return nil, oops.Code("TRANSPORT_BIND_TIMEOUT").Errorf("transports did not bind within %s", bindWaitTimeout)
		case <-ticker.C:
		}
	}

	addrs := make(map[string]string, len(runners))
	for name, r := range runners {
		addrs[name] = r.Addr()
	}
	return addrs, nil
}

func allBound(runners map[string]runner) bool {
	for _, r := range runners {
		if r.Addr() == "" {
			return false
		}
	}
	return true
}

// monitorServerErrors cancels ctx if errCh reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server error, triggering shutdown", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
