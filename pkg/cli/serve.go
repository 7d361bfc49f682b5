// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/api"
	"github.com/telekom/mail-profiler/pkg/collector"
	"github.com/telekom/mail-profiler/pkg/config"
	"github.com/telekom/mail-profiler/pkg/mail"
	"github.com/telekom/mail-profiler/pkg/profiler"
	"github.com/telekom/mail-profiler/pkg/ratelimit"
	"github.com/telekom/mail-profiler/pkg/version"
)

const stopTimeout = 15 * time.Second

// App is a fully wired server.
type App struct {
	Server   *api.Server
	Registry *mail.Registry
	Profiler *profiler.Profiler
	closers  []func() error
}

// BuildApp wires mail channels, profiler and HTTP server from cfg.
// cfg must already have defaults applied and be valid.
func BuildApp(cfg config.Config, log *zap.Logger, debug bool) (*App, error) {
	sugar := log.Sugar()
	app := &App{}

	storage, err := newStorage(cfg.Profiler)
	if err != nil {
		return nil, err
	}
	if closer, ok := storage.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	app.Registry = mail.NewRegistry(cfg.Mail, sugar)
	app.Profiler = profiler.New(storage, sugar)
	app.Profiler.Add(collector.Factory(app.Registry, app.Registry.Lifecycle(), sugar))
	if !cfg.Profiler.Enabled {
		app.Profiler.Disable()
	}

	var limiter *ratelimit.IPRateLimiter
	if cfg.Profiler.RateLimit.Rate > 0 {
		limiter = ratelimit.New(ratelimit.FromSettings(cfg.Profiler.RateLimit))
	}

	branding := ""
	if m, ok := cfg.Mail.Mailers.Get(cfg.Mail.DefaultMailer); ok {
		branding = m.SenderName
	}

	app.Server = api.NewServer(log, cfg.Server, debug,
		profiler.Middleware(app.Profiler, sugar, api.ProfilerBasePath, app.Registry))
	err = app.Server.RegisterAll([]api.APIController{
		api.NewProfilerController(app.Profiler, limiter, sugar),
		api.NewMailController(app.Registry, branding, sugar),
	})
	if err != nil {
		_ = app.Close(context.Background())
		return nil, fmt.Errorf("registering controllers: %w", err)
	}
	return app, nil
}

func newStorage(cfg config.Profiler) (profiler.Storage, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := profiler.NewSQLiteStorage(cfg.DSN, cfg.MaxProfiles)
		if err != nil {
			return nil, fmt.Errorf("opening profile storage: %w", err)
		}
		return s, nil
	case "", config.StorageMemory:
		return profiler.NewMemoryStorage(cfg.MaxProfiles), nil
	default:
		return nil, fmt.Errorf("unsupported profile storage %q", cfg.Storage)
	}
}

// Close stops the spools, the controllers and the profile storage.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		a.Server.Close()
	}
	if a.Registry != nil {
		if err := a.Registry.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			zl, err := SetupLogger(rt.debug)
			if err != nil {
				return err
			}
			defer func() { _ = zl.Sync() }()
			log := zl.Sugar()
			log.Infow("Starting mailprofiler", "version", version.Version, "commit", version.GitCommit)

			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg.Defaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			log.Debugw("Configuration loaded",
				"listenAddress", cfg.Server.ListenAddress,
				"profilerEnabled", cfg.Profiler.Enabled,
				"storage", cfg.Profiler.Storage,
				"channels", cfg.Mail.Mailers.Names())

			app, err := BuildApp(cfg, zl, rt.debug)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serveErr := app.Server.Listen(ctx)

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := app.Close(stopCtx); err != nil {
				log.Warnw("Shutdown finished with errors", "error", err)
			}
			log.Info("Stopped")
			return serveErr
		},
	}
}
