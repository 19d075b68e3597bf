package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/tour-registration/internal/auth"
	"github.com/Shivanand-hulikatti/tour-registration/internal/config"
	"github.com/Shivanand-hulikatti/tour-registration/internal/handler"
	"github.com/Shivanand-hulikatti/tour-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/tour-registration/internal/notify"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

func newServeCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the public booking API and the admin dashboard API.

With storage.driver=memory the default tour is seeded on start, which is
handy for local development. With postgres, pending migrations are applied
first unless database.auto_migrate is false.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(configPath())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

// services is the wired service layer.
type services struct {
	tours         *service.TourService
	registrations *service.RegistrationService
	admin         *service.AdminService
}

// mailPipeline is the notifier plus the dispatcher that must be drained on exit.
type mailPipeline struct {
	notifier   *notify.Notifier
	dispatcher *notify.Dispatcher
}

func newMailPipeline(cfg config.MailConfig, m *metrics.Metrics, log *zap.Logger) (*mailPipeline, error) {
	mailer, err := notify.NewMailer(cfg, log)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.QueueSize, log,
		notify.WithMetrics(m),
		notify.WithSendTimeout(cfg.SendTimeout))
	notifier, err := notify.NewNotifier(dispatcher, cfg.ContactEmail, log)
	if err != nil {
		_ = dispatcher.Close(context.Background())
		return nil, err
	}
	return &mailPipeline{notifier: notifier, dispatcher: dispatcher}, nil
}

func newServices(st *stores, cfg *config.Config, notifier service.Notifier, m *metrics.Metrics, log *zap.Logger) *services {
	tours := service.NewTourService(st.tours, st.registrations, cfg.Cache.ToursTTL, m, log)
	return &services{
		tours:         tours,
		registrations: service.NewRegistrationService(st.registrations, tours, st.adminEmails, notifier, m, log),
		admin:         service.NewAdminService(st.adminEmails, tours, notifier, log),
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if err := cfg.ValidateAdmin(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 2. Observability and mail ────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	mail, err := newMailPipeline(cfg.Mail, m, log)
	if err != nil {
		return err
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	svcs := newServices(st, cfg, mail.notifier, m, log)
	if cfg.Storage.Driver == "memory" {
		if err := seedDefaults(ctx, svcs, cfg.Mail.ContactEmail, log); err != nil {
			_ = mail.dispatcher.Close(context.Background())
			return err
		}
	}

	router := handler.NewRouter(handler.RouterConfig{
		Tours:         svcs.tours,
		Registrations: svcs.registrations,
		Admin:         svcs.admin,
		Auth:          auth.NewService(cfg.Admin.PasswordHash, cfg.Admin.JWTSecret, cfg.Admin.Issuer, cfg.Admin.TokenTTL),
		Metrics:       m,
		Gatherer:      registry,
		CORSOrigin:    cfg.Server.CORSOrigin,
		Log:           log,
	})

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)

		// Requests are finished, so nothing enqueues anymore: drain the mail queue.
		if err := mail.dispatcher.Close(shutdownCtx); err != nil {
			log.Warn("email queue not drained before shutdown deadline", zap.Error(err))
		}
		if shutdownErr != nil {
			return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}
