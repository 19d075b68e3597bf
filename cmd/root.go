package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/config"
	"github.com/Shivanand-hulikatti/tour-registration/internal/database"
	"github.com/Shivanand-hulikatti/tour-registration/internal/logger"
	"github.com/Shivanand-hulikatti/tour-registration/internal/repository"
	"github.com/Shivanand-hulikatti/tour-registration/internal/service"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "tourreg",
		Short:        "Tour registration service",
		Long:         `Public booking API and admin dashboard API for seat-limited tours, with email notifications.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (YAML); TOURREG_* environment variables override it")

	configPath := func() string { return cfgFile }
	root.AddCommand(
		newServeCmd(configPath),
		newMigrateCmd(configPath),
		newSeedCmd(configPath),
		newSummaryCmd(configPath),
		newHashPasswordCmd(),
	)
	return root
}

// bootstrap loads configuration and builds the logger shared by every subcommand.
func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log,
		zap.String("service", "tourreg"),
		zap.String("version", version))
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// stores bundles the three tables behind the service interfaces.
type stores struct {
	tours         service.TourStore
	registrations service.RegistrationStore
	adminEmails   service.AdminEmailStore
	close         func()
}

// openStores connects to the backend chosen by storage.driver. For postgres it
// also applies pending migrations when database.auto_migrate is set.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn("using in-memory storage; data is lost on exit")
		mem := repository.NewMemory()
		return &stores{
			tours:         mem.Tours(),
			registrations: mem.Registrations(),
			adminEmails:   mem.AdminEmails(),
			close:         func() {},
		}, nil
	}

	// Connect first: NewPool retries while the database container starts.
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(database.MigrateURL(cfg.Database), log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &stores{
		tours:         repository.NewTourRepository(pool),
		registrations: repository.NewRegistrationRepository(pool),
		adminEmails:   repository.NewAdminEmailRepository(pool),
		close:         pool.Close,
	}, nil
}

func requirePostgres(cfg *config.Config, command string) error {
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("%s needs storage.driver=postgres, got %q", command, cfg.Storage.Driver)
	}
	return nil
}
