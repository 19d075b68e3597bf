package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/tour-registration/internal/model"
)

// defaultTour is the tour created by `tourreg seed` on an empty database.
var defaultTour = model.CreateTourRequest{
	Title:          "Armenia Tour - Yerevan 2026",
	Description:    "A special tour to Armenia, 4 days / 3 nights in Yerevan",
	StartDate:      "2026-06-28",
	EndDate:        "2026-07-01",
	FlightDetails:  "Direct charter flights to Yerevan | Departure 28.6.2026 early morning | Return 1.7.2026 evening",
	LuggageDetails: "Personal luggage according to the organiser's guidelines",
	HotelDetails:   "Ani Grand Hotel Yerevan (4 stars) | Ani Plaza Hotel Yerevan (4 stars)",
	Itinerary:      "Day 1: arrival, city tour, festive dinner | Day 2-3: Geghard, Garni, Symphony of Stones, winery | Day 4: Jewish park, Grand Candy, Dalma Garden Mall, departure",
	Capacity:       32,
}

func newSeedCmd(configPath func() string) *cobra.Command {
	var adminEmail string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default tour and admin recipient",
		Long: `Create the default tour when the database has no tours yet, and add
--admin-email (default mail.contact_email) to the admin recipients.
Running it twice changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(configPath())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := requirePostgres(cfg, "seed"); err != nil {
				return err
			}

			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.close()

			mail, err := newMailPipeline(cfg.Mail, nil, log)
			if err != nil {
				return err
			}
			defer func() { _ = mail.dispatcher.Close(context.Background()) }()

			if adminEmail == "" {
				adminEmail = cfg.Mail.ContactEmail
			}
			svcs := newServices(st, cfg, mail.notifier, nil, log)
			return seedDefaults(cmd.Context(), svcs, adminEmail, log)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "admin notification recipient to add")
	return cmd
}

// seedDefaults creates defaultTour if no tour exists and adds adminEmail as
// a recipient. Both steps are idempotent.
func seedDefaults(ctx context.Context, svcs *services, adminEmail string, log *zap.Logger) error {
	tours, err := svcs.tours.ListAllTours(ctx)
	if err != nil {
		return err
	}
	if len(tours) > 0 {
		log.Info("tour already exists, skipping tour seed", zap.Int("tours", len(tours)))
	} else {
		tour, err := svcs.tours.CreateTour(ctx, defaultTour)
		if err != nil {
			return fmt.Errorf("seed tour: %w", err)
		}
		log.Info("default tour created", zap.String("tour_id", tour.ID))
	}

	if adminEmail == "" {
		return nil
	}
	if _, err := svcs.admin.AddEmail(ctx, model.AdminEmailRequest{Email: adminEmail}); err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			log.Info("admin email already present", zap.String("email", adminEmail))
			return nil
		}
		return fmt.Errorf("seed admin email: %w", err)
	}
	return nil
}
