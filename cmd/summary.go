package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSummaryCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Email the daily registration summary to admins",
		Long: `Email per-tour registration counts to every active admin recipient.
Nothing is sent when there are no active tours or no pending registrations.
Meant to be run once a day from cron.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(configPath())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := requirePostgres(cfg, "summary"); err != nil {
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
			svcs := newServices(st, cfg, mail.notifier, nil, log)
			sent, sendErr := svcs.admin.SendDailySummary(cmd.Context())

			// The process exits right after, so wait for the queued emails.
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Mail.SendTimeout*2)
			defer cancel()
			if err := mail.dispatcher.Close(drainCtx); err != nil {
				log.Warn("email queue not drained", zap.Error(err))
			}
			if sendErr != nil {
				return sendErr
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "summary sent: %t\n", sent)
			return nil
		},
	}
}
