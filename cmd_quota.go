package main

import (
	"fmt"

	"healthscreen/config"
	"healthscreen/database"
	"healthscreen/repository"
	"healthscreen/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewQuotaCommand creates the 'healthscreen quota' command group.
func NewQuotaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect or reset guest chat quotas",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <guest-id>",
		Short: "Print how many chat messages a guest has used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuotaRepository(cmd, args[0], func(cfg *config.Config, repo repository.QuotaRepository) error {
				quota, err := repo.GetQuota(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d messages used\n", args[0], quota.MessagesSent, cfg.GuestChatQuota)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset <guest-id>",
		Short: "Give a guest their full chat quota back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuotaRepository(cmd, args[0], func(_ *config.Config, repo repository.QuotaRepository) error {
				if err := repo.ResetQuota(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Quota reset for %s.\n", args[0])
				return nil
			})
		},
	})
	return cmd
}

func withQuotaRepository(cmd *cobra.Command, guestID string, fn func(*config.Config, repository.QuotaRepository) error) error {
	if !utils.IsGuestID(guestID) {
		return fmt.Errorf("%q is not a guest id", guestID)
	}
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Debug("Quota command", zap.String("command", cmd.Name()), zap.String("guest_id", guestID))
	return fn(cfg, repository.NewQuotaRepository(db, log))
}
