package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/bang/internal/config"
	"github.com/systmms/bang/internal/rotation"
)

func NewPurgeCommand(cfg *config.Config) *cobra.Command {
	var (
		user   string
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete deactivated keys whose grace period has elapsed",
		Long: `Delete old access keys that a previous 'bang rotate' deactivated and
scheduled for deletion. Only keys recorded by this tool are considered;
keys deactivated by other means are never touched.

Run this periodically (for example from cron) so grace periods are
honored without manual follow-up.

Examples:
  # Delete every key whose grace period has elapsed
  bang purge

  # See what would be deleted
  bang purge --dry-run

  # Delete scheduled keys regardless of grace period
  bang purge --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user != "" {
				cfg.User = user
			}
			return runPurge(cmd, cfg, all, dryRun)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Only purge keys belonging to this IAM user")
	cmd.Flags().BoolVar(&all, "all", false, "Delete scheduled keys even if their grace period has not elapsed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be deleted without deleting anything")

	return cmd
}

func runPurge(cmd *cobra.Command, cfg *config.Config, all, dryRun bool) error {
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	rotator, err := newRotator(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := rotator.Purge(ctx, rotation.PurgeRequest{
		User:   cfg.User,
		All:    all,
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}
	if !dryRun && len(result.DeletedKeyIDs) > 0 {
		cfg.Logger.Info("Deleted %d key(s); %d still scheduled", len(result.DeletedKeyIDs), len(result.Remaining))
	}
	return nil
}
