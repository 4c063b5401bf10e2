package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/bang/internal/config"
	dserrors "github.com/systmms/bang/internal/errors"
	"github.com/systmms/bang/internal/rotation"
)

func NewRotateCommand(cfg *config.Config) *cobra.Command {
	var (
		profile          string
		credentialsFile  string
		user             string
		gracePeriod      int
		propagationDelay time.Duration
		force            bool
		dryRun           bool
	)

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Create a new access key and retire the old one",
		Long: `Rotate the IAM user's access keys.

The sequence is: create a replacement key, write it into the credentials
file under the target profile, wait for the new key to propagate, then
deactivate the old key. With a grace period the old key stays inactive
until 'bang purge' deletes it; with --grace-period 0 it is deleted at the
end of the run.

Deactivation is deliberate: an inactive key can be reactivated with
'aws iam update-access-key' if the new key turns out to be broken.

Examples:
  # Rotate the default profile's key for the calling user
  bang rotate

  # Rotate a named user's key into a named profile, delete the old key now
  bang rotate --profile ci --user deploy-bot --grace-period 0

  # At the two-key quota: deactivate the oldest key to make room
  bang rotate --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gracePeriod < 0 {
				return dserrors.UserError{
					Message:    fmt.Sprintf("invalid grace period: %d", gracePeriod),
					Suggestion: "Use 0 to delete the old key immediately, or a positive number of days",
				}
			}
			if propagationDelay < 0 {
				return dserrors.UserError{
					Message:    "propagation delay cannot be negative",
					Suggestion: "Use a duration like 10s or 30s",
				}
			}

			if profile != "" {
				cfg.Profile = profile
			}
			if credentialsFile != "" {
				cfg.CredentialsFile = credentialsFile
			}
			if user != "" {
				cfg.User = user
			}
			if cmd.Flags().Changed("grace-period") {
				cfg.GracePeriodDays = gracePeriod
			}
			if cmd.Flags().Changed("propagation-delay") {
				cfg.PropagationDelay = propagationDelay
			}

			return runRotate(cmd, cfg, force, dryRun)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile receiving the new key (default: $AWS_PROFILE or 'default')")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Path to the credentials file (default: $AWS_SHARED_CREDENTIALS_FILE or ~/.aws/credentials)")
	cmd.Flags().StringVar(&user, "user", "", "IAM user name (default: the calling user)")
	cmd.Flags().IntVar(&gracePeriod, "grace-period", config.DefaultGracePeriodDays, "Days to keep the old key (inactive) before deletion; 0 deletes immediately")
	cmd.Flags().DurationVar(&propagationDelay, "propagation-delay", config.DefaultPropagationDelay, "Wait after installing the new key before deactivating the old one")
	cmd.Flags().BoolVar(&force, "force", false, "Deactivate the oldest key first if the user already has two keys")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without changing anything")

	return cmd
}

func runRotate(cmd *cobra.Command, cfg *config.Config, force, dryRun bool) error {
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	rotator, err := newRotator(ctx, cfg)
	if err != nil {
		return err
	}

	_, err = rotator.Rotate(ctx, rotation.Request{
		User:            cfg.User,
		Profile:         cfg.Profile,
		GracePeriodDays: cfg.GracePeriodDays,
		Force:           force,
		DryRun:          dryRun,
	})
	return err
}
