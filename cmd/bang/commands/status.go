package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/bang/internal/config"
)

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the user's access keys and scheduled deletions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user != "" {
				cfg.User = user
			}
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "IAM user name (default: the calling user)")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	rotator, err := newRotator(ctx, cfg)
	if err != nil {
		return err
	}

	user, keys, err := rotator.Inspect(ctx, cfg.User)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Access keys for %s:\n\n", user)
	if len(keys) == 0 {
		fmt.Fprintln(out, "  (none)")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY ID\tSTATUS\tAGE\tDELETE AFTER")
	now := time.Now()
	for _, key := range keys {
		status := "active"
		if !key.Active {
			status = "inactive"
		}
		deleteAfter := "-"
		if key.DeleteAfter != nil {
			deleteAfter = key.DeleteAfter.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key.AccessKeyID, status, formatAge(now.Sub(key.CreatedAt)), deleteAfter)
	}
	return w.Flush()
}

func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days >= 1:
		return fmt.Sprintf("%dd", days)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
