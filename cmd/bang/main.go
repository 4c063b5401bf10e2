package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/bang/cmd/bang/commands"
	"github.com/systmms/bang/internal/config"
	"github.com/systmms/bang/internal/logging"
	"github.com/systmms/bang/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe any sealed secrets still in memory on the way out.
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// GracePeriodDays -1 marks "not set"; the rotate command fills it in
	// only when --grace-period is passed explicitly.
	cfg := &config.Config{GracePeriodDays: -1}

	rootCmd := &cobra.Command{
		Use:   "bang",
		Short: "Rotate AWS IAM access keys without locking yourself out",
		Long: `bang rotates an IAM user's access keys: it creates a replacement key,
installs it in the shared credentials file, waits for the new key to
propagate, deactivates the old key, and deletes it after a grace period.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Debug = debug
			cfg.NoColor = noColor
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "bang.yaml", "Defaults file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRotateCommand(cfg),
		commands.NewPurgeCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
