// Package cli holds the tripeaks cobra commands.
package cli

import (
	"fmt"
	"io"

	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd represents the base command when called without any subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tripeaks",
		Short: "TriPeaks solitaire in the terminal",
		Long: `tripeaks plays, simulates and validates TriPeaks solitaire games.
Configuration is read from $XDG_CONFIG_HOME/tripeaks/config.toml and can be
overridden with TRIPEAKS_* environment variables.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "path to a config file (default $XDG_CONFIG_HOME/tripeaks/config.toml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPlayCmd(),
		newSimulateCmd(),
		newValidateCmd(),
		newShowCmd(),
		newHistoryCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the config named by --config and builds the logger, which
// writes to the command's stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(cmd.ErrOrStderr())
	return cfg, logger, nil
}

// seedFlag returns the --seed value if it was set, otherwise fallback.
func seedFlag(cmd *cobra.Command, fallback *int64) *int64 {
	if !cmd.Flags().Changed("seed") {
		return fallback
	}
	v, _ := cmd.Flags().GetInt64("seed")
	return &v
}

// stringFlag returns the flag value, or fallback when it is empty.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

func printList(w io.Writer, items []string) {
	for i, item := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, item)
	}
}
