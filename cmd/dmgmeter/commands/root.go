// Package commands implements the dmgmeter subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/config"
	"github.com/cory-johannsen/partydamage/internal/observability"
)

// app is the state shared by every subcommand once the root has loaded it.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *zap.Logger
}

// NewRootCommand builds the dmgmeter command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dmgmeter",
		Short: "Party damage meter tooling",
		Long: `dmgmeter replays recorded meter sessions and maintains the health log.

Commands:
  replay     Feed a capture through a fresh meter and print the standings
  healthlog  List or import remembered max health values`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to configuration file (defaults and DMGMETER_* env when empty)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newReplayCommand(a))
	root.AddCommand(newHealthLogCommand(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
