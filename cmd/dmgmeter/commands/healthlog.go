package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/health"
	"github.com/cory-johannsen/partydamage/internal/storage/yamlfile"
)

func newHealthLogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthlog",
		Short: "Inspect or import remembered max health values",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every entry of the configured health log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			est := health.NewEstimator(a.cfg.Meter.HealthCeiling, a.logger)
			if _, skipped, err := est.Load(ctx, store); err != nil {
				return err
			} else if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid entries\n", skipped)
			}
			writeHealthLog(cmd.OutOrStdout(), est.Snapshot())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Merge a YAML health log into the configured backend",
		Long: `Import reads a YAML health log and merges it into the configured backend.
Imported values replace stored values for the same identity key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			est := health.NewEstimator(a.cfg.Meter.HealthCeiling, a.logger)
			existing, _, err := est.Load(ctx, store)
			if err != nil {
				return err
			}
			imported, skipped, err := est.Load(ctx, yamlfile.NewStore(args[0], a.logger))
			if err != nil {
				return err
			}
			if err := est.Save(ctx, store); err != nil {
				return err
			}
			a.logger.Info("health log imported",
				zap.String("source", args[0]),
				zap.String("backend", a.cfg.HealthLog.Backend),
				zap.Int("existing", existing),
				zap.Int("imported", imported),
				zap.Int("skipped", skipped),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries (%d skipped), %d stored\n", imported, skipped, est.Len())
			return nil
		},
	})
	return cmd
}
