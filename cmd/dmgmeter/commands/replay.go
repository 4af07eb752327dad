package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/overlay"
	"github.com/cory-johannsen/partydamage/internal/meter"
	"github.com/cory-johannsen/partydamage/internal/observability"
	"github.com/cory-johannsen/partydamage/internal/replay"
	"github.com/cory-johannsen/partydamage/internal/scripting"
	"github.com/cory-johannsen/partydamage/internal/server"
)

type replayOptions struct {
	step        time.Duration
	bars        bool
	barWidth    int
	quiet       bool
	useLog      bool
	metricsAddr string
}

func newReplayCommand(a *app) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Replay a capture through a fresh meter",
		Long: `Replay reads a JSONL capture (zstd compressed when it ends in .zst), ticks a
fresh meter between records, and prints the final standings and every chat
line the meter delivered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = a.cfg.Metrics.Addr
			}
			return a.runReplay(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().DurationVar(&opts.step, "step", replay.DefaultStep, "simulated time between ticks")
	cmd.Flags().BoolVar(&opts.bars, "bars", false, "draw the overlay as terminal bars")
	cmd.Flags().IntVar(&opts.barWidth, "bar-width", 40, "terminal bar width in columns")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "omit delivered chat lines")
	cmd.Flags().BoolVar(&opts.useLog, "healthlog", false, "load the configured health log before replaying and save it after")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address until interrupted (overrides metrics.addr)")
	return cmd
}

func (a *app) runReplay(ctx context.Context, out io.Writer, path string, opts *replayOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	metrics := observability.NewMetrics()
	host := replay.NewHost()
	m := meter.New(host, a.cfg.Meter, metrics, a.logger)

	if a.cfg.Scripting.ReportScript != "" {
		script, err := scripting.LoadLineScript(a.cfg.Scripting.ReportScript, a.cfg.Scripting.InstructionLimit, a.logger)
		if err != nil {
			return err
		}
		defer script.Close()
		m.SetLineHook(script)
	}

	run := func(ctx context.Context) error {
		return a.replayOnce(ctx, out, path, host, m, opts)
	}
	if opts.metricsAddr == "" {
		return run(ctx)
	}

	svc, err := server.NewHTTPService(opts.metricsAddr, metrics.Handler(), a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "serving metrics on http://%s/metrics, interrupt to exit\n", svc.Addr())

	replayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lc := server.NewLifecycle(a.logger)
	lc.Add("metrics", svc)
	lc.Add("replay", &server.FuncService{
		StartFn: func() error { return run(replayCtx) },
		StopFn:  cancel,
	})
	return lc.Run(ctx)
}

func (a *app) replayOnce(ctx context.Context, out io.Writer, path string, host *replay.Host, m *meter.Meter, opts *replayOptions) error {
	if opts.useLog {
		store, closeStore, err := openStore(ctx, a.cfg, a.logger)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := m.LoadPersisted(ctx, store); err != nil {
			return err
		}
		defer func() {
			if err := m.SavePersisted(ctx, store); err != nil {
				a.logger.Warn("saving health log after replay", zap.Error(err))
			}
		}()
	}

	rd, err := replay.Open(path)
	if err != nil {
		return err
	}
	defer rd.Close()

	start := time.Now()
	stats, err := replay.NewRunner(host, m, opts.step, a.logger).Run(ctx, rd)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", path, err)
	}
	a.logger.Info("replay finished",
		zap.String("capture", path),
		zap.Int("records", stats.Records),
		zap.Int("ticks", stats.Ticks),
		zap.Duration("elapsed", time.Since(start)),
	)

	writeSummary(out, stats, m.Encounter().String())
	writeStandings(out, m.Standings(), m.Ledger().Total())
	if !opts.quiet {
		writeLines(out, host.Lines())
	}
	if opts.bars {
		sink := newTermSink(barFrame, opts.barWidth)
		if m.Draw(sink, barFrame) > 0 {
			sink.Render(out)
		}
	}
	return nil
}

var barFrame = overlay.Frame{Width: 400, LineHeight: 20, Padding: 4}
