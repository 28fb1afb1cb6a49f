package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deepaksuthar40128/RemoteDx/internal/server"
	"github.com/deepaksuthar40128/RemoteDx/pkg/config"
	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
	"github.com/deepaksuthar40128/RemoteDx/pkg/monitoring"
	"github.com/deepaksuthar40128/RemoteDx/pkg/orchestrator"
	httpserver "github.com/deepaksuthar40128/RemoteDx/pkg/server"
	"github.com/deepaksuthar40128/RemoteDx/pkg/version"
)

const serviceName = "remotedx"

func newServeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnostics HTTP API",
		Long: `Start an HTTP server that accepts machine inventories, runs diagnostics on
them and keeps the most recent runs for retrieval and CSV download.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := g.v
			logger := logging.NewLoggerWithService(serviceName)
			logger.SetOutput(cmd.ErrOrStderr())
			if v.GetBool("verbose") {
				logger.SetLevel(logging.DebugLevel)
			}

			mc := monitoring.NewMetricsCollector(serviceName, version.Version, version.GetShortCommit())
			orch := orchestrator.New(
				diag.NewRunner(diag.WithLogger(logger)),
				orchestrator.WithLogger(logger),
				orchestrator.WithMetrics(orchestrator.NewMetrics(mc)),
				orchestrator.WithConcurrency(v.GetInt("concurrency")),
			)
			api := server.New(server.Options{
				Logger:         logger,
				Orchestrator:   orch,
				Metrics:        mc,
				MachineOptions: []machine.Option{machine.WithRetryDelay(v.GetDuration("retry-delay"))},
				Seed:           v.GetInt64("seed"),
				RunTimeout:     v.GetDuration("run-timeout"),
				MaxRuns:        v.GetInt("max-runs"),
				MaxActive:      v.GetInt("max-active"),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return httpserver.Start(ctx, httpserver.DefaultConfig(serviceName, v.GetString("addr")), api.Router(), logger)
		},
	}

	cmd.Flags().String("addr", ":"+config.GetEnv("PORT", "8080"), "listen address")
	cmd.Flags().Duration("run-timeout", 0, "per-run timeout (0 for the 2m default)")
	cmd.Flags().Int("max-runs", config.GetEnvInt("MAX_RUNS", 20), "finished runs kept in memory")
	cmd.Flags().Int("max-active", 4, "runs allowed in progress at once")
	cmd.Flags().Int("concurrency", 0, "machines diagnosed at once per run (0 for all)")
	cmd.Flags().Duration("retry-delay", diag.DefaultRetryDelay, "pause before retrying a check")
	cmd.Flags().Int64("seed", 0, "seed for reproducible simulated results (0 for random)")

	return cmd
}
