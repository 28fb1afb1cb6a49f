package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepaksuthar40128/RemoteDx/pkg/config"
	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/inventory"
	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
	"github.com/deepaksuthar40128/RemoteDx/pkg/orchestrator"
	"github.com/deepaksuthar40128/RemoteDx/pkg/report"
)

const defaultCSVFile = "diagnostics_report.csv"

func newRunCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run diagnostics against every configured machine",
		Long: `Load the machine inventory, run the check suite on every machine concurrently,
print a summary and export the detailed results to CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnostics(cmd, g)
		},
	}

	cmd.Flags().String("machines", inventory.DefaultFile, "machine inventory file (JSON or YAML)")
	cmd.Flags().String("csv", defaultCSVFile, "CSV report path (empty disables export)")
	cmd.Flags().Duration("timeout", 5*time.Minute, "overall run timeout (0 for none)")
	cmd.Flags().Int("concurrency", 0, "machines diagnosed at once (0 for all)")
	cmd.Flags().Duration("retry-delay", config.GetEnvDuration("RETRY_DELAY", diag.DefaultRetryDelay), "pause before retrying a check")
	cmd.Flags().Int64("seed", 0, "seed for reproducible simulated results (0 for random)")
	cmd.Flags().Bool("table", false, "print a per-check table before the summary")

	return cmd
}

func runDiagnostics(cmd *cobra.Command, g *globals) error {
	v := g.v
	logger := g.logger(cmd)
	out := cmd.OutOrStdout()

	machines, err := loadMachines(logger, v.GetString("machines"), v.GetInt64("seed"),
		machine.WithRetryDelay(v.GetDuration("retry-delay")))
	if err != nil {
		return err
	}
	if len(machines) == 0 {
		fmt.Fprintln(out, "No machine configurations found. Nothing to do.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	orch := orchestrator.New(
		diag.NewRunner(diag.WithLogger(logger)),
		orchestrator.WithLogger(logger),
		orchestrator.WithConcurrency(v.GetInt("concurrency")),
	)
	runErr := orch.RunAll(ctx, machines)
	if runErr != nil {
		logger.WithError(runErr).Warn("Diagnostics run interrupted; reporting partial results")
	}

	if g.jsonOutput() {
		if err := report.WriteJSON(out, machines); err != nil {
			return err
		}
	} else {
		if v.GetBool("table") {
			colored := isTerminal(out) && !config.GetEnvBool("NO_COLOR", false)
			if err := report.WriteTable(out, report.Rows(machines), colored); err != nil {
				return err
			}
		}
		if err := report.Summarize(machines).Render(out); err != nil {
			return err
		}
	}

	if path := v.GetString("csv"); path != "" {
		switch err := report.ExportCSV(path, machines); {
		case errors.Is(err, report.ErrNoRows):
			logger.Warn("No detailed results to export to CSV")
		case err != nil:
			return fmt.Errorf("failed to export CSV: %w", err)
		default:
			abs, _ := filepath.Abs(path)
			logger.WithField("path", abs).Info("Exported detailed results")
		}
	}

	if runErr != nil {
		return fmt.Errorf("diagnostics run interrupted: %w", runErr)
	}
	return nil
}

// loadMachines parses the inventory and builds the machines, skipping invalid
// ones with a warning. It fails when the file cannot be loaded or when no
// machine could be built from a non-empty inventory.
func loadMachines(logger logging.Logger, path string, seed int64, opts ...machine.Option) ([]*machine.Profile, error) {
	logger.WithField("path", path).Info("Loading machine configurations")
	configs, err := inventory.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load machine configuration: %w", err)
	}
	if len(configs) == 0 {
		return nil, nil
	}
	logger.WithField("count", len(configs)).Info("Parsed machine configurations")

	machines, errs := inventory.BuildMachines(configs, seed, opts...)
	for _, err := range errs {
		logger.WithError(err).Warn("Skipping machine")
	}
	for _, m := range machines {
		logger.WithFields(logging.Fields{
			"machine": m.Name(),
			"variant": m.Variant().Title(),
		}).Debug("Initialized machine")
	}
	if len(machines) == 0 {
		return nil, errors.New("no machine instances could be created from the configuration")
	}
	return machines, nil
}
