// =============================================================================
// ContaFlow Reconciler - Run Command
// =============================================================================
//
// This file defines the 'run' command, which executes a full reconciliation:
//
//   1. Load and validate the configuration
//   2. Index each company's invoice XMLs for the current period
//   3. Cross-reference every source Excel file against every company
//   4. Write output workbooks and the run report
//
// Ctrl+C requests a cooperative stop: the engine finishes the file it is on
// and winds down, leaving already-written outputs intact.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/contaflow/reconciler/internal/config"
	"github.com/contaflow/reconciler/internal/engine"
	"github.com/contaflow/reconciler/internal/logging"
	"github.com/contaflow/reconciler/internal/report"
)

// noReport suppresses writing the report file next to the outputs.
var noReport bool

// runCmd represents the 'run' command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile Excel purchase rows against invoice XMLs",
	Long: `The run command executes a full reconciliation for the current period.

Source Excel files are discovered in the configured input directory by name
prefix. Each company's invoice XMLs are read from <base_folder>/<year>/<month>.
One output workbook is written per source file and company with at least one
match, and a detailed run report is printed and saved to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconciliation()
	},
}

func init() {
	runCmd.Flags().BoolVar(&noReport, "no-report", false, "Do not write the report file to the output directory")
	rootCmd.AddCommand(runCmd)
}

// runReconciliation wires the configuration, logger and engine together and
// executes one run.
func runReconciliation() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Sync()

	eng := engine.New(cfg, logging.NewZapSink(logger))

	// Ctrl+C stops cooperatively. A second signal kills the process the
	// default way because the handler is removed after the first one.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		signal.Stop(sigCh)
		eng.Stop()
	}()

	res := eng.Run()

	text := report.Render(res)
	fmt.Println()
	fmt.Println(text)

	if !noReport && res.Err == nil {
		path, err := report.WriteFile(cfg.OutputDir, text, res.Stats.EndTime)
		if err != nil {
			logger.Warn("could not write report file", zap.Error(err))
		} else {
			logger.Info("report written", zap.String("path", path))
		}
	}

	if res.Err != nil {
		return res.Err
	}
	if res.StoppedByUser {
		return fmt.Errorf("run stopped by user")
	}
	return nil
}

// buildLogger creates the console zap logger the engine logs through.
func buildLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
