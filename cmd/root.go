// =============================================================================
// ContaFlow Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (contaflow)
//   ├── runCmd (contaflow run)
//   └── versionCmd (contaflow version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the configuration file. Overridden with --config.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contaflow",
	Short: "ContaFlow Reconciler - Cross-reference purchase Excel rows against electronic invoice XMLs",

	Long: `ContaFlow Reconciler cross-references purchase rows exported from the
accounting system against the electronic invoice XMLs filed per company,
and produces per-company Excel workbooks ready for upload.

For every run it:
  - Resolves each company's invoice folder for the current year/month
  - Indexes the period's invoice XMLs, extracting vehicle plate codes from
    free text and invoice/guide data from associated courier PDFs
  - Filters the source Excel rows to the current period
  - Writes one styled output workbook per source file and company with at
    least one match, plus a detailed plain-text run report

Example Usage:
  contaflow run                     # Reconcile with ./config.yaml
  contaflow run --config prod.yaml  # Use a custom configuration file
  contaflow version                 # Display version information`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
