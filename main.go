// =============================================================================
// ContaFlow Reconciler - Main Entry Point
// =============================================================================
//
// This is the main entry point for the ContaFlow Reconciler CLI. It
// initializes the Cobra CLI framework and delegates command execution to the
// cmd package.
//
// USAGE:
//   contaflow run          - Reconcile Excel rows against invoice XMLs
//   contaflow version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core business logic (not for external import)
//   - pkg/           : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/contaflow/reconciler/cmd"
)

func main() {
	cmd.Execute()
}
