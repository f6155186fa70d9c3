// =============================================================================
// ContaFlow Reconciler - Dynamic Path Resolver
// =============================================================================
//
// Invoice XMLs are filed per company under a dynamic subfolder of the
// company's base path: base/<year>/<month>, re-evaluated every run from the
// run's reference time. Month and year are plain integers in the path, no
// zero padding ("V:\3101263133\2025\7").
//
// This module only reports: it derives the dynamic path and checks whether it
// exists. A missing folder is a normal condition (the company simply has no
// invoices filed for the period yet) and must never abort a run.
//
// =============================================================================

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Resolution is the outcome of resolving one company's dynamic folder.
type Resolution struct {
	// BasePath is the configured per-company base folder.
	BasePath string

	// DynamicPath is BasePath/<year>/<month> for the reference time.
	DynamicPath string

	// Exists reports whether DynamicPath exists and is a directory.
	Exists bool

	// Message is a human-readable status for logs and reports.
	Message string
}

// BuildDynamic derives the dynamic folder for a base path and reference time.
func BuildDynamic(basePath string, ref time.Time) string {
	return filepath.Join(basePath, strconv.Itoa(ref.Year()), strconv.Itoa(int(ref.Month())))
}

// Resolve builds the dynamic path and checks the filesystem. It performs no
// creation.
func Resolve(basePath string, ref time.Time) Resolution {
	dynamic := BuildDynamic(basePath, ref)

	info, err := os.Stat(dynamic)
	if err == nil && info.IsDir() {
		return Resolution{
			BasePath:    basePath,
			DynamicPath: dynamic,
			Exists:      true,
			Message:     "current period folder found",
		}
	}

	return Resolution{
		BasePath:    basePath,
		DynamicPath: dynamic,
		Exists:      false,
		Message:     fmt.Sprintf("folder %d/%d does not exist", ref.Month(), ref.Year()),
	}
}
