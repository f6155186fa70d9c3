// =============================================================================
// ContaFlow Reconciler - File Manager Utility
// =============================================================================
//
// This module provides the file management utilities the engine relies on:
//   - Source Excel discovery by name prefix
//   - Recursive invoice XML discovery
//   - Directory management
//   - Source cleanup after successful processing
//
// =============================================================================

package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a run.
type FileManager struct {
	// InputDir is the directory scanned for source Excel files.
	InputDir string

	// OutputDir is the directory where processed workbooks and reports
	// are written.
	OutputDir string
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{InputDir: inputDir, OutputDir: outputDir}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the input and output directories if missing.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverExcelFiles returns the .xlsx files in InputDir whose name starts
// with prefix, sorted by name. Office lock files ("~$...") are ignored.
func (fm *FileManager) DiscoverExcelFiles(prefix string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		files = append(files, filepath.Join(fm.InputDir, name))
	}

	sort.Strings(files)
	return files, nil
}

// FindXMLFiles walks root recursively and returns every .xml file in lexical
// order. Unreadable subdirectories are skipped rather than failing the walk.
func FindXMLFiles(root string) []string {
	var files []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// RemoveFile deletes a file, tolerating it already being gone.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// FileExists checks if a path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsReadableDir reports whether path is a directory that can be opened.
func IsReadableDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
