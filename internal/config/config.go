// =============================================================================
// ContaFlow Reconciler - Configuration Module
// =============================================================================
//
// This module loads and validates the application configuration from a single
// YAML file: directories, the reconciliation policy (review limit, special
// vendor, exclusion list) and the per-company catalog.
//
// New companies are added by editing the YAML, not the code.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURES
// =============================================================================

// Config holds the full application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for source Excel files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is where processed workbooks and the run report are written.
	// Created on demand. Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// ExcelFilePrefix selects which .xlsx files in InputDir are processed:
	// only files whose name starts with this prefix. Default: "cargador"
	ExcelFilePrefix string `yaml:"excel_file_prefix"`

	// ManualReviewLimit is the maximum number of detail lines written
	// verbatim to an output row. Matches with strictly more lines are
	// flagged for manual review instead. Default: 3
	ManualReviewLimit int `yaml:"manual_review_limit"`

	// DeleteOriginals removes a source Excel file after it produced at
	// least one output workbook. Default: false
	DeleteOriginals bool `yaml:"delete_originals"`

	// SpecialVendorName is the emitter whose invoices are described by
	// their associated PDF instead of plate extraction.
	// Default: "Correos de Costa Rica SA"
	SpecialVendorName string `yaml:"special_vendor_name"`

	// CombustibleExclusions lists emitter names whose invoice detail lines
	// must pass through untouched, skipping plate extraction. Comparison is
	// accent- and case-insensitive.
	CombustibleExclusions []string `yaml:"combustible_exclusions"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls verbosity: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// COMPANY CATALOG
	// =========================================================================

	// Companies are processed in the order they appear here.
	Companies []Company `yaml:"companies"`
}

// Company is one configured company.
type Company struct {
	// Key identifies the company in logs and stats.
	Key string `yaml:"key"`

	// Name is the display name. Defaults to Key.
	Name string `yaml:"name"`

	// FileName is the short name embedded in output file names.
	// Defaults to Key.
	FileName string `yaml:"file_name"`

	// BaseFolder is the root of the company's invoice XML archive. The
	// period folder <BaseFolder>/<year>/<month> is resolved at run time.
	BaseFolder string `yaml:"base_folder"`

	// CommercialActivity is the static value for the output workbook's
	// trailing column.
	CommercialActivity string `yaml:"commercial_activity"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Load reads, defaults and validates the configuration at configPath.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset options.
func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ExcelFilePrefix == "" {
		cfg.ExcelFilePrefix = "cargador"
	}
	if cfg.ManualReviewLimit == 0 {
		cfg.ManualReviewLimit = 3
	}
	if cfg.SpecialVendorName == "" {
		cfg.SpecialVendorName = "Correos de Costa Rica SA"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	for i := range cfg.Companies {
		c := &cfg.Companies[i]
		if c.Name == "" {
			c.Name = c.Key
		}
		if c.FileName == "" {
			c.FileName = c.Key
		}
	}
}

// validate checks the configuration for consistency.
func validate(cfg *Config) error {
	if cfg.ManualReviewLimit < 0 {
		return fmt.Errorf("manual_review_limit must not be negative, got %d", cfg.ManualReviewLimit)
	}
	if len(cfg.Companies) == 0 {
		return fmt.Errorf("at least one company must be configured")
	}

	seen := make(map[string]bool)
	for i, c := range cfg.Companies {
		if c.Key == "" {
			return fmt.Errorf("company %d has no key", i+1)
		}
		if seen[c.Key] {
			return fmt.Errorf("duplicate company key %q", c.Key)
		}
		seen[c.Key] = true
		if c.BaseFolder == "" {
			return fmt.Errorf("company %q has no base_folder", c.Key)
		}
	}

	return nil
}
