// =============================================================================
// ContaFlow Reconciler - Reconciliation Engine
// =============================================================================
//
// The engine drives a full run: validate the working directories, build the
// per-company invoice index from the period XML folders, cross-reference
// every source Excel file against every indexed company, write the output
// workbooks, and finalize (optional source cleanup, totals, summary).
//
// A run's reference time is captured once at start. Every date filter in the
// run uses that single period, so a run straddling midnight on a month
// boundary stays consistent.
//
// Stop() may be called from another goroutine at any time; the engine checks
// the flag between companies, between XML files and between Excel files and
// winds down without corrupting outputs already written.
//
// =============================================================================

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/contaflow/reconciler/internal/config"
	"github.com/contaflow/reconciler/internal/dates"
	"github.com/contaflow/reconciler/internal/excel"
	"github.com/contaflow/reconciler/internal/logging"
	"github.com/contaflow/reconciler/internal/paths"
	"github.com/contaflow/reconciler/internal/pdfextract"
	"github.com/contaflow/reconciler/internal/plates"
	"github.com/contaflow/reconciler/internal/xmlindex"
	"github.com/contaflow/reconciler/pkg/utils"
)

// OutputFile describes one workbook the run produced.
type OutputFile struct {
	Source             string
	Output             string
	CompanyKey         string
	CompanyName        string
	Matches            int
	ManualReviews      int
	CommercialActivity string
}

// Result is the outcome of one run.
type Result struct {
	Success       bool
	StoppedByUser bool
	OutputFiles   []OutputFile
	Stats         *ProcessingStats
	Err           error
}

// Engine is the reconciliation engine. Create one per run configuration with
// New; Run may only be called once per Engine.
type Engine struct {
	cfg    *config.Config
	log    *logging.Logger
	plates *plates.Extractor
	pdf    *pdfextract.Extractor
	fm     *utils.FileManager

	stop atomic.Bool

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates an Engine for the given configuration, logging to sink.
func New(cfg *config.Config, sink logging.Sink) *Engine {
	return &Engine{
		cfg:    cfg,
		log:    logging.New(sink),
		plates: plates.New(),
		pdf:    pdfextract.New(),
		fm:     utils.NewFileManager(cfg.InputDir, cfg.OutputDir),
		now:    time.Now,
	}
}

// Stop requests cooperative cancellation. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.log.Warningf("stop requested, finishing current step")
}

func (e *Engine) stopped() bool {
	return e.stop.Load()
}

// Run executes a full reconciliation.
func (e *Engine) Run() *Result {
	start := e.now()
	stats := newStats(uuid.New().String(), start)
	period := dates.PeriodOf(start)

	e.log.Infof("starting run %s (period %d/%d)", stats.RunID, period.Month, period.Year)

	res := &Result{Stats: stats}

	if err := e.validate(); err != nil {
		res.Err = fmt.Errorf("validation failed: %w", err)
		e.log.Errorf("%v", res.Err)
		e.finalize(res, start)
		return res
	}

	indices := e.buildIndices(stats, period, start)

	if !e.stopped() {
		e.matchAll(res, indices, period)
	}

	e.finalize(res, start)
	return res
}

// =============================================================================
// VALIDATION
// =============================================================================

// validate fails fast before any work: the input directory and every company
// base folder must be readable, and the output directory must be creatable.
func (e *Engine) validate() error {
	if !utils.IsReadableDir(e.cfg.InputDir) {
		return fmt.Errorf("input directory %s is not a readable directory", e.cfg.InputDir)
	}
	for _, c := range e.cfg.Companies {
		if !utils.IsReadableDir(c.BaseFolder) {
			return fmt.Errorf("base folder %s for company %s is not a readable directory", c.BaseFolder, c.Key)
		}
	}
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", e.cfg.OutputDir, err)
	}
	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// buildIndices resolves each company's period folder and builds its invoice
// index. Companies whose folder does not exist, or whose index comes out
// empty, are reported and left out of the returned map.
func (e *Engine) buildIndices(stats *ProcessingStats, period dates.Period, ref time.Time) map[string]map[string][]string {
	exclusions := make(map[string]struct{}, len(e.cfg.CombustibleExclusions))
	for _, name := range e.cfg.CombustibleExclusions {
		exclusions[xmlindex.NormalizeEmitter(name)] = struct{}{}
	}

	indexer := &xmlindex.Indexer{
		Plates:        e.plates,
		PDF:           e.pdf,
		Exclusions:    exclusions,
		SpecialVendor: e.cfg.SpecialVendorName,
		Log:           e.log,
		Stopped:       e.stopped,
	}

	indices := make(map[string]map[string][]string)

	for _, c := range e.cfg.Companies {
		if e.stopped() {
			break
		}

		detail := &CompanyDetail{Name: c.Name}
		stats.CompanyDetails[c.Key] = detail
		stats.CompaniesProcessed++

		resolution := paths.Resolve(c.BaseFolder, ref)
		detail.DynamicPath = resolution.DynamicPath
		detail.FolderExists = resolution.Exists

		if !resolution.Exists {
			stats.CompaniesSkipped++
			e.log.Warningf("[%s] %s, skipping company", c.Key, resolution.Message)
			continue
		}

		build := indexer.Build(c.Key, resolution.DynamicPath, period)
		stats.absorbIndex(detail, build)

		if len(build.Index) == 0 {
			stats.CompaniesSkipped++
			e.log.Warningf("[%s] no invoices in period, excluding from matching", c.Key)
			continue
		}
		indices[c.Key] = build.Index
	}

	return indices
}

// =============================================================================
// MATCHING
// =============================================================================

// matchAll cross-references every discovered Excel file against every indexed
// company, in configuration order, writing one output workbook per pairing
// that produced at least one match.
func (e *Engine) matchAll(res *Result, indices map[string]map[string][]string, period dates.Period) {
	stats := res.Stats

	files, err := e.fm.DiscoverExcelFiles(e.cfg.ExcelFilePrefix)
	if err != nil {
		res.Err = fmt.Errorf("discovering Excel files: %w", err)
		e.log.Errorf("%v", res.Err)
		return
	}
	if len(files) == 0 {
		e.log.Warningf("no Excel files with prefix %q found in %s", e.cfg.ExcelFilePrefix, e.cfg.InputDir)
		return
	}

	for _, path := range files {
		if e.stopped() {
			break
		}

		filename := filepath.Base(path)
		e.log.Infof("processing %s", filename)

		rows, err := excel.LoadRows(path)
		if err != nil {
			e.log.Errorf("failed to read %s: %v", filename, err)
			continue
		}

		filtered := excel.FilterRowsByPeriod(rows, period, filename, e.log)
		stats.ExcelRowsTotal += filtered.Total
		stats.ExcelRowsInPeriod += len(filtered.Rows)
		stats.ExcelRowsExcludedByDate += len(filtered.Excluded)
		stats.ExcludedExcelRows = append(stats.ExcludedExcelRows, filtered.Excluded...)

		produced := e.matchFile(res, filename, filtered.Rows, indices)

		if produced > 0 {
			stats.ExcelFilesProcessed++
			if e.cfg.DeleteOriginals && !e.stopped() {
				if err := utils.RemoveFile(path); err != nil {
					e.log.Warningf("could not delete %s: %v", filename, err)
				} else {
					stats.FilesDeleted++
					e.log.Infof("deleted source file %s", filename)
				}
			}
		}
	}
}

// matchFile runs one Excel file against every indexed company and returns how
// many output workbooks it produced.
func (e *Engine) matchFile(res *Result, filename string, rows []excel.Row,
	indices map[string]map[string][]string) int {

	stats := res.Stats
	produced := 0

	for _, c := range e.cfg.Companies {
		if e.stopped() {
			break
		}
		index, ok := indices[c.Key]
		if !ok {
			continue
		}

		detail := stats.CompanyDetails[c.Key]
		records := excel.Match(rows, index, e.cfg.ManualReviewLimit)
		detail.ExcelRowsProcessed += len(rows)

		if len(records) == 0 {
			if !contains(stats.CompaniesNoMatches, c.Name) {
				stats.CompaniesNoMatches = append(stats.CompaniesNoMatches, c.Name)
			}
			e.log.Warningf("  %s: no matches in %s", c.Name, filename)
			continue
		}

		reviews := 0
		for _, rec := range records {
			if rec.ManualReview {
				reviews++
			}
		}

		outPath := filepath.Join(e.cfg.OutputDir, excel.OutputFileName(filename, c.FileName, e.now()))
		if err := excel.WriteWorkbook(outPath, records, c.CommercialActivity); err != nil {
			e.log.Errorf("  %s: failed to write output: %v", c.Name, err)
			continue
		}

		detail.Matches += len(records)
		detail.ManualReviews += reviews
		stats.TotalMatches += len(records)
		stats.TotalManualReviews += reviews
		stats.FilesCreated++
		produced++

		res.OutputFiles = append(res.OutputFiles, OutputFile{
			Source:             filename,
			Output:             outPath,
			CompanyKey:         c.Key,
			CompanyName:        c.Name,
			Matches:            len(records),
			ManualReviews:      reviews,
			CommercialActivity: c.CommercialActivity,
		})
		e.log.Successf("  %s: %d matches (%d manual reviews)", c.Name, len(records), reviews)
	}

	return produced
}

// =============================================================================
// FINALIZATION
// =============================================================================

// finalize closes out the run: derived counters, overall outcome and the
// summary log.
func (e *Engine) finalize(res *Result, start time.Time) {
	stats := res.Stats
	stats.EndTime = e.now()
	stats.ProcessingTime = stats.EndTime.Sub(start)
	res.StoppedByUser = e.stopped()

	seen := make(map[string]bool)
	for _, out := range res.OutputFiles {
		if !seen[out.CompanyKey] {
			seen[out.CompanyKey] = true
			stats.CompaniesWithMatches++
		}
	}
	stats.CompaniesWithoutMatches = stats.CompaniesProcessed - stats.CompaniesWithMatches

	res.Success = res.Err == nil && !res.StoppedByUser

	switch {
	case res.StoppedByUser:
		e.log.Warningf("run %s stopped by user after %s", stats.RunID, stats.ProcessingTime.Round(time.Millisecond))
	case res.Err != nil:
		e.log.Errorf("run %s failed after %s", stats.RunID, stats.ProcessingTime.Round(time.Millisecond))
	default:
		e.log.Successf("run %s finished: %d matches, %d files created, %.1f%% plates extracted, %s elapsed",
			stats.RunID, stats.TotalMatches, stats.FilesCreated,
			stats.PlateExtractionRate(), stats.ProcessingTime.Round(time.Millisecond))
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
