// =============================================================================
// ContaFlow Reconciler - Company Invoice Indexer
// =============================================================================
//
// Builds the per-company invoice index: walks a resolved period folder,
// parses every XML, filters records to the reference period, and resolves
// each record's detail content through the classification chain:
//
//   1. Combustible exclusion  - emitter on the exclusion list keeps its raw
//                               detail lines untouched.
//   2. Special vendor         - the designated vendor's records are described
//                               by their associated PDF (invoice number and
//                               guide codes) when one can be read.
//   3. Plate extraction       - free text yields a vehicle plate code.
//   4. Fallback               - raw detail lines.
//
// A single malformed XML never aborts a run: parse errors are counted and
// the walk continues.
//
// =============================================================================

package xmlindex

import (
	"path/filepath"
	"strings"

	"github.com/contaflow/reconciler/internal/dates"
	"github.com/contaflow/reconciler/internal/logging"
	"github.com/contaflow/reconciler/internal/pdfextract"
	"github.com/contaflow/reconciler/internal/plates"
	"github.com/contaflow/reconciler/pkg/utils"
)

// maxParseWarnings caps how many per-file parse failures are logged per
// company folder before going quiet.
const maxParseWarnings = 3

// Stats accumulates per-company indexing counters.
type Stats struct {
	FilesFound        int
	Indexed           int
	ExcludedByDate    int
	Undated           int
	Duplicates        int
	ParseErrors       int
	VendorProcessed   int
	VendorFailed      int
	FreeTextSeen      int
	PlatesExtracted   int
	PlatesFailed      int
	FallbackToDetail  int
	ExclusionListHits int
}

// ExcludedRecord is an audit entry for an invoice dropped by the period
// filter.
type ExcludedRecord struct {
	Company       string
	InvoiceNumber string
	RawDate       string
	ParsedDate    string
}

// BuildResult is the outcome of indexing one company folder.
type BuildResult struct {
	// Index maps invoice number to resolved detail lines.
	Index map[string][]string

	Stats    Stats
	Excluded []ExcludedRecord
}

// Indexer holds the shared extractors and policy an index build needs.
// One Indexer serves every company in a run.
type Indexer struct {
	Plates *plates.Extractor
	PDF    *pdfextract.Extractor

	// Exclusions holds normalized emitter names whose detail lines must
	// pass through untouched.
	Exclusions map[string]struct{}

	// SpecialVendor is the emitter name routed to PDF extraction.
	SpecialVendor string

	Log *logging.Logger

	// Stopped is polled between files for cooperative cancellation.
	// May be nil.
	Stopped func() bool
}

// Build walks folder, parses every .xml file and returns the invoice index
// for the given period. The walk order is lexical, so duplicate invoice
// numbers resolve deterministically: the last file wins.
func (ix *Indexer) Build(company, folder string, period dates.Period) *BuildResult {
	res := &BuildResult{Index: make(map[string][]string)}

	paths := utils.FindXMLFiles(folder)
	res.Stats.FilesFound = len(paths)

	for _, path := range paths {
		if ix.Stopped != nil && ix.Stopped() {
			ix.Log.Warningf("[%s] indexing interrupted by user", company)
			break
		}
		ix.indexFile(company, path, period, res)
	}

	ix.Log.Infof("[%s] indexed %d invoices from %d XML files (%d outside period, %d errors)",
		company, res.Stats.Indexed, res.Stats.FilesFound, res.Stats.ExcludedByDate, res.Stats.ParseErrors)
	return res
}

func (ix *Indexer) indexFile(company, path string, period dates.Period, res *BuildResult) {
	rec, err := ParseFile(path)
	if err != nil {
		res.Stats.ParseErrors++
		if res.Stats.ParseErrors <= maxParseWarnings {
			ix.Log.Warningf("[%s] skipping %s: %v", company, filepath.Base(path), err)
		}
		return
	}
	if rec.InvoiceNumber == "" {
		res.Stats.ParseErrors++
		return
	}

	// Date filtering is asymmetric on purpose: a record whose date field is
	// structurally absent is kept with a warning, while a present-but-
	// malformed date is an error and the record is dropped.
	if rec.RawIssueDate == "" {
		res.Stats.Undated++
		ix.Log.Warningf("[%s] invoice %s has no issue date, including it anyway",
			company, rec.InvoiceNumber)
	} else {
		issued, ok := dates.ParseXMLDate(rec.RawIssueDate)
		if !ok {
			res.Stats.ParseErrors++
			ix.Log.Warningf("[%s] invoice %s has unparseable issue date %q, skipping",
				company, rec.InvoiceNumber, rec.RawIssueDate)
			return
		}
		if !period.Contains(issued) {
			res.Stats.ExcludedByDate++
			res.Excluded = append(res.Excluded, ExcludedRecord{
				Company:       company,
				InvoiceNumber: rec.InvoiceNumber,
				RawDate:       rec.RawIssueDate,
				ParsedDate:    issued.Format("2006-01-02"),
			})
			return
		}
	}

	lines := ix.resolveDetail(company, rec, &res.Stats)

	if _, dup := res.Index[rec.InvoiceNumber]; dup {
		res.Stats.Duplicates++
		ix.Log.Warningf("[%s] duplicate invoice %s, keeping the version from %s",
			company, rec.InvoiceNumber, filepath.Base(path))
	}
	res.Index[rec.InvoiceNumber] = lines
	res.Stats.Indexed++
}

// resolveDetail runs the classification chain for one record. The order is
// fixed: exclusion list beats the special vendor, the special vendor beats
// plate extraction, plates beat the raw detail fallback.
func (ix *Indexer) resolveDetail(company string, rec *Record, st *Stats) []string {
	if _, excluded := ix.Exclusions[NormalizeEmitter(rec.EmitterName)]; excluded {
		st.ExclusionListHits++
		return rec.DetailLines
	}

	if rec.IsSpecialVendor(ix.SpecialVendor) {
		if ext, err := ix.PDF.ProcessInvoicePDF(rec.Path); err == nil {
			st.VendorProcessed++
			return []string{ext.Formatted}
		} else {
			st.VendorFailed++
			ix.Log.Warningf("[%s] invoice %s: PDF extraction failed (%v), using detail lines",
				company, rec.InvoiceNumber, err)
		}
		return rec.DetailLines
	}

	if strings.TrimSpace(rec.FreeText) != "" {
		st.FreeTextSeen++
		if formatted, ok := ix.Plates.Process(rec.FreeText); ok {
			st.PlatesExtracted++
			return []string{formatted}
		}
		st.PlatesFailed++
	}

	st.FallbackToDetail++
	return rec.DetailLines
}
