// =============================================================================
// ContaFlow Reconciler - Run Statistics
// =============================================================================

package engine

import (
	"time"

	"github.com/contaflow/reconciler/internal/excel"
	"github.com/contaflow/reconciler/internal/xmlindex"
)

// CompanyDetail is the per-company slice of the run statistics.
type CompanyDetail struct {
	Name         string
	FolderExists bool
	DynamicPath  string

	XMLCount          int
	XMLIndexed        int
	XMLExcludedByDate int
	XMLUndated        int
	XMLParseErrors    int
	DuplicateInvoices int

	VendorPDFsProcessed int
	VendorPDFsFailed    int
	FreeTextSeen        int
	PlatesExtracted     int
	PlatesFailed        int
	ExclusionListHits   int

	Matches            int
	ManualReviews      int
	ExcelRowsProcessed int
}

// ProcessingStats accumulates everything a run observed. One instance per
// run; returned inside the Result and consumed by the report package.
type ProcessingStats struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	// ReferenceMonth/ReferenceYear identify the period the run filtered to,
	// captured once at start.
	ReferenceMonth int
	ReferenceYear  int

	CompaniesProcessed      int
	CompaniesWithMatches    int
	CompaniesWithoutMatches int
	CompaniesSkipped        int

	TotalXMLCount          int
	TotalXMLIndexed        int
	TotalXMLExcludedByDate int
	TotalXMLParseErrors    int
	DuplicateInvoices      int

	ExcelFilesProcessed     int
	ExcelRowsTotal          int
	ExcelRowsInPeriod       int
	ExcelRowsExcludedByDate int

	TotalMatches       int
	TotalManualReviews int
	FilesCreated       int
	FilesDeleted       int

	VendorPDFsProcessed int
	VendorPDFsFailed    int
	FreeTextSeen        int
	PlatesExtracted     int
	PlatesFailed        int
	FallbackToDetail    int
	ExclusionListHits   int

	CompaniesNoMatches []string
	ExcludedXML        []xmlindex.ExcludedRecord
	ExcludedExcelRows  []excel.ExcludedRow
	CompanyDetails     map[string]*CompanyDetail

	ProcessingTime time.Duration
}

// newStats initializes an empty stats object for a run.
func newStats(runID string, start time.Time) *ProcessingStats {
	return &ProcessingStats{
		RunID:          runID,
		StartTime:      start,
		ReferenceMonth: int(start.Month()),
		ReferenceYear:  start.Year(),
		CompanyDetails: make(map[string]*CompanyDetail),
	}
}

// absorbIndex folds one company's index build into the totals.
func (s *ProcessingStats) absorbIndex(detail *CompanyDetail, res *xmlindex.BuildResult) {
	detail.XMLCount = res.Stats.FilesFound
	detail.XMLIndexed = res.Stats.Indexed
	detail.XMLExcludedByDate = res.Stats.ExcludedByDate
	detail.XMLUndated = res.Stats.Undated
	detail.XMLParseErrors = res.Stats.ParseErrors
	detail.DuplicateInvoices = res.Stats.Duplicates
	detail.VendorPDFsProcessed = res.Stats.VendorProcessed
	detail.VendorPDFsFailed = res.Stats.VendorFailed
	detail.FreeTextSeen = res.Stats.FreeTextSeen
	detail.PlatesExtracted = res.Stats.PlatesExtracted
	detail.PlatesFailed = res.Stats.PlatesFailed
	detail.ExclusionListHits = res.Stats.ExclusionListHits

	s.TotalXMLCount += res.Stats.FilesFound
	s.TotalXMLIndexed += res.Stats.Indexed
	s.TotalXMLExcludedByDate += res.Stats.ExcludedByDate
	s.TotalXMLParseErrors += res.Stats.ParseErrors
	s.DuplicateInvoices += res.Stats.Duplicates
	s.VendorPDFsProcessed += res.Stats.VendorProcessed
	s.VendorPDFsFailed += res.Stats.VendorFailed
	s.FreeTextSeen += res.Stats.FreeTextSeen
	s.PlatesExtracted += res.Stats.PlatesExtracted
	s.PlatesFailed += res.Stats.PlatesFailed
	s.FallbackToDetail += res.Stats.FallbackToDetail
	s.ExclusionListHits += res.Stats.ExclusionListHits
	s.ExcludedXML = append(s.ExcludedXML, res.Excluded...)
}

// PlateExtractionRate is the share of free-text fields that yielded a plate,
// in percent. Zero when no free text was seen.
func (s *ProcessingStats) PlateExtractionRate() float64 {
	if s.FreeTextSeen == 0 {
		return 0
	}
	return float64(s.PlatesExtracted) / float64(s.FreeTextSeen) * 100
}

// VendorPDFSuccessRate is the share of special-vendor invoices whose PDF was
// read successfully, in percent.
func (s *ProcessingStats) VendorPDFSuccessRate() float64 {
	total := s.VendorPDFsProcessed + s.VendorPDFsFailed
	if total == 0 {
		return 0
	}
	return float64(s.VendorPDFsProcessed) / float64(total) * 100
}
