// =============================================================================
// ContaFlow Reconciler - Excel Loading, Filtering and Matching
// =============================================================================
//
// Source workbooks carry purchase rows in a fixed 17-column layout. This
// package loads them, filters rows to the reference period by the document
// date column, and cross-references the invoice number column against a
// company's XML index to produce output records.
//
// =============================================================================

package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/contaflow/reconciler/internal/dates"
	"github.com/contaflow/reconciler/internal/logging"
)

// ColumnCount is the fixed width of a source row. Output workbooks append an
// 18th commercial-activity column.
const ColumnCount = 17

// ManualReviewMarker replaces the detail text when a match has more detail
// lines than the configured limit.
const ManualReviewMarker = "Revision Manual"

// Column indices (0-based) in the source layout.
const (
	invoiceColumn = 1
	dateColumn    = 3
	detailColumn  = 5
)

// Headers is the output header row: the 17 source columns plus the trailing
// commercial-activity column.
var Headers = []string{
	"Proveedor", "Numero", "Tipo de Documento", "Fecha Documento",
	"Fecha Rige", "Aplicación", "Monto", "Subtotal", "Impuesto1",
	"Tipo de Cambio", "Notas", "Condicion de Pago", "Moneda",
	"Subtipo Documento", "Fecha Vence", "Tipo Asiento", "Paquete",
	"Actividad Comercial",
}

// Row is one source row, padded to ColumnCount cells.
type Row []string

// InvoiceNumber returns the trimmed invoice number cell.
func (r Row) InvoiceNumber() string {
	return strings.TrimSpace(r[invoiceColumn])
}

// ExcludedRow is an audit entry for a row dropped by the period filter.
type ExcludedRow struct {
	Filename      string
	InvoiceNumber string
	RawDate       string
	ParsedDate    string
}

// FilterResult is the outcome of date-filtering one workbook's rows.
type FilterResult struct {
	Rows     []Row
	Total    int
	Excluded []ExcludedRow
}

// OutputRecord is one matched row ready for the output workbook.
type OutputRecord struct {
	Row          Row
	Detail       string
	ManualReview bool
}

// LoadRows reads the first sheet of an .xlsx file and returns its data rows
// (row 2 onward), each padded to ColumnCount cells. Rows that are entirely
// empty are dropped.
func LoadRows(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var rows []Row
	for i, cells := range raw {
		if i == 0 {
			continue // header row
		}
		row := make(Row, ColumnCount)
		empty := true
		for j := 0; j < ColumnCount && j < len(cells); j++ {
			row[j] = cells[j]
			if strings.TrimSpace(cells[j]) != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// FilterRowsByPeriod keeps the rows whose document date falls inside the
// reference period. A row with an empty or unparseable date is kept with a
// warning; only a valid out-of-period date excludes a row.
func FilterRowsByPeriod(rows []Row, period dates.Period, filename string, log *logging.Logger) *FilterResult {
	res := &FilterResult{Total: len(rows)}

	log.Infof("filtering %s rows by date (period %d/%d)", filename, period.Month, period.Year)

	for i, row := range rows {
		raw := strings.TrimSpace(row[dateColumn])
		if raw == "" {
			log.Warningf("row %d of %s has no document date, keeping it", i+2, filename)
			res.Rows = append(res.Rows, row)
			continue
		}

		parsed, ok := dates.ParseExcelDate(raw)
		if !ok {
			log.Warningf("row %d of %s has invalid document date %q, keeping it", i+2, filename, raw)
			res.Rows = append(res.Rows, row)
			continue
		}

		if !period.Contains(parsed) {
			invoice := row.InvoiceNumber()
			if invoice == "" {
				invoice = "N/A"
			}
			res.Excluded = append(res.Excluded, ExcludedRow{
				Filename:      filename,
				InvoiceNumber: invoice,
				RawDate:       raw,
				ParsedDate:    parsed.Format("02-01-2006"),
			})
			continue
		}

		res.Rows = append(res.Rows, row)
	}

	if n := len(res.Excluded); n > 0 {
		log.Infof("%s: %d rows in period, %d excluded by date", filename, len(res.Rows), n)
	} else {
		log.Infof("%s: %d valid rows", filename, len(res.Rows))
	}
	return res
}

// Match cross-references date-filtered rows against a company invoice index.
// A row matches when its invoice number is a non-empty key of the index.
// Matches with more detail lines than manualReviewLimit become manual-review
// records; the rest carry the detail lines joined with " | ". Rows are never
// deduplicated: two source rows with the same invoice number both match.
func Match(rows []Row, index map[string][]string, manualReviewLimit int) []OutputRecord {
	var records []OutputRecord
	for _, row := range rows {
		invoice := row.InvoiceNumber()
		if invoice == "" {
			continue
		}
		details, ok := index[invoice]
		if !ok {
			continue
		}

		if len(details) > manualReviewLimit {
			records = append(records, OutputRecord{Row: row, Detail: ManualReviewMarker, ManualReview: true})
		} else {
			records = append(records, OutputRecord{Row: row, Detail: strings.Join(details, " | ")})
		}
	}
	return records
}
