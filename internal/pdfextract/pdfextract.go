// =============================================================================
// ContaFlow Reconciler - Invoice PDF Extraction
// =============================================================================
//
// Invoices from the designated parcel vendor carry their useful data (invoice
// number and shipment guide codes) in an associated PDF rather than in the
// XML detail lines. This module locates that PDF next to the source XML,
// pulls its plain text page by page, and extracts the two fields.
//
// The invoice number is hunted with an ordered list of label patterns ("N°
// Factura:", "No. Factura:", "Factura #", ...) and two fallback scans; guide
// codes use a single fixed shape (2 uppercase letters + 9 digits + up to 2
// trailing letters, e.g. NE084204615CR).
//
// Any missing piece (no PDF, no extractable text, no invoice number, no
// guide codes) fails the whole record, and the caller falls back to the
// XML's raw detail lines.
//
// =============================================================================

package pdfextract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extraction is the successful outcome for one invoice PDF.
type Extraction struct {
	// InvoiceNumber is the 4-8 digit invoice number found in the text.
	InvoiceNumber string

	// GuideCodes are the shipment guide codes, deduplicated in first-seen
	// order.
	GuideCodes []string

	// Formatted is the single detail line written to the output workbook:
	// "(345520) SERVICIO EMS (ENVIO DE PAQUETES)/GUIA NE084204615CR - ..."
	Formatted string

	// PagesFailed counts pages that yielded no text. Tolerated as long as at
	// least one page produced text.
	PagesFailed int
}

// Invoice-number bounds accepted by the sanity check.
const (
	minInvoiceNumber = 1000
	maxInvoiceNumber = 99999999
)

// Extractor holds the compiled patterns. Build one per run and inject it into
// the indexer.
type Extractor struct {
	invoicePatterns []*regexp.Regexp
	guideCode       *regexp.Regexp
	guideShape      *regexp.Regexp
	digitRun        *regexp.Regexp
	contextScan     *regexp.Regexp
	collapseWS      *regexp.Regexp
}

// New builds an Extractor with all patterns compiled.
func New() *Extractor {
	// Ordered from most to least specific; the first pattern whose capture
	// passes the sanity check wins.
	invoiceLabels := []string{
		`N°\s*Factura:\s*(\d{4,8})`,
		`No\.\s*Factura:\s*(\d{4,8})`,
		`Número\s*Factura:\s*(\d{4,8})`,
		`Núm\.\s*Factura:\s*(\d{4,8})`,
		`FACTURA\s*N°?\s*:?\s*(\d{4,8})`,
		`Factura\s*No\.\s*(\d{4,8})`,
		`Factura\s*#\s*(\d{4,8})`,
		`N°\s*(\d{4,8})`,
		`No\.\s*(\d{4,8})`,
		`Documento\s*N°\s*(\d{4,8})`,
		`(?:N°|No\.|Núm\.|#)\s*(\d{4,8})`,
	}

	patterns := make([]*regexp.Regexp, len(invoiceLabels))
	for i, p := range invoiceLabels {
		patterns[i] = regexp.MustCompile(`(?i)` + p)
	}

	return &Extractor{
		invoicePatterns: patterns,
		guideCode:       regexp.MustCompile(`[A-Z]{2}\d{9}[A-Z]{0,2}`),
		guideShape:      regexp.MustCompile(`^[A-Z]{2}\d{9}[A-Z]{0,2}$`),
		digitRun:        regexp.MustCompile(`\b(\d{4,8})\b`),
		contextScan:     regexp.MustCompile(`(?is)(?:factura|invoice|doc|documento).{0,50}?(\d{4,8})`),
		collapseWS:      regexp.MustCompile(`[ \t]+`),
	}
}

// ProcessInvoicePDF runs the full chain for one XML record: locate the
// associated PDF, extract its text, and pull the invoice number and guide
// codes. Any missing piece returns an error and the caller must fall back.
func (e *Extractor) ProcessInvoicePDF(xmlPath string) (*Extraction, error) {
	pdfPath, err := FindAssociatedPDF(xmlPath)
	if err != nil {
		return nil, err
	}

	text, pagesFailed, err := ExtractText(pdfPath)
	if err != nil {
		return nil, err
	}

	number := e.ExtractInvoiceNumber(text)
	if number == "" {
		return nil, fmt.Errorf("no invoice number found in %s", filepath.Base(pdfPath))
	}

	codes := e.ExtractGuideCodes(text)
	if len(codes) == 0 {
		return nil, fmt.Errorf("no guide codes found in %s", filepath.Base(pdfPath))
	}

	return &Extraction{
		InvoiceNumber: number,
		GuideCodes:    codes,
		Formatted:     fmt.Sprintf("(%s) SERVICIO EMS (ENVIO DE PAQUETES)/GUIA %s", number, strings.Join(codes, " - ")),
		PagesFailed:   pagesFailed,
	}, nil
}

// =============================================================================
// PDF LOCATION
// =============================================================================

// FindAssociatedPDF locates the PDF belonging to an XML file. Search order:
// exact stem match (case variants), then any PDF whose name contains the
// stem's prefix, then any PDF at all in the same folder.
func FindAssociatedPDF(xmlPath string) (string, error) {
	dir := filepath.Dir(xmlPath)
	stem := strings.TrimSuffix(filepath.Base(xmlPath), filepath.Ext(xmlPath))

	exact := []string{
		stem + ".pdf",
		stem + ".PDF",
		strings.ToLower(stem) + ".pdf",
		strings.ToUpper(stem) + ".pdf",
	}
	for _, name := range exact {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan %s for PDFs: %w", dir, err)
	}

	// Prefix heuristics: electronic invoice files often share a long numeric
	// prefix with their PDF twin but diverge after a dash.
	prefix := stem
	if idx := strings.Index(stem, "-"); idx > 0 {
		prefix = stem[:idx]
	} else if len(stem) > 10 {
		prefix = stem[:10]
	}
	prefix = strings.ToLower(prefix)

	var anyPDF string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if strings.Contains(strings.ToLower(name), prefix) {
			return filepath.Join(dir, name), nil
		}
		if anyPDF == "" {
			anyPDF = filepath.Join(dir, name)
		}
	}

	if anyPDF != "" {
		return anyPDF, nil
	}
	return "", fmt.Errorf("no associated PDF for %s", filepath.Base(xmlPath))
}

// =============================================================================
// TEXT EXTRACTION
// =============================================================================

// ExtractText pulls the plain text of every page. A page that yields no text
// is counted and skipped; the document only fails when no page yields any.
func ExtractText(pdfPath string) (string, int, error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF %s: %w", filepath.Base(pdfPath), err)
	}
	defer f.Close()

	var builder strings.Builder
	pagesFailed := 0
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pagesFailed++
			continue
		}

		text, err := page.GetPlainText(fonts)
		if err != nil || strings.TrimSpace(text) == "" {
			pagesFailed++
			continue
		}

		builder.WriteString(text)
		builder.WriteString("\n")
	}

	full := strings.TrimSpace(builder.String())
	if full == "" {
		return "", pagesFailed, fmt.Errorf("no extractable text in %s", filepath.Base(pdfPath))
	}
	return full, pagesFailed, nil
}

// =============================================================================
// FIELD EXTRACTION
// =============================================================================

// ExtractInvoiceNumber hunts the invoice number through the ordered label
// patterns, then the factura-line scan, then the context-window scan. Returns
// "" when nothing plausible is found.
func (e *Extractor) ExtractInvoiceNumber(text string) string {
	cleaned := e.cleanForSearch(text)

	for _, pattern := range e.invoicePatterns {
		for _, m := range pattern.FindAllStringSubmatch(cleaned, -1) {
			if validInvoiceNumber(m[1]) {
				return m[1]
			}
		}
	}

	return e.fallbackInvoiceSearch(cleaned)
}

// fallbackInvoiceSearch scans lines mentioning "factura" for digit runs, then
// widens to any 4-8 digit run within 50 characters of an invoice-ish word.
func (e *Extractor) fallbackInvoiceSearch(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "factura") {
			continue
		}
		for _, m := range e.digitRun.FindAllStringSubmatch(line, -1) {
			if validInvoiceNumber(m[1]) {
				return m[1]
			}
		}
	}

	for _, m := range e.contextScan.FindAllStringSubmatch(text, -1) {
		if validInvoiceNumber(m[1]) {
			return m[1]
		}
	}
	return ""
}

// ExtractGuideCodes collects every guide-shaped code in the text, validated
// and deduplicated preserving first-seen order.
func (e *Extractor) ExtractGuideCodes(text string) []string {
	seen := make(map[string]struct{})
	var codes []string

	for _, code := range e.guideCode.FindAllString(text, -1) {
		if !e.guideShape.MatchString(code) {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// cleanForSearch normalizes PDF text quirks that break label matching:
// non-breaking spaces, run-on whitespace, and the three spellings of the
// degree-sign ordinal.
func (e *Extractor) cleanForSearch(text string) string {
	cleaned := strings.ReplaceAll(text, "\u00a0", " ")
	cleaned = e.collapseWS.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, "º", "°")
	cleaned = strings.ReplaceAll(cleaned, "Nº", "N°")
	cleaned = strings.ReplaceAll(cleaned, "n°", "N°")
	return strings.TrimSpace(cleaned)
}

// validInvoiceNumber applies the sanity bounds: 4-8 digits, value between
// 1000 and 99,999,999.
func validInvoiceNumber(number string) bool {
	if len(number) < 4 || len(number) > 8 {
		return false
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return false
	}
	return n >= minInvoiceNumber && n <= maxInvoiceNumber
}
