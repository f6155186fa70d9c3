// =============================================================================
// ContaFlow Reconciler - Invoice XML Records
// =============================================================================
//
// Electronic invoice XMLs arrive with varying namespaces and schema versions,
// so fields are located by local-name substring rather than by full path:
// the consecutive number, issue date, emitter name, free-text field and
// detail lines are wherever a tag containing the expected name happens to be.
//
// =============================================================================

package xmlindex

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is one parsed invoice XML. It is created during indexing, never
// mutated, and discarded once folded into the company index.
type Record struct {
	// InvoiceNumber is the consecutive number, the matching key.
	InvoiceNumber string

	// RawIssueDate is the issue-date field text, empty when the field is
	// structurally absent.
	RawIssueDate string

	// EmitterName feeds the combustible-exclusion and special-vendor checks.
	EmitterName string

	// FreeText is the "OtroTexto" field, candidate for plate extraction.
	FreeText string

	// DetailLines are the raw detail texts, the fallback content.
	DetailLines []string

	// Path is the source file, needed for associated-PDF lookup.
	Path string
}

// IsSpecialVendor reports whether the record's emitter exactly matches the
// designated special vendor name.
func (r *Record) IsSpecialVendor(vendorName string) bool {
	return vendorName != "" && r.EmitterName == vendorName
}

// ParseFile reads and parses one invoice XML.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XML: %w", err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	rec := &Record{
		Path:          path,
		InvoiceNumber: firstText(doc, "//*[contains(local-name(), 'NumeroConsecutivo')]"),
		RawIssueDate:  firstText(doc, "//*[contains(local-name(), 'FechaEmision')]"),
		FreeText:      firstText(doc, "//*[contains(local-name(), 'OtroTexto')]"),
		EmitterName:   emitterName(doc),
	}

	// Only a node's own text counts: container elements like DetalleServicio
	// and LineaDetalle hold no direct text and contribute nothing, leaf
	// Detalle elements carry the lines.
	for _, node := range xmlquery.Find(doc, "//*[contains(local-name(), 'Detalle')]") {
		if text := strings.TrimSpace(directText(node)); text != "" {
			rec.DetailLines = append(rec.DetailLines, text)
		}
	}

	return rec, nil
}

// emitterName locates the emitter: a direct NombreEmisor element, or a
// Nombre/NombreEmisor child under the Emisor element.
func emitterName(doc *xmlquery.Node) string {
	if name := firstText(doc, "//*[local-name()='NombreEmisor']"); name != "" {
		return name
	}
	return firstText(doc, "//*[local-name()='Emisor']//*[local-name()='Nombre' or local-name()='NombreEmisor']")
}

// directText returns the text immediately inside a node, excluding text of
// nested elements.
func directText(node *xmlquery.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.TextNode || child.Type == xmlquery.CharDataNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}

func firstText(doc *xmlquery.Node, xpath string) string {
	if node := xmlquery.FindOne(doc, xpath); node != nil {
		return strings.TrimSpace(node.InnerText())
	}
	return ""
}

// NormalizeEmitter folds an emitter name for exclusion-set comparison:
// NFD-decompose, strip combining marks, trim, lowercase. "PETRÓLEOS  S.A."
// and "petroleos  s.a." land on the same key.
func NormalizeEmitter(name string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
