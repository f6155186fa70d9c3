// =============================================================================
// ContaFlow Reconciler - Plate Code Extraction
// =============================================================================
//
// Fuel invoices carry a free-text field that usually names the vehicle plate
// somewhere between pump metadata ("Factura Contado:706916 ... Placa:m914559
// Kilometraje:20,169 ..."). This module pulls the plate code out of that text.
//
// Matching is an ordered chain, first success wins:
//   1. M-series plates: 'M'/'m' + optional space + 6 digits (m914559, M 782308)
//   2. CL-series plates: "CL" + 6 digits (CL435475)
//   3. Generic plates: 2-3 letters + 3-4 digits, 6 bare digits, or 3 letters +
//      3 digits (BJX 894, 123456, BJM-653), with kilometer markers excluded.
//
// The search runs twice: first inside a 50-character window after a plate
// label ("placa:", "placa=", "pl:"), then over the whole text. A candidate
// that itself reads as a kilometer code ("KM 9962") is discarded.
//
// Texts that carry only a kilometer reading and no plate at all yield the
// sentinel "Combustible / Placa: ?": fuel-related but unreadable, which is a
// different answer than "not fuel-related" (no match).
//
// =============================================================================

package plates

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Formatted output prefix shared by real plates and the unknown-plate
// sentinel.
const combustiblePrefix = "Combustible / Placa:"

// UnknownPlate is returned for kilometer-only texts.
const UnknownPlate = combustiblePrefix + " ?"

// labelWindow is how far past a plate label the pattern search looks.
const labelWindow = 50

// Extractor holds the compiled pattern chain. Build one per run and pass it
// explicitly; it is stateless and safe for reuse.
type Extractor struct {
	mSeries  *regexp.Regexp
	clSeries *regexp.Regexp
	generic  *regexp.Regexp

	labels []*regexp.Regexp

	kmMarker *regexp.Regexp
	kmCode   *regexp.Regexp
	kmPrefix *regexp.Regexp

	collapseWS  *regexp.Regexp
	nonPlate    *regexp.Regexp
	punctuation *regexp.Regexp
}

// New builds an Extractor with the full pattern chain compiled.
func New() *Extractor {
	return &Extractor{
		mSeries:  regexp.MustCompile(`(?i)m\s?\d{6}`),
		clSeries: regexp.MustCompile(`(?i)cl\d{6}`),
		generic:  regexp.MustCompile(`(?i)[a-z]{2,3}[\s\-]?\d{3,4}|\d{6}|[a-z]{3}\d{3}`),

		// Label order matters: explicit "placa" labels outrank the short
		// "pl:" form.
		labels: []*regexp.Regexp{
			regexp.MustCompile(`(?i)placa\s*:`),
			regexp.MustCompile(`(?i)placa\s*=`),
			regexp.MustCompile(`(?i)pl\s*:`),
		},

		kmMarker: regexp.MustCompile(`(?i)km[\s:]*\d+`),
		kmCode:   regexp.MustCompile(`(?i)^km\s?\d+$`),
		kmPrefix: regexp.MustCompile(`(?i)^km[\s\-]`),

		collapseWS:  regexp.MustCompile(`\s+`),
		nonPlate:    regexp.MustCompile(`[^\w\s\-]`),
		punctuation: regexp.MustCompile(`[:\s\-_.,;]+`),
	}
}

// Process extracts and formats a plate code from free text. The second return
// is false when the text is neither a readable plate nor a kilometer-only
// record, in which case the caller falls back to the raw detail lines.
func (e *Extractor) Process(freeText string) (string, bool) {
	if code := e.ExtractCode(freeText); code != "" {
		return fmt.Sprintf("%s %s", combustiblePrefix, code), true
	}
	if e.isOnlyKilometers(freeText) {
		return UnknownPlate, true
	}
	return "", false
}

// ExtractCode returns the cleaned plate code, or "" when none is found.
func (e *Extractor) ExtractCode(freeText string) string {
	text := strings.TrimSpace(freeText)
	if text == "" {
		return ""
	}

	if code := e.findAfterLabels(text); code != "" && !e.isKilometerCode(code) {
		return e.clean(code)
	}
	if code := e.findPatterns(text); code != "" && !e.isKilometerCode(code) {
		return e.clean(code)
	}
	return ""
}

// findAfterLabels scans the window following each recognized plate label. A
// label whose window holds no pattern does not stop the search; later labels
// still get their turn.
func (e *Extractor) findAfterLabels(text string) string {
	for _, label := range e.labels {
		loc := label.FindStringIndex(text)
		if loc == nil {
			continue
		}

		window := []rune(text[loc[1]:])
		if len(window) > labelWindow {
			window = window[:labelWindow]
		}

		if code := e.findPatterns(string(window)); code != "" {
			return code
		}
	}
	return ""
}

// findPatterns runs the ordered pattern chain over the text.
func (e *Extractor) findPatterns(text string) string {
	if code := e.mSeries.FindString(text); code != "" {
		return code
	}
	if code := e.clSeries.FindString(text); code != "" {
		return code
	}
	return e.searchGeneric(text)
}

// searchGeneric finds the first generic-pattern candidate that does not start
// at a kilometer marker. Rejecting a candidate resumes the search one rune
// past its start, so digits trailing a "KM " prefix are still reachable,
// the same result a lookahead-based engine produces.
func (e *Extractor) searchGeneric(text string) string {
	offset := 0
	for offset < len(text) {
		loc := e.generic.FindStringIndex(text[offset:])
		if loc == nil {
			return ""
		}

		start := offset + loc[0]
		match := text[start : offset+loc[1]]
		if !e.kmPrefix.MatchString(match) {
			return match
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return ""
}

// isKilometerCode reports whether an extracted candidate is really a
// kilometer reading ("KM 9962").
func (e *Extractor) isKilometerCode(code string) bool {
	return e.kmCode.MatchString(strings.TrimSpace(code))
}

// isOnlyKilometers reports whether the text consists of kilometer information
// and nothing meaningful besides it. Texts with a plate label present are
// never "only kilometers"; the label promises a plate, even an unreadable
// one goes through the normal chain.
func (e *Extractor) isOnlyKilometers(freeText string) bool {
	text := strings.TrimSpace(freeText)
	if text == "" {
		return false
	}

	if !e.kmMarker.MatchString(text) {
		return false
	}
	for _, label := range e.labels {
		if label.MatchString(text) {
			return false
		}
	}

	remainder := e.kmMarker.ReplaceAllString(text, "")
	remainder = e.punctuation.ReplaceAllString(remainder, "")
	return utf8.RuneCountInString(strings.TrimSpace(remainder)) < 5
}

// clean normalizes an extracted code: collapse whitespace, drop anything that
// is not word/space/hyphen, uppercase.
func (e *Extractor) clean(code string) string {
	cleaned := strings.TrimSpace(code)
	cleaned = e.collapseWS.ReplaceAllString(cleaned, " ")
	cleaned = e.nonPlate.ReplaceAllString(cleaned, "")
	return strings.ToUpper(cleaned)
}
