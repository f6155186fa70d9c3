// =============================================================================
// ContaFlow Reconciler - Date Filter
// =============================================================================
//
// This module classifies record dates against the current processing period.
// Two sources feed it, each with its own literal layout:
//   - XML issue dates:  "2025-07-01T10:19:14-06:00" (only the date part matters)
//   - Excel document dates: "27-06-2024" or "27/06/2024"
//
// Parsing failures are reported as (zero, false), never as errors: the policy
// on unreadable dates is decided by the caller (include-with-warning for Excel
// rows and undated XMLs, error-skip for malformed XML dates).
//
// =============================================================================

package dates

import (
	"strings"
	"time"
)

const (
	xmlDateLayout     = "2006-01-02"
	excelDashLayout   = "02-01-2006"
	excelSlashLayout  = "02/01/2006"
	excelFieldLength  = 10
)

// ParseXMLDate parses an issue date from an invoice XML. The field usually
// carries a full ISO timestamp with offset; only the date part is significant,
// so everything from 'T' on is discarded before parsing.
func ParseXMLDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if idx := strings.Index(value, "T"); idx >= 0 {
		value = value[:idx]
	}
	if len(value) > len(xmlDateLayout) {
		value = value[:len(xmlDateLayout)]
	}

	t, err := time.Parse(xmlDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseExcelDate parses a document date from an Excel cell. The source system
// emits exactly ten characters, either dash or slash separated; anything else
// is rejected rather than guessed at.
func ParseExcelDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) != excelFieldLength {
		return time.Time{}, false
	}

	var layout string
	switch {
	case strings.Count(value, "-") == 2:
		layout = excelDashLayout
	case strings.Count(value, "/") == 2:
		layout = excelSlashLayout
	default:
		return time.Time{}, false
	}

	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Period is a calendar month within a year. It is captured once at the start
// of a reconciliation run so a run straddling a month boundary stays
// consistent.
type Period struct {
	Month time.Month
	Year  int
}

// PeriodOf returns the period the reference time falls in.
func PeriodOf(ref time.Time) Period {
	return Period{Month: ref.Month(), Year: ref.Year()}
}

// Contains reports whether t falls inside the period (month and year both
// equal).
func (p Period) Contains(t time.Time) bool {
	return t.Month() == p.Month && t.Year() == p.Year
}
