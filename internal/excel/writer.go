// =============================================================================
// ContaFlow Reconciler - Output Workbook Writer
// =============================================================================

package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const outputSheet = "Sheet1"

// maxColumnWidth caps the auto-fit column width.
const maxColumnWidth = 50

// OutputFileName builds the output workbook name for one source file and
// company: "<base>_procesado_<company>_<timestamp>.xlsx". The base is the
// source filename up to its first dot.
func OutputFileName(sourceFilename, companyFileName string, now time.Time) string {
	base := strings.SplitN(sourceFilename, ".", 2)[0]
	return fmt.Sprintf("%s_procesado_%s_%s.xlsx", base, companyFileName, now.Format("20060102_150405"))
}

// WriteWorkbook writes the matched records to path as a styled workbook:
// the 17 source columns with the resolved detail in the "Aplicación" column,
// plus the company's commercial activity as an 18th column. Manual-review
// cells are flagged white-on-red.
func WriteWorkbook(path string, records []OutputRecord, commercialActivity string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	reviewStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FF0000"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create review style: %w", err)
	}

	widths := make([]int, len(Headers))

	for col, header := range Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(outputSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", header, err)
		}
		f.SetCellStyle(outputSheet, cell, cell, headerStyle)
		widths[col] = len([]rune(header))
	}

	for i, rec := range records {
		rowNum := i + 2
		for col := 0; col < ColumnCount; col++ {
			value := rec.Row[col]
			if col == detailColumn {
				value = rec.Detail
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(outputSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rowNum, err)
			}
			if col == detailColumn && rec.ManualReview {
				f.SetCellStyle(outputSheet, cell, cell, reviewStyle)
			}
			if n := len([]rune(value)); n > widths[col] {
				widths[col] = n
			}
		}

		cell, _ := excelize.CoordinatesToCellName(ColumnCount+1, rowNum)
		if err := f.SetCellValue(outputSheet, cell, commercialActivity); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		if n := len([]rune(commercialActivity)); n > widths[ColumnCount] {
			widths[ColumnCount] = n
		}
	}

	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		w := float64(width + 2)
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		f.SetColWidth(outputSheet, name, name, w)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
