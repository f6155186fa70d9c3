// =============================================================================
// ContaFlow Reconciler - Run Report
// =============================================================================
//
// Renders the detailed plain-text report of a run. The text is what the
// accounting team reads: Spanish section titles, one bullet per counter,
// sample listings capped so a noisy month does not produce a hundred-line
// report. Rendering to PDF or mailing the report is handled downstream.
//
// =============================================================================

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/contaflow/reconciler/internal/engine"
)

// maxExamples caps how many excluded entries are listed per section.
const maxExamples = 5

// Render produces the detailed report for a finished run.
func Render(res *engine.Result) string {
	s := res.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "REPORTE DETALLADO DE PROCESAMIENTO EMPRESARIAL\n")
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	fmt.Fprintf(&b, "Periodo: %02d/%d\n", s.ReferenceMonth, s.ReferenceYear)
	fmt.Fprintf(&b, "Inicio: %s\n\n", s.StartTime.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "EMPRESAS:\n")
	fmt.Fprintf(&b, "- Configuradas: %d\n", s.CompaniesProcessed)
	fmt.Fprintf(&b, "- Omitidas (sin carpeta o sin facturas): %d\n", s.CompaniesSkipped)
	fmt.Fprintf(&b, "- Con matches: %d\n", s.CompaniesWithMatches)
	fmt.Fprintf(&b, "- Sin matches: %d\n\n", s.CompaniesWithoutMatches)

	fmt.Fprintf(&b, "FILTRADO XML POR FECHA (periodo %02d/%d):\n", s.ReferenceMonth, s.ReferenceYear)
	fmt.Fprintf(&b, "- XML encontrados: %d\n", s.TotalXMLCount)
	fmt.Fprintf(&b, "- XML del periodo: %d\n", s.TotalXMLIndexed)
	fmt.Fprintf(&b, "- XML excluidos por fecha: %d\n", s.TotalXMLExcludedByDate)
	fmt.Fprintf(&b, "- XML con errores: %d\n", s.TotalXMLParseErrors)
	if s.DuplicateInvoices > 0 {
		fmt.Fprintf(&b, "- Facturas duplicadas: %d\n", s.DuplicateInvoices)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "FILTRADO EXCEL POR FECHA:\n")
	fmt.Fprintf(&b, "- Filas encontradas: %d\n", s.ExcelRowsTotal)
	fmt.Fprintf(&b, "- Filas del periodo: %d\n", s.ExcelRowsInPeriod)
	fmt.Fprintf(&b, "- Filas excluidas por fecha: %d\n\n", s.ExcelRowsExcludedByDate)

	fmt.Fprintf(&b, "RESULTADOS:\n")
	fmt.Fprintf(&b, "- Matches exitosos: %d\n", s.TotalMatches)
	fmt.Fprintf(&b, "- Revisiones manuales: %d\n", s.TotalManualReviews)
	fmt.Fprintf(&b, "- Archivos creados: %d\n", s.FilesCreated)
	if s.FilesDeleted > 0 {
		fmt.Fprintf(&b, "- Archivos fuente eliminados: %d\n", s.FilesDeleted)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "RENDIMIENTO:\n")
	fmt.Fprintf(&b, "- Tiempo total: %s\n", formatDuration(s.ProcessingTime))
	fmt.Fprintf(&b, "- Estado: %s\n", status(res))

	if len(s.CompanyDetails) > 0 {
		b.WriteString("\nDETALLES POR EMPRESA:\n")
		for _, detail := range orderedDetails(s) {
			mark := "sin matches"
			if detail.Matches > 0 {
				mark = fmt.Sprintf("%d matches", detail.Matches)
			}
			if !detail.FolderExists {
				fmt.Fprintf(&b, "- %s: sin carpeta %02d/%d (%s)\n",
					detail.Name, s.ReferenceMonth, s.ReferenceYear, detail.DynamicPath)
				continue
			}
			var extras []string
			if detail.VendorPDFsProcessed > 0 {
				extras = append(extras, fmt.Sprintf("%d PDFs de Correos", detail.VendorPDFsProcessed))
			}
			if detail.PlatesExtracted > 0 {
				extras = append(extras, fmt.Sprintf("%d placas", detail.PlatesExtracted))
			}
			if detail.ExclusionListHits > 0 {
				extras = append(extras, fmt.Sprintf("%d exclusiones", detail.ExclusionListHits))
			}
			extraText := ""
			if len(extras) > 0 {
				extraText = ", " + strings.Join(extras, ", ")
			}
			fmt.Fprintf(&b, "- %s: %s (%d XMLs del periodo, %d excluidos%s)\n",
				detail.Name, mark, detail.XMLIndexed, detail.XMLExcludedByDate, extraText)
		}
	}

	if len(s.CompaniesNoMatches) > 0 {
		b.WriteString("\nEMPRESAS SIN MATCHES:\n")
		for _, name := range s.CompaniesNoMatches {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	if n := len(s.ExcludedXML); n > 0 {
		fmt.Fprintf(&b, "\nXML EXCLUIDOS POR FECHA (%d en total):\n", n)
		for i, ex := range s.ExcludedXML {
			if i == maxExamples {
				fmt.Fprintf(&b, "- ... y %d mas\n", n-maxExamples)
				break
			}
			fmt.Fprintf(&b, "- %s (%s) - %s\n", ex.InvoiceNumber, ex.Company, ex.ParsedDate)
		}
	}

	if n := len(s.ExcludedExcelRows); n > 0 {
		fmt.Fprintf(&b, "\nFILAS EXCEL EXCLUIDAS POR FECHA (%d en total):\n", n)
		for i, ex := range s.ExcludedExcelRows {
			if i == maxExamples {
				fmt.Fprintf(&b, "- ... y %d mas\n", n-maxExamples)
				break
			}
			fmt.Fprintf(&b, "- %s (%s) - %s\n", ex.InvoiceNumber, ex.Filename, ex.ParsedDate)
		}
	}

	if s.VendorPDFsProcessed+s.VendorPDFsFailed > 0 {
		b.WriteString("\nPROCESAMIENTO DE CORREOS:\n")
		fmt.Fprintf(&b, "- PDFs procesados exitosamente: %d\n", s.VendorPDFsProcessed)
		fmt.Fprintf(&b, "- PDFs con errores: %d\n", s.VendorPDFsFailed)
		fmt.Fprintf(&b, "- Tasa de exito: %.1f%%\n", s.VendorPDFSuccessRate())
	}

	if s.FreeTextSeen > 0 {
		b.WriteString("\nEXTRACCION DE PLACAS:\n")
		fmt.Fprintf(&b, "- Campos de texto procesados: %d\n", s.FreeTextSeen)
		fmt.Fprintf(&b, "- Placas extraidas: %d\n", s.PlatesExtracted)
		fmt.Fprintf(&b, "- Extracciones fallidas: %d\n", s.PlatesFailed)
		fmt.Fprintf(&b, "- Fallback a detalle: %d\n", s.FallbackToDetail)
		fmt.Fprintf(&b, "- Tasa de extraccion: %.1f%%\n", s.PlateExtractionRate())
	}

	if len(res.OutputFiles) > 0 {
		b.WriteString("\nARCHIVOS GENERADOS:\n")
		for _, out := range res.OutputFiles {
			fmt.Fprintf(&b, "- %s (%s, %d matches)\n", filepath.Base(out.Output), out.CompanyName, out.Matches)
		}
	}

	return b.String()
}

// WriteFile writes the report next to the run outputs as
// "reporte_<timestamp>.txt" and returns its path.
func WriteFile(outputDir, text string, now time.Time) (string, error) {
	path := filepath.Join(outputDir, fmt.Sprintf("reporte_%s.txt", now.Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// orderedDetails returns company details sorted by name so the report is
// stable run to run.
func orderedDetails(s *engine.ProcessingStats) []*engine.CompanyDetail {
	details := make([]*engine.CompanyDetail, 0, len(s.CompanyDetails))
	for _, d := range s.CompanyDetails {
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Name < details[j].Name })
	return details
}

func status(res *engine.Result) string {
	switch {
	case res.StoppedByUser:
		return "Cancelado por el usuario"
	case res.Err != nil:
		return fmt.Sprintf("Error: %v", res.Err)
	default:
		return "Completado"
	}
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%.1f min", d.Minutes())
	}
	return fmt.Sprintf("%.1f seg", d.Seconds())
}
