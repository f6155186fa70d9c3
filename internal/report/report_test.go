package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/contaflow/reconciler/internal/engine"
	"github.com/contaflow/reconciler/internal/excel"
	"github.com/contaflow/reconciler/internal/xmlindex"
)

func sampleResult() *engine.Result {
	stats := &engine.ProcessingStats{
		RunID:                   "7b0c7a3e-0000-0000-0000-000000000000",
		StartTime:               time.Date(2025, time.July, 15, 9, 0, 0, 0, time.UTC),
		EndTime:                 time.Date(2025, time.July, 15, 9, 0, 42, 0, time.UTC),
		ReferenceMonth:          7,
		ReferenceYear:           2025,
		CompaniesProcessed:      2,
		CompaniesWithMatches:    1,
		CompaniesWithoutMatches: 1,
		TotalXMLCount:           10,
		TotalXMLIndexed:         8,
		TotalXMLExcludedByDate:  2,
		ExcelRowsTotal:          20,
		ExcelRowsInPeriod:       18,
		ExcelRowsExcludedByDate: 2,
		TotalMatches:            5,
		TotalManualReviews:      1,
		FilesCreated:            1,
		FreeTextSeen:            4,
		PlatesExtracted:         3,
		PlatesFailed:            1,
		ProcessingTime:          42 * time.Second,
		CompaniesNoMatches:      []string{"Nargallo del Este S.A."},
		ExcludedXML: []xmlindex.ExcludedRecord{
			{Company: "fruno", InvoiceNumber: "9001", ParsedDate: "2025-06-28"},
		},
		ExcludedExcelRows: []excel.ExcludedRow{
			{Filename: "cargador.xlsx", InvoiceNumber: "9002", ParsedDate: "28-06-2025"},
		},
		CompanyDetails: map[string]*engine.CompanyDetail{
			"fruno": {
				Name: "Ventas Fruno, S.A.", FolderExists: true,
				XMLIndexed: 8, XMLExcludedByDate: 2,
				Matches: 5, PlatesExtracted: 3,
			},
			"nargallo": {
				Name: "Nargallo del Este S.A.", FolderExists: false,
				DynamicPath: "/data/nargallo/2025/7",
			},
		},
	}

	return &engine.Result{
		Success: true,
		Stats:   stats,
		OutputFiles: []engine.OutputFile{{
			Source: "cargador.xlsx", Output: "/out/cargador_procesado_VentasFruno_20250715_090042.xlsx",
			CompanyName: "Ventas Fruno, S.A.", Matches: 5,
		}},
	}
}

func TestRender(t *testing.T) {
	text := Render(sampleResult())

	for _, want := range []string{
		"Periodo: 07/2025",
		"Matches exitosos: 5",
		"Revisiones manuales: 1",
		"Archivos creados: 1",
		"Estado: Completado",
		"Tiempo total: 42.0 seg",
		"Ventas Fruno, S.A.: 5 matches",
		"Nargallo del Este S.A.: sin carpeta 07/2025",
		"9001 (fruno) - 2025-06-28",
		"9002 (cargador.xlsx) - 28-06-2025",
		"Tasa de extraccion: 75.0%",
		"cargador_procesado_VentasFruno_20250715_090042.xlsx",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
}

func TestRender_StoppedStatus(t *testing.T) {
	res := sampleResult()
	res.Success = false
	res.StoppedByUser = true

	if text := Render(res); !strings.Contains(text, "Cancelado por el usuario") {
		t.Errorf("stopped run must report cancellation")
	}
}

func TestRender_ExcludedListCapped(t *testing.T) {
	res := sampleResult()
	res.Stats.ExcludedXML = nil
	for i := 0; i < 8; i++ {
		res.Stats.ExcludedXML = append(res.Stats.ExcludedXML, xmlindex.ExcludedRecord{
			Company: "fruno", InvoiceNumber: "9000", ParsedDate: "2025-06-01",
		})
	}

	text := Render(res)
	if !strings.Contains(text, "... y 3 mas") {
		t.Errorf("expected capped listing with remainder, got:\n%s", text)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, time.July, 15, 9, 0, 42, 0, time.UTC)

	path, err := WriteFile(dir, "contenido del reporte", now)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !strings.HasSuffix(path, "reporte_20250715_090042.txt") {
		t.Errorf("path got=%q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "contenido del reporte" {
		t.Errorf("content got=%q", data)
	}
}
