package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/contaflow/reconciler/internal/config"
	"github.com/contaflow/reconciler/internal/logging"
)

// refTime pins every engine test to one period.
var refTime = time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC)

const invoiceTemplate = `<?xml version="1.0" encoding="utf-8"?>
<FacturaElectronica xmlns="https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.3/facturaElectronica">
  <NumeroConsecutivo>%s</NumeroConsecutivo>
  <FechaEmision>%s</FechaEmision>
  <Emisor>
    <Nombre>%s</Nombre>
  </Emisor>
  <DetalleServicio>
    <LineaDetalle>
      <Detalle>%s</Detalle>
    </LineaDetalle>
  </DetalleServicio>
  <OtrosCargos>
    <OtroTexto>%s</OtroTexto>
  </OtrosCargos>
</FacturaElectronica>`

// newTestEnv builds a full on-disk fixture: a company XML archive with the
// period folder, an input directory with one source workbook, and the
// matching configuration.
func newTestEnv(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()

	base := filepath.Join(root, "archive", "fruno")
	periodDir := filepath.Join(base, "2025", "7")
	if err := os.MkdirAll(periodDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writeXML(t, filepath.Join(periodDir, "f1.xml"),
		"12345", "2025-07-01T10:19:14-06:00", "Gasolinera Central S.A.",
		"COMBUSTIBLE SUPER", "Placa:BJX 894 KM 9509")
	writeXML(t, filepath.Join(periodDir, "f2.xml"),
		"77777", "2025-06-20T10:00:00-06:00", "Proveedor Viejo", "linea vieja", "")

	inputDir := filepath.Join(root, "input")
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sourcePath := filepath.Join(inputDir, "cargador_julio.xlsx")
	writeSource(t, sourcePath, [][]string{
		{"Proveedor X", "12345", "FAC", "10-07-2025"}, // matches f1
		{"Proveedor Y", "55555", "FAC", "10-07-2025"}, // no XML counterpart
		{"Proveedor Z", "12345", "FAC", "10-05-2025"}, // out of period
	})

	cfg := &config.Config{
		InputDir:          inputDir,
		OutputDir:         filepath.Join(root, "output"),
		ExcelFilePrefix:   "cargador",
		ManualReviewLimit: 3,
		SpecialVendorName: "Correos de Costa Rica SA",
		Companies: []config.Company{{
			Key:                "fruno",
			Name:               "Ventas Fruno, S.A.",
			FileName:           "VentasFruno",
			BaseFolder:         base,
			CommercialActivity: "Comercio al por mayor",
		}},
	}
	return cfg, sourcePath
}

func writeXML(t *testing.T, path, number, date, emitter, detail, freeText string) {
	t.Helper()
	content := fmt.Sprintf(invoiceTemplate, number, date, emitter, detail, freeText)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeSource(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Proveedor", "Numero", "Tipo de Documento", "Fecha Documento"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, h)
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue("Sheet1", cell, value)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func newTestEngine(cfg *config.Config) *Engine {
	eng := New(cfg, logging.NopSink{})
	eng.now = func() time.Time { return refTime }
	return eng
}

func TestRun_EndToEnd(t *testing.T) {
	cfg, sourcePath := newTestEnv(t)
	res := newTestEngine(cfg).Run()

	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.OutputFiles) != 1 {
		t.Fatalf("OutputFiles got=%d want=1", len(res.OutputFiles))
	}

	out := res.OutputFiles[0]
	if out.CompanyKey != "fruno" || out.Matches != 1 || out.ManualReviews != 0 {
		t.Errorf("output got=%+v", out)
	}

	stats := res.Stats
	if stats.TotalMatches != 1 {
		t.Errorf("TotalMatches got=%d want=1", stats.TotalMatches)
	}
	if stats.TotalXMLIndexed != 1 {
		t.Errorf("TotalXMLIndexed got=%d want=1", stats.TotalXMLIndexed)
	}
	if stats.TotalXMLExcludedByDate != 1 {
		t.Errorf("TotalXMLExcludedByDate got=%d want=1", stats.TotalXMLExcludedByDate)
	}
	if stats.ExcelRowsExcludedByDate != 1 {
		t.Errorf("ExcelRowsExcludedByDate got=%d want=1", stats.ExcelRowsExcludedByDate)
	}
	if stats.PlatesExtracted != 1 {
		t.Errorf("PlatesExtracted got=%d want=1", stats.PlatesExtracted)
	}
	if stats.FilesCreated != 1 {
		t.Errorf("FilesCreated got=%d want=1", stats.FilesCreated)
	}

	// The plate lands in the Aplicación column of the output workbook.
	f, err := excelize.OpenFile(out.Output)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue("Sheet1", "F2"); got != "Combustible / Placa: BJX 894" {
		t.Errorf("F2 got=%q", got)
	}
	if got, _ := f.GetCellValue("Sheet1", "R2"); got != "Comercio al por mayor" {
		t.Errorf("R2 got=%q", got)
	}

	// The source file is kept unless delete_originals is on.
	if _, err := os.Stat(sourcePath); err != nil {
		t.Errorf("source file must survive: %v", err)
	}
}

func TestRun_DeleteOriginals(t *testing.T) {
	cfg, sourcePath := newTestEnv(t)
	cfg.DeleteOriginals = true

	res := newTestEngine(cfg).Run()
	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}
	if _, err := os.Stat(sourcePath); !os.IsNotExist(err) {
		t.Fatalf("source file must be deleted after producing outputs")
	}
	if res.Stats.FilesDeleted != 1 {
		t.Errorf("FilesDeleted got=%d want=1", res.Stats.FilesDeleted)
	}
}

func TestRun_MissingPeriodFolderSkipsCompany(t *testing.T) {
	cfg, _ := newTestEnv(t)

	// Point the company at an archive without the period folder.
	empty := filepath.Join(t.TempDir(), "empty-archive")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg.Companies[0].BaseFolder = empty

	res := newTestEngine(cfg).Run()
	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}
	if len(res.OutputFiles) != 0 {
		t.Fatalf("no outputs expected, got %d", len(res.OutputFiles))
	}
	if res.Stats.CompaniesSkipped != 1 {
		t.Errorf("CompaniesSkipped got=%d want=1", res.Stats.CompaniesSkipped)
	}
	detail := res.Stats.CompanyDetails["fruno"]
	if detail == nil || detail.FolderExists {
		t.Errorf("company detail must record the missing folder, got=%+v", detail)
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	cfg, _ := newTestEnv(t)
	cfg.InputDir = filepath.Join(cfg.InputDir, "does-not-exist")

	res := newTestEngine(cfg).Run()
	if res.Err == nil {
		t.Fatalf("expected validation error")
	}
	if res.Success {
		t.Fatalf("failed run must not be successful")
	}
}

func TestRun_StopBeforeWork(t *testing.T) {
	cfg, _ := newTestEnv(t)
	eng := newTestEngine(cfg)
	eng.Stop()

	res := eng.Run()
	if !res.StoppedByUser {
		t.Fatalf("expected StoppedByUser")
	}
	if res.Success {
		t.Fatalf("stopped run must not be successful")
	}
	if len(res.OutputFiles) != 0 {
		t.Fatalf("stopped run must produce no outputs, got %d", len(res.OutputFiles))
	}
}
