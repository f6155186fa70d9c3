package pdfextract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractInvoiceNumber(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"degree label", "CORREOS DE COSTA RICA\nN° Factura: 345520\nCliente", "345520"},
		{"dotted label", "No. Factura: 98765", "98765"},
		{"hash label", "Factura # 4521", "4521"},
		{"ordinal spelled with masculine ordinal", "Nº Factura: 345520", "345520"},
		{"uppercase factura", "FACTURA N° 771234", "771234"},
		{"factura line fallback", "detalle factura del periodo 345520 servicios", "345520"},
		{"context window fallback", "Documento generado\ninvoice ref 8899123", "8899123"},
		{"too small rejected", "N° Factura: 0999", ""},
		{"too short rejected", "N° Factura: 123", ""},
		{"nothing", "sin datos relevantes", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ExtractInvoiceNumber(tt.text); got != tt.want {
				t.Fatalf("ExtractInvoiceNumber(%q) got=%q want=%q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractGuideCodes(t *testing.T) {
	e := New()

	text := "GUIA NE084204615CR envio 1\nGUIA NE084204616CR envio 2\nrepetida NE084204615CR"
	got := e.ExtractGuideCodes(text)

	want := []string{"NE084204615CR", "NE084204616CR"}
	if len(got) != len(want) {
		t.Fatalf("ExtractGuideCodes got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExtractGuideCodes[%d] got=%q want=%q", i, got[i], want[i])
		}
	}
}

func TestExtractGuideCodes_NoCodes(t *testing.T) {
	e := New()
	if got := e.ExtractGuideCodes("factura sin guias 345520"); len(got) != 0 {
		t.Fatalf("expected no guide codes, got %v", got)
	}
}

func TestValidInvoiceNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"1000", true},
		{"345520", true},
		{"99999999", true},
		{"0999", false},
		{"999", false},
		{"123456789", false},
	}

	for _, tt := range tests {
		if got := validInvoiceNumber(tt.number); got != tt.want {
			t.Errorf("validInvoiceNumber(%q) got=%v want=%v", tt.number, got, tt.want)
		}
	}
}

func TestFindAssociatedPDF(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "50607250100310126313300100001010000345520.xml")
	touch(t, xmlPath)

	// No PDFs at all.
	if _, err := FindAssociatedPDF(xmlPath); err == nil {
		t.Fatalf("expected error with no PDFs present")
	}

	// An unrelated PDF is the last resort.
	other := filepath.Join(dir, "nota.pdf")
	touch(t, other)
	got, err := FindAssociatedPDF(xmlPath)
	if err != nil {
		t.Fatalf("FindAssociatedPDF: %v", err)
	}
	if got != other {
		t.Fatalf("fallback got=%q want=%q", got, other)
	}

	// A PDF sharing the numeric prefix beats the unrelated one.
	prefixed := filepath.Join(dir, "5060725010-factura.pdf")
	touch(t, prefixed)
	got, err = FindAssociatedPDF(xmlPath)
	if err != nil {
		t.Fatalf("FindAssociatedPDF: %v", err)
	}
	if got != prefixed {
		t.Fatalf("prefix match got=%q want=%q", got, prefixed)
	}

	// An exact-stem PDF beats everything.
	exact := filepath.Join(dir, "50607250100310126313300100001010000345520.pdf")
	touch(t, exact)
	got, err = FindAssociatedPDF(xmlPath)
	if err != nil {
		t.Fatalf("FindAssociatedPDF: %v", err)
	}
	if got != exact {
		t.Fatalf("exact match got=%q want=%q", got, exact)
	}
}

func TestCleanForSearch(t *testing.T) {
	e := New()
	got := e.cleanForSearch("Nº Factura:   345520")
	want := "N° Factura: 345520"
	if got != want {
		t.Fatalf("cleanForSearch got=%q want=%q", got, want)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
