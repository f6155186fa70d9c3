package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuildDynamic_NoZeroPadding(t *testing.T) {
	ref := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	got := BuildDynamic(filepath.Join("base", "3101263133"), ref)
	want := filepath.Join("base", "3101263133", "2025", "7")
	if got != want {
		t.Fatalf("BuildDynamic got=%q want=%q", got, want)
	}
}

func TestBuildDynamic_TwoDigitMonth(t *testing.T) {
	ref := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	got := BuildDynamic("base", ref)
	want := filepath.Join("base", "2025", "11")
	if got != want {
		t.Fatalf("BuildDynamic got=%q want=%q", got, want)
	}
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	ref := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	res := Resolve(base, ref)
	if res.Exists {
		t.Fatalf("expected missing folder, got Exists=true for %s", res.DynamicPath)
	}

	if err := os.MkdirAll(filepath.Join(base, "2025", "7"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	res = Resolve(base, ref)
	if !res.Exists {
		t.Fatalf("expected folder %s to resolve", res.DynamicPath)
	}
	if res.DynamicPath != filepath.Join(base, "2025", "7") {
		t.Fatalf("DynamicPath got=%q", res.DynamicPath)
	}
}

func TestResolve_FileIsNotAFolder(t *testing.T) {
	base := t.TempDir()
	ref := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)

	if err := os.MkdirAll(filepath.Join(base, "2025"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "2025", "7"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if res := Resolve(base, ref); res.Exists {
		t.Fatalf("expected plain file not to count as period folder")
	}
}
