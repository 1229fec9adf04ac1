package grapher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeExport(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("<svg/>"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestExportKeyWithoutQuery(t *testing.T) {
	key, err := ExportKey("https://ourworldindata.org/grapher/life-expectancy")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if key != "life-expectancy" {
		t.Errorf("key = %q, want final path segment", key)
	}

	// Trailing slash does not change the segment.
	key2, err := ExportKey("https://ourworldindata.org/grapher/life-expectancy/")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if key2 != key {
		t.Errorf("trailing slash changed key: %q vs %q", key2, key)
	}
}

func TestExportKeyHashesQueryString(t *testing.T) {
	url := "https://ourworldindata.org/grapher/life-expectancy?tab=map&year=1950"
	key1, err := ExportKey(url)
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if !strings.HasPrefix(key1, "life-expectancy-") {
		t.Errorf("key = %q, want slug prefix plus hash", key1)
	}

	// Deterministic across calls.
	key2, _ := ExportKey(url)
	if key1 != key2 {
		t.Errorf("same url derived different keys: %q vs %q", key1, key2)
	}

	// The hash is order-sensitive: reordered queries derive distinct
	// keys. This is expected, not a bug.
	reordered, _ := ExportKey("https://ourworldindata.org/grapher/life-expectancy?year=1950&tab=map")
	if reordered == key1 {
		t.Error("reordered query string should derive a different key")
	}
}

func TestExportKeyRejectsEmptyPath(t *testing.T) {
	if _, err := ExportKey("https://ourworldindata.org"); err == nil {
		t.Error("expected error for url with no path segment")
	}
}

func TestExportIndexKeepsMaxVersion(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "chart_v1_500x300.svg")
	writeExport(t, dir, "chart_v3_850x600.svg")
	writeExport(t, dir, "chart_v2_850x600.svg")

	index, err := BuildExportIndex(dir, discardLogger())
	if err != nil {
		t.Fatalf("BuildExportIndex: %v", err)
	}
	meta, ok := index.Get("https://ourworldindata.org/grapher/chart")
	if !ok {
		t.Fatal("expected export for key \"chart\"")
	}
	if meta.Version != 3 {
		t.Errorf("Version = %d, want 3 (highest wins)", meta.Version)
	}
	if meta.Width != 850 || meta.Height != 600 {
		t.Errorf("dimensions = %dx%d, want 850x600", meta.Width, meta.Height)
	}
	if meta.Filename != "chart_v3_850x600.svg" {
		t.Errorf("Filename = %q", meta.Filename)
	}
}

func TestExportIndexSkipsMalformedNames(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "chart_v2_500x300.svg")
	writeExport(t, dir, "not-an-export.svg")
	writeExport(t, dir, "chart_vX_500x300.svg")

	index, err := BuildExportIndex(dir, discardLogger())
	if err != nil {
		t.Fatalf("BuildExportIndex: %v", err)
	}
	if _, ok := index.Get("https://ourworldindata.org/grapher/chart"); !ok {
		t.Error("well-formed export should survive malformed neighbors")
	}
	if _, ok := index.Get("https://ourworldindata.org/grapher/not-an-export"); ok {
		t.Error("malformed filename should not be indexed")
	}
}

func TestExportIndexAbsentKey(t *testing.T) {
	index, err := BuildExportIndex(t.TempDir(), discardLogger())
	if err != nil {
		t.Fatalf("BuildExportIndex: %v", err)
	}
	if _, ok := index.Get("https://ourworldindata.org/grapher/nothing-here"); ok {
		t.Error("empty directory should report absence")
	}
}
