package grapher

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// exportNamePattern matches rendered export filenames of the form
// {key}_v{version}_{width}x{height}.svg.
var exportNamePattern = regexp.MustCompile(`^(.+)_v(\d+)_(\d+)x(\d+)\.svg$`)

// ExportMeta describes the best available rendered export for one
// export key.
type ExportMeta struct {
	Filename string
	Version  int
	Width    int
	Height   int
}

// ExportKey derives the stable filename key for a chart URL: the URL's
// final path segment, suffixed with a hash of the query string only
// when one is present. Two URLs differing in query parameter order
// derive different keys; the renderer names its output files the same
// way, so the keys still line up.
func ExportKey(chartURL string) (string, error) {
	slug, err := chartURLSlug(chartURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(chartURL)
	if err != nil {
		return "", fmt.Errorf("parse chart url %q: %w", chartURL, err)
	}
	if u.RawQuery != "" {
		return fmt.Sprintf("%s-%x", slug, md5.Sum([]byte(u.RawQuery))), nil
	}
	return slug, nil
}

// chartURLSlug extracts the chart slug (final path segment) from a
// chart URL.
func chartURLSlug(chartURL string) (string, error) {
	u, err := url.Parse(chartURL)
	if err != nil {
		return "", fmt.Errorf("parse chart url %q: %w", chartURL, err)
	}
	slug := path.Base(strings.TrimSuffix(u.Path, "/"))
	if slug == "" || slug == "." || slug == "/" {
		return "", fmt.Errorf("chart url %q has no path segment", chartURL)
	}
	return slug, nil
}

// ExportIndex is a lookup over the rendered exports in one directory,
// keeping only the highest-version file per export key.
type ExportIndex struct {
	byKey map[string]ExportMeta
}

// BuildExportIndex scans dir for rendered SVG exports. Files whose
// names don't follow the export naming convention are logged and
// skipped.
func BuildExportIndex(dir string, logger *slog.Logger) (*ExportIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.svg"))
	if err != nil {
		return nil, fmt.Errorf("glob exports in %s: %w", dir, err)
	}

	byKey := make(map[string]ExportMeta)
	for _, p := range paths {
		name := filepath.Base(p)
		m := exportNamePattern.FindStringSubmatch(name)
		if m == nil {
			logger.Warn("export filename does not match naming convention", "file", name)
			continue
		}
		version, _ := strconv.Atoi(m[2])
		width, _ := strconv.Atoi(m[3])
		height, _ := strconv.Atoi(m[4])
		key := m[1]
		if existing, ok := byKey[key]; ok && existing.Version >= version {
			continue
		}
		byKey[key] = ExportMeta{
			Filename: name,
			Version:  version,
			Width:    width,
			Height:   height,
		}
	}
	return &ExportIndex{byKey: byKey}, nil
}

// Get returns the export for a chart URL, re-deriving its key with the
// same rule the renderer uses when naming files. URLs with no usable
// path segment report absence.
func (ix *ExportIndex) Get(chartURL string) (ExportMeta, bool) {
	key, err := ExportKey(chartURL)
	if err != nil {
		return ExportMeta{}, false
	}
	return ix.lookup(key)
}

func (ix *ExportIndex) lookup(key string) (ExportMeta, bool) {
	meta, ok := ix.byKey[key]
	return meta, ok
}
