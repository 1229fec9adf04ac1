package grapher

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// Reconciler compares chart URLs against the rendered exports on disk
// and re-renders the stale ones in one subprocess batch.
type Reconciler struct {
	charts     *ChartStore
	renderRoot string
	exportDir  string
	log        *slog.Logger

	// RenderCommand is resolved relative to renderRoot, which is also
	// the subprocess working directory.
	RenderCommand string

	// Silent suppresses streaming the renderer's stdout to the log.
	Silent bool

	// mu serializes render batches so two reconciliations never target
	// the export directory at the same time.
	mu sync.Mutex
}

// NewReconciler creates a Reconciler rendering into exportDir with the
// render tool rooted at renderRoot.
func NewReconciler(charts *ChartStore, renderRoot, exportDir string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		charts:        charts,
		renderRoot:    renderRoot,
		exportDir:     exportDir,
		log:           logger,
		RenderCommand: "./render",
	}
}

// Reconcile classifies each chart URL as fresh or stale and re-renders
// every stale one in a single renderer invocation. A URL is stale when
// no export exists for its key or when the chart's stored version is
// newer than the best export on disk. URLs whose slug cannot be
// resolved, or whose chart row has vanished, are logged and skipped.
// A renderer failure fails the whole call; there is no partial-success
// signal.
func (r *Reconciler) Reconcile(urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := BuildExportIndex(r.exportDir, r.log)
	if err != nil {
		return err
	}
	slugToID, err := r.charts.SlugToChartID()
	if err != nil {
		return err
	}

	var stale []string
	for _, chartURL := range urls {
		key, err := ExportKey(chartURL)
		if err != nil {
			r.log.Error("skipping malformed chart url", "url", chartURL, "err", err)
			continue
		}
		export, ok := index.lookup(key)
		if !ok {
			stale = append(stale, chartURL)
			continue
		}

		slug, err := chartURLSlug(chartURL)
		if err != nil {
			r.log.Error("skipping malformed chart url", "url", chartURL, "err", err)
			continue
		}
		chartID, ok := slugToID[slug]
		if !ok {
			r.log.Error("no chart found for slug", "slug", slug, "url", chartURL)
			continue
		}
		version, err := r.charts.ChartVersion(chartID)
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Error("chart row vanished", "chart", chartID, "slug", slug)
			continue
		}
		if err != nil {
			return err
		}
		if version > export.Version {
			stale = append(stale, chartURL)
		}
	}

	if len(stale) == 0 {
		return nil
	}
	r.log.Info("re-rendering stale chart exports", "count", len(stale))
	return r.render(stale)
}

// render invokes the external renderer once with the full stale batch,
// streaming its stdout line by line unless Silent is set.
func (r *Reconciler) render(urls []string) error {
	args := append(append([]string{}, urls...), r.exportDir)
	cmd := exec.Command(r.RenderCommand, args...)
	cmd.Dir = r.renderRoot
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("renderer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start renderer: %w", err)
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if !r.Silent {
			r.log.Info(scanner.Text())
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("render %d charts: %w", len(urls), err)
	}
	return nil
}
