package grapher

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const chartSchema = `
CREATE TABLE charts (
	id INTEGER PRIMARY KEY,
	config TEXT NOT NULL,
	published_at TEXT
);
CREATE TABLE chart_slug_redirects (
	slug TEXT NOT NULL,
	chart_id INTEGER NOT NULL
);
CREATE TABLE chart_tags (
	chart_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	parent_id INTEGER
);
`

func setupChartStore(t *testing.T) (*ChartStore, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "charts.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open chart db: %v", err)
	}
	if _, err := db.Exec(chartSchema); err != nil {
		t.Fatalf("create chart schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChartStore(db, discardLogger()), db
}

func chartExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestSlugToChartIDCurrentSlugWins(t *testing.T) {
	store, db := setupChartStore(t)
	chartExec(t, db, `INSERT INTO chart_slug_redirects (slug, chart_id) VALUES ('life-expectancy', 10)`)
	chartExec(t, db, `INSERT INTO chart_slug_redirects (slug, chart_id) VALUES ('old-growth', 11)`)
	chartExec(t, db, `INSERT INTO charts (id, config) VALUES (20, '{"slug": "life-expectancy", "version": 2}')`)

	slugToID, err := store.SlugToChartID()
	if err != nil {
		t.Fatalf("SlugToChartID: %v", err)
	}
	if slugToID["life-expectancy"] != 20 {
		t.Errorf("life-expectancy → %d, want 20 (current config over redirect)", slugToID["life-expectancy"])
	}
	if slugToID["old-growth"] != 11 {
		t.Errorf("old-growth → %d, want 11 (redirect preserved)", slugToID["old-growth"])
	}
}

func TestChartVersion(t *testing.T) {
	store, db := setupChartStore(t)
	chartExec(t, db, `INSERT INTO charts (id, config) VALUES (5, '{"slug": "co2", "version": 7}')`)

	version, err := store.ChartVersion(5)
	if err != nil {
		t.Fatalf("ChartVersion: %v", err)
	}
	if version != 7 {
		t.Errorf("version = %d, want 7", version)
	}

	if _, err := store.ChartVersion(999); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for vanished chart, got %v", err)
	}
}

func TestIndexableChartsFilterTagsByPublicParent(t *testing.T) {
	store, db := setupChartStore(t)
	chartExec(t, db, `INSERT INTO charts (id, config, published_at) VALUES
		(1, '{"slug": "co2", "title": "CO2 Emissions", "version": 3}', '2024-02-01 12:00:00')`)
	chartExec(t, db, `INSERT INTO charts (id, config, published_at) VALUES
		(2, '{"slug": "untagged", "title": "Untagged", "version": 1}', '2024-03-01 12:00:00')`)
	chartExec(t, db, `INSERT INTO charts (id, config) VALUES
		(3, '{"slug": "unpublished", "version": 1}')`)
	// Tag 40 hangs off a public root, tag 41 off an internal one.
	chartExec(t, db, `INSERT INTO tags (id, name, parent_id) VALUES (40, 'Emissions', ?)`, publicTagParents[0])
	chartExec(t, db, `INSERT INTO tags (id, name, parent_id) VALUES (41, 'Internal QA', 999)`)
	chartExec(t, db, `INSERT INTO chart_tags (chart_id, tag_id) VALUES (1, 40), (1, 41)`)

	charts, err := store.IndexableCharts()
	if err != nil {
		t.Fatalf("IndexableCharts: %v", err)
	}
	if len(charts) != 2 {
		t.Fatalf("got %d charts, want 2 (published only)", len(charts))
	}

	co2 := charts[0]
	if co2.Slug != "co2" || co2.Title != "CO2 Emissions" {
		t.Errorf("chart 1 = %q/%q", co2.Slug, co2.Title)
	}
	if len(co2.Tags) != 1 || co2.Tags[0].Name != "Emissions" {
		t.Errorf("chart 1 tags = %v, want only the public-rooted tag", co2.Tags)
	}
	if co2.PublishedAt.IsZero() {
		t.Error("PublishedAt should be parsed")
	}

	untagged := charts[1]
	if untagged.Tags == nil || len(untagged.Tags) != 0 {
		t.Errorf("chart 2 tags = %v, want empty list (chart still appears)", untagged.Tags)
	}
}
