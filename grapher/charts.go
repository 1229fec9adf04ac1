// Package grapher reads the charts database and keeps the directory of
// pre-rendered SVG exports in step with it.
package grapher

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// publicTagParents are the taxonomy root ids whose child tags are shown
// on public chart listings. Tags under any other root are internal.
var publicTagParents = []int64{
	1504, 1507, 1510, 1512, 1515, 1518, 1520, 1523,
	1526, 1529, 1532, 1535, 1538, 1541, 1544, 1547,
}

// ChartStore wraps a read-only connection to the charts database.
type ChartStore struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to the charts database.
func Open(driver, dsn string, logger *slog.Logger) (*ChartStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open charts db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping charts db: %w", err)
	}
	return NewChartStore(db, logger), nil
}

// NewChartStore wraps an already-open database handle.
func NewChartStore(db *sql.DB, logger *slog.Logger) *ChartStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartStore{db: db, log: logger}
}

// Close closes the underlying database connection.
func (s *ChartStore) Close() error {
	return s.db.Close()
}

// chartConfig is the subset of the chart config JSON blob this layer
// reads.
type chartConfig struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Version int    `json:"version"`
}

// SlugToChartID merges the slug-redirect history with current chart
// configs into one slug→id map. Redirects are applied first, so a slug
// that is both a retired redirect and a chart's current slug resolves
// to the current chart.
func (s *ChartStore) SlugToChartID() (map[string]int64, error) {
	slugToID := make(map[string]int64)

	rows, err := s.db.Query(`SELECT slug, chart_id FROM chart_slug_redirects`)
	if err != nil {
		return nil, fmt.Errorf("load slug redirects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var slug string
		var id int64
		if err := rows.Scan(&slug, &id); err != nil {
			return nil, err
		}
		slugToID[slug] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT id, config FROM charts`)
	if err != nil {
		return nil, fmt.Errorf("load chart configs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var config chartConfig
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			s.log.Error("unparseable chart config", "chart", id, "err", err)
			continue
		}
		if config.Slug == "" {
			continue
		}
		slugToID[config.Slug] = id
	}
	return slugToID, rows.Err()
}

// ChartVersion returns the stored config version of one chart.
// sql.ErrNoRows passes through when the chart no longer exists.
func (s *ChartStore) ChartVersion(id int64) (int, error) {
	var raw string
	if err := s.db.QueryRow(`SELECT config FROM charts WHERE id = ?`, id).Scan(&raw); err != nil {
		return 0, err
	}
	var config chartConfig
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return 0, fmt.Errorf("chart %d config: %w", id, err)
	}
	return config.Version, nil
}

// Tag is a public taxonomy tag attached to a chart.
type Tag struct {
	ID   int64
	Name string
}

// IndexableChart is a published chart annotated with its public tags.
type IndexableChart struct {
	ID          int64
	Slug        string
	Title       string
	PublishedAt time.Time
	Tags        []Tag
}

// IndexableCharts returns every chart with a published timestamp, each
// carrying only tags whose parent is a public taxonomy root. Charts
// with no qualifying tags still appear, with an empty tag list.
func (s *ChartStore) IndexableCharts() ([]IndexableChart, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(publicTagParents)), ",")
	args := make([]any, len(publicTagParents))
	for i, id := range publicTagParents {
		args[i] = id
	}
	rows, err := s.db.Query(`SELECT ct.chart_id, t.id, t.name
		FROM chart_tags ct
		JOIN tags t ON t.id = ct.tag_id
		WHERE t.parent_id IN (`+placeholders+`)
		ORDER BY ct.chart_id, t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load chart tags: %w", err)
	}
	defer rows.Close()

	tagsByChart := make(map[int64][]Tag)
	for rows.Next() {
		var chartID int64
		var tag Tag
		if err := rows.Scan(&chartID, &tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tagsByChart[chartID] = append(tagsByChart[chartID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT id, config, published_at
		FROM charts
		WHERE published_at IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load published charts: %w", err)
	}
	defer rows.Close()

	var charts []IndexableChart
	for rows.Next() {
		var id int64
		var raw, publishedAt string
		if err := rows.Scan(&id, &raw, &publishedAt); err != nil {
			return nil, err
		}
		var config chartConfig
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			s.log.Error("unparseable chart config", "chart", id, "err", err)
			continue
		}
		published, err := time.ParseInLocation("2006-01-02 15:04:05", publishedAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("chart %d published_at: %w", id, err)
		}
		tags := tagsByChart[id]
		if tags == nil {
			tags = []Tag{}
		}
		charts = append(charts, IndexableChart{
			ID:          id,
			Slug:        config.Slug,
			Title:       config.Title,
			PublishedAt: published,
			Tags:        tags,
		})
	}
	return charts, rows.Err()
}
