package theme

import (
	"database/sql"
	"fmt"
)

// Store wraps a read-only connection to a WordPress-shaped database.
// All queries are parameterized; row scanning happens here so schema
// assumptions stay at this one boundary.
type Store struct {
	db *sql.DB
}

// Open connects to the WordPress database. The driver name lets tests
// run against sqlite while production uses mysql.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open wordpress db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping wordpress db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// postRow is a raw wp_posts row before projection. post_date is the
// site-local timestamp, post_date_gmt the GMT-qualified one.
type postRow struct {
	ID      int64
	Slug    string
	Title   string
	Date    string
	DateGMT string
	Content string
	Excerpt string
	Type    string
}

const postColumns = `ID, post_name, post_title, post_date, post_date_gmt, post_content, post_excerpt, post_type`

func scanPostRow(rows interface{ Scan(...any) error }) (postRow, error) {
	var p postRow
	err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Date, &p.DateGMT, &p.Content, &p.Excerpt, &p.Type)
	return p, err
}

// publishedPosts returns all published blog posts, newest first.
func (s *Store) publishedPosts() ([]postRow, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + `
		FROM wp_posts
		WHERE post_type = 'post' AND post_status = 'publish'
		ORDER BY post_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []postRow
	for rows.Next() {
		p, err := scanPostRow(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// postBySlug returns one published post by its native slug.
func (s *Store) postBySlug(slug string) (postRow, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+`
		FROM wp_posts
		WHERE post_name = ? AND post_status = 'publish'`, slug)
	return scanPostRow(row)
}

// pageRow is a published top-level page in menu order.
type pageRow struct {
	ID    int64
	Slug  string
	Title string
}

// publishedPages returns all published top-level pages ordered by their
// explicit menu order.
func (s *Store) publishedPages() ([]pageRow, error) {
	rows, err := s.db.Query(`SELECT ID, post_name, post_title
		FROM wp_posts
		WHERE post_type = 'page' AND post_status = 'publish' AND post_parent = 0
		ORDER BY menu_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []pageRow
	for rows.Next() {
		var p pageRow
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// authorRow links a post to one author term's raw description.
type authorRow struct {
	PostID      int64
	Description string
}

// authorRows returns every post→author association in term order.
func (s *Store) authorRows() ([]authorRow, error) {
	rows, err := s.db.Query(`SELECT r.object_id, tt.description
		FROM wp_term_relationships r
		JOIN wp_term_taxonomy tt ON tt.term_taxonomy_id = r.term_taxonomy_id
		WHERE tt.taxonomy = 'author'
		ORDER BY r.object_id, r.term_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []authorRow
	for rows.Next() {
		var a authorRow
		if err := rows.Scan(&a.PostID, &a.Description); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// metaRow is one postmeta key's value for a post.
type metaRow struct {
	PostID int64
	Value  string
}

// metaRows returns every postmeta row for the given key.
func (s *Store) metaRows(key string) ([]metaRow, error) {
	rows, err := s.db.Query(`SELECT post_id, meta_value
		FROM wp_postmeta
		WHERE meta_key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []metaRow
	for rows.Next() {
		var m metaRow
		if err := rows.Scan(&m.PostID, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// featuredImageRows resolves the _thumbnail_id indirection: the meta
// value is another post's ID, whose guid is the image URL.
func (s *Store) featuredImageRows() ([]metaRow, error) {
	rows, err := s.db.Query(`SELECT pm.post_id, p.guid
		FROM wp_postmeta pm
		JOIN wp_posts p ON p.ID = pm.meta_value
		WHERE pm.meta_key = '_thumbnail_id'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []metaRow
	for rows.Next() {
		var m metaRow
		if err := rows.Scan(&m.PostID, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// categoryRow links a page to one category term name.
type categoryRow struct {
	PostID int64
	Name   string
}

// categoryRows returns every post→category association.
func (s *Store) categoryRows() ([]categoryRow, error) {
	rows, err := s.db.Query(`SELECT r.object_id, t.name
		FROM wp_term_relationships r
		JOIN wp_term_taxonomy tt ON tt.term_taxonomy_id = r.term_taxonomy_id
		JOIN wp_terms t ON t.term_id = tt.term_id
		WHERE tt.taxonomy = 'category'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []categoryRow
	for rows.Next() {
		var c categoryRow
		if err := rows.Scan(&c.PostID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// option returns a single wp_options value by name.
func (s *Store) option(name string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT option_value FROM wp_options WHERE option_name = ?`, name).Scan(&value)
	return value, err
}

// postContent returns the raw body of one post by ID.
func (s *Store) postContent(id int64) (string, error) {
	var content string
	err := s.db.QueryRow(`SELECT post_content FROM wp_posts WHERE ID = ?`, id).Scan(&content)
	return content, err
}
