package theme

import "time"

// FullPost is the complete read projection of a WordPress post, with
// authorship, permalink, and featured image already resolved.
type FullPost struct {
	ID       int64
	Slug     string
	Title    string
	Date     time.Time
	Authors  []string
	ImageURL string
	Type     string
	Content  string
	Excerpt  string
}

// PostInfo is the summary projection used for blog index listings.
type PostInfo struct {
	Title    string
	Slug     string
	Date     time.Time
	Authors  []string
	ImageURL string
}

// CategoryEntry is one page inside a category group.
type CategoryEntry struct {
	Title   string
	Slug    string
	Starred bool
}

// CategoryGroup is a fixed site category with its member pages in
// menu order.
type CategoryGroup struct {
	Name    string
	Entries []CategoryEntry
}

// Table is a tablepress table reconstructed from its hosting post.
type Table struct {
	ID   string
	Rows [][]string
}
