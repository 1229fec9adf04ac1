package theme

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// wpTimeLayout is the timestamp format WordPress stores in post_date
// and post_date_gmt.
const wpTimeLayout = "2006-01-02 15:04:05"

// siteCategories is the fixed, externally mandated category order for
// the site's entries page. Categories with no member pages still appear.
var siteCategories = []string{
	"Population Growth & Vital Statistics",
	"Health",
	"Food & Agriculture",
	"Resources & Energy",
	"Environmental Change",
	"Living Conditions, Community & Wellbeing",
	"Technological Progress",
	"Growth & Distribution of Prosperity",
	"Economic Development, Work & Standard of Living",
	"Public Sector & Economic System",
	"Global Interconnections",
	"War & Peace",
	"Political Regime",
	"Violence & Rights",
	"Education & Knowledge",
	"Media & Communication",
}

// memo is a single process-lifetime memoization slot. The first
// successful build is stored and every later get returns the identical
// structure with no rebuild. A failed build stores nothing, so the next
// get retries without affecting any other slot.
type memo[T any] struct {
	mu    sync.Mutex
	ready bool
	value T
}

func (m *memo[T]) get(build func() (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return m.value, nil
	}
	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	m.value = v
	m.ready = true
	return v, nil
}

// Repository exposes the denormalized read projections of the WordPress
// database. Each lookup table is built at most once per Repository and
// never refreshed; construct a new instance to see new data.
type Repository struct {
	store *Store
	log   *slog.Logger

	authors    memo[map[int64][]string]
	permalinks memo[map[int64]string]
	images     memo[map[int64]string]
	categories memo[[]CategoryGroup]
	blogIndex  memo[[]PostInfo]
	tables     memo[map[string]Table]
}

// NewRepository creates a Repository over the given store. A nil logger
// falls back to slog's default.
func NewRepository(store *Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, log: logger}
}

// Authors returns the post→author-names lookup. Author display names
// are the first two whitespace-separated tokens of the stored term
// description, in original order.
func (r *Repository) Authors() (map[int64][]string, error) {
	return r.authors.get(func() (map[int64][]string, error) {
		rows, err := r.store.authorRows()
		if err != nil {
			return nil, fmt.Errorf("load authors: %w", err)
		}
		authors := make(map[int64][]string)
		for _, row := range rows {
			authors[row.PostID] = append(authors[row.PostID], authorName(row.Description))
		}
		return authors, nil
	})
}

// authorName truncates a raw author term description to its first two
// tokens, which hold the display name.
func authorName(description string) string {
	fields := strings.Fields(description)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}

// Permalinks returns the post→custom-permalink lookup. Values are
// stored verbatim; trailing slashes are stripped at lookup time by
// SlugFor.
func (r *Repository) Permalinks() (map[int64]string, error) {
	return r.permalinks.get(func() (map[int64]string, error) {
		rows, err := r.store.metaRows("custom_permalink")
		if err != nil {
			return nil, fmt.Errorf("load permalinks: %w", err)
		}
		permalinks := make(map[int64]string, len(rows))
		for _, row := range rows {
			permalinks[row.PostID] = row.Value
		}
		return permalinks, nil
	})
}

// SlugFor resolves a post's display slug: the custom permalink with
// exactly one trailing slash stripped, or the native slug when no
// override exists.
func (r *Repository) SlugFor(postID int64, nativeSlug string) (string, error) {
	permalinks, err := r.Permalinks()
	if err != nil {
		return "", err
	}
	if permalink, ok := permalinks[postID]; ok {
		return strings.TrimSuffix(permalink, "/"), nil
	}
	return nativeSlug, nil
}

// FeaturedImages returns the post→image-URL lookup resolved through the
// thumbnail-id indirection.
func (r *Repository) FeaturedImages() (map[int64]string, error) {
	return r.images.get(func() (map[int64]string, error) {
		rows, err := r.store.featuredImageRows()
		if err != nil {
			return nil, fmt.Errorf("load featured images: %w", err)
		}
		images := make(map[int64]string, len(rows))
		for _, row := range rows {
			images[row.PostID] = row.Value
		}
		return images, nil
	})
}

// CategoryGroups returns the fixed ordered list of site categories,
// each populated with its published member pages in menu order. Every
// category appears even when it has no members.
func (r *Repository) CategoryGroups() ([]CategoryGroup, error) {
	return r.categories.get(func() ([]CategoryGroup, error) {
		categoryRows, err := r.store.categoryRows()
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		// Page → set of category names, entity-decoded so "&amp;" in
		// stored term names matches the canonical list.
		membership := make(map[int64]map[string]bool)
		for _, row := range categoryRows {
			name := html.UnescapeString(row.Name)
			if membership[row.PostID] == nil {
				membership[row.PostID] = make(map[string]bool)
			}
			membership[row.PostID][name] = true
		}

		pages, err := r.store.publishedPages()
		if err != nil {
			return nil, fmt.Errorf("load pages: %w", err)
		}

		starredRows, err := r.store.metaRows("starred")
		if err != nil {
			return nil, fmt.Errorf("load starred flags: %w", err)
		}
		starred := make(map[int64]bool, len(starredRows))
		for _, row := range starredRows {
			starred[row.PostID] = row.Value == "1"
		}

		groups := make([]CategoryGroup, 0, len(siteCategories))
		for _, name := range siteCategories {
			group := CategoryGroup{Name: name, Entries: []CategoryEntry{}}
			for _, page := range pages {
				if !membership[page.ID][name] {
					continue
				}
				slug, err := r.SlugFor(page.ID, page.Slug)
				if err != nil {
					return nil, err
				}
				group.Entries = append(group.Entries, CategoryEntry{
					Title:   page.Title,
					Slug:    slug,
					Starred: starred[page.ID],
				})
			}
			groups = append(groups, group)
		}
		return groups, nil
	})
}

// BlogIndex returns summary projections of all published posts, newest
// first. Dates come from the site-local post_date column; full posts
// use the GMT timestamp instead.
func (r *Repository) BlogIndex() ([]PostInfo, error) {
	return r.blogIndex.get(func() ([]PostInfo, error) {
		posts, err := r.store.publishedPosts()
		if err != nil {
			return nil, fmt.Errorf("load blog index: %w", err)
		}
		index := make([]PostInfo, 0, len(posts))
		for _, post := range posts {
			info, err := r.postInfo(post)
			if err != nil {
				return nil, err
			}
			index = append(index, info)
		}
		return index, nil
	})
}

// postInfo projects a raw post row to its index summary.
func (r *Repository) postInfo(post postRow) (PostInfo, error) {
	authors, images, err := r.postLookups()
	if err != nil {
		return PostInfo{}, err
	}
	slug, err := r.SlugFor(post.ID, post.Slug)
	if err != nil {
		return PostInfo{}, err
	}
	date, err := time.Parse(wpTimeLayout, post.Date)
	if err != nil {
		return PostInfo{}, fmt.Errorf("post %d date: %w", post.ID, err)
	}
	return PostInfo{
		Title:    post.Title,
		Slug:     slug,
		Date:     date,
		Authors:  authors[post.ID],
		ImageURL: images[post.ID],
	}, nil
}

// FullPostBySlug assembles the complete projection of one published
// post, composing the authorship, permalink, and featured-image
// lookups.
func (r *Repository) FullPostBySlug(slug string) (FullPost, error) {
	post, err := r.store.postBySlug(slug)
	if err != nil {
		return FullPost{}, fmt.Errorf("post %q: %w", slug, err)
	}
	return r.fullPost(post)
}

func (r *Repository) fullPost(post postRow) (FullPost, error) {
	authors, images, err := r.postLookups()
	if err != nil {
		return FullPost{}, err
	}
	slug, err := r.SlugFor(post.ID, post.Slug)
	if err != nil {
		return FullPost{}, err
	}
	date, err := time.ParseInLocation(wpTimeLayout, post.DateGMT, time.UTC)
	if err != nil {
		return FullPost{}, fmt.Errorf("post %d gmt date: %w", post.ID, err)
	}
	return FullPost{
		ID:       post.ID,
		Slug:     slug,
		Title:    post.Title,
		Date:     date,
		Authors:  authors[post.ID],
		ImageURL: images[post.ID],
		Type:     post.Type,
		Content:  post.Content,
		Excerpt:  post.Excerpt,
	}, nil
}

// postLookups ensures the independent per-post lookup tables are all
// built before any projection is assembled. Permalinks are built via
// SlugFor on the same memo slot.
func (r *Repository) postLookups() (map[int64][]string, map[int64]string, error) {
	authors, err := r.Authors()
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.Permalinks(); err != nil {
		return nil, nil, err
	}
	images, err := r.FeaturedImages()
	if err != nil {
		return nil, nil, err
	}
	return authors, images, nil
}
