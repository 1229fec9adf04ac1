package theme

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// tablepressIndex is the wp_options blob mapping table ids to the posts
// hosting their data.
type tablepressIndex struct {
	TablePost map[string]int64 `json:"table_post"`
}

// Tables returns every tablepress table keyed by table id. A table
// whose hosting post is missing, or whose body is not a JSON grid,
// yields an empty grid rather than an error.
func (r *Repository) Tables() (map[string]Table, error) {
	return r.tables.get(func() (map[string]Table, error) {
		raw, err := r.store.option("tablepress_tables")
		if err != nil {
			return nil, fmt.Errorf("load tablepress index: %w", err)
		}
		var index tablepressIndex
		if err := json.Unmarshal([]byte(raw), &index); err != nil {
			return nil, fmt.Errorf("parse tablepress index: %w", err)
		}

		tables := make(map[string]Table, len(index.TablePost))
		for tableID, postID := range index.TablePost {
			table := Table{ID: tableID, Rows: [][]string{}}
			content, err := r.store.postContent(postID)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				r.log.Warn("tablepress host post missing", "table", tableID, "post", postID)
			case err != nil:
				return nil, fmt.Errorf("tablepress post %d: %w", postID, err)
			default:
				var rows [][]string
				if err := json.Unmarshal([]byte(content), &rows); err != nil {
					r.log.Warn("tablepress body is not a JSON grid", "table", tableID, "post", postID, "err", err)
				} else {
					table.Rows = rows
				}
			}
			tables[tableID] = table
		}
		return tables, nil
	})
}
