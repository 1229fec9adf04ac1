// Package theme is the read-side data layer the Our World in Data
// static site generator bakes pages from. It denormalizes WordPress's
// entity-attribute-value tables (postmeta, term relationships, term
// taxonomy) into typed projections — authorship, permalinks, featured
// images, category groupings, blog index listings, and tablepress
// tables — behind process-lifetime memoized lookups.
//
// The companion grapher package reconciles pre-rendered chart SVG
// exports against the versioned charts database and re-renders stale
// ones through an external subprocess.
package theme
