package registry

import (
	"regexp"
	"strings"
)

var (
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	camelBoundary   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe, lowercase, hyphenated slug.
// CamelCase words are split first, so "HelloPage" becomes "hello-page".
// The result matches ^[a-z0-9]+(-[a-z0-9]+)*$ or is empty.
func Slugify(s string) string {
	s = acronymBoundary.ReplaceAllString(s, "$1 $2")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.ToLower(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugOr returns Slugify(s), or fallback when the slug is empty.
func SlugOr(s, fallback string) string {
	if slug := Slugify(s); slug != "" {
		return slug
	}
	return fallback
}

// RouteToSlug derives a page slug from the last non-empty segment of a route.
// Routes without a usable segment map to "page".
func RouteToSlug(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	var last string
	for _, segment := range strings.Split(route, "/") {
		if segment != "" {
			last = segment
		}
	}
	return SlugOr(last, "page")
}

// TableName derives a SQL table name: the slug with underscores instead of hyphens.
// Underscores in name separate words, so "blog_posts" is kept as is.
func TableName(name string) string {
	return strings.ReplaceAll(SlugOr(strings.ReplaceAll(name, "_", " "), "table"), "-", "_")
}
