package services

import (
	"context"
	"regexp"
	"strings"
)

// ensureContext guards against nil contexts from callers and tests.
func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts an arbitrary name into a URL-safe slug.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
