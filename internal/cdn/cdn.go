// Package cdn invalidates cached copies of uploaded objects.
package cdn

import (
	"context"
	"net/url"
	"strings"
)

// MaxInvalidationPaths is the largest path list sent as-is; longer lists
// collapse into a single wildcard invalidation.
const MaxInvalidationPaths = 3000

// WildcardPath invalidates the whole distribution.
const WildcardPath = "/*"

// Invalidator evicts cached paths and returns the provider's invalidation id.
type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) (string, error)
}

// InvalidationPaths turns object keys into escaped, de-duplicated CDN paths.
func InvalidationPaths(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimPrefix(strings.TrimSpace(key), "/")
		if key == "" {
			continue
		}
		p := (&url.URL{Path: "/" + key}).EscapedPath()
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	return collapse(paths)
}

func collapse(paths []string) []string {
	if len(paths) > MaxInvalidationPaths {
		return []string{WildcardPath}
	}
	return paths
}
