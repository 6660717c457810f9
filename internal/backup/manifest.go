package backup

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// ExtensionSet is a case-insensitive allow-list of file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet normalizes exts to lower case with a leading dot.
func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Allows reports whether key's extension is in the set.
func (s ExtensionSet) Allows(key string) bool {
	_, ok := s[strings.ToLower(path.Ext(key))]
	return ok
}

// BuildManifest pages through the listing below prefix and keeps the keys
// whose extension is allowed. A listing error aborts the build.
func BuildManifest(ctx context.Context, lister storage.PageLister, prefix string, allowed ExtensionSet) ([]domain.FileRecord, error) {
	log := logger.Component("s3-backup")

	var (
		manifest []domain.FileRecord
		token    string
		pages    int
	)
	for {
		page, err := lister.ListPage(ctx, prefix, token)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects for prefix %q: %w", prefix, err)
		}
		pages++

		for _, object := range page.Objects {
			if object.Key == "" {
				continue
			}
			if !allowed.Allows(object.Key) {
				continue
			}
			manifest = append(manifest, domain.FileRecord{
				Key:          object.Key,
				Size:         object.Size,
				LastModified: domain.FormatLastModified(object.LastModified),
			})
		}

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if len(manifest) == 0 {
		log.Warn().Str("prefix", prefix).Int("pages", pages).Msg("no matching objects found")
	} else {
		log.Info().Str("prefix", prefix).Int("pages", pages).Int("files", len(manifest)).Msg("manifest built")
	}
	return manifest, nil
}
