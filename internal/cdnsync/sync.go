// Package cdnsync publishes a local media directory to the bucket behind a
// CDN and invalidates the uploaded paths.
package cdnsync

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/mediasync/internal/backup"
	"github.com/andresuchdata/mediasync/internal/cdn"
	"github.com/andresuchdata/mediasync/internal/fsutil"
	"github.com/andresuchdata/mediasync/internal/pathsafe"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// Options controls one sync run.
type Options struct {
	Dir        string
	KeyPrefix  string
	Extensions []string // empty means every file
	Invalidate bool
	DryRun     bool
}

// Result describes a finished sync.
type Result struct {
	Uploaded       []string
	Bytes          int64
	InvalidationID string
}

type upload struct {
	key   string
	local string
}

// Syncer uploads a directory with bounded concurrency.
type Syncer struct {
	store       storage.ObjectStorage
	invalidator cdn.Invalidator
	concurrency int
	log         zerolog.Logger
}

// NewSyncer creates a Syncer. concurrency <= 0 starts every upload at once.
// invalidator may be nil.
func NewSyncer(store storage.ObjectStorage, invalidator cdn.Invalidator, concurrency int) *Syncer {
	return &Syncer{
		store:       store,
		invalidator: invalidator,
		concurrency: concurrency,
		log:         logger.Component("cdn-sync"),
	}
}

// Sync uploads every file below opts.Dir. Uploads run concurrently and the
// batch is all-or-nothing: the first failure cancels the rest and is
// returned, and no invalidation is sent.
func (s *Syncer) Sync(ctx context.Context, opts Options) (Result, error) {
	var result Result

	uploads, err := s.plan(opts)
	if err != nil {
		return result, err
	}
	if len(uploads) == 0 {
		s.log.Warn().Str("dir", opts.Dir).Msg("nothing to sync")
		return result, nil
	}

	if opts.DryRun {
		for _, u := range uploads {
			s.log.Info().Str("key", u.key).Msg("would upload")
			result.Uploaded = append(result.Uploaded, u.key)
		}
		return result, nil
	}

	s.log.Info().Str("dir", opts.Dir).Str("bucket", s.store.Bucket()).Int("files", len(uploads)).Msg("starting sync")

	var (
		mu  sync.Mutex
		sem *semaphore.Weighted
	)
	if s.concurrency > 0 {
		sem = semaphore.NewWeighted(int64(s.concurrency))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range uploads {
		g.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
			}

			n, err := s.put(gctx, u)
			if err != nil {
				return fmt.Errorf("upload %s: %w", u.key, err)
			}

			mu.Lock()
			result.Uploaded = append(result.Uploaded, u.key)
			result.Bytes += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	sort.Strings(result.Uploaded)

	s.log.Info().Int("files", len(result.Uploaded)).Int64("bytes", result.Bytes).Msg("upload batch complete")

	if opts.Invalidate && s.invalidator != nil {
		id, err := s.invalidator.Invalidate(ctx, cdn.InvalidationPaths(result.Uploaded))
		if err != nil {
			return result, fmt.Errorf("cdn invalidation failed: %w", err)
		}
		result.InvalidationID = id
	}
	return result, nil
}

func (s *Syncer) plan(opts Options) ([]upload, error) {
	allowed := backup.NewExtensionSet(opts.Extensions)
	files, err := fsutil.WalkFiles(opts.Dir, func(rel string) bool {
		return len(allowed) > 0 && !allowed.Allows(rel)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", opts.Dir, err)
	}

	uploads := make([]upload, 0, len(files))
	for _, rel := range files {
		clean, err := pathsafe.Sanitize(rel, opts.Dir)
		if err != nil {
			s.log.Warn().Err(err).Str("file", rel).Msg("skipping unsafe path")
			continue
		}
		key := clean
		if opts.KeyPrefix != "" {
			key = path.Join(opts.KeyPrefix, clean)
		}
		uploads = append(uploads, upload{key: key, local: pathsafe.LocalPath(opts.Dir, clean)})
	}
	return uploads, nil
}

func (s *Syncer) put(ctx context.Context, u upload) (int64, error) {
	f, err := os.Open(u.local)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := s.store.PutObject(ctx, u.key, f, info.Size(), storage.ContentTypeFor("", u.key)); err != nil {
		return 0, err
	}
	return info.Size(), nil
}
