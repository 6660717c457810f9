package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/pathsafe"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// Downloader copies manifest entries from object storage to a local directory.
type Downloader struct {
	store storage.ObjectStorage
	log   zerolog.Logger
}

// NewDownloader creates a new Downloader.
func NewDownloader(store storage.ObjectStorage) *Downloader {
	return &Downloader{store: store, log: logger.Component("s3-backup")}
}

// DownloadAll downloads every manifest entry into destDir, one at a time in
// manifest order. Entries that fail sanitization, come back without a body
// or fail mid-stream are logged and left out of the snapshot; the run
// carries on with the rest. Only a destDir that cannot be created or a
// cancelled ctx ends the run early.
func (d *Downloader) DownloadAll(ctx context.Context, manifest []domain.FileRecord, destDir string) (domain.BackupSnapshot, domain.TransferResult, error) {
	var (
		snapshot domain.BackupSnapshot
		tally    domain.TransferTally
	)
	snapshot.Entries = make([]domain.FileRecord, 0, len(manifest))

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return snapshot, tally.Result(), fmt.Errorf("failed creating backup directory %s: %w", destDir, err)
	}

	for i, entry := range manifest {
		if err := ctx.Err(); err != nil {
			return snapshot, tally.Result(), err
		}

		record, written, outcome, err := d.downloadOne(ctx, entry, destDir)
		tally.Record(entry.Key, outcome, err)

		switch outcome {
		case domain.OutcomeSucceeded:
			snapshot.Entries = append(snapshot.Entries, record)
			snapshot.TotalFiles++
			snapshot.TotalSize += written
			d.log.Debug().Str("key", entry.Key).Int64("bytes", written).
				Int("index", i+1).Int("total", len(manifest)).Msg("downloaded")
		case domain.OutcomeSkipped:
			d.log.Warn().Err(err).Str("key", entry.Key).Msg("skipping object")
		case domain.OutcomeFailed:
			d.log.Error().Err(err).Str("key", entry.Key).Msg("failed to download object")
		}
	}

	return snapshot, tally.Result(), nil
}

func (d *Downloader) downloadOne(ctx context.Context, entry domain.FileRecord, destDir string) (domain.FileRecord, int64, domain.Outcome, error) {
	rel, err := pathsafe.Sanitize(entry.Key, destDir)
	if err != nil {
		return entry, 0, domain.OutcomeSkipped, err
	}

	body, attrs, err := d.store.GetObject(ctx, entry.Key)
	if err != nil {
		return entry, 0, domain.OutcomeFailed, err
	}
	if body == nil {
		return entry, 0, domain.OutcomeSkipped, storage.ErrNoBody
	}
	defer body.Close()

	localPath := pathsafe.LocalPath(destDir, rel)
	written, err := writeFileAtomic(localPath, body)
	if err != nil {
		return entry, 0, domain.OutcomeFailed, err
	}

	record := entry
	record.ContentType = attrs.ContentType
	if record.ContentType == "" {
		if mt, err := mimetype.DetectFile(localPath); err == nil {
			record.ContentType = mt.String()
		}
	}
	return record, written, domain.OutcomeSucceeded, nil
}

// writeFileAtomic streams r into path via a sibling .part file.
func writeFileAtomic(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed creating directory for %s: %w", path, err)
	}

	partPath := path + ".part"
	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed opening %s: %w", partPath, err)
	}

	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("failed writing %s: %w", path, err)
	}

	if err := os.Rename(partPath, path); err != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("failed moving %s into place: %w", path, err)
	}
	return written, nil
}
