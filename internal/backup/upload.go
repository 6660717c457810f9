package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/fsutil"
	"github.com/andresuchdata/mediasync/internal/pathsafe"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

var errLocalFileMissing = errors.New("local file does not exist")

// CandidatesFor returns what a restore of backupDir should upload: the
// entries recorded in its metadata when that loads, otherwise every file
// found below backupDir except the metadata document itself.
func CandidatesFor(backupDir string) ([]domain.FileRecord, bool, error) {
	if snapshot, ok := LoadMetadata(backupDir); ok {
		return snapshot.Entries, true, nil
	}

	files, err := fsutil.WalkFiles(backupDir, isMetadataFile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan %s: %w", backupDir, err)
	}
	candidates := make([]domain.FileRecord, 0, len(files))
	for _, rel := range files {
		candidates = append(candidates, domain.FileRecord{Key: rel})
	}
	return candidates, false, nil
}

// isMetadataFile matches the metadata file and the temp files SaveMetadata
// leaves behind when interrupted.
func isMetadataFile(rel string) bool {
	if rel == domain.MetadataFileName {
		return true
	}
	return !strings.Contains(rel, "/") &&
		strings.HasPrefix(rel, domain.MetadataFileName+".") &&
		strings.HasSuffix(rel, ".tmp")
}

// Uploader pushes local backup files into object storage.
type Uploader struct {
	store storage.ObjectStorage
	log   zerolog.Logger
}

// NewUploader creates a new Uploader.
func NewUploader(store storage.ObjectStorage) *Uploader {
	return &Uploader{store: store, log: logger.Component("restore")}
}

// UploadAll uploads candidates from backupDir one at a time. Without
// overwrite, keys already present in the bucket are skipped. A failing file
// is recorded and the run moves on.
func (u *Uploader) UploadAll(ctx context.Context, candidates []domain.FileRecord, backupDir string, overwrite bool) (domain.TransferResult, error) {
	result, _, err := u.uploadAll(ctx, candidates, backupDir, overwrite)
	return result, err
}

func (u *Uploader) uploadAll(ctx context.Context, candidates []domain.FileRecord, backupDir string, overwrite bool) (domain.TransferResult, []string, error) {
	var (
		tally    domain.TransferTally
		uploaded []string
	)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return tally.Result(), uploaded, err
		}

		key, outcome, err := u.uploadOne(ctx, candidate, backupDir, overwrite)
		tally.Record(candidate.Key, outcome, err)

		switch outcome {
		case domain.OutcomeSucceeded:
			uploaded = append(uploaded, key)
			u.log.Debug().Str("key", key).Msg("uploaded")
		case domain.OutcomeSkipped:
			u.log.Info().Str("key", candidate.Key).AnErr("reason", err).Msg("skipped")
		case domain.OutcomeFailed:
			u.log.Error().Err(err).Str("key", candidate.Key).Msg("failed to upload")
		}
	}

	return tally.Result(), uploaded, nil
}

func (u *Uploader) uploadOne(ctx context.Context, candidate domain.FileRecord, backupDir string, overwrite bool) (string, domain.Outcome, error) {
	key, err := pathsafe.Sanitize(candidate.Key, backupDir)
	if err != nil {
		return "", domain.OutcomeSkipped, err
	}

	localPath := pathsafe.LocalPath(backupDir, key)
	info, err := os.Stat(localPath)
	if err != nil || !info.Mode().IsRegular() {
		return key, domain.OutcomeSkipped, errLocalFileMissing
	}

	if !overwrite {
		err := u.store.HeadObject(ctx, key)
		switch {
		case err == nil:
			return key, domain.OutcomeSkipped, errors.New("object already exists")
		case storage.IsNotFound(err):
			// proceed to upload
		default:
			return key, domain.OutcomeFailed, fmt.Errorf("existence check failed: %w", err)
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return key, domain.OutcomeFailed, fmt.Errorf("failed opening %s: %w", localPath, err)
	}
	defer f.Close()

	contentType := storage.ContentTypeFor(candidate.ContentType, key)
	if err := u.store.PutObject(ctx, key, f, info.Size(), contentType); err != nil {
		return key, domain.OutcomeFailed, err
	}
	return key, domain.OutcomeSucceeded, nil
}
