package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/mediasync/internal/cdn"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/fsutil"
	"github.com/andresuchdata/mediasync/internal/repository"
	"github.com/andresuchdata/mediasync/internal/storage"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// ErrNothingDownloaded is returned when a changed bucket yields no downloadable file.
var ErrNothingDownloaded = errors.New("no files were downloaded")

// Locker serializes runs that must not overlap.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// BackupReport describes one backup run.
type BackupReport struct {
	Dir      string
	Snapshot domain.BackupSnapshot
	Result   domain.TransferResult
	Changed  bool
	Pruned   int
}

// RestoreReport describes one restore run.
type RestoreReport struct {
	Result         domain.TransferResult
	FromMetadata   bool
	InvalidationID string
}

// Service runs backups and restores against one bucket.
type Service struct {
	store       storage.ObjectStorage
	cfg         config.BackupConfig
	region      string
	allowed     ExtensionSet
	invalidator cdn.Invalidator
	locker      Locker
	runs        repository.RunRecorder
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a Service. Optional collaborators are attached with the With* methods.
func NewService(store storage.ObjectStorage, cfg config.BackupConfig, region string) *Service {
	return &Service{
		store:   store,
		cfg:     cfg,
		region:  region,
		allowed: NewExtensionSet(cfg.AllowedExtensions),
		locker:  noopLocker{},
		now:     time.Now,
		log:     logger.Component("s3-backup"),
	}
}

// WithInvalidator enables CDN invalidation after restores.
func (s *Service) WithInvalidator(inv cdn.Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithLocker makes Backup and Restore hold l for their whole run.
func (s *Service) WithLocker(l Locker) *Service {
	if l != nil {
		s.locker = l
	}
	return s
}

// WithRunRecorder records every finished run.
func (s *Service) WithRunRecorder(r repository.RunRecorder) *Service {
	s.runs = r
	return s
}

// WithClock replaces time.Now.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Backup copies the bucket into a new snapshot directory under root unless
// nothing changed since the newest snapshot there, then prunes old snapshots.
func (s *Service) Backup(ctx context.Context, root string) (BackupReport, error) {
	if root == "" {
		root = s.cfg.Root
	}
	var report BackupReport

	unlock, err := s.locker.Lock(ctx, "backup:"+s.store.Bucket())
	if err != nil {
		return report, err
	}
	defer unlock()

	startedAt := s.now()
	s.log.Info().Str("bucket", s.store.Bucket()).Str("prefix", s.cfg.Prefix).Str("root", root).Msg("starting backup")

	manifest, err := BuildManifest(ctx, s.store, s.cfg.Prefix, s.allowed)
	if err != nil {
		return report, err
	}
	if len(manifest) == 0 {
		return report, nil
	}

	if previous, name := s.latestSnapshot(root); previous != nil && !HasChanged(manifest, previous) {
		s.log.Info().Str("snapshot", name).Int("files", len(manifest)).Msg("no changes since last backup, skipping download")
		return report, nil
	}
	report.Changed = true

	report.Dir = filepath.Join(root, domain.SnapshotDirName(startedAt))
	snapshot, result, err := NewDownloader(s.store).DownloadAll(ctx, manifest, report.Dir)
	report.Result = result
	if err != nil {
		s.discard(report.Dir)
		return report, err
	}
	if result.Successful == 0 {
		s.discard(report.Dir)
		s.log.Error().
			Int("successful", result.Successful).
			Int("failed", result.Failed).
			Int("skipped", result.Skipped).
			Msg("backup failed: nothing downloaded")
		s.record(ctx, "backup", report.Dir, startedAt, result)
		return report, ErrNothingDownloaded
	}

	snapshot.Timestamp = startedAt.UTC().Format(domain.LastModifiedLayout)
	snapshot.Source = s.store.Bucket()
	snapshot.KeyPrefix = s.cfg.Prefix
	snapshot.Region = s.region
	if err := SaveMetadata(snapshot, report.Dir); err != nil {
		return report, err
	}
	report.Snapshot = snapshot

	if s.cfg.MaxBackups > 0 {
		report.Pruned = Cleanup(root, s.cfg.MaxBackups)
	}

	s.log.Info().
		Str("dir", report.Dir).
		Int("files", snapshot.TotalFiles).
		Int64("bytes", snapshot.TotalSize).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int("pruned", report.Pruned).
		Msg("backup complete")
	s.record(ctx, "backup", report.Dir, startedAt, result)
	return report, nil
}

// Restore uploads the backup in dir to the bucket and, when an invalidator
// is configured, invalidates the uploaded paths.
func (s *Service) Restore(ctx context.Context, dir string, overwrite bool) (RestoreReport, error) {
	var report RestoreReport

	info, err := os.Stat(dir)
	if err != nil {
		return report, fmt.Errorf("backup directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("backup directory %s is not a directory", dir)
	}

	unlock, err := s.locker.Lock(ctx, "restore:"+s.store.Bucket())
	if err != nil {
		return report, err
	}
	defer unlock()

	startedAt := s.now()
	candidates, fromMetadata, err := CandidatesFor(dir)
	if err != nil {
		return report, err
	}
	report.FromMetadata = fromMetadata

	restoreLog := logger.Component("restore")
	restoreLog.Info().Str("dir", dir).Str("bucket", s.store.Bucket()).
		Int("candidates", len(candidates)).Bool("from_metadata", fromMetadata).
		Bool("overwrite", overwrite).Msg("starting restore")

	result, uploaded, err := NewUploader(s.store).uploadAll(ctx, candidates, dir, overwrite)
	report.Result = result
	s.record(ctx, "restore", dir, startedAt, result)
	if err != nil {
		return report, err
	}

	restoreLog.Info().
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("restore complete")

	if s.invalidator != nil && len(uploaded) > 0 {
		id, err := s.invalidator.Invalidate(ctx, cdn.InvalidationPaths(uploaded))
		if err != nil {
			return report, fmt.Errorf("cdn invalidation failed: %w", err)
		}
		report.InvalidationID = id
	}
	return report, nil
}

// latestSnapshot returns the newest snapshot under root whose metadata loads.
func (s *Service) latestSnapshot(root string) (*domain.BackupSnapshot, string) {
	names, err := ListSnapshotDirs(root)
	if err != nil {
		s.log.Warn().Err(err).Str("root", root).Msg("could not list previous backups")
		return nil, ""
	}
	for _, name := range names {
		if snapshot, ok := LoadMetadata(filepath.Join(root, name)); ok {
			return snapshot, name
		}
	}
	return nil, ""
}

func (s *Service) discard(dir string) {
	if err := fsutil.RemoveTree(dir); err != nil {
		s.log.Warn().Err(err).Str("dir", dir).Msg("could not remove incomplete backup")
	}
}

func (s *Service) record(ctx context.Context, command, dir string, startedAt time.Time, result domain.TransferResult) {
	if s.runs == nil {
		return
	}
	run := &domain.RunRecord{
		Command:     command,
		Bucket:      s.store.Bucket(),
		SnapshotDir: dir,
		Successful:  result.Successful,
		Failed:      result.Failed,
		Skipped:     result.Skipped,
		FailedKeys:  result.FailedKeys(),
		StartedAt:   startedAt,
		FinishedAt:  s.now(),
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("command", command).Msg("could not record run history")
	}
}
