package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/fsutil"
	"github.com/andresuchdata/mediasync/internal/pathsafe"
)

// SnapshotSummary is one line of a snapshot listing.
type SnapshotSummary struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Timestamp   string `json:"timestamp,omitempty"`
	Source      string `json:"source,omitempty"`
	TotalFiles  int    `json:"totalFiles"`
	TotalSize   int64  `json:"totalSize"`
	HasMetadata bool   `json:"hasMetadata"`
}

// ListSnapshots summarizes every snapshot directory under root, newest first.
func ListSnapshots(root string) ([]SnapshotSummary, error) {
	names, err := ListSnapshotDirs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups in %s: %w", root, err)
	}

	summaries := make([]SnapshotSummary, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		snapshot, fromMetadata, err := SnapshotContents(dir)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, SnapshotSummary{
			Name:        name,
			Path:        dir,
			Timestamp:   snapshot.Timestamp,
			Source:      snapshot.Source,
			TotalFiles:  snapshot.TotalFiles,
			TotalSize:   snapshot.TotalSize,
			HasMetadata: fromMetadata,
		})
	}
	return summaries, nil
}

// SnapshotPath resolves a snapshot name below root, refusing names that
// would leave root or do not follow the snapshot naming convention.
func SnapshotPath(root, name string) (string, error) {
	rel, err := pathsafe.Sanitize(name, root)
	if err != nil {
		return "", err
	}
	if strings.Contains(rel, "/") || !strings.HasPrefix(rel, domain.SnapshotDirPrefix) {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	return pathsafe.LocalPath(root, rel), nil
}

// SnapshotContents describes the backup in dir from its metadata, or from a
// directory scan when the metadata is absent or unreadable.
func SnapshotContents(dir string) (domain.BackupSnapshot, bool, error) {
	if snapshot, ok := LoadMetadata(dir); ok {
		return *snapshot, true, nil
	}

	files, err := fsutil.WalkFiles(dir, isMetadataFile)
	if err != nil {
		return domain.BackupSnapshot{}, false, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	snapshot := domain.BackupSnapshot{Entries: make([]domain.FileRecord, 0, len(files))}
	for _, rel := range files {
		info, err := os.Stat(pathsafe.LocalPath(dir, rel))
		if err != nil {
			continue
		}
		snapshot.Entries = append(snapshot.Entries, domain.FileRecord{
			Key:          rel,
			Size:         info.Size(),
			LastModified: domain.FormatLastModified(info.ModTime()),
		})
		snapshot.TotalFiles++
		snapshot.TotalSize += info.Size()
	}
	return snapshot, false, nil
}
