package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/fsutil"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// ListSnapshotDirs returns the snapshot directory names directly under root,
// newest first. The timestamp embedded in the name makes lexical order exact.
// A missing root has no snapshots.
func ListSnapshotDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), domain.SnapshotDirPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Cleanup keeps the maxToKeep newest snapshot directories under root and
// deletes the rest. Failures are logged and the remaining candidates are
// still tried; the return value counts only directories actually removed.
func Cleanup(root string, maxToKeep int) int {
	log := logger.Component("cleanup")
	if maxToKeep < 0 {
		maxToKeep = 0
	}

	names, err := ListSnapshotDirs(root)
	if err != nil {
		log.Error().Err(err).Str("root", root).Msg("failed to list backups")
		return 0
	}
	if len(names) <= maxToKeep {
		return 0
	}

	deleted := 0
	for _, name := range names[maxToKeep:] {
		dir := filepath.Join(root, name)
		if err := fsutil.RemoveTree(dir); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to delete old backup")
			continue
		}
		deleted++
		log.Info().Str("dir", dir).Msg("deleted old backup")
	}
	return deleted
}
