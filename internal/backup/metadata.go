package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/pkg/logger"
)

// SaveMetadata writes snapshot as indented JSON into dir. The document is
// written to a temporary file first and renamed into place.
func SaveMetadata(snapshot domain.BackupSnapshot, dir string) error {
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.FileRecord{}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, domain.MetadataFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed creating temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed closing %s: %w", tmpName, err)
	}

	target := filepath.Join(dir, domain.MetadataFileName)
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed moving metadata into %s: %w", target, err)
	}
	return nil
}

// LoadMetadata reads the snapshot stored in dir. A missing or unparsable
// document yields nil, false: callers treat it as no prior snapshot.
func LoadMetadata(dir string) (*domain.BackupSnapshot, bool) {
	log := logger.Component("s3-backup")
	path := filepath.Join(dir, domain.MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("could not read backup metadata")
		}
		return nil, false
	}

	var snapshot domain.BackupSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring unparsable backup metadata")
		return nil, false
	}
	return &snapshot, true
}
