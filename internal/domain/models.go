// internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// MetadataFileName is the snapshot metadata document written into every backup directory.
const MetadataFileName = "backup-metadata.json"

// SnapshotDirPrefix prefixes every snapshot directory under the backups root.
const SnapshotDirPrefix = "s3-"

// LastModifiedLayout is the ISO-8601 layout used for FileRecord.LastModified.
const LastModifiedLayout = "2006-01-02T15:04:05.000Z"

// BackupSnapshot is the persisted record of one completed backup run.
type BackupSnapshot struct {
	Timestamp  string       `json:"timestamp"`
	Source     string       `json:"source"`
	KeyPrefix  string       `json:"keyPrefix"`
	Region     string       `json:"region"`
	TotalFiles int          `json:"totalFiles"`
	TotalSize  int64        `json:"totalSize"`
	Entries    []FileRecord `json:"entries"`
}

// FileRecord is one object's metadata at backup time.
type FileRecord struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
	ContentType  string `json:"contentType,omitempty"`
}

// FormatLastModified renders a provider timestamp the way FileRecord stores it.
// The zero time means the provider did not report one.
func FormatLastModified(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(LastModifiedLayout)
}

// SnapshotDirName returns the directory name for a run started at t,
// e.g. s3-2024-01-15T10-30-00-000Z. Names sort in creation order.
func SnapshotDirName(t time.Time) string {
	stamp := t.UTC().Format(LastModifiedLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return SnapshotDirPrefix + stamp
}

// RunRecord is one row of backup run history.
type RunRecord struct {
	ID          int64     `json:"id" db:"id"`
	Command     string    `json:"command" db:"command"`
	Bucket      string    `json:"bucket" db:"bucket"`
	SnapshotDir string    `json:"snapshot_dir" db:"snapshot_dir"`
	Successful  int       `json:"successful" db:"successful"`
	Failed      int       `json:"failed" db:"failed"`
	Skipped     int       `json:"skipped" db:"skipped"`
	FailedKeys  []string  `json:"failed_keys" db:"-"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}
