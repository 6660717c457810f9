package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/mediasync/internal/backup"
	"github.com/andresuchdata/mediasync/internal/domain"
)

type SnapshotHandler struct {
	root string
}

func NewSnapshotHandler(root string) *SnapshotHandler {
	return &SnapshotHandler{root: root}
}

type snapshotItem struct {
	backup.SnapshotSummary
	SizeHuman string `json:"size_human"`
}

type snapshotDetail struct {
	Name        string                `json:"name"`
	HasMetadata bool                  `json:"hasMetadata"`
	SizeHuman   string                `json:"size_human"`
	Snapshot    domain.BackupSnapshot `json:"snapshot"`
}

// ListSnapshots returns every snapshot under the backups root, newest first.
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	summaries, err := backup.ListSnapshots(h.root)
	if err != nil {
		log.Error().Err(err).Str("root", h.root).Msg("failed to list snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}

	items := make([]snapshotItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, snapshotItem{SnapshotSummary: s, SizeHuman: humanize.Bytes(uint64(s.TotalSize))})
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// GetSnapshot returns the recorded contents of one snapshot.
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	name := c.Param("name")
	dir, err := backup.SnapshotPath(h.root, name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil || errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
			return
		}
		log.Error().Err(err).Str("dir", dir).Msg("failed to stat snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read snapshot"})
		return
	}

	snapshot, fromMetadata, err := backup.SnapshotContents(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("failed to read snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read snapshot"})
		return
	}

	c.JSON(http.StatusOK, snapshotDetail{
		Name:        name,
		HasMetadata: fromMetadata,
		SizeHuman:   humanize.Bytes(uint64(snapshot.TotalSize)),
		Snapshot:    snapshot,
	})
}
