package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/mediasync/internal/repository"
)

type RunHandler struct {
	repo repository.RunRepository
}

func NewRunHandler(repo repository.RunRepository) *RunHandler {
	return &RunHandler{repo: repo}
}

// ListRuns returns recent backup and restore runs, newest first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && l > 0 {
		limit = l
	}
	if limit > 500 {
		limit = 500
	}

	runs, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs, "total": len(runs)})
}
