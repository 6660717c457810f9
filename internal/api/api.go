// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/mediasync/internal/api/handlers"
	"github.com/andresuchdata/mediasync/internal/api/middleware"
	"github.com/andresuchdata/mediasync/internal/repository"
)

type Services struct {
	BackupRoot string
	// Runs is nil when no database is configured; /api/v1/runs is then not mounted.
	Runs repository.RunRepository
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		snapshotHandler := handlers.NewSnapshotHandler(services.BackupRoot)
		snapshotGroup := apiGroup.Group("/snapshots")
		{
			snapshotGroup.GET("", snapshotHandler.ListSnapshots)
			snapshotGroup.GET("/:name", snapshotHandler.GetSnapshot)
		}

		if services.Runs != nil {
			runHandler := handlers.NewRunHandler(services.Runs)
			apiGroup.GET("/runs", runHandler.ListRuns)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
