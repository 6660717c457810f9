package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/mediasync/pkg/logger"
)

func TestLoggerAndRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	router := gin.New()
	router.Use(Logger(), Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d", w.Code)
	}
	if !strings.Contains(buf.String(), "recovered from panic") || !strings.Contains(buf.String(), `"component":"http"`) {
		t.Fatalf("log = %s", buf.String())
	}

	buf.Reset()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	if w.Code != http.StatusNoContent || !strings.Contains(buf.String(), `"path":"/ok?x=1"`) {
		t.Fatalf("status = %d, log = %s", w.Code, buf.String())
	}
}
