// Package httpapi exposes the conversion pipeline over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/subforge/subforge/internal/settings"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type Server struct {
	store *settings.Store
	log   zerolog.Logger
}

// New builds the gin engine. Request logs carry method, path, and status
// only; query strings hold subscription URLs and must never reach the log.
func New(store *settings.Store, log zerolog.Logger) *gin.Engine {
	s := &Server{store: store, log: log}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), requestMetrics())

	r.GET("/sub", s.handleSub)
	r.GET("/version", s.handleVersion)
	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", handleMetrics)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		pattern := c.FullPath()
		if pattern == "" {
			pattern = "(unmatched)"
		}
		metricsIncRequest(pattern, c.Writer.Status())
	}
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": "subforge", "version": Version})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
