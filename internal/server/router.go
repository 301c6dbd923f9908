// Package server assembles the HTTP router and runs it.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/handlers"
	"taskapi/internal/metrics"
	"taskapi/internal/output"
	"taskapi/internal/store"
)

// NewRouter builds the gin engine serving the configured API version on s.
func NewRouter(cfg *config.Config, s store.Store, logger *zap.Logger, m *metrics.Metrics) (*gin.Engine, error) {
	r := gin.New()

	// Order matters: the request id must exist before logging and recovery read it,
	// and metrics sit outside recovery so panics are observed as 500s.
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	r.Use(m.Middleware())
	r.Use(Recovery(logger, output.ForVersion(cfg.APIVersion)))

	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", m.Handler())

	reg, err := handlers.NewHandler(cfg, s, logger).Registry()
	if err != nil {
		return nil, err
	}
	reg.Mount(r)

	for _, rt := range reg.All() {
		logger.Debug("route registered",
			zap.String("method", rt.Method),
			zap.String("path", rt.Path),
			zap.Int("api_version", cfg.APIVersion),
		)
	}
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}
