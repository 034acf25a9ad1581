// Package api is the HTTP boundary: the generation action endpoint, public
// page reads and the admin page editor.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"site-cms/internal/authoring"
	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/regen"
	"site-cms/internal/render"
	"site-cms/internal/resolver"
	"site-cms/internal/search"
	"site-cms/internal/store"
)

// PublicCacheControl is sent with every public page read.
const PublicCacheControl = "s-maxage=60, stale-while-revalidate=300"

// ReadyFunc reports whether backing services are reachable.
type ReadyFunc func(ctx context.Context) error

type Handler struct {
	Store     store.Store
	Resolver  *resolver.Resolver
	Authoring *authoring.Service
	Regen     *regen.Orchestrator
	Render    *render.Dispatcher
	// Search is nil when the search index is disabled.
	Search *search.Indexer
	Ready  ReadyFunc
	Log    logger.Logger
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = logger.NewNoOpLogger()
	}
	if h.Render == nil {
		h.Render = render.NewDispatcher(h.Log)
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.observe())

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.POST("/ai-generate", h.generate)
	apiGroup.GET("/page", h.getPage)
	apiGroup.GET("/page/render", h.renderPage)

	admin := apiGroup.Group("/admin")
	admin.GET("/schemas", h.listSchemas)
	admin.GET("/search", h.searchPages)

	admin.GET("/pages", h.listPages)
	admin.POST("/pages", h.createPage)
	admin.POST("/pages/generate", h.generatePage)
	admin.GET("/pages/:id", h.getAdminPage)
	admin.PUT("/pages/:id", h.updatePage)
	admin.DELETE("/pages/:id", h.deletePage)
	admin.POST("/pages/:id/sections", h.addSection)
	admin.PUT("/pages/:id/sections/order", h.reorderSections)
	admin.POST("/pages/:id/preview", h.previewPage)
	admin.POST("/pages/:id/regen/preview", h.regenPreview)
	admin.POST("/pages/:id/regen/apply", h.regenApply)

	admin.PUT("/sections/:id", h.updateSection)
	admin.DELETE("/sections/:id", h.deleteSection)
	admin.POST("/sections/:id/move", h.moveSection)

	return r
}

// observe records request metrics and logs each request once.
func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		if route == "/metrics" || route == "/health" {
			return
		}
		h.Log.Debug("http request", map[string]interface{}{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
		})
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) ready(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// fail writes the error body {error, code, retryable, details?, raw?}. Raw
// model output is included so an author can recover it by hand.
func (h *Handler) fail(c *gin.Context, err error) {
	stdErr := errors.AsStandardError(err)
	status := errors.HTTPStatus(stdErr.Code)

	body := gin.H{
		"error":     stdErr.Message,
		"code":      stdErr.Code,
		"retryable": stdErr.Retryable,
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	if raw, ok := errors.RawOutput(err); ok {
		body["raw"] = raw
	}

	fields := map[string]interface{}{
		"route":     c.FullPath(),
		"status":    status,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", fields)
	} else {
		h.Log.Warn("request rejected", fields)
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, errors.NewValidationError(err.Error()))
}
