// Package http exposes the registry over a JSON API with gin.
package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idcard/internal/adapters/requests"
	"idcard/internal/avatar"
	"idcard/internal/logger"
)

// AdminKeyHeader carries the admin API key.
const AdminKeyHeader = "X-Admin-Key"

type RouterConfig struct {
	AdminAPIKey string
	Release     bool
	// Gatherer backs /metrics; nil omits the route.
	Gatherer prometheus.Gatherer
	// Avatars fetches avatar_url for admin card requests; nil disables it.
	Avatars *avatar.HTTPFetcher
	Logger  *slog.Logger
}

// NewRouter builds the engine serving the member API.
func NewRouter(h *requests.Handler, cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	mh := &MemberHandler{requests: h, adminAPIKey: cfg.AdminAPIKey, avatars: cfg.Avatars}
	v1 := r.Group("/v1/members")
	v1.Use(mh.identifyAdmin())
	{
		v1.GET("/:id", mh.Get)
		v1.GET("/:id/card.png", mh.Card)
		v1.GET("/:id/cards", mh.Cards)
		v1.POST("", mh.Create)
		v1.GET("", mh.List)
		v1.PATCH("/:id/status", mh.SetStatus)
		v1.PATCH("/:id/role", mh.SetRole)
		v1.DELETE("/:id", mh.Delete)
	}
	return r
}

const adminContextKey = "idcard.admin"

// identifyAdmin records whether the caller presented the admin key. The
// request handler decides which operations need it.
func (h *MemberHandler) identifyAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			key = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		admin := h.adminAPIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(h.adminAPIKey)) == 1
		c.Set(adminContextKey, admin)
		if admin {
			ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RequesterID: "admin-api"})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func requestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "idcard.http"})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		l.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
