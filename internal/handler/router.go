// Package handler exposes the companion operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

// Engine is the subset of the companion used by the HTTP layer.
type Engine interface {
	SafeRunAgentLoop(ctx context.Context, id types.Identity, entries []types.DiaryEntry) apperr.Result[*agent.RunReport]
	SafePendingCheckins(ctx context.Context, id types.Identity, limit int, fallback []types.AgentCheckin) apperr.Result[[]types.AgentCheckin]
	SafeMarkCheckinRead(ctx context.Context, id types.Identity, checkinID string) apperr.Result[bool]
	SafeRespondCheckin(ctx context.Context, id types.Identity, checkinID string) apperr.Result[bool]
	SafeSettings(ctx context.Context, id types.Identity, fallback types.AgentSettings) apperr.Result[types.AgentSettings]
	SafeUpdateSettings(ctx context.Context, id types.Identity, update types.SettingsUpdate, fallback types.AgentSettings) apperr.Result[types.AgentSettings]
	SafeGenerateWeeklyInsight(ctx context.Context, id types.Identity, entries []types.DiaryEntry) apperr.Result[*types.WeeklyInsight]
	SafeRecentInsights(ctx context.Context, id types.Identity, limit int, fallback []types.WeeklyInsight) apperr.Result[[]types.WeeklyInsight]
}

// IdentityResolver turns the Authorization header into an identity.
type IdentityResolver interface {
	Identity(header string) (types.Identity, error)
}

// DiaryReader loads entries when the caller does not send them.
type DiaryReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]types.DiaryEntry, error)
}

// Handler serves the companion API.
type Handler struct {
	engine     Engine
	identities IdentityResolver
	diary      DiaryReader
	logger     *slog.Logger
	timeout    time.Duration
}

// New creates a Handler. diary may be nil, in which case requests must carry their entries.
func New(engine Engine, identities IdentityResolver, diary DiaryReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, identities: identities, diary: diary, logger: logger, timeout: 2 * time.Minute}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", h.authenticate())
	v1.POST("/agent/run", h.runAgentLoop)
	v1.GET("/checkins/pending", h.pendingCheckins)
	v1.POST("/checkins/:id/read", h.markCheckinRead)
	v1.POST("/checkins/:id/respond", h.respondCheckin)
	v1.GET("/settings", h.getSettings)
	v1.PATCH("/settings", h.updateSettings)
	v1.POST("/insights/weekly", h.generateWeeklyInsight)
	v1.GET("/insights", h.recentInsights)
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
