package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

const diaryLoadLimit = 200

type entriesRequest struct {
	Entries []types.DiaryEntry `json:"entries"`
}

// entries returns the request's entries, or the stored history when the body has none.
func (h *Handler) entries(c *gin.Context, id types.Identity) ([]types.DiaryEntry, bool) {
	var req entriesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return nil, false
		}
	}
	if len(req.Entries) > 0 || h.diary == nil {
		return req.Entries, true
	}
	res := apperr.Safe(c.Request.Context(), h.logger, "load_diary_entries", []types.DiaryEntry(nil), func(ctx context.Context) ([]types.DiaryEntry, error) {
		return h.diary.ListRecent(ctx, id.UserID, diaryLoadLimit)
	})
	if !res.OK() {
		c.AbortWithStatusJSON(statusFor(res.Error), res)
		return nil, false
	}
	return res.Data, true
}

func (h *Handler) runAgentLoop(c *gin.Context) {
	id := identity(c)
	entries, ok := h.entries(c, id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	respond(c, h.engine.SafeRunAgentLoop(ctx, id, entries))
}

func (h *Handler) pendingCheckins(c *gin.Context) {
	respond(c, h.engine.SafePendingCheckins(c.Request.Context(), identity(c), queryLimit(c), []types.AgentCheckin{}))
}

func (h *Handler) markCheckinRead(c *gin.Context) {
	respond(c, h.engine.SafeMarkCheckinRead(c.Request.Context(), identity(c), c.Param("id")))
}

func (h *Handler) respondCheckin(c *gin.Context) {
	respond(c, h.engine.SafeRespondCheckin(c.Request.Context(), identity(c), c.Param("id")))
}

func (h *Handler) getSettings(c *gin.Context) {
	id := identity(c)
	respond(c, h.engine.SafeSettings(c.Request.Context(), id, types.DefaultSettings(id.UserID)))
}

func (h *Handler) updateSettings(c *gin.Context) {
	id := identity(c)
	var update types.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	current := h.engine.SafeSettings(c.Request.Context(), id, types.DefaultSettings(id.UserID))
	respond(c, h.engine.SafeUpdateSettings(c.Request.Context(), id, update, current.Data))
}

func (h *Handler) generateWeeklyInsight(c *gin.Context) {
	id := identity(c)
	entries, ok := h.entries(c, id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	respond(c, h.engine.SafeGenerateWeeklyInsight(ctx, id, entries))
}

func (h *Handler) recentInsights(c *gin.Context) {
	respond(c, h.engine.SafeRecentInsights(c.Request.Context(), identity(c), queryLimit(c), []types.WeeklyInsight{}))
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return min(limit, 100)
}
