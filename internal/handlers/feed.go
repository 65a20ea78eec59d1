package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tunespace/tunespace/internal/middleware"
	"github.com/tunespace/tunespace/internal/services"
)

type FeedHandler struct {
	feedService *services.FeedService
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// GetFeed serves both authenticated and anonymous viewers; the optional
// JWT middleware decides which one this request is.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	viewerID := middleware.GetUserID(c)

	limit := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	feed, err := h.feedService.FeedFor(c.Request.Context(), viewerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}
