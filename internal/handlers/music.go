package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/middleware"
	"github.com/tunespace/tunespace/internal/services"
	"github.com/tunespace/tunespace/pkg/spotify"
)

type MusicHandler struct {
	musicService *services.MusicService
}

func NewMusicHandler(musicService *services.MusicService) *MusicHandler {
	return &MusicHandler{musicService: musicService}
}

func (h *MusicHandler) AuthURL(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// state 用 user_id 充当，回调时校验归属
	c.JSON(http.StatusOK, gin.H{"auth_url": h.musicService.AuthURL(userID)})
}

type linkRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *MusicHandler) Link(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.musicService.Link(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Spotify account linked"})
}

func (h *MusicHandler) Unlink(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.musicService.Unlink(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Spotify account unlinked"})
}

// TopTracks decorates the profile view. An upstream outage degrades to an
// empty list instead of failing the request.
func (h *MusicHandler) TopTracks(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		userID = middleware.GetUserID(c)
	}

	limit := musicLimit(c)
	tracks, err := h.musicService.TopTracks(c.Request.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrExternalService) {
			c.JSON(http.StatusOK, gin.H{"tracks": []spotify.Track{}, "degraded": true})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *MusicHandler) Playlists(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		userID = middleware.GetUserID(c)
	}

	limit := musicLimit(c)
	playlists, err := h.musicService.Playlists(c.Request.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrExternalService) {
			c.JSON(http.StatusOK, gin.H{"playlists": []spotify.Playlist{}, "degraded": true})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

func (h *MusicHandler) SyncFavorites(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	songs, err := h.musicService.SyncFavoriteSongs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorite_songs": songs})
}

func musicLimit(c *gin.Context) int {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	return limit
}
