package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tunespace/tunespace/internal/middleware"
	"github.com/tunespace/tunespace/internal/storage"
)

type UploadHandler struct {
	store storage.MediaStore
}

func NewUploadHandler(store storage.MediaStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload stores an image blob and returns its reference. The caller puts
// the reference on a profile or post field; the server never interprets it.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer src.Close()

	ref, err := h.store.Save(src, file.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": ref})
}
