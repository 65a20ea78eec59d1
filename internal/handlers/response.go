package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "github.com/tunespace/tunespace/internal/errors"
)

// respondError maps a service error to its HTTP status and a user-visible
// message. Untyped errors become a 500 with no internal detail.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.Message(err)})
		return
	}
	c.JSON(apperrors.HTTPStatus(appErr), gin.H{"error": appErr.Message})
}
