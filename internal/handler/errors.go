package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/logger"
)

// respondError переводит ошибку сервиса в HTTP ответ
func respondError(c *gin.Context, err error) {
	var ineligible *apperrors.IneligibleError

	switch {
	case errors.As(err, &ineligible):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Vous devez terminer tous les modules avant de demander un certificat",
			"error_type":        "ineligible",
			"remaining_modules": ineligible.Remaining,
			"total_modules":     ineligible.Total,
		})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	default:
		logger.Log.Named("http").Error("internal server error",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// bindJSON разбирает тело запроса и отвечает 400 при ошибке
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
		return false
	}
	return true
}
