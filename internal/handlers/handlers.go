package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readnext/readnext/pkg/models"
)

// Handlers bundles every HTTP handler of the service.
type Handlers struct {
	Recommendation *RecommendationHandler
	Embedding      *EmbeddingHandler
	Reminder       *ReminderHandler
	Health         *HealthHandler
}

func writeError(c *gin.Context, err error) {
	switch {
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": err.Error()},
		})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_REQUEST", "message": err.Error()},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL_SERVER_ERROR", "message": "Internal server error"},
		})
	}
}
