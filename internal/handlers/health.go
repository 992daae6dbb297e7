package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/database"
)

type HealthHandler struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewHealthHandler(db *database.Database, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
}

// Check reports overall service health. Postgres is mandatory; Redis only
// backs the embedding cache, so its loss degrades rather than fails the
// service.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{
		Status:    "healthy",
		Services:  make(map[string]string),
		Timestamp: time.Now(),
	}

	if err := h.db.PG.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("PostgreSQL health check failed")
		status.Services["postgres"] = "unhealthy"
		status.Status = "unhealthy"
	} else {
		status.Services["postgres"] = "healthy"
	}

	if h.db.Redis != nil {
		if err := h.db.Redis.Ping(ctx).Err(); err != nil {
			h.logger.WithError(err).Warn("Redis health check failed")
			status.Services["redis"] = "unhealthy"
			if status.Status == "healthy" {
				status.Status = "degraded"
			}
		} else {
			status.Services["redis"] = "healthy"
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, status)
}
