package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/messaging"
)

// ReminderSink accepts due-date reminders for asynchronous delivery.
type ReminderSink interface {
	Publish(ctx context.Context, reminder messaging.DueReminder) error
}

type ReminderHandler struct {
	sink      ReminderSink
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewReminderHandler(sink ReminderSink, logger *logrus.Logger) *ReminderHandler {
	return &ReminderHandler{
		sink:      sink,
		validator: validator.New(),
		logger:    logger,
	}
}

type createReminderRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	BookID uuid.UUID `json:"book_id" validate:"required"`
	DueAt  time.Time `json:"due_at" validate:"required"`
}

// Create serves POST /api/v1/reminders. The reminder is enqueued for a
// downstream notification worker, not delivered inline, so the response
// is 202.
func (h *ReminderHandler) Create(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Request validation failed",
				"details": err.Error(),
			},
		})
		return
	}

	err := h.sink.Publish(c.Request.Context(), messaging.DueReminder{
		UserID: req.UserID,
		BookID: req.BookID,
		DueAt:  req.DueAt,
	})
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"book_id": req.BookID,
		}).Error("Failed to enqueue due reminder")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "REMINDER_UNAVAILABLE", "message": "Reminder queue unavailable"},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Reminder accepted"})
}
