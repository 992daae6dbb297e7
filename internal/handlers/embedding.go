package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/services"
	"github.com/readnext/readnext/pkg/models"
)

const defaultSimilarTopK = 10

type EmbeddingHandler struct {
	embeddings services.EmbeddingProvider
	validator  *validator.Validate
	logger     *logrus.Logger
}

func NewEmbeddingHandler(embeddings services.EmbeddingProvider, logger *logrus.Logger) *EmbeddingHandler {
	return &EmbeddingHandler{
		embeddings: embeddings,
		validator:  validator.New(),
		logger:     logger,
	}
}

type upsertEmbeddingRequest struct {
	Vector    []float64 `json:"vector" validate:"required,min=1"`
	ModelName string    `json:"model_name" validate:"required"`
}

// Upsert serves PUT /api/v1/embeddings/:bookId. Only admins may replace a
// book's vector; the caller's role arrives in the X-User-Role header.
func (h *EmbeddingHandler) Upsert(c *gin.Context) {
	role := models.Role(c.GetHeader("X-User-Role"))
	if !role.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{
			"error": gin.H{"code": "FORBIDDEN", "message": "Admin role required"},
		})
		return
	}

	bookID, err := uuid.Parse(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_BOOK_ID", "message": "Invalid book ID format"},
		})
		return
	}

	var req upsertEmbeddingRequest
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

	err = h.embeddings.Upsert(c.Request.Context(), models.Embedding{
		BookID:    bookID,
		Vector:    req.Vector,
		ModelName: req.ModelName,
	})
	if err != nil {
		h.logger.WithError(err).WithField("book_id", bookID).Warn("Embedding upsert failed")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Embedding stored"})
}

// Similar serves GET /api/v1/books/:bookId/similar. The queried book is
// excluded from its own result list.
func (h *EmbeddingHandler) Similar(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_BOOK_ID", "message": "Invalid book ID format"},
		})
		return
	}

	topK := defaultSimilarTopK
	if raw := c.Query("top_k"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			topK = v
		}
	}

	vec, err := h.embeddings.GetEmbedding(c.Request.Context(), bookID)
	if err != nil {
		writeError(c, err)
		return
	}

	// Fetch one extra so the book itself can be dropped.
	similar, err := h.embeddings.QuerySimilar(c.Request.Context(), vec, topK+1)
	if err != nil {
		h.logger.WithError(err).WithField("book_id", bookID).Warn("Similarity query failed")
		writeError(c, err)
		return
	}

	results := make([]models.SimilarBook, 0, topK)
	for _, sb := range similar {
		if sb.BookID == bookID {
			continue
		}
		results = append(results, sb)
		if len(results) == topK {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"book_id": bookID, "similar": results})
}
