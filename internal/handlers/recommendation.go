package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/readnext/readnext/internal/services"
)

type RecommendationHandler struct {
	recommender services.Recommender
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender services.Recommender, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender, logger: logger}
}

// Get serves GET /api/v1/recommendations/:userId. Every tuning parameter
// is optional; malformed or out-of-range values fall back to configured
// defaults instead of failing the request.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_USER_ID", "message": "Invalid user ID format"},
		})
		return
	}

	params := services.Params{
		TopN:               intQuery(c, "top_n"),
		Lambda:             floatQuery(c, "lambda"),
		BehaviorWeight:     floatQuery(c, "behavior_weight"),
		RestartProbability: floatQuery(c, "restart_probability"),
		MaxIterations:      intQuery(c, "max_iterations"),
		ProfileK:           intQuery(c, "profile_k"),
		GraphWeight:        floatQuery(c, "graph_weight"),
		SemanticWeight:     floatQuery(c, "semantic_weight"),
		AIEnhanced:         c.Query("ai_enhanced") == "true",
	}

	result, err := h.recommender.Recommend(c.Request.Context(), userID, params)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Recommendation request failed")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// intQuery returns the named query parameter or 0, leaving default
// substitution to the service layer.
func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

// floatQuery returns -1 when the parameter is missing or malformed so the
// service can distinguish "unset" from an explicit zero (zero is meaningful
// for lambda, behavior_weight and the fusion weights).
func floatQuery(c *gin.Context, name string) float64 {
	raw := c.Query(name)
	if raw == "" {
		return -1
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return -1
	}
	return v
}
