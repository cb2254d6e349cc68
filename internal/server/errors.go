package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/decision-ledger/internal/llm"
	"github.com/ppiankov/decision-ledger/internal/model"
)

func errorBody(code, message string, issues []model.Issue) gin.H {
	body := gin.H{"code": code, "message": message}
	if len(issues) > 0 {
		body["issues"] = issues
	}
	return gin.H{"error": body}
}

// writeError maps domain errors onto HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		validation *model.ValidationError
		leak       *llm.FigureLeakError
	)

	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", err.Error(), nil))
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, errorBody("VALIDATION_FAILED", err.Error(), validation.Issues))
	case errors.Is(err, model.ErrTransition):
		c.JSON(http.StatusConflict, errorBody("INVALID_TRANSITION", err.Error(), nil))
	case errors.Is(err, llm.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, errorBody("EXPLANATIONS_DISABLED", err.Error(), nil))
	case errors.As(err, &leak):
		c.JSON(http.StatusBadGateway, errorBody("FIGURE_LEAK", err.Error(), nil))
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error", nil))
	}
}

// bindJSON decodes the body; malformed JSON is a 400
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", err.Error(), nil))
		return false
	}
	return true
}
