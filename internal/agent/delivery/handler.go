package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"inbox-agent/internal/agent/domain"
	"inbox-agent/internal/agent/usecase"

	"github.com/gin-gonic/gin"
)

const defaultFailedLimit = 50

type AgentHandler struct {
	pipeline usecase.PipelineUsecase
}

func NewAgentHandler(pipeline usecase.PipelineUsecase) *AgentHandler {
	return &AgentHandler{pipeline: pipeline}
}

// ListFailed returns failed and abandoned messages.
// GET /api/admin/messages/failed?limit=N
func (h *AgentHandler) ListFailed(c *gin.Context) {
	limit := defaultFailedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	cps, err := h.pipeline.ListFailed(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": cps, "count": len(cps)})
}

// Retry runs one message through the pipeline again.
// POST /api/admin/messages/:id/retry
func (h *AgentHandler) Retry(c *gin.Context) {
	messageID := c.Param("id")
	if messageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message id is required"})
		return
	}

	cp, err := h.pipeline.Retry(c.Request.Context(), messageID)
	switch {
	case errors.Is(err, domain.ErrMessageInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		// the checkpoint still reports where the message stopped
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "checkpoint": cp})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkpoint": cp})
}
