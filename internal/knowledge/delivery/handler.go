package delivery

import (
	"errors"
	"net/http"

	"inbox-agent/internal/knowledge/domain"
	"inbox-agent/internal/knowledge/usecase"

	"github.com/gin-gonic/gin"
)

const defaultQueryK = 3

type IngestRequest struct {
	Snippets []string `json:"snippets" binding:"required"`
	Source   string   `json:"source"`
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

type KnowledgeHandler struct {
	knowledge usecase.KnowledgeUsecase
}

func NewKnowledgeHandler(knowledge usecase.KnowledgeUsecase) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

// Ingest appends snippets to the knowledge base.
// POST /api/admin/kb/snippets
func (h *KnowledgeHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.knowledge.Ingest(c.Request.Context(), req.Snippets, req.Source)
	if err != nil {
		if errors.Is(err, domain.ErrNoSnippets) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ingested": n})
}

// Query returns the top-K snippets for a query.
// POST /api/admin/kb/query
func (h *KnowledgeHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.K <= 0 {
		req.K = defaultQueryK
	}

	hits, err := h.knowledge.Query(c.Request.Context(), req.Query, req.K)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}
