package delivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inbox-agent/internal/knowledge/domain"
	"inbox-agent/internal/knowledge/repository"
	"inbox-agent/internal/knowledge/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	h := NewKnowledgeHandler(usecase.NewKnowledgeUsecase(repository.NewMemoryIndex(), zerolog.Nop()))
	r := gin.New()
	r.POST("/kb/snippets", h.Ingest)
	r.POST("/kb/query", h.Query)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestIngestAndQuery(t *testing.T) {
	r := newRouter()

	w := post(r, "/kb/snippets", `{"snippets":["Warranty covers 2 years","  "],"source":"faq"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ingested":1}`, w.Body.String())

	w = post(r, "/kb/query", `{"query":"warranty years"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []domain.ScoredChunk `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Warranty covers 2 years", body.Results[0].Text)
}

func TestIngest_Rejects(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusBadRequest, post(r, "/kb/snippets", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/kb/snippets", `{"snippets":[""]}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/kb/query", `{"k":2}`).Code)
}
