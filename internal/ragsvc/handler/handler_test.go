package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	"github.com/ai-nk/rag-service/internal/ragsvc/handler"
	"github.com/ai-nk/rag-service/internal/ragsvc/router"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
	"github.com/ai-nk/rag-service/pkg/llm"
	indexingopts "github.com/ai-nk/rag-service/pkg/options/indexing"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (stubEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

func (stubEmbedder) Name() string { return "stub" }

type stubVectorIndex struct{}

func (stubVectorIndex) Upsert(context.Context, []store.Point) error   { return nil }
func (stubVectorIndex) DeleteByDocument(context.Context, int64) error { return nil }
func (stubVectorIndex) Search(context.Context, []float32, int, float64) ([]store.Hit, error) {
	return nil, nil
}
func (stubVectorIndex) Stats(context.Context) (store.CollectionStats, error) {
	return store.CollectionStats{VectorDim: 4}, nil
}

type stubChat struct{}

func (stubChat) Chat(context.Context, []llm.Message) (string, error) { return "ответ", nil }
func (stubChat) Generate(context.Context, string, string) (string, error) {
	return "ответ", nil
}
func (stubChat) Name() string { return "stub" }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	factory := store.NewFactory(db)

	vector := stubVectorIndex{}
	embedder := stubEmbedder{}
	chat := stubChat{}

	chunker := biz.NewChunker(biz.ChunkerConfig{ChunkSize: 500, ChunkOverlap: 50, MinChunkLength: 10})
	engine, err := biz.NewHybridSearchEngine(vector, factory.Lexical(), factory.Chunks(), embedder, biz.HybridConfig{
		DenseWeight:   0.6,
		LexicalWeight: 0.4,
	})
	require.NoError(t, err)

	builder := biz.NewContextBuilder(factory.Chunks(), chat, biz.ContextBuilderConfig{})
	consultation := biz.NewConsultationService(engine, builder, chat, nil, biz.ConsultationConfig{})
	indexing := biz.NewResilientIndexingService(
		indexingopts.NewOptions(),
		chunker,
		embedder,
		vector,
		factory.Lexical(),
		factory.Chunks(),
		factory.Documents(),
		factory.Tasks(),
	)
	documents := biz.NewDocumentService(factory.Documents(), factory.Chunks(), vector, factory.Lexical(), indexing)

	r := gin.New()
	router.Register(r, &router.Handlers{
		Search:       handler.NewSearchHandler(engine, builder, 5),
		Consultation: handler.NewConsultationHandler(consultation),
		Indexing:     handler.NewIndexingHandler(indexing),
		Documents:    handler.NewDocumentHandler(documents),
		System:       handler.NewSystemHandler(documents, indexing, nil, "test"),
	})
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/documents", gin.H{
		"filename": "ГОСТ 2.105-2019.pdf",
		"content":  "1.1 Область применения\n\nНастоящий стандарт устанавливает общие требования к текстовым документам.",
		"category": "ГОСТ",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		Status string `json:"status"`
		Data   struct {
			DocumentID int64  `json:"document_id"`
			TaskID     string `json:"task_id"`
			Status     string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "success", created.Status)
	assert.NotEmpty(t, created.Data.TaskID)
	assert.Equal(t, "pending", created.Data.Status)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/documents/%d", created.Data.DocumentID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/documents/%d", created.Data.DocumentID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/documents/%d", created.Data.DocumentID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var errResp struct {
		Status  string `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "error", errResp.Status)
	assert.NotZero(t, errResp.Code)
	assert.NotEmpty(t, errResp.Message)
}

func TestSearchValidation(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/search", gin.H{"k": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/search", gin.H{"query": "требования к маркировке"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Zero(t, resp.Data.Count)
}

func TestStructuredContextRequestShape(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/structured-context", gin.H{"k": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/structured-context", gin.H{
		"message":   "требования к маркировке",
		"k":         3,
		"fast_mode": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			MetaSummary struct {
				DocumentCount int `json:"document_count"`
			} `json:"meta_summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Zero(t, resp.Data.MetaSummary.DocumentCount)
}

func TestConsultationWithoutDocuments(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/consultation/chat", gin.H{
		"message": "Какие требования к оформлению?",
		"user_id": "u-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Response   string  `json:"response"`
			Confidence float64 `json:"confidence"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.Data.Response)
	assert.Zero(t, resp.Data.Confidence)
}

func TestIndexingControlEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/indexing/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Data struct {
			Running bool `json:"running"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Data.Running)

	w = doJSON(t, r, http.MethodGet, "/indexing/pending", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/indexing/retry-failed?max_retries=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = doJSON(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ai_nk_rag_")

	w = doJSON(t, r, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Data struct {
			VectorDim int `json:"vector_dim"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Data.VectorDim)
}
