package biz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/llm"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/pkg/textutil"
	"github.com/ai-nk/rag-service/internal/ragsvc/metrics"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

// HybridConfig configures score fusion.
type HybridConfig struct {
	// DenseWeight scales normalized dense scores.
	DenseWeight float64
	// LexicalWeight scales normalized lexical scores.
	LexicalWeight float64
	// ScoreThreshold is the minimum dense score passed to the vector index.
	ScoreThreshold float64
	// DenseLimit is the dense candidate fetch size.
	DenseLimit int
	// LexicalLimit is the lexical candidate fetch size.
	LexicalLimit int
}

// HybridHit is one fused retrieval result.
type HybridHit struct {
	ChunkID      string  `json:"chunk_id"`
	Score        float64 `json:"score"`
	DenseScore   float64 `json:"dense_score"`
	LexicalScore float64 `json:"lexical_score"`
	Why          string  `json:"why"`
}

// HybridSearchEngine merges dense and lexical hit lists into one ranked
// list.
type HybridSearchEngine struct {
	vector   store.VectorIndex
	lexical  store.LexicalIndex
	chunks   store.ChunkStore
	embedder llm.EmbeddingProvider
	config   HybridConfig
	metrics  *metrics.Metrics
}

// NewHybridSearchEngine creates the engine. Construction fails when the
// fusion weights are misconfigured, so a broken deployment cannot silently
// return empty results at query time.
func NewHybridSearchEngine(
	vector store.VectorIndex,
	lexical store.LexicalIndex,
	chunks store.ChunkStore,
	embedder llm.EmbeddingProvider,
	config HybridConfig,
) (*HybridSearchEngine, error) {
	if config.DenseWeight < 0 || config.LexicalWeight < 0 {
		return nil, apierrors.ErrInvalidParam.WithMessage("fusion weights must be non-negative")
	}
	if config.DenseWeight+config.LexicalWeight == 0 {
		return nil, apierrors.ErrInvalidParam.WithMessage("fusion weight sum must be positive")
	}
	if config.DenseLimit <= 0 {
		config.DenseLimit = 20
	}
	if config.LexicalLimit <= 0 {
		config.LexicalLimit = 20
	}
	return &HybridSearchEngine{
		vector:   vector,
		lexical:  lexical,
		chunks:   chunks,
		embedder: embedder,
		config:   config,
		metrics:  metrics.Get(),
	}, nil
}

// Search runs both retrieval sources and fuses their scores. documentFilter,
// when non-empty, restricts results to chunks of the named document before
// truncation to topK. Empty results are a normal outcome, not an error.
func (e *HybridSearchEngine) Search(ctx context.Context, query string, topK int, documentFilter string) ([]HybridHit, error) {
	start := time.Now()
	if topK <= 0 {
		topK = 5
	}

	embedding, err := e.embedder.EmbedSingle(ctx, query)
	if err != nil {
		e.metrics.RecordSearch(time.Since(start), false, false, err)
		return nil, apierrors.ErrEmbeddingUnavailable.WithCause(err)
	}

	var (
		wg       sync.WaitGroup
		dense    []store.Hit
		denseErr error
		lexical  []store.LexicalHit
		lexErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		dense, denseErr = e.vector.Search(ctx, embedding, e.config.DenseLimit, e.config.ScoreThreshold)
	}()
	go func() {
		defer wg.Done()
		lexical, lexErr = e.lexical.Search(ctx, query, e.config.LexicalLimit)
	}()
	wg.Wait()

	if denseErr != nil {
		e.metrics.RecordSearch(time.Since(start), false, false, denseErr)
		return nil, denseErr
	}
	if lexErr != nil {
		e.metrics.RecordSearch(time.Since(start), false, false, lexErr)
		return nil, lexErr
	}

	fused := e.fuse(dense, lexical)

	if documentFilter != "" {
		fused, err = e.filterByDocument(ctx, fused, documentFilter)
		if err != nil {
			e.metrics.RecordSearch(time.Since(start), false, false, err)
			return nil, err
		}
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}

	e.metrics.RecordSearch(time.Since(start), len(dense) > 0, len(lexical) > 0, nil)
	logger.Debugw("hybrid search completed",
		"query_len", len(query),
		"dense_hits", len(dense),
		"lexical_hits", len(lexical),
		"fused_hits", len(fused),
	)
	return fused, nil
}

// fuse normalizes each source to [0,1] and combines the weighted scores.
// Chunks present in only one source keep that source's weighted score.
func (e *HybridSearchEngine) fuse(dense []store.Hit, lexical []store.LexicalHit) []HybridHit {
	denseScores := make([]float64, len(dense))
	for i, h := range dense {
		denseScores[i] = h.Score
	}
	lexScores := make([]float64, len(lexical))
	for i, h := range lexical {
		lexScores[i] = h.Score
	}

	denseNorm := textutil.MinMaxNormalize(denseScores)
	lexNorm := textutil.MinMaxNormalize(lexScores)

	byChunk := make(map[string]*HybridHit, len(dense)+len(lexical))
	for i, h := range dense {
		byChunk[h.ChunkID] = &HybridHit{
			ChunkID:    h.ChunkID,
			DenseScore: denseNorm[i],
			Why:        model.MatchSemantic,
		}
	}
	for i, h := range lexical {
		if hit, ok := byChunk[h.ChunkID]; ok {
			hit.LexicalScore = lexNorm[i]
		} else {
			byChunk[h.ChunkID] = &HybridHit{
				ChunkID:      h.ChunkID,
				LexicalScore: lexNorm[i],
				Why:          model.MatchLexical,
			}
		}
	}

	hits := make([]HybridHit, 0, len(byChunk))
	for _, hit := range byChunk {
		hit.Score = e.config.DenseWeight*hit.DenseScore + e.config.LexicalWeight*hit.LexicalScore
		hits = append(hits, *hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits
}

// filterByDocument keeps only hits whose chunk belongs to the named
// document, matched by document title.
func (e *HybridSearchEngine) filterByDocument(ctx context.Context, hits []HybridHit, document string) ([]HybridHit, error) {
	if len(hits) == 0 {
		return hits, nil
	}

	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	chunks, err := e.chunks.GetByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	matching := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if c.DocumentTitle == document {
			matching[c.ChunkID] = true
		}
	}

	filtered := make([]HybridHit, 0, len(hits))
	for _, h := range hits {
		if matching[h.ChunkID] {
			h.Why = model.MatchScope
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}
