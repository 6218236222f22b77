package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

func newTestEngine(t *testing.T, vector *fakeVectorIndex, lexical *fakeLexicalIndex) *HybridSearchEngine {
	t.Helper()
	engine, err := NewHybridSearchEngine(vector, lexical, newFakeChunkStore(), &fakeEmbedder{}, HybridConfig{
		DenseWeight:   0.6,
		LexicalWeight: 0.4,
		DenseLimit:    20,
		LexicalLimit:  20,
	})
	require.NoError(t, err)
	return engine
}

func TestNewHybridSearchEngineRejectsZeroWeights(t *testing.T) {
	_, err := NewHybridSearchEngine(newFakeVectorIndex(), &fakeLexicalIndex{}, newFakeChunkStore(), &fakeEmbedder{}, HybridConfig{
		DenseWeight:   0,
		LexicalWeight: 0,
	})
	require.Error(t, err)

	_, err = NewHybridSearchEngine(newFakeVectorIndex(), &fakeLexicalIndex{}, newFakeChunkStore(), &fakeEmbedder{}, HybridConfig{
		DenseWeight:   -0.5,
		LexicalWeight: 1,
	})
	require.Error(t, err)
}

func TestHybridSearchColdIndexReturnsEmpty(t *testing.T) {
	engine := newTestEngine(t, newFakeVectorIndex(), &fakeLexicalIndex{})

	hits, err := engine.Search(context.Background(), "требования к маркировке", 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHybridSearchBackendFailureIsTypedError(t *testing.T) {
	vector := newFakeVectorIndex()
	vector.err = apierrors.ErrSearchBackend.WithCause(errors.New("connection refused"))
	engine := newTestEngine(t, vector, &fakeLexicalIndex{})

	hits, err := engine.Search(context.Background(), "запрос", 5, "")
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.True(t, apierrors.IsCode(err, apierrors.ErrSearchBackend.Code))
	assert.True(t, apierrors.IsRetryable(err))
}

// A chunk found by both sources must outrank a chunk found by only one
// source with comparable per-source standing.
func TestHybridSearchHybridWin(t *testing.T) {
	vector := newFakeVectorIndex()
	vector.hits = []store.Hit{
		{ChunkID: "both", Score: 0.90},
		{ChunkID: "dense-only", Score: 0.92},
		{ChunkID: "dense-low", Score: 0.10},
	}
	lexical := &fakeLexicalIndex{hits: []store.LexicalHit{
		{ChunkID: "both", Score: 7.5},
		{ChunkID: "lex-only", Score: 8.0},
		{ChunkID: "lex-low", Score: 0.5},
	}}
	engine := newTestEngine(t, vector, lexical)

	hits, err := engine.Search(context.Background(), "вопрос", 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "both", hits[0].ChunkID)

	var both, denseOnly HybridHit
	for _, h := range hits {
		switch h.ChunkID {
		case "both":
			both = h
		case "dense-only":
			denseOnly = h
		}
	}
	assert.Greater(t, both.Score, denseOnly.Score)
}

// Raising a chunk's dense score must never lower its fused score.
func TestHybridSearchFusionMonotonicity(t *testing.T) {
	run := func(denseScore float64) float64 {
		vector := newFakeVectorIndex()
		vector.hits = []store.Hit{
			{ChunkID: "target", Score: denseScore},
			{ChunkID: "floor", Score: 0.1},
			{ChunkID: "ceil", Score: 0.95},
		}
		lexical := &fakeLexicalIndex{hits: []store.LexicalHit{
			{ChunkID: "target", Score: 3.0},
			{ChunkID: "other", Score: 5.0},
		}}
		engine := newTestEngine(t, vector, lexical)

		hits, err := engine.Search(context.Background(), "вопрос", 10, "")
		require.NoError(t, err)
		for _, h := range hits {
			if h.ChunkID == "target" {
				return h.Score
			}
		}
		t.Fatal("target chunk missing from results")
		return 0
	}

	low := run(0.3)
	high := run(0.8)
	assert.GreaterOrEqual(t, high, low)
}

func TestHybridSearchTruncatesToTopK(t *testing.T) {
	vector := newFakeVectorIndex()
	vector.hits = []store.Hit{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.8},
		{ChunkID: "c", Score: 0.7},
		{ChunkID: "d", Score: 0.6},
	}
	engine := newTestEngine(t, vector, &fakeLexicalIndex{})

	hits, err := engine.Search(context.Background(), "вопрос", 2, "")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestHybridSearchSingleSourceKeepsWeightedScore(t *testing.T) {
	vector := newFakeVectorIndex()
	vector.hits = []store.Hit{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.2},
	}
	engine := newTestEngine(t, vector, &fakeLexicalIndex{})

	hits, err := engine.Search(context.Background(), "вопрос", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// min-max over two dense scores yields 1 and 0; weighted by 0.6.
	assert.InDelta(t, 0.6, hits[0].Score, 0.0001)
	assert.InDelta(t, 0.0, hits[1].Score, 0.0001)
}
