package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-nk/rag-service/internal/model"
)

func TestContextBuilderMergesAdjacentPages(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{
			ChunkID: "p5", DocumentID: 1, Content: "Текст со страницы 5.",
			Section: "1.1", Page: 5, DocumentTitle: "ГОСТ 21.201-2011",
		},
		&model.Chunk{
			ChunkID: "p6", DocumentID: 1, Content: "Текст со страницы 6.",
			Section: "1.1", Page: 6, DocumentTitle: "ГОСТ 21.201-2011",
		},
	)
	builder := NewContextBuilder(chunks, nil, ContextBuilderConfig{})

	hits := []HybridHit{
		{ChunkID: "p6", Score: 0.79, Why: model.MatchSemantic},
		{ChunkID: "p5", Score: 0.83, Why: model.MatchSemantic},
	}
	result, err := builder.Build(context.Background(), hits, "какие требования?", nil)
	require.NoError(t, err)

	require.Len(t, result.Context, 1)
	merged := result.Context[0]
	assert.Equal(t, "ГОСТ 21.201-2011", merged.Doc)
	assert.Equal(t, "1.1", merged.Section)
	assert.Equal(t, "Текст со страницы 5.\nТекст со страницы 6.", merged.Snippet)
	assert.InDelta(t, 0.83, merged.Score, 0.0001)
}

func TestContextBuilderDedupInvariant(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "a", Section: "2.1", Page: 1, DocumentTitle: "Док А"},
		&model.Chunk{ChunkID: "b", DocumentID: 1, Content: "b", Section: "2.1", Page: 8, DocumentTitle: "Док А"},
		&model.Chunk{ChunkID: "c", DocumentID: 1, Content: "c", Section: "3.4", Page: 2, DocumentTitle: "Док А"},
		&model.Chunk{ChunkID: "d", DocumentID: 2, Content: "d", Section: "2.1", Page: 1, DocumentTitle: "Док Б"},
	)
	builder := NewContextBuilder(chunks, nil, ContextBuilderConfig{})

	hits := []HybridHit{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.7},
		{ChunkID: "c", Score: 0.6},
		{ChunkID: "d", Score: 0.5},
	}
	result, err := builder.Build(context.Background(), hits, "вопрос", nil)
	require.NoError(t, err)

	seen := make(map[[2]string]bool)
	for _, c := range result.Context {
		key := [2]string{c.Doc, c.Section}
		assert.False(t, seen[key], "duplicate (doc, section) pair: %v", key)
		seen[key] = true
	}
	assert.Len(t, result.Context, 3)
}

func TestContextBuilderSummaryFailureDegrades(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "текст", Section: "1", Page: 1, DocumentTitle: "Док"},
	)
	chat := &fakeChat{err: errors.New("model timeout")}
	builder := NewContextBuilder(chunks, chat, ContextBuilderConfig{
		EnableSummaries: true,
		SummaryTimeout:  50 * time.Millisecond,
	})

	result, err := builder.Build(context.Background(), []HybridHit{{ChunkID: "a", Score: 0.8}}, "вопрос", nil)
	require.NoError(t, err)
	require.Len(t, result.Context, 1)
	assert.Nil(t, result.Context[0].Summary)
}

func TestContextBuilderParsesSummaries(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "текст", Section: "1", Page: 1, DocumentTitle: "Док"},
	)
	chat := &fakeChat{reply: `Вот результат: {"topic": "маркировка", "norm_type": "ГОСТ", "key_points": ["пункт"], "relevance_reason": "совпадение"}`}
	builder := NewContextBuilder(chunks, chat, ContextBuilderConfig{EnableSummaries: true})

	result, err := builder.Build(context.Background(), []HybridHit{{ChunkID: "a", Score: 0.8}}, "вопрос", nil)
	require.NoError(t, err)
	require.Len(t, result.Context, 1)
	require.NotNil(t, result.Context[0].Summary)
	assert.Equal(t, "маркировка", result.Context[0].Summary.Topic)
	assert.Equal(t, []string{"пункт"}, result.Context[0].Summary.KeyPoints)
}

func TestContextBuilderFastModeSkipsSummaries(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "текст", Section: "1", Page: 1, DocumentTitle: "Док"},
	)
	chat := &fakeChat{reply: `{"topic": "x"}`}
	builder := NewContextBuilder(chunks, chat, ContextBuilderConfig{EnableSummaries: false})

	result, err := builder.Build(context.Background(), []HybridHit{{ChunkID: "a", Score: 0.8}}, "вопрос", nil)
	require.NoError(t, err)
	require.Len(t, result.Context, 1)
	assert.Nil(t, result.Context[0].Summary)
	assert.Zero(t, chat.calls)
}

// A request-level fast_mode flag wins over the configured default in both
// directions.
func TestContextBuilderFastModeOverridesDefault(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "текст", Section: "1", Page: 1, DocumentTitle: "Док"},
	)
	hits := []HybridHit{{ChunkID: "a", Score: 0.8}}
	fast := true
	full := false

	chat := &fakeChat{reply: `{"topic": "x"}`}
	builder := NewContextBuilder(chunks, chat, ContextBuilderConfig{EnableSummaries: true})
	result, err := builder.Build(context.Background(), hits, "вопрос", &fast)
	require.NoError(t, err)
	require.Len(t, result.Context, 1)
	assert.Nil(t, result.Context[0].Summary)
	assert.Zero(t, chat.calls)

	chat = &fakeChat{reply: `{"topic": "x"}`}
	builder = NewContextBuilder(chunks, chat, ContextBuilderConfig{EnableSummaries: false})
	result, err = builder.Build(context.Background(), hits, "вопрос", &full)
	require.NoError(t, err)
	require.Len(t, result.Context, 1)
	require.NotNil(t, result.Context[0].Summary)
	assert.Equal(t, 1, chat.calls)
}

func TestMetaSummary(t *testing.T) {
	chunks := newFakeChunkStore(
		&model.Chunk{ChunkID: "a", DocumentID: 1, Content: "a", Section: "1", Page: 1, DocumentTitle: "Док А"},
		&model.Chunk{ChunkID: "b", DocumentID: 2, Content: "b", Section: "2", Page: 1, DocumentTitle: "Док Б"},
	)
	builder := NewContextBuilder(chunks, nil, ContextBuilderConfig{})

	result, err := builder.Build(context.Background(), []HybridHit{
		{ChunkID: "a", Score: 0.8},
		{ChunkID: "b", Score: 0.4},
	}, "какие требования к маркировке?", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MetaSummary.DocumentCount)
	assert.Equal(t, 2, result.MetaSummary.SectionCount)
	assert.InDelta(t, 0.6, result.MetaSummary.AverageScore, 0.0001)
	assert.Equal(t, QueryTypeRequirements, result.MetaSummary.QueryType)
}

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		question string
		expected string
	}{
		{"Какие требования к сварке?", QueryTypeRequirements},
		{"Есть ли рекомендации по монтажу?", QueryTypeRecommendations},
		{"Дай определение термина", QueryTypeDefinitions},
		{"Сколько страниц в документе?", QueryTypeGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, classifyQuery(tt.question), tt.question)
	}
}
