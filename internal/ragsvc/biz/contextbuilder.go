package biz

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/pkg/llm"
	"github.com/ai-nk/rag-service/pkg/utils/json"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

// ContextBuilderConfig controls context construction.
type ContextBuilderConfig struct {
	// EnableSummaries turns on per-candidate LLM summaries by default. A
	// request's fast_mode flag overrides it per call.
	EnableSummaries bool
	// SummaryTimeout bounds each candidate summary call.
	SummaryTimeout time.Duration
}

// ContextBuilder turns fused retrieval hits into a deduplicated, optionally
// summarized context with a meta-summary.
type ContextBuilder struct {
	chunks store.ChunkStore
	chat   llm.ChatProvider
	config ContextBuilderConfig
}

// NewContextBuilder creates a builder. chat may be nil when summaries are
// disabled.
func NewContextBuilder(chunks store.ChunkStore, chat llm.ChatProvider, config ContextBuilderConfig) *ContextBuilder {
	if config.SummaryTimeout <= 0 {
		config.SummaryTimeout = 30 * time.Second
	}
	return &ContextBuilder{chunks: chunks, chat: chat, config: config}
}

// Build joins hits against the chunk store, merges candidates sharing a
// (document, section) pair, optionally summarizes each survivor and computes
// the meta-summary. fastMode overrides the configured summary default for
// this call; nil means use the default, true skips summarization entirely.
func (b *ContextBuilder) Build(ctx context.Context, hits []HybridHit, question string, fastMode *bool) (*model.StructuredContext, error) {
	candidates, err := b.toCandidates(ctx, hits)
	if err != nil {
		return nil, err
	}

	merged := mergeCandidates(candidates)

	summarize := b.config.EnableSummaries
	if fastMode != nil {
		summarize = !*fastMode
	}
	if summarize && b.chat != nil {
		b.summarize(ctx, merged)
	}

	return &model.StructuredContext{
		Context:     merged,
		MetaSummary: buildMetaSummary(merged, question),
	}, nil
}

func (b *ContextBuilder) toCandidates(ctx context.Context, hits []HybridHit) ([]model.ContextCandidate, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	chunks, err := b.chunks.GetByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	candidates := make([]model.ContextCandidate, 0, len(hits))
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok {
			// The chunk was deleted between retrieval and join.
			logger.Warnw("retrieved chunk missing from chunk store", "chunk_id", h.ChunkID)
			continue
		}
		candidates = append(candidates, model.ContextCandidate{
			Doc:           chunk.DocumentTitle,
			Section:       chunk.Section,
			Page:          chunk.Page,
			Snippet:       chunk.Content,
			Why:           h.Why,
			Score:         h.Score,
			DocumentTitle: chunk.DocumentTitle,
			SectionTitle:  chunk.SectionTitle,
			ChunkType:     chunk.ChunkType,
			Metadata:      chunk.Metadata,
		})
	}
	return candidates, nil
}

// mergeCandidates groups by (doc, section), sorts each group by page and
// merges adjacent-page candidates: snippets concatenate, the score is the
// maximum of the constituents. The output never contains two candidates with
// the same (doc, section) pair.
func mergeCandidates(candidates []model.ContextCandidate) []model.ContextCandidate {
	if len(candidates) == 0 {
		return nil
	}

	type groupKey struct {
		doc     string
		section string
	}

	order := make([]groupKey, 0, len(candidates))
	groups := make(map[groupKey][]model.ContextCandidate)
	for _, c := range candidates {
		key := groupKey{doc: c.Doc, section: c.Section}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	merged := make([]model.ContextCandidate, 0, len(order))
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Page < group[j].Page
		})

		result := group[0]
		for _, c := range group[1:] {
			result.Snippet = result.Snippet + "\n" + c.Snippet
			if c.Score > result.Score {
				result.Score = c.Score
			}
		}
		merged = append(merged, result)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

const summarySystemPrompt = "Ты анализируешь фрагмент нормативного документа. " +
	"Верни JSON вида {\"topic\": \"...\", \"norm_type\": \"...\", " +
	"\"key_points\": [\"...\"], \"relevance_reason\": \"...\"} без пояснений."

// summarize asks the chat provider for a structured summary of each
// candidate. A timeout or malformed reply leaves that candidate's summary
// nil and never fails the request.
func (b *ContextBuilder) summarize(ctx context.Context, candidates []model.ContextCandidate) {
	for i := range candidates {
		summaryCtx, cancel := context.WithTimeout(ctx, b.config.SummaryTimeout)
		raw, err := b.chat.Generate(summaryCtx, candidates[i].Snippet, summarySystemPrompt)
		cancel()
		if err != nil {
			logger.Warnw("candidate summary failed",
				"doc", candidates[i].Doc,
				"section", candidates[i].Section,
				"error", err,
			)
			continue
		}

		var summary model.CandidateSummary
		if err := json.Unmarshal([]byte(extractJSONObject(raw)), &summary); err != nil {
			logger.Warnw("candidate summary not parseable", "error", err)
			continue
		}
		candidates[i].Summary = &summary
	}
}

var jsonObjectRegex = regexp.MustCompile(`\{[\s\S]*\}`)

func extractJSONObject(s string) string {
	if match := jsonObjectRegex.FindString(s); match != "" {
		return match
	}
	return s
}

// Query type labels derived from the question wording. Descriptive only,
// never used for ranking.
const (
	QueryTypeRequirements    = "требования"
	QueryTypeRecommendations = "рекомендации"
	QueryTypeDefinitions     = "определения"
	QueryTypeGeneral         = "general"
)

func classifyQuery(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "требован"):
		return QueryTypeRequirements
	case strings.Contains(q, "рекоменд"):
		return QueryTypeRecommendations
	case strings.Contains(q, "определен") || strings.Contains(q, "термин"):
		return QueryTypeDefinitions
	default:
		return QueryTypeGeneral
	}
}

func buildMetaSummary(candidates []model.ContextCandidate, question string) model.MetaSummary {
	docs := make(map[string]bool)
	sections := make(map[string]bool)
	total := 0.0
	for _, c := range candidates {
		docs[c.Doc] = true
		sections[c.Doc+"\x00"+c.Section] = true
		total += c.Score
	}

	avg := 0.0
	if len(candidates) > 0 {
		avg = total / float64(len(candidates))
	}

	return model.MetaSummary{
		DocumentCount: len(docs),
		SectionCount:  len(sections),
		AverageScore:  avg,
		QueryType:     classifyQuery(question),
	}
}
