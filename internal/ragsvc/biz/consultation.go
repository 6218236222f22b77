package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/llm"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/metrics"
)

const noInformationResponse = "По вашему вопросу в базе нормативных документов " +
	"не найдено релевантной информации. Попробуйте переформулировать вопрос " +
	"или уточнить название документа."

// ConsultationConfig configures the consultation service.
type ConsultationConfig struct {
	// TopK is how many fused hits feed the context.
	TopK int
	// AnswerTimeout bounds the final LLM generation call.
	AnswerTimeout time.Duration
}

// ConsultationService answers normative-compliance questions over the
// retrieval pipeline.
type ConsultationService struct {
	engine  *HybridSearchEngine
	builder *ContextBuilder
	prompts *PromptBuilder
	chat    llm.ChatProvider
	cache   *AnswerCache
	config  ConsultationConfig
	metrics *metrics.Metrics
}

// NewConsultationService creates the service. cache may be nil.
func NewConsultationService(
	engine *HybridSearchEngine,
	builder *ContextBuilder,
	chat llm.ChatProvider,
	cache *AnswerCache,
	config ConsultationConfig,
) *ConsultationService {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.AnswerTimeout <= 0 {
		config.AnswerTimeout = 120 * time.Second
	}
	if cache == nil {
		cache = NewAnswerCache(nil, AnswerCacheConfig{})
	}
	return &ConsultationService{
		engine:  engine,
		builder: builder,
		prompts: NewPromptBuilder(),
		chat:    chat,
		cache:   cache,
		config:  config,
		metrics: metrics.Get(),
	}
}

// Answer retrieves context for the question and generates a grounded
// answer. Zero retrieval candidates is a normal outcome: a canned response
// with confidence 0. Only history-free questions are served from the cache.
func (s *ConsultationService) Answer(ctx context.Context, question string, history []model.Turn) (*model.ConsultationResult, error) {
	if len(history) == 0 {
		if cached := s.cache.Get(ctx, question); cached != nil {
			s.metrics.RecordConsultation(true, nil)
			logger.Debugw("consultation served from cache")
			return cached, nil
		}
	}

	hits, err := s.engine.Search(ctx, question, s.config.TopK, "")
	if err != nil {
		s.metrics.RecordConsultation(false, err)
		return nil, err
	}

	structured, err := s.builder.Build(ctx, hits, question, nil)
	if err != nil {
		s.metrics.RecordConsultation(false, err)
		return nil, err
	}

	if len(structured.Context) == 0 {
		result := &model.ConsultationResult{
			Response:   noInformationResponse,
			Sources:    []model.Source{},
			Confidence: 0,
		}
		s.metrics.RecordConsultation(false, nil)
		return result, nil
	}

	messages := s.prompts.Build(question, structured.Context, history)

	answerCtx, cancel := context.WithTimeout(ctx, s.config.AnswerTimeout)
	defer cancel()

	start := time.Now()
	response, err := s.chat.Chat(answerCtx, messages)
	s.metrics.RecordLLMCall(time.Since(start), err)
	if err != nil {
		genErr := apierrors.ErrGeneration.WithCause(err)
		s.metrics.RecordConsultation(false, genErr)
		logger.Errorw("answer generation failed",
			"candidates", len(structured.Context),
			"error", err,
		)
		return nil, genErr
	}

	result := &model.ConsultationResult{
		Response:      response,
		Sources:       sourcesFromCandidates(structured.Context),
		Confidence:    structured.MetaSummary.AverageScore,
		DocumentsUsed: structured.MetaSummary.DocumentCount,
	}

	if len(history) == 0 {
		s.cache.Set(ctx, question, result)
	}
	s.metrics.RecordConsultation(false, nil)
	return result, nil
}

func sourcesFromCandidates(candidates []model.ContextCandidate) []model.Source {
	sources := make([]model.Source, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, model.Source{
			Doc:           c.Doc,
			Section:       c.Section,
			Page:          c.Page,
			DocumentTitle: c.DocumentTitle,
			Score:         c.Score,
		})
	}
	return sources
}
