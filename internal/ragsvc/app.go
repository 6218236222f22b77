package ragsvc

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	"github.com/ai-nk/rag-service/internal/ragsvc/handler"
	"github.com/ai-nk/rag-service/internal/ragsvc/router"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
	"github.com/ai-nk/rag-service/pkg/component/milvus"
	"github.com/ai-nk/rag-service/pkg/component/postgres"
	"github.com/ai-nk/rag-service/pkg/component/redis"
	"github.com/ai-nk/rag-service/pkg/infra/app"
	"github.com/ai-nk/rag-service/pkg/infra/server"
	"github.com/ai-nk/rag-service/pkg/llm"
	"github.com/ai-nk/rag-service/pkg/llm/resilience"
)

// Name is the service name.
const Name = "rag-server"

const description = `AI-NK RAG Service

Retrieval subsystem for normative-document compliance checking:
  - Hybrid dense+lexical retrieval with weighted score fusion
  - Structured context assembly with per-candidate summaries
  - Resilient background document indexing
  - Consultation answering grounded in indexed documents`

// NewApp creates the application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(description),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run wires the service together from validated options and serves until
// shutdown.
func Run(opts *Options) error {
	ctx := context.Background()

	opts.Log.AddInitialField("service.name", Name)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting RAG service...")

	// Relational store.
	pgClient, err := postgres.New(opts.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer func() { _ = pgClient.Close() }()

	if err := store.AutoMigrate(pgClient.DB()); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	factory := store.NewFactory(pgClient.DB())
	logger.Info("Postgres store initialized")

	// Vector index.
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to connect to milvus: %w", err)
	}
	defer func() { _ = milvusClient.Close(ctx) }()

	vector, err := store.NewMilvusIndex(ctx, milvusClient, opts.RAG.Collection, opts.RAG.EmbeddingDim)
	if err != nil {
		return fmt.Errorf("failed to prepare milvus collection: %w", err)
	}
	logger.Infow("Milvus vector index initialized",
		"collection", opts.RAG.Collection,
		"dim", opts.RAG.EmbeddingDim,
	)

	// Answer cache. A dead Redis disables the cache instead of failing
	// startup.
	var answerCache *biz.AnswerCache
	if opts.Cache.Enabled {
		redisClient, err := redis.New(opts.Cache.Redis)
		if err != nil {
			logger.Warnw("Redis unavailable, answer cache disabled", "error", err)
		} else {
			defer func() { _ = redisClient.Close() }()
			answerCache = biz.NewAnswerCache(redisClient.Client(), biz.AnswerCacheConfig{
				Enabled:   true,
				TTL:       opts.Cache.TTL,
				KeyPrefix: opts.Cache.KeyPrefix,
			})
			logger.Infow("Answer cache initialized", "ttl", opts.Cache.TTL)
		}
	}

	// LLM providers with retry and circuit breaking.
	rawEmbedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	embedder := resilience.WrapEmbeddingProvider(rawEmbedder, nil, nil)
	logger.Infow("Embedding provider initialized",
		"provider", opts.Embedding.Provider,
		"model", opts.Embedding.Model,
	)

	rawChat, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	chat := resilience.WrapChatProvider(rawChat, nil, nil)
	logger.Infow("Chat provider initialized",
		"provider", opts.Chat.Provider,
		"model", opts.Chat.Model,
	)

	// Business layer.
	chunker := biz.NewChunker(biz.ChunkerConfig{
		ChunkSize:      opts.RAG.ChunkSize,
		ChunkOverlap:   opts.RAG.ChunkOverlap,
		MinChunkLength: opts.RAG.MinChunkSize,
	})

	engine, err := biz.NewHybridSearchEngine(vector, factory.Lexical(), factory.Chunks(), embedder, biz.HybridConfig{
		DenseWeight:    opts.RAG.DenseWeight,
		LexicalWeight:  opts.RAG.LexicalWeight,
		ScoreThreshold: opts.RAG.ScoreThreshold,
		DenseLimit:     opts.RAG.DenseLimit,
		LexicalLimit:   opts.RAG.LexicalLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize hybrid search: %w", err)
	}

	builder := biz.NewContextBuilder(factory.Chunks(), chat, biz.ContextBuilderConfig{
		EnableSummaries: opts.RAG.EnableSummaries,
		SummaryTimeout:  opts.RAG.SummaryTimeout,
	})

	consultation := biz.NewConsultationService(engine, builder, chat, answerCache, biz.ConsultationConfig{
		TopK:          opts.RAG.TopK,
		AnswerTimeout: opts.RAG.AnswerTimeout,
	})

	indexing := biz.NewResilientIndexingService(
		opts.Indexing,
		chunker,
		embedder,
		vector,
		factory.Lexical(),
		factory.Chunks(),
		factory.Documents(),
		factory.Tasks(),
	)
	if err := indexing.Start(ctx); err != nil {
		return fmt.Errorf("failed to start indexing service: %w", err)
	}
	defer indexing.Stop()

	documents := biz.NewDocumentService(factory.Documents(), factory.Chunks(), vector, factory.Lexical(), indexing)
	logger.Info("Business layer initialized")

	// HTTP layer.
	srv := server.New(opts.HTTP)
	router.Register(srv.Engine(), &router.Handlers{
		Search:       handler.NewSearchHandler(engine, builder, opts.RAG.TopK),
		Consultation: handler.NewConsultationHandler(consultation),
		Indexing:     handler.NewIndexingHandler(indexing),
		Documents:    handler.NewDocumentHandler(documents),
		System:       handler.NewSystemHandler(documents, indexing, answerCache, app.GetVersion()),
	})

	logger.Info("RAG service is ready")
	return srv.Start(ctx)
}
