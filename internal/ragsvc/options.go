// Package ragsvc wires the RAG service together.
package ragsvc

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	httpopts "github.com/ai-nk/rag-service/pkg/options/http"
	indexingopts "github.com/ai-nk/rag-service/pkg/options/indexing"
	llmopts "github.com/ai-nk/rag-service/pkg/options/llm"
	logopts "github.com/ai-nk/rag-service/pkg/options/logger"
	milvusopts "github.com/ai-nk/rag-service/pkg/options/milvus"
	pgopts "github.com/ai-nk/rag-service/pkg/options/postgres"
	ragopts "github.com/ai-nk/rag-service/pkg/options/rag"
	redisopts "github.com/ai-nk/rag-service/pkg/options/redis"
)

// Options aggregates every configuration section of the RAG service.
type Options struct {
	Log       *logopts.Options         `json:"log" mapstructure:"log"`
	HTTP      *httpopts.Options        `json:"http" mapstructure:"http"`
	Postgres  *pgopts.Options          `json:"postgres" mapstructure:"postgres"`
	Milvus    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	Chat      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	RAG       *ragopts.Options         `json:"rag" mapstructure:"rag"`
	Indexing  *indexingopts.Options    `json:"indexing" mapstructure:"indexing"`
	Cache     *CacheOptions            `json:"cache" mapstructure:"cache"`
}

// CacheOptions configures the consultation answer cache.
type CacheOptions struct {
	// Enabled turns the answer cache on.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL is how long a cached answer stays valid.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix namespaces cache keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis is the cache backend connection.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewCacheOptions creates default cache options.
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		Enabled:   false,
		TTL:       time.Hour,
		KeyPrefix: "rag:answer:",
		Redis:     redisopts.NewOptions(),
	}
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:       logopts.NewOptions(),
		HTTP:      httpopts.NewOptions(),
		Postgres:  pgopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		RAG:       ragopts.NewOptions(),
		Indexing:  indexingopts.NewOptions(),
		Cache:     NewCacheOptions(),
	}
}

// AddFlags adds all service flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.HTTP.AddFlags(fs)
	o.Postgres.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.RAG.AddFlags(fs)
	o.Indexing.AddFlags(fs)
	o.addCacheFlags(fs)
}

func (o *Options) addCacheFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable the consultation answer cache.")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Answer cache TTL.")
	fs.StringVar(&o.Cache.KeyPrefix, "cache.key-prefix", o.Cache.KeyPrefix, "Answer cache key prefix.")
	o.Cache.Redis.AddFlags(fs)
}

// Validate validates every section and fails fast on the first problem.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := o.Postgres.Validate(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if errs := o.Milvus.Validate(); len(errs) > 0 {
		return fmt.Errorf("milvus: %w", errs[0])
	}
	if errs := o.Embedding.Validate(); len(errs) > 0 {
		return fmt.Errorf("embedding: %w", errs[0])
	}
	if errs := o.Chat.Validate(); len(errs) > 0 {
		return fmt.Errorf("chat: %w", errs[0])
	}
	if errs := o.RAG.Validate(); len(errs) > 0 {
		return fmt.Errorf("rag: %w", errs[0])
	}
	if errs := o.Indexing.Validate(); len(errs) > 0 {
		return fmt.Errorf("indexing: %w", errs[0])
	}
	if o.Cache.Enabled {
		if o.Cache.TTL <= 0 {
			return fmt.Errorf("cache: ttl must be positive")
		}
		if err := o.Cache.Redis.Validate(); err != nil {
			return fmt.Errorf("cache.redis: %w", err)
		}
	}
	return nil
}

// Complete fills in derived defaults after config loading.
func (o *Options) Complete() error {
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	return o.Chat.Complete()
}
