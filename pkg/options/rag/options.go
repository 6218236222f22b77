// Package rag provides retrieval and context assembly configuration options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/ai-nk/rag-service/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval, chunking and context assembly configuration.
type Options struct {
	// ChunkSize is the target size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkSize is the minimum chunk size; shorter fragments are merged
	// into the previous chunk.
	MinChunkSize int `json:"min-chunk-size" mapstructure:"min-chunk-size"`

	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// DenseWeight weights the dense similarity score in hybrid fusion.
	DenseWeight float64 `json:"dense-weight" mapstructure:"dense-weight"`

	// LexicalWeight weights the lexical score in hybrid fusion.
	LexicalWeight float64 `json:"lexical-weight" mapstructure:"lexical-weight"`

	// ScoreThreshold drops fused candidates scoring below it.
	ScoreThreshold float64 `json:"score-threshold" mapstructure:"score-threshold"`

	// DenseLimit is the number of candidates fetched from the vector index.
	DenseLimit int `json:"dense-limit" mapstructure:"dense-limit"`

	// LexicalLimit is the number of candidates fetched from the lexical index.
	LexicalLimit int `json:"lexical-limit" mapstructure:"lexical-limit"`

	// TopK is the number of context candidates kept after fusion.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// EnableSummaries turns on per-candidate LLM summaries.
	EnableSummaries bool `json:"enable-summaries" mapstructure:"enable-summaries"`

	// SummaryTimeout bounds a single candidate summary call.
	SummaryTimeout time.Duration `json:"summary-timeout" mapstructure:"summary-timeout"`

	// AnswerTimeout bounds the final answer generation call.
	AnswerTimeout time.Duration `json:"answer-timeout" mapstructure:"answer-timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:       800,
		ChunkOverlap:    100,
		MinChunkSize:    50,
		Collection:      "ai_nk_chunks",
		EmbeddingDim:    1024,
		DenseWeight:     0.6,
		LexicalWeight:   0.4,
		ScoreThreshold:  0.3,
		DenseLimit:      20,
		LexicalLimit:    20,
		TopK:            5,
		EnableSummaries: false,
		SummaryTimeout:  30 * time.Second,
		AnswerTimeout:   120 * time.Second,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"rag.chunk-size", o.ChunkSize, "Target size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"rag.chunk-overlap", o.ChunkOverlap, "Overlap between adjacent chunks.")
	fs.IntVar(&o.MinChunkSize, options.Join(prefixes...)+"rag.min-chunk-size", o.MinChunkSize, "Minimum chunk size before merging into the previous chunk.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"rag.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"rag.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.Float64Var(&o.DenseWeight, options.Join(prefixes...)+"rag.dense-weight", o.DenseWeight, "Weight of the dense score in hybrid fusion.")
	fs.Float64Var(&o.LexicalWeight, options.Join(prefixes...)+"rag.lexical-weight", o.LexicalWeight, "Weight of the lexical score in hybrid fusion.")
	fs.Float64Var(&o.ScoreThreshold, options.Join(prefixes...)+"rag.score-threshold", o.ScoreThreshold, "Minimum fused score for a candidate to survive.")
	fs.IntVar(&o.DenseLimit, options.Join(prefixes...)+"rag.dense-limit", o.DenseLimit, "Number of candidates fetched from the vector index.")
	fs.IntVar(&o.LexicalLimit, options.Join(prefixes...)+"rag.lexical-limit", o.LexicalLimit, "Number of candidates fetched from the lexical index.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Number of context candidates kept after fusion.")
	fs.BoolVar(&o.EnableSummaries, options.Join(prefixes...)+"rag.enable-summaries", o.EnableSummaries, "Enable per-candidate LLM summaries.")
	fs.DurationVar(&o.SummaryTimeout, options.Join(prefixes...)+"rag.summary-timeout", o.SummaryTimeout, "Timeout for a single candidate summary call.")
	fs.DurationVar(&o.AnswerTimeout, options.Join(prefixes...)+"rag.answer-timeout", o.AnswerTimeout, "Timeout for the final answer generation call.")
}

// Validate validates the retrieval options. Weight misconfiguration is a
// startup error, not something to silently repair at query time.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.MinChunkSize < 0 {
		errs = append(errs, fmt.Errorf("min-chunk-size must be non-negative"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.DenseWeight < 0 || o.LexicalWeight < 0 {
		errs = append(errs, fmt.Errorf("fusion weights must be non-negative"))
	}
	if o.DenseWeight+o.LexicalWeight <= 0 {
		errs = append(errs, fmt.Errorf("fusion weights must not sum to zero"))
	}
	if o.ScoreThreshold < 0 || o.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("score-threshold must be in [0, 1]"))
	}
	if o.DenseLimit <= 0 || o.LexicalLimit <= 0 {
		errs = append(errs, fmt.Errorf("dense-limit and lexical-limit must be positive"))
	}
	return errs
}
