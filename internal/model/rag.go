// Package model provides data models for the AI-NK RAG service.
package model

import (
	"time"
)

// Document processing statuses.
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document represents an uploaded normative document.
type Document struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Filename         string    `json:"filename" gorm:"type:varchar(512);not null"`
	Category         string    `json:"category" gorm:"type:varchar(64);index"`
	UploadTime       time.Time `json:"upload_time" gorm:"autoCreateTime"`
	ProcessingStatus string    `json:"processing_status" gorm:"type:varchar(32);default:'pending';index"`
	ProcessingError  string    `json:"processing_error,omitempty" gorm:"type:text"`
	TokenCount       int       `json:"token_count" gorm:"default:0"`
	ChunkCount       int       `json:"chunk_count" gorm:"default:0"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "rag_documents"
}

// Chunk represents a text chunk of a normative document. The chunk table is
// the single canonical source of chunk metadata: both the vector index payload
// and the lexical postings reference rows here by ChunkID.
type Chunk struct {
	ID            int64             `json:"-" gorm:"primaryKey;autoIncrement"`
	ChunkID       string            `json:"chunk_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	DocumentID    int64             `json:"document_id" gorm:"index;not null"`
	Content       string            `json:"content" gorm:"type:text;not null"`
	ChunkType     string            `json:"chunk_type" gorm:"type:varchar(32);default:'paragraph'"`
	Section       string            `json:"section" gorm:"type:varchar(255);index"`
	SectionTitle  string            `json:"section_title" gorm:"type:varchar(512)"`
	Page          int               `json:"page" gorm:"default:1"`
	DocumentTitle string            `json:"document_title" gorm:"type:varchar(512)"`
	Metadata      map[string]string `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "rag_chunks"
}

// Posting is a single term occurrence record of the lexical index. Postings
// share the chunk identifier space with rag_chunks.
type Posting struct {
	ID      int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	Term    string `json:"term" gorm:"type:varchar(128);index:idx_term_chunk,priority:1;not null"`
	ChunkID string `json:"chunk_id" gorm:"type:varchar(64);index:idx_term_chunk,priority:2;index;not null"`
	// TF is the raw term frequency of Term within the chunk.
	TF int `json:"tf" gorm:"not null"`
	// Length is the chunk length in tokens, denormalized for BM25 scoring.
	Length int `json:"length" gorm:"not null"`
}

// TableName specifies the table name for Posting.
func (Posting) TableName() string {
	return "rag_postings"
}

// Indexing task statuses.
const (
	TaskStatusPending   = "pending"
	TaskStatusIndexing  = "indexing"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusRetrying  = "retrying"
)

// IndexingTask represents one unit of (re)indexing work owned by the
// resilient indexing service.
type IndexingTask struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DocumentID  int64      `json:"document_id" gorm:"index;not null"`
	Filename    string     `json:"filename" gorm:"type:varchar(512)"`
	Content     string     `json:"-" gorm:"type:text"`
	Category    string     `json:"category" gorm:"type:varchar(64)"`
	Priority    int        `json:"priority" gorm:"default:0"`
	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	MaxRetries  int        `json:"max_retries" gorm:"default:3"`
	Status      string     `json:"status" gorm:"type:varchar(32);default:'pending';index"`
	Error       string     `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

// TableName specifies the table name for IndexingTask.
func (IndexingTask) TableName() string {
	return "rag_indexing_tasks"
}

// Match reasons attached to context candidates.
const (
	MatchSemantic = "semantic_match"
	MatchLexical  = "lexical_match"
	MatchScope    = "scope_match"
)

// CandidateSummary is an LLM-produced structured summary of one candidate.
type CandidateSummary struct {
	Topic           string   `json:"topic"`
	NormType        string   `json:"norm_type"`
	KeyPoints       []string `json:"key_points"`
	RelevanceReason string   `json:"relevance_reason"`
}

// ContextCandidate is one deduplicated retrieval candidate handed to the LLM.
// Candidates are derived per request and never persisted.
type ContextCandidate struct {
	Doc           string            `json:"doc"`
	Section       string            `json:"section"`
	Page          int               `json:"page"`
	Snippet       string            `json:"snippet"`
	Why           string            `json:"why"`
	Score         float64           `json:"score"`
	DocumentTitle string            `json:"document_title"`
	SectionTitle  string            `json:"section_title"`
	ChunkType     string            `json:"chunk_type"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Summary       *CandidateSummary `json:"summary,omitempty"`
}

// MetaSummary aggregates a context candidate list.
type MetaSummary struct {
	DocumentCount int     `json:"document_count"`
	SectionCount  int     `json:"section_count"`
	AverageScore  float64 `json:"average_score"`
	QueryType     string  `json:"query_type"`
}

// StructuredContext is the ContextBuilder output.
type StructuredContext struct {
	Context     []ContextCandidate `json:"context"`
	MetaSummary MetaSummary        `json:"meta_summary"`
}

// Source is a citation returned with a consultation answer.
type Source struct {
	Doc           string  `json:"doc"`
	Section       string  `json:"section"`
	Page          int     `json:"page"`
	DocumentTitle string  `json:"document_title"`
	Score         float64 `json:"score"`
}

// ConsultationResult is the answer produced by the consultation service.
type ConsultationResult struct {
	Response      string   `json:"response"`
	Sources       []Source `json:"sources"`
	Confidence    float64  `json:"confidence"`
	DocumentsUsed int      `json:"documents_used"`
}

// Turn is a single prior exchange in a consultation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
