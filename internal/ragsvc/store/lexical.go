package store

import (
	"context"
	"math"
	"sort"

	"gorm.io/gorm"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/pkg/textutil"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// lexical is a BM25 index over the rag_postings table.
type lexical struct {
	db *gorm.DB
}

func newLexical(db *gorm.DB) *lexical {
	return &lexical{db}
}

// Index tokenizes content and replaces the chunk's postings.
func (l *lexical) Index(ctx context.Context, chunkID, content string) error {
	freqs := textutil.TermFrequencies(content)

	length := 0
	for _, tf := range freqs {
		length += tf
	}

	postings := make([]*model.Posting, 0, len(freqs))
	for term, tf := range freqs {
		postings = append(postings, &model.Posting{
			Term:    term,
			ChunkID: chunkID,
			TF:      tf,
			Length:  length,
		})
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chunk_id = ?", chunkID).Delete(&model.Posting{}).Error; err != nil {
			return err
		}
		if len(postings) == 0 {
			return nil
		}
		return tx.Create(postings).Error
	})
	if err != nil {
		return apierrors.ErrIndexWrite.WithCause(err)
	}
	return nil
}

// Remove drops all postings belonging to the document's chunks. Call this
// before the chunk rows themselves are replaced, or the join finds nothing.
func (l *lexical) Remove(ctx context.Context, documentID int64) error {
	err := l.db.WithContext(ctx).
		Where("chunk_id IN (?)", l.db.Model(&model.Chunk{}).
			Select("chunk_id").
			Where("document_id = ?", documentID)).
		Delete(&model.Posting{}).Error
	if err != nil {
		return apierrors.ErrIndexWrite.WithCause(err)
	}
	return nil
}

// Search ranks chunks with BM25 over the query terms.
func (l *lexical) Search(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	terms := textutil.Tokenize(query)
	if len(terms) == 0 || limit <= 0 {
		return []LexicalHit{}, nil
	}

	totalChunks, avgLength, err := l.corpusStats(ctx)
	if err != nil {
		return nil, err
	}
	if totalChunks == 0 {
		return []LexicalHit{}, nil
	}

	var postings []model.Posting
	if err := l.db.WithContext(ctx).
		Where("term IN ?", terms).
		Find(&postings).Error; err != nil {
		return nil, apierrors.ErrSearchBackend.WithCause(err)
	}
	if len(postings) == 0 {
		return []LexicalHit{}, nil
	}

	// Each (term, chunk) pair is one row, so the per-term row count is the
	// document frequency.
	df := make(map[string]int)
	for _, p := range postings {
		df[p.Term]++
	}

	scores := make(map[string]float64)
	for _, p := range postings {
		idf := math.Log(1 + (float64(totalChunks)-float64(df[p.Term])+0.5)/(float64(df[p.Term])+0.5))
		tf := float64(p.TF)
		norm := tf + bm25K1*(1-bm25B+bm25B*float64(p.Length)/avgLength)
		scores[p.ChunkID] += idf * tf * (bm25K1 + 1) / norm
	}

	hits := make([]LexicalHit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, LexicalHit{ChunkID: chunkID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (l *lexical) PostingCount(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&model.Posting{}).Count(&count).Error; err != nil {
		return 0, apierrors.ErrDatabase.WithCause(err)
	}
	return count, nil
}

// corpusStats returns the number of indexed chunks and the average chunk
// length in tokens.
func (l *lexical) corpusStats(ctx context.Context) (int64, float64, error) {
	type stats struct {
		N   int64
		Avg float64
	}
	var s stats
	err := l.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) AS n, COALESCE(AVG(len), 0) AS avg FROM " +
			"(SELECT chunk_id, MAX(length) AS len FROM rag_postings GROUP BY chunk_id) t",
	).Scan(&s).Error
	if err != nil {
		return 0, 0, apierrors.ErrSearchBackend.WithCause(err)
	}
	return s.N, s.Avg, nil
}
