package biz

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/ai-nk/rag-service/pkg/llm"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

// fakeEmbedder produces deterministic vectors derived from the text hash.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func embedText(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = float32((seed>>(i*8))&0xff) / 255.0
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

// fakeVectorIndex is an in-memory VectorIndex.
type fakeVectorIndex struct {
	mu     sync.Mutex
	points map[string]store.Point
	hits   []store.Hit
	err    error
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{points: make(map[string]store.Point)}
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, points []store.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, p := range points {
		f.points[p.ChunkID] = p
	}
	return nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]store.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeVectorIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for id, p := range f.points {
		if p.DocumentID == documentID {
			delete(f.points, id)
		}
	}
	return nil
}

func (f *fakeVectorIndex) Stats(ctx context.Context) (store.CollectionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return store.CollectionStats{PointCount: int64(len(f.points)), VectorDim: 4}, nil
}

func (f *fakeVectorIndex) pointCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

// fakeLexicalIndex returns canned lexical hits.
type fakeLexicalIndex struct {
	hits []store.LexicalHit
	err  error
}

func (f *fakeLexicalIndex) Index(ctx context.Context, chunkID, content string) error { return nil }

func (f *fakeLexicalIndex) Remove(ctx context.Context, documentID int64) error { return nil }

func (f *fakeLexicalIndex) Search(ctx context.Context, query string, limit int) ([]store.LexicalHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeLexicalIndex) PostingCount(ctx context.Context) (int64, error) {
	return int64(len(f.hits)), nil
}

// fakeChunkStore serves chunks from a map.
type fakeChunkStore struct {
	mu     sync.Mutex
	chunks map[string]*model.Chunk
}

func newFakeChunkStore(chunks ...*model.Chunk) *fakeChunkStore {
	f := &fakeChunkStore{chunks: make(map[string]*model.Chunk)}
	for _, c := range chunks {
		f.chunks[c.ChunkID] = c
	}
	return f
}

func (f *fakeChunkStore) ReplaceForDocument(ctx context.Context, documentID int64, chunkSet []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.DocumentID == documentID {
			delete(f.chunks, id)
		}
	}
	for _, c := range chunkSet {
		f.chunks[c.ChunkID] = c
	}
	return nil
}

func (f *fakeChunkStore) GetByIDs(ctx context.Context, chunkIDs []string) ([]*model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Chunk
	for _, id := range chunkIDs {
		if c, ok := f.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	return f.ReplaceForDocument(ctx, documentID, nil)
}

func (f *fakeChunkStore) CountByDocument(ctx context.Context, documentID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

// fakeChat returns a canned reply or error.
type fakeChat struct {
	reply string
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return f.Chat(ctx, nil)
}

func (f *fakeChat) Name() string { return "fake-chat" }
