// Package metrics collects business metrics for the RAG service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds atomic counters for searches, consultations and indexing.
type Metrics struct {
	// search
	searchesTotal    uint64
	searchesDense    uint64
	searchesLexical  uint64
	searchesFused    uint64
	searchErrors     uint64
	retrievalSeconds float64

	// consultation
	consultationsTotal  uint64
	consultationsErrors uint64
	cacheHits           uint64
	cacheMisses         uint64

	// llm
	llmCallsTotal   uint64
	llmCallsErrors  uint64
	llmCallsSeconds float64

	// indexing
	documentsIndexed uint64
	chunksIndexed    uint64
	indexingRetries  uint64
	indexingFailures uint64
	queueDepth       int64

	durationMu sync.Mutex
	startTime  time.Time
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordSearch records one hybrid search. dense and lexical report whether
// each source contributed hits.
func (m *Metrics) RecordSearch(duration time.Duration, dense, lexical bool, err error) {
	atomic.AddUint64(&m.searchesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
		return
	}
	if dense {
		atomic.AddUint64(&m.searchesDense, 1)
	}
	if lexical {
		atomic.AddUint64(&m.searchesLexical, 1)
	}
	if dense && lexical {
		atomic.AddUint64(&m.searchesFused, 1)
	}
	m.durationMu.Lock()
	m.retrievalSeconds += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordConsultation records one consultation request.
func (m *Metrics) RecordConsultation(cacheHit bool, err error) {
	atomic.AddUint64(&m.consultationsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.consultationsErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		atomic.AddUint64(&m.cacheMisses, 1)
	}
}

// RecordLLMCall records one chat/generation call.
func (m *Metrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.llmCallsSeconds += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIndexed records a successfully indexed document.
func (m *Metrics) RecordIndexed(chunks int) {
	atomic.AddUint64(&m.documentsIndexed, 1)
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// RecordIndexingRetry records one scheduled task retry.
func (m *Metrics) RecordIndexingRetry() {
	atomic.AddUint64(&m.indexingRetries, 1)
}

// RecordIndexingFailure records one permanently failed task.
func (m *Metrics) RecordIndexingFailure() {
	atomic.AddUint64(&m.indexingFailures, 1)
}

// SetQueueDepth updates the indexing queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	atomic.StoreInt64(&m.queueDepth, int64(depth))
}

// Reset zeroes all counters. Intended for tests.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.searchesTotal, 0)
	atomic.StoreUint64(&m.searchesDense, 0)
	atomic.StoreUint64(&m.searchesLexical, 0)
	atomic.StoreUint64(&m.searchesFused, 0)
	atomic.StoreUint64(&m.searchErrors, 0)
	atomic.StoreUint64(&m.consultationsTotal, 0)
	atomic.StoreUint64(&m.consultationsErrors, 0)
	atomic.StoreUint64(&m.cacheHits, 0)
	atomic.StoreUint64(&m.cacheMisses, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.indexingRetries, 0)
	atomic.StoreUint64(&m.indexingFailures, 0)
	atomic.StoreInt64(&m.queueDepth, 0)
	m.durationMu.Lock()
	m.retrievalSeconds = 0
	m.llmCallsSeconds = 0
	m.durationMu.Unlock()
}

func writeCounter(sb *strings.Builder, name, help string, value uint64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s counter\n", name)
	fmt.Fprintf(sb, "%s %d\n\n", name, value)
}

func writeGauge(sb *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s gauge\n", name)
	fmt.Fprintf(sb, "%s %g\n\n", name, value)
}

// Export renders the metrics in Prometheus text format under the given
// namespace.
func (m *Metrics) Export(namespace string) string {
	var sb strings.Builder

	writeCounter(&sb, namespace+"_searches_total", "Total hybrid searches.", atomic.LoadUint64(&m.searchesTotal))
	writeCounter(&sb, namespace+"_searches_dense_total", "Searches with dense hits.", atomic.LoadUint64(&m.searchesDense))
	writeCounter(&sb, namespace+"_searches_lexical_total", "Searches with lexical hits.", atomic.LoadUint64(&m.searchesLexical))
	writeCounter(&sb, namespace+"_searches_fused_total", "Searches fusing both sources.", atomic.LoadUint64(&m.searchesFused))
	writeCounter(&sb, namespace+"_search_errors_total", "Search errors.", atomic.LoadUint64(&m.searchErrors))

	m.durationMu.Lock()
	retrievalSeconds := m.retrievalSeconds
	llmSeconds := m.llmCallsSeconds
	m.durationMu.Unlock()

	fmt.Fprintf(&sb, "# HELP %s_retrieval_duration_seconds_total Total retrieval duration.\n", namespace)
	fmt.Fprintf(&sb, "# TYPE %s_retrieval_duration_seconds_total counter\n", namespace)
	fmt.Fprintf(&sb, "%s_retrieval_duration_seconds_total %.6f\n\n", namespace, retrievalSeconds)

	writeCounter(&sb, namespace+"_consultations_total", "Total consultations.", atomic.LoadUint64(&m.consultationsTotal))
	writeCounter(&sb, namespace+"_consultation_errors_total", "Consultation errors.", atomic.LoadUint64(&m.consultationsErrors))
	writeCounter(&sb, namespace+"_cache_hits_total", "Answer cache hits.", atomic.LoadUint64(&m.cacheHits))
	writeCounter(&sb, namespace+"_cache_misses_total", "Answer cache misses.", atomic.LoadUint64(&m.cacheMisses))

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}
	writeGauge(&sb, namespace+"_cache_hit_rate", "Answer cache hit rate (0-1).", hitRate)

	writeCounter(&sb, namespace+"_llm_calls_total", "Total LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	writeCounter(&sb, namespace+"_llm_call_errors_total", "LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	fmt.Fprintf(&sb, "# HELP %s_llm_call_duration_seconds_total Total LLM call duration.\n", namespace)
	fmt.Fprintf(&sb, "# TYPE %s_llm_call_duration_seconds_total counter\n", namespace)
	fmt.Fprintf(&sb, "%s_llm_call_duration_seconds_total %.6f\n\n", namespace, llmSeconds)

	writeCounter(&sb, namespace+"_documents_indexed_total", "Documents indexed.", atomic.LoadUint64(&m.documentsIndexed))
	writeCounter(&sb, namespace+"_chunks_indexed_total", "Chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))
	writeCounter(&sb, namespace+"_indexing_retries_total", "Indexing task retries.", atomic.LoadUint64(&m.indexingRetries))
	writeCounter(&sb, namespace+"_indexing_failures_total", "Permanently failed tasks.", atomic.LoadUint64(&m.indexingFailures))
	writeGauge(&sb, namespace+"_indexing_queue_depth", "Current indexing queue depth.", float64(atomic.LoadInt64(&m.queueDepth)))

	writeGauge(&sb, namespace+"_uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats returns a nested map for JSON status responses.
func (m *Metrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalSeconds := m.retrievalSeconds
	llmSeconds := m.llmCallsSeconds
	m.durationMu.Unlock()

	searches := atomic.LoadUint64(&m.searchesTotal)
	avgRetrieval := 0.0
	if searches > 0 {
		avgRetrieval = retrievalSeconds / float64(searches)
	}

	llmCalls := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLM := 0.0
	if llmCalls > 0 {
		avgLLM = llmSeconds / float64(llmCalls)
	}

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return map[string]any{
		"searches": map[string]any{
			"total":             searches,
			"dense":             atomic.LoadUint64(&m.searchesDense),
			"lexical":           atomic.LoadUint64(&m.searchesLexical),
			"fused":             atomic.LoadUint64(&m.searchesFused),
			"errors":            atomic.LoadUint64(&m.searchErrors),
			"avg_duration_secs": avgRetrieval,
		},
		"consultations": map[string]any{
			"total":          atomic.LoadUint64(&m.consultationsTotal),
			"errors":         atomic.LoadUint64(&m.consultationsErrors),
			"cache_hits":     hits,
			"cache_misses":   misses,
			"cache_hit_rate": hitRate,
		},
		"llm": map[string]any{
			"calls":             llmCalls,
			"errors":            atomic.LoadUint64(&m.llmCallsErrors),
			"avg_duration_secs": avgLLM,
		},
		"indexing": map[string]any{
			"documents_indexed": atomic.LoadUint64(&m.documentsIndexed),
			"chunks_indexed":    atomic.LoadUint64(&m.chunksIndexed),
			"retries":           atomic.LoadUint64(&m.indexingRetries),
			"failures":          atomic.LoadUint64(&m.indexingFailures),
			"queue_depth":       atomic.LoadInt64(&m.queueDepth),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
