package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestExportContainsCounters(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordSearch(100*time.Millisecond, true, true, nil)
	m.RecordSearch(50*time.Millisecond, true, false, nil)
	m.RecordConsultation(true, nil)
	m.RecordConsultation(false, nil)
	m.RecordIndexed(12)
	m.SetQueueDepth(3)

	out := m.Export("rag")

	for _, want := range []string{
		"rag_searches_total 2",
		"rag_searches_dense_total 2",
		"rag_searches_lexical_total 1",
		"rag_searches_fused_total 1",
		"rag_cache_hits_total 1",
		"rag_cache_misses_total 1",
		"rag_cache_hit_rate 0.5",
		"rag_documents_indexed_total 1",
		"rag_chunks_indexed_total 12",
		"rag_indexing_queue_depth 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}

	if !strings.Contains(out, "# TYPE rag_searches_total counter") {
		t.Error("export missing TYPE line for rag_searches_total")
	}
}

func TestStatsAggregates(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordSearch(200*time.Millisecond, true, true, nil)
	m.RecordLLMCall(time.Second, nil)
	m.RecordIndexingRetry()
	m.RecordIndexingFailure()

	stats := m.Stats()

	searches := stats["searches"].(map[string]any)
	if searches["total"].(uint64) != 1 {
		t.Errorf("expected 1 search, got %v", searches["total"])
	}
	if searches["avg_duration_secs"].(float64) < 0.19 {
		t.Errorf("unexpected avg retrieval duration: %v", searches["avg_duration_secs"])
	}

	indexing := stats["indexing"].(map[string]any)
	if indexing["retries"].(uint64) != 1 || indexing["failures"].(uint64) != 1 {
		t.Errorf("unexpected indexing stats: %v", indexing)
	}
}

func TestErrorsDoNotCountAsSuccess(t *testing.T) {
	m := Get()
	m.Reset()

	m.RecordSearch(time.Millisecond, false, false, errTest)
	m.RecordConsultation(false, errTest)

	stats := m.Stats()
	if stats["searches"].(map[string]any)["errors"].(uint64) != 1 {
		t.Error("search error not counted")
	}
	consultations := stats["consultations"].(map[string]any)
	if consultations["errors"].(uint64) != 1 {
		t.Error("consultation error not counted")
	}
	if consultations["cache_misses"].(uint64) != 0 {
		t.Error("errored consultation must not count as cache miss")
	}
}

type testErr struct{}

func (testErr) Error() string { return "test error" }

var errTest = testErr{}
