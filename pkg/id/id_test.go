package id

import (
	"sort"
	"testing"
	"time"
)

func TestGenerateFormat(t *testing.T) {
	got := NewULID()
	if len(got) != 26 {
		t.Fatalf("ULID length = %d, want 26", len(got))
	}
	if !IsValidULID(got) {
		t.Fatalf("generated ULID %q does not parse", got)
	}
}

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for _, id := range g.GenerateN(1000) {
		if seen[id] {
			t.Fatalf("duplicate ULID %q", id)
		}
		seen[id] = true
	}
}

func TestGenerateMonotonic(t *testing.T) {
	g := NewGenerator()
	ids := g.GenerateN(100)

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("IDs not monotonic at index %d: %q", i, ids[i])
		}
	}
}

func TestGenerateSortableAcrossTime(t *testing.T) {
	g := NewGenerator()
	first := g.Generate()
	time.Sleep(2 * time.Millisecond)
	second := g.Generate()

	if !(first < second) {
		t.Fatalf("later ULID %q should sort after earlier %q", second, first)
	}
}

func TestIsValidULID(t *testing.T) {
	if IsValidULID("not-a-ulid") {
		t.Error("IsValidULID should reject malformed input")
	}
	if IsValidULID("") {
		t.Error("IsValidULID should reject empty input")
	}
}
