// Package id generates unique identifiers for chunks and indexing tasks.
//
// ULIDs are preferred over UUIDs for database keys: they are time sortable
// with millisecond precision and 26 characters instead of 36.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces lexicographically sortable unique IDs.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator creates a ULID generator with a monotonic crypto/rand entropy
// source, so IDs generated within the same millisecond stay ordered.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a new ULID string.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateN returns n ULID strings.
func (g *Generator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.Generate()
	}
	return ids
}

var defaultGenerator = NewGenerator()

// NewULID returns a new ULID string from the package-level generator.
func NewULID() string {
	return defaultGenerator.Generate()
}

// NewUUID returns a random UUID v4 string. Used for request IDs where
// sortability does not matter.
func NewUUID() string {
	return uuid.NewString()
}

// IsValidULID reports whether s parses as a ULID.
func IsValidULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
