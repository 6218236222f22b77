// Package textutil provides text processing helpers for retrieval and
// indexing: chunk splitting, tokenization, similarity and hashing.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashString returns the hex SHA-256 digest of s.
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks splits text into overlapping chunks. chunkSize and overlap
// are measured in Unicode characters.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// Tokenize lowercases text and splits it on non-letter, non-digit runes.
// Works for both Latin and Cyrillic scripts.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TermFrequencies tokenizes text and returns a term -> count map.
func TermFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, term := range Tokenize(text) {
		freqs[term]++
	}
	return freqs
}

// MinMaxNormalize rescales scores to [0, 1] in place order, returning a new
// slice. When all scores are equal every entry maps to 1.
func MinMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range normalized {
			normalized[i] = 1
		}
		return normalized
	}

	span := maxScore - minScore
	for i, s := range scores {
		normalized[i] = (s - minScore) / span
	}
	return normalized
}

// SplitParagraphs splits text into paragraphs on blank lines, trimming
// whitespace and dropping empty parts.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}
