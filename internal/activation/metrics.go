// Package activation turns raw lab submissions into normalized content
// measurements, records every attempt as an append-only event, and
// promotes users to "activated" at most once.
package activation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// EmptyFingerprint is the reserved fingerprint for empty normalized
// text. It can never collide with a real content hash, so empty
// submissions never occupy a slot in the activation key space.
const EmptyFingerprint = "empty"

const (
	meaningfulWordThreshold = 25
	meaningfulCharThreshold = 140
)

// ContentMetrics is the normalized measurement of one submission.
type ContentMetrics struct {
	NormalizedText string
	WordCount      int
	CharCount      int
	SizeBucket     string
	Meaningful     bool
	Fingerprint    string
}

// BuildContentMetrics concatenates the non-empty parts with single
// spaces, collapses internal whitespace, and measures the result.
// Pure: identical input always yields identical metrics.
func BuildContentMetrics(parts []string) ContentMetrics {
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, strings.Fields(part)...)
	}
	normalized := strings.Join(tokens, " ")

	wordCount := len(tokens)
	// Characters, not bytes: multibyte input must not inflate the
	// count past the meaningful bar.
	charCount := utf8.RuneCountInString(normalized)

	return ContentMetrics{
		NormalizedText: normalized,
		WordCount:      wordCount,
		CharCount:      charCount,
		SizeBucket:     sizeBucket(wordCount),
		Meaningful:     wordCount >= meaningfulWordThreshold || charCount >= meaningfulCharThreshold,
		Fingerprint:    fingerprint(normalized),
	}
}

// sizeBucket discretizes a word count into the fixed reporting buckets.
func sizeBucket(words int) string {
	switch {
	case words == 0:
		return "0"
	case words <= 24:
		return "1-24"
	case words <= 49:
		return "25-49"
	case words <= 99:
		return "50-99"
	default:
		return "100+"
	}
}

func fingerprint(normalized string) string {
	if normalized == "" {
		return EmptyFingerprint
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
