// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, lowercases, and collapses whitespace. It returns
// the word sequence used for shingling.
func Normalize(text string) []string {
	return strings.Fields(strings.ToLower(norm.NFKC.String(text)))
}

// ShingleSet is the set of k-word shingles of a text.
type ShingleSet map[string]struct{}

// Shingles returns the set of contiguous k-word shingles of words. A
// sequence shorter than k words forms a single shingle.
func Shingles(words []string, k int) ShingleSet {
	set := make(ShingleSet)
	if len(words) == 0 {
		return set
	}
	if k <= 0 {
		k = 1
	}
	if len(words) < k {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+k <= len(words); i++ {
		set[strings.Join(words[i:i+k], " ")] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical.
func Jaccard(a, b ShingleSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Similarity is the shingle Jaccard similarity of two raw texts.
func Similarity(a, b string, k int) float64 {
	return Jaccard(Shingles(Normalize(a), k), Shingles(Normalize(b), k))
}
