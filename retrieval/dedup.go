package retrieval

import (
	"sort"
	"strings"
)

const (
	// Contents at or below this length skip the pairwise overlap comparison;
	// the signature check alone decides.
	dedupMinCompareLength = 50

	// Word-overlap ratio above which two items are considered near-duplicates.
	dedupSimilarityThreshold = 0.8

	signatureWordMinLength = 3
	signatureWordCount     = 10
)

// dedupItems removes near-duplicate items. An item is dropped when its content
// signature was already seen, or when its word overlap with an accepted item
// exceeds the similarity threshold. In an overlap collision the higher-scored
// item survives, replacing the accepted one in place when the newcomer wins.
// The pass is O(n²) over a list already bounded by the stratifier, and
// idempotent: running it on its own output removes nothing further.
func dedupItems(items []RetrievedItem) []RetrievedItem {
	seenSignatures := make(map[string]struct{}, len(items))
	accepted := make([]RetrievedItem, 0, len(items))
	acceptedWords := make([]map[string]struct{}, 0, len(items))

	for _, item := range items {
		sig := contentSignature(item.Content)
		if _, seen := seenSignatures[sig]; seen {
			continue
		}

		words := wordSet(item.Content)
		duplicate := false

		if len(item.Content) > dedupMinCompareLength {
			for i := range accepted {
				if len(accepted[i].Content) <= dedupMinCompareLength {
					continue
				}
				if overlapRatio(words, acceptedWords[i]) > dedupSimilarityThreshold {
					if item.Score > accepted[i].Score {
						accepted[i] = item
						acceptedWords[i] = words
						seenSignatures[sig] = struct{}{}
					}
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}

		seenSignatures[sig] = struct{}{}
		accepted = append(accepted, item)
		acceptedWords = append(acceptedWords, words)
	}

	return accepted
}

// contentSignature builds a cheap near-duplicate fingerprint: the first ten
// significant words (>3 chars) in sorted order, joined with dashes.
func contentSignature(content string) string {
	fields := strings.Fields(strings.ToLower(content))
	significant := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) > signatureWordMinLength {
			significant = append(significant, w)
		}
	}
	sort.Strings(significant)
	if len(significant) > signatureWordCount {
		significant = significant[:signatureWordCount]
	}
	return strings.Join(significant, "-")
}

func wordSet(content string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(content))
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

// overlapRatio is |a ∩ b| / min(|a|, |b|).
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
