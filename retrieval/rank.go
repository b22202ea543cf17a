package retrieval

import (
	"sort"
	"strings"
)

// Additive boost weights applied on top of the source-provided base score.
const (
	recencyBoostWeight    = 0.1
	importanceBoostWeight = 0.2
	keywordBoostWeight    = 0.1
)

// rankItems drops candidates below minScore, rewrites each survivor's score
// with the combined relevance (base + recency boost + memory importance +
// keyword-match bonus) and returns the list sorted by combined score
// descending. The combined score is unbounded above but monotonic in its
// inputs.
func rankItems(items []RetrievedItem, keywords []string, minScore float64) []RetrievedItem {
	ranked := make([]RetrievedItem, 0, len(items))
	for _, item := range items {
		if item.Score < minScore {
			continue
		}

		combined := item.Score + item.RecencyScore*recencyBoostWeight
		if item.Type == ItemTypeMemory && item.Memory != nil {
			combined += item.Memory.Importance * importanceBoostWeight
		}
		combined += float64(countKeywordMatches(item.Content, keywords)) * keywordBoostWeight

		item.Score = combined
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// countKeywordMatches counts how many keywords appear as substrings of the
// lowercased content.
func countKeywordMatches(content string, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	lowered := strings.ToLower(content)
	matches := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, kw) {
			matches++
		}
	}
	return matches
}
