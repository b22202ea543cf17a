package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

const (
	maxKeywords          = 10
	semanticExpandsWords = 5
)

// stopWords is a fixed set of common English function words excluded from
// keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "him": {},
	"his": {}, "how": {}, "its": {}, "may": {}, "she": {}, "that": {},
	"this": {}, "with": {}, "they": {}, "them": {}, "from": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "will": {}, "would": {}, "there": {},
	"their": {}, "about": {}, "been": {}, "were": {}, "into": {}, "than": {},
}

// EnhanceQuery expands a raw query into a stop-word-filtered keyword set and a
// lexically expanded semantic search string. It always succeeds; an empty or
// all-stop-word query yields an empty keyword list and the original query as
// the semantic query.
func EnhanceQuery(query string) EnhancedQuery {
	tokens := tokenizeQuery(query)

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		word := normalizeToken(tok)
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	// Longer tokens tend to be more topic-specific; rank them first.
	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	semantic := query
	if len(keywords) > 0 {
		expand := keywords
		if len(expand) > semanticExpandsWords {
			expand = expand[:semanticExpandsWords]
		}
		semantic = strings.TrimSpace(query + " " + strings.Join(expand, " "))
	}

	return EnhancedQuery{
		Original:      query,
		Keywords:      keywords,
		SemanticQuery: semantic,
	}
}

// tokenizeQuery splits the query into raw tokens using prose, falling back to
// whitespace splitting when the tokenizer cannot process the input.
func tokenizeQuery(query string) []string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}

	doc, err := prose.NewDocument(trimmed,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return strings.Fields(trimmed)
	}

	proseTokens := doc.Tokens()
	tokens := make([]string, 0, len(proseTokens))
	for _, tok := range proseTokens {
		tokens = append(tokens, tok.Text)
	}
	if len(tokens) == 0 {
		return strings.Fields(trimmed)
	}
	return tokens
}

// normalizeToken lowercases a token and strips punctuation from it.
func normalizeToken(tok string) string {
	lowered := strings.ToLower(tok)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, lowered)
}
