package retrieval

import (
	"strings"
	"unicode"
)

// normalizeQuery lowercases, trims and collapses whitespace. The same policy
// feeds both embedding lookups and sparse scoring so the two retrieval paths
// see an identical query.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}

// sparseScore computes the token-overlap relevance of a document for a query:
// the fraction of query tokens that appear anywhere in the document, in [0, 1].
// No external calls; this is the sparse half of the hybrid score.
func sparseScore(query, document string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	docTokens := tokenize(document)
	if len(docTokens) == 0 {
		return 0
	}

	docSet := make(map[string]struct{}, len(docTokens))
	for _, token := range docTokens {
		docSet[token] = struct{}{}
	}

	var matches int
	for _, token := range queryTokens {
		if _, ok := docSet[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}

// tokenize splits text into lowercase letter/digit runs, discarding
// everything else. Query and document tokenization share this exact policy.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
