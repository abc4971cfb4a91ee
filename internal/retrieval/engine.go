package retrieval

import (
	"context"
	"fmt"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/vectorstore"
)

const (
	// relevanceGateCutoff is the minimum expansion gate score for retrieval
	// to run at all. Below it the query is off-topic and gets canned
	// suggestions instead of vector search.
	relevanceGateCutoff = 5

	// fallbackResultCount is how many top results survive when the adaptive
	// threshold filters everything out.
	fallbackResultCount = 2

	variantCount = 3
)

// defaultSuggestions is served for off-topic queries instead of retrieval.
var defaultSuggestions = []string{"Tin tức thị trường mới nhất"}

// Engine runs the full hybrid retrieval pipeline for a user query.
type Engine interface {
	Retrieve(ctx context.Context, query string, topK int) (Result, error)
}

type hybridEngine struct {
	embedder Embedder
	gateway  SearchGateway
	expander QueryExpander
}

// NewEngine assembles the hybrid retrieval engine from its three
// collaborators: an embedder for dense vectors, a gateway for weighted
// multi-collection search, and an expander for query paraphrasing.
func NewEngine(embedder Embedder, gateway SearchGateway, expander QueryExpander) Engine {
	return &hybridEngine{
		embedder: embedder,
		gateway:  gateway,
		expander: expander,
	}
}

// Retrieve expands the query, gates off-topic questions, runs weighted dense
// search for each variant, fuses dense and sparse scores, applies the
// adaptive threshold and returns the priority-aware reranked top results.
// Per-variant failures degrade: one healthy variant is enough.
func (e *hybridEngine) Retrieve(ctx context.Context, query string, topK int) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		return Result{}, fmt.Errorf("topK must be positive, got %d", topK)
	}
	normalized := normalizeQuery(query)
	if normalized == "" {
		return Result{}, fmt.Errorf("query is empty")
	}

	expansion := e.expander.Expand(ctx, normalized, variantCount)
	if expansion.Gate < relevanceGateCutoff {
		logger.InfoContext(ctx, "query gated as off-topic, skipping retrieval",
			"gate", expansion.Gate,
		)
		return Result{Suggestions: defaultSuggestions}, nil
	}

	// The first variant is the closest paraphrase and joins the normalized
	// original as a search query; the rest become follow-up suggestions.
	searchQueries := []string{normalized}
	var suggestions []string
	if len(expansion.Variants) > 0 {
		searchQueries = []string{expansion.Variants[0], normalized}
		suggestions = expansion.Variants[1:]
	}

	merged := e.searchVariants(ctx, searchQueries, topK, expansion.Weights)
	if len(merged) == 0 {
		logger.InfoContext(ctx, "no retrieval candidates", "query", normalized)
		return Result{Suggestions: suggestions}, nil
	}

	scored := make([]ExtendedResult, 0, len(merged))
	similarities := make([]float64, 0, len(merged))
	for _, r := range merged {
		sparse := sparseScore(normalized, r.Content)
		scored = append(scored, ExtendedResult{
			SearchResult:  r,
			SparseScore:   sparse,
			CombinedScore: denseWeight*r.Similarity + sparseWeight*sparse,
		})
		similarities = append(similarities, r.Similarity)
	}

	threshold := adaptiveThreshold(similarities, topK, scored)

	// High-priority results always pass; everything else must clear the
	// threshold on its combined score.
	var passing []ExtendedResult
	for _, r := range scored {
		if isHighPriority(r) || r.CombinedScore >= threshold {
			passing = append(passing, r)
		}
	}
	if len(passing) == 0 {
		// Nothing cleared the bar but candidates exist: serve the best two
		// rather than nothing, so the model always sees the closest context.
		passing = rerank(scored, fallbackResultCount)
		logger.InfoContext(ctx, "threshold filtered all candidates, serving best available",
			"threshold", threshold,
			"served", len(passing),
		)
	}

	final := rerank(passing, topK)
	logger.DebugContext(ctx, "retrieval complete",
		"candidates", len(scored),
		"threshold", threshold,
		"results", len(final),
	)
	return Result{Suggestions: suggestions, Results: final}, nil
}

// searchVariants embeds each query variant and searches the gateway,
// deduplicating hits across variants. A variant that fails to embed or
// search is skipped with a warning.
func (e *hybridEngine) searchVariants(ctx context.Context, queries []string, limit int, weights map[string]float64) []vectorstore.SearchResult {
	logger := contextutil.LoggerFromContext(ctx)

	var merged []vectorstore.SearchResult
	seen := make(map[string]struct{})
	for _, q := range queries {
		embedding, err := e.embedder.EmbedText(ctx, q)
		if err != nil {
			logger.WarnContext(ctx, "failed to embed query variant", "error", err)
			continue
		}

		results, err := e.gateway.Search(ctx, embedding, limit, weights)
		if err != nil {
			logger.WarnContext(ctx, "variant search failed", "error", err)
			continue
		}

		for _, r := range results {
			key := dedupeKey(r)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}

// dedupeKey identifies a hit across variants: the point id when the gateway
// tagged one, the content otherwise.
func dedupeKey(r vectorstore.SearchResult) string {
	if id, ok := r.Meta["id"].(string); ok && id != "" {
		return id
	}
	return r.Content
}
