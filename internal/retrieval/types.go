package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks finchat-ai/internal/retrieval Embedder,Completer,SearchGateway,QueryExpander

import (
	"context"

	"finchat-ai/internal/llm"
	"finchat-ai/internal/vectorstore"
)

// Embedder produces a fixed-dimension vector for a text.
// This interface is defined from the retrieval layer's perspective (consumer-first).
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Completer generates text from a message history.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// SearchGateway runs a weighted multi-collection similarity search.
type SearchGateway interface {
	Search(ctx context.Context, embedding []float32, limit int, weights map[string]float64) ([]vectorstore.SearchResult, error)
}

// QueryExpander paraphrases a query into variants with collection weights
// and a relevance gate score.
type QueryExpander interface {
	Expand(ctx context.Context, query string, variantCount int) Expansion
}

// Expansion is the outcome of a query expansion call. The first variant is
// the closest paraphrase of the original query; the remainder are suggested
// follow-up questions. Fallback reports whether the values come from the
// graceful-degradation path rather than a parsed model response.
type Expansion struct {
	Variants []string
	Weights  map[string]float64
	Gate     int
	Fallback bool
}

// ExtendedResult couples a search hit with its sparse and fused scores.
type ExtendedResult struct {
	vectorstore.SearchResult
	SparseScore   float64
	CombinedScore float64
}

// Result is the outcome of one hybrid retrieval call.
type Result struct {
	Suggestions []string
	Results     []ExtendedResult
}
