package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks finchat-ai/internal/vectorstore VectorStore

import "context"

// Collection names for the three topic partitions of the vector store.
const (
	CollectionStockKnowledge = "stock_knowledge"
	CollectionMarketNews     = "market_news"
	CollectionStockInfo      = "stock_information"
)

// Collections returns all known collection names.
func Collections() []string {
	return []string{CollectionStockKnowledge, CollectionMarketNews, CollectionStockInfo}
}

// Point represents a vector point with its document text and metadata.
type Point struct {
	ID      string
	Vec     []float32
	Content string
	Meta    map[string]any
}

// Candidate represents a raw ranked candidate from a collection query.
// Distance follows the backend's distance metric: smaller is closer.
type Candidate struct {
	ID       string
	Content  string
	Distance float64
	Meta     map[string]any
}

// SearchResult is a normalized search hit produced by the Gateway.
// Similarity is a monotonic rescaling of the backend distance into (0, 1],
// with 1.0 reserved for exact or direct retrieval.
type SearchResult struct {
	Content    string
	Meta       map[string]any
	Similarity float64
}

// VectorStore defines the interface for per-collection vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query performs a similarity search and returns ranked candidates with
	// raw distances, length at most limit. An empty collection yields an
	// empty slice without error.
	Query(ctx context.Context, collection string, query []float32, limit int) ([]Candidate, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// ListCollections returns the names of all existing collections.
	ListCollections(ctx context.Context) ([]string, error)

	// DeleteCollection drops a collection entirely.
	DeleteCollection(ctx context.Context, collection string) error

	// EnsureCollection creates the collection with the given vector size if
	// missing, or validates the size if it exists.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
}
