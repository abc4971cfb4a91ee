package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"finchat-ai/internal/contextutil"
)

// Priority tags attached to results based on their collection's weight.
const (
	PriorityHigh = "CAO"
	PriorityLow  = "THẤP"
)

// Metadata keys set by the gateway on every result.
const (
	MetaCollectionName = "collection_name"
	MetaPriority       = "priority"
	MetaWeight         = "weight"
)

// Gateway fans a single embedding out across the topic collections,
// normalizes per-collection distances into similarities and tags each result
// with its collection name, priority and weight. A failing collection search
// degrades to an empty result for that collection only.
type Gateway struct {
	store       VectorStore
	collections []string
}

// NewGateway creates a gateway over the given collections.
func NewGateway(store VectorStore, collections ...string) *Gateway {
	if len(collections) == 0 {
		collections = Collections()
	}
	return &Gateway{
		store:       store,
		collections: collections,
	}
}

// Search runs a weighted multi-collection similarity search. The result
// budget is split across collections proportionally to weights; collections
// allocated zero slots are not searched at all. Per-collection searches run
// concurrently and are merged by descending similarity, truncated to limit.
func (g *Gateway) Search(ctx context.Context, embedding []float32, limit int, weights map[string]float64) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	if len(weights) == 0 {
		weights = defaultWeights(g.collections)
	}
	alloc := allocate(limit, weights)
	logger.DebugContext(ctx, "collection budget allocated", "limit", limit, "allocation", alloc)

	var (
		mu     sync.Mutex
		merged []SearchResult
		eg     errgroup.Group
	)
	for _, name := range g.collections {
		colLimit := alloc[name]
		if colLimit == 0 {
			continue
		}
		eg.Go(func() error {
			candidates, err := g.store.Query(ctx, name, embedding, colLimit)
			if err != nil {
				// Degrade to an empty result for this collection only.
				logger.WarnContext(ctx, "collection search failed", "collection", name, "error", err)
				return nil
			}
			results := normalize(candidates, name, weights[name])
			mu.Lock()
			merged = append(merged, results...)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	logger.InfoContext(ctx, "multi-collection search completed", "limit", limit, "results", len(merged))
	return merged, nil
}

// normalize rescales candidate distances into similarities and tags metadata.
// Given the maximum distance D among the candidates, similarity is
// 1 - distance/(2D), clamped to 1 when D is 0. The rescaling is monotonic:
// it preserves ranking within one collection, it is not a probability.
func normalize(candidates []Candidate, collection string, weight float64) []SearchResult {
	if len(candidates) == 0 {
		return nil
	}

	maxDistance := 0.0
	for _, c := range candidates {
		if c.Distance > maxDistance {
			maxDistance = c.Distance
		}
	}

	priority := PriorityLow
	if weight >= importantWeightThreshold {
		priority = PriorityHigh
	}

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		similarity := 1.0
		if maxDistance > 0 {
			similarity = 1 - c.Distance/(2*maxDistance)
		}

		meta := make(map[string]any, len(c.Meta)+4)
		for k, v := range c.Meta {
			meta[k] = v
		}
		if c.ID != "" {
			meta["id"] = c.ID
		}
		meta[MetaCollectionName] = collection
		meta[MetaPriority] = priority
		meta[MetaWeight] = weight

		results = append(results, SearchResult{
			Content:    c.Content,
			Meta:       meta,
			Similarity: similarity,
		})
	}
	return results
}

// defaultWeights gives every collection an equal share.
func defaultWeights(collections []string) map[string]float64 {
	weights := make(map[string]float64, len(collections))
	for _, name := range collections {
		weights[name] = 0.33
	}
	return weights
}
