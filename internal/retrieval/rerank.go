package retrieval

import (
	"sort"

	"finchat-ai/internal/vectorstore"
)

const (
	// defaultThreshold applies when no similarity distribution is available.
	defaultThreshold = 0.65

	// minThreshold is the hard floor for the adaptive threshold.
	minThreshold = 0.5

	// highPriorityWeight exempts a result from threshold filtering when its
	// collection weight reaches it.
	highPriorityWeight = 0.7

	denseWeight  = 0.7
	sparseWeight = 0.3
)

// dynamicThreshold derives a similarity cutoff from the observed dense-score
// distribution: the mean plus a quarter of the spread above the mean.
func dynamicThreshold(similarities []float64) float64 {
	if len(similarities) == 0 {
		return defaultThreshold
	}

	var sum, max float64
	for i, s := range similarities {
		sum += s
		if i == 0 || s > max {
			max = s
		}
	}
	avg := sum / float64(len(similarities))
	return avg + 0.25*(max-avg)
}

// adaptiveThreshold starts from the dynamic cutoff and lowers it when fewer
// than minResults results would pass, down to just below the score of the
// minResults-th best result (or the worst available result when there are
// fewer). The returned threshold never drops below 0.5, so a narrow score
// distribution cannot starve the pipeline but garbage never passes either.
func adaptiveThreshold(similarities []float64, minResults int, results []ExtendedResult) float64 {
	threshold := dynamicThreshold(similarities)

	var passing int
	for _, r := range results {
		if r.CombinedScore >= threshold {
			passing++
		}
	}
	if passing >= minResults || len(results) == 0 {
		return threshold
	}

	sorted := make([]ExtendedResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CombinedScore > sorted[j].CombinedScore
	})

	idx := minResults - 1
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	lowered := sorted[idx].CombinedScore - 0.01
	if lowered < minThreshold {
		return minThreshold
	}
	return lowered
}

// isHighPriority reports whether a result bypasses threshold filtering:
// either the gateway tagged it with the high-priority flag or its collection
// weight is at least 0.7.
func isHighPriority(r ExtendedResult) bool {
	if priority, ok := r.Meta[vectorstore.MetaPriority].(string); ok && priority == vectorstore.PriorityHigh {
		return true
	}
	if weight, ok := r.Meta[vectorstore.MetaWeight].(float64); ok && weight >= highPriorityWeight {
		return true
	}
	return false
}

// rerank orders results priority-group-first, each group sorted by combined
// score descending, truncated to topK. This is deliberately a stable
// two-group sort rather than a diversity-aware rerank; changing it would
// change which context reaches the model.
func rerank(results []ExtendedResult, topK int) []ExtendedResult {
	var high, other []ExtendedResult
	for _, r := range results {
		if isHighPriority(r) {
			high = append(high, r)
		} else {
			other = append(other, r)
		}
	}

	byCombinedDesc := func(group []ExtendedResult) {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CombinedScore > group[j].CombinedScore
		})
	}
	byCombinedDesc(high)
	byCombinedDesc(other)

	reranked := append(high, other...)
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}
