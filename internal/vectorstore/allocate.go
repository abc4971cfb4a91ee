package vectorstore

import (
	"math"
	"sort"
)

// Weight at or above which a collection counts as important for budget purposes.
const importantWeightThreshold = 0.5

type weightedCollection struct {
	name   string
	weight float64
}

// allocate splits a result budget across collections proportionally to their
// weights. Collections with weight >= 0.5 are important and share a reserved
// 80% of the budget (rounded up); the remainder is split among secondary
// collections by the same proportional rule. Every allocated collection gets
// at least one slot, so a zero-weight collection is still searched with one
// slot when budget remains. Collections absent from the map or with a
// negative weight get no allocation and are skipped entirely by the caller.
func allocate(limit int, weights map[string]float64) map[string]int {
	if limit <= 0 || len(weights) == 0 {
		return nil
	}

	var important, secondary []weightedCollection
	for name, weight := range weights {
		if weight < 0 {
			continue
		}
		wc := weightedCollection{name: name, weight: weight}
		if weight >= importantWeightThreshold {
			important = append(important, wc)
		} else {
			secondary = append(secondary, wc)
		}
	}

	sortByWeightDesc(important)
	sortByWeightDesc(secondary)

	alloc := make(map[string]int, len(weights))
	remaining := limit

	if len(important) > 0 {
		importantLimit := int(math.Ceil(float64(limit) * 0.8))
		remaining -= importantLimit

		var totalWeight float64
		for _, wc := range important {
			totalWeight += wc.weight
		}
		for _, wc := range important {
			share := int(math.Round(wc.weight / totalWeight * float64(importantLimit)))
			if share < 1 {
				share = 1
			}
			alloc[wc.name] = share
		}
	}

	if remaining > 0 && len(secondary) > 0 {
		var totalWeight float64
		for _, wc := range secondary {
			totalWeight += wc.weight
		}
		for _, wc := range secondary {
			share := 1
			if totalWeight > 0 {
				share = int(math.Round(wc.weight / totalWeight * float64(remaining)))
				if share < 1 {
					share = 1
				}
			}
			alloc[wc.name] = share
		}
	}

	return alloc
}

func sortByWeightDesc(collections []weightedCollection) {
	sort.Slice(collections, func(i, j int) bool {
		if collections[i].weight != collections[j].weight {
			return collections[i].weight > collections[j].weight
		}
		return collections[i].name < collections[j].name
	})
}
