package retrieval

import (
	"math"
	"testing"

	"finchat-ai/internal/vectorstore"
)

func extended(id string, combined float64, meta map[string]any) ExtendedResult {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["id"] = id
	return ExtendedResult{
		SearchResult: vectorstore.SearchResult{
			Content: "doc " + id,
			Meta:    meta,
		},
		CombinedScore: combined,
	}
}

func TestDynamicThreshold(t *testing.T) {
	tests := []struct {
		name         string
		similarities []float64
		want         float64
	}{
		{"empty distribution defaults", nil, 0.65},
		{"uniform scores give the average", []float64{0.8, 0.8, 0.8}, 0.8},
		// avg 0.6, max 0.9: 0.6 + 0.25*0.3 = 0.675
		{"spread pulls above the average", []float64{0.3, 0.6, 0.9}, 0.675},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dynamicThreshold(tt.similarities)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("dynamicThreshold(%v) = %v, want %v", tt.similarities, got, tt.want)
			}
		})
	}
}

func TestAdaptiveThresholdLowersForSparseResults(t *testing.T) {
	// Dynamic threshold from these similarities is 0.875; only one combined
	// score clears it, so asking for 3 results forces a lowering to just
	// below the third-best combined score.
	similarities := []float64{0.9, 0.8, 0.7}
	results := []ExtendedResult{
		extended("a", 0.9, nil),
		extended("b", 0.8, nil),
		extended("c", 0.7, nil),
	}

	got := adaptiveThreshold(similarities, 3, results)
	want := 0.7 - 0.01
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("adaptiveThreshold() = %v, want %v", got, want)
	}
}

func TestAdaptiveThresholdFloor(t *testing.T) {
	similarities := []float64{0.4, 0.3}
	results := []ExtendedResult{
		extended("a", 0.35, nil),
		extended("b", 0.25, nil),
	}

	// Lowering would land below 0.5; the floor holds.
	if got := adaptiveThreshold(similarities, 5, results); got != 0.5 {
		t.Errorf("adaptiveThreshold() = %v, want the 0.5 floor", got)
	}
}

func TestAdaptiveThresholdKeepsDynamicWhenEnoughPass(t *testing.T) {
	similarities := []float64{0.8, 0.8}
	results := []ExtendedResult{
		extended("a", 0.85, nil),
		extended("b", 0.82, nil),
	}

	if got := adaptiveThreshold(similarities, 2, results); got != 0.8 {
		t.Errorf("adaptiveThreshold() = %v, want the unlowered 0.8", got)
	}
}

func TestIsHighPriority(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want bool
	}{
		{
			name: "priority tag",
			meta: map[string]any{vectorstore.MetaPriority: vectorstore.PriorityHigh},
			want: true,
		},
		{
			name: "heavy collection weight",
			meta: map[string]any{vectorstore.MetaWeight: 0.7},
			want: true,
		},
		{
			name: "low priority and light weight",
			meta: map[string]any{
				vectorstore.MetaPriority: vectorstore.PriorityLow,
				vectorstore.MetaWeight:   0.3,
			},
			want: false,
		},
		{
			name: "no tags",
			meta: map[string]any{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExtendedResult{SearchResult: vectorstore.SearchResult{Meta: tt.meta}}
			if got := isHighPriority(r); got != tt.want {
				t.Errorf("isHighPriority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRerankPriorityGroupFirst(t *testing.T) {
	results := []ExtendedResult{
		extended("plain-best", 0.95, map[string]any{vectorstore.MetaPriority: vectorstore.PriorityLow}),
		extended("high-weak", 0.4, map[string]any{vectorstore.MetaPriority: vectorstore.PriorityHigh}),
		extended("high-strong", 0.6, map[string]any{vectorstore.MetaPriority: vectorstore.PriorityHigh}),
		extended("plain-weak", 0.5, map[string]any{vectorstore.MetaPriority: vectorstore.PriorityLow}),
	}

	reranked := rerank(results, 10)
	wantOrder := []string{"high-strong", "high-weak", "plain-best", "plain-weak"}
	if len(reranked) != len(wantOrder) {
		t.Fatalf("got %d results, want %d", len(reranked), len(wantOrder))
	}
	for i, want := range wantOrder {
		if id, _ := reranked[i].Meta["id"].(string); id != want {
			t.Errorf("position %d = %q, want %q", i, id, want)
		}
	}
}

func TestRerankTruncates(t *testing.T) {
	results := []ExtendedResult{
		extended("a", 0.9, nil),
		extended("b", 0.8, nil),
		extended("c", 0.7, nil),
	}

	reranked := rerank(results, 2)
	if len(reranked) != 2 {
		t.Fatalf("got %d results, want 2", len(reranked))
	}
	if id, _ := reranked[0].Meta["id"].(string); id != "a" {
		t.Errorf("first result = %q, want %q", id, "a")
	}
}
