package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"finchat-ai/internal/retrieval"
	"finchat-ai/internal/retrieval/mocks"
	"finchat-ai/internal/vectorstore"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func result(id, content string, similarity float64, meta map[string]any) vectorstore.SearchResult {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["id"] = id
	return vectorstore.SearchResult{
		Content:    content,
		Similarity: similarity,
		Meta:       meta,
	}
}

func TestRetrieveHappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	weights := map[string]float64{
		vectorstore.CollectionStockInfo:  0.9,
		vectorstore.CollectionMarketNews: 0.4,
	}
	expander.EXPECT().Expand(gomock.Any(), "giá hpg hôm nay", 3).Return(retrieval.Expansion{
		Variants: []string{"Giá cổ phiếu HPG hôm nay", "HPG có nên mua không", "Triển vọng ngành thép"},
		Weights:  weights,
		Gate:     9,
	})

	// Both the best variant and the normalized original get embedded and
	// searched; the shared hit must be deduplicated.
	embedder.EXPECT().EmbedText(gomock.Any(), "Giá cổ phiếu HPG hôm nay").Return([]float32{1}, nil)
	embedder.EXPECT().EmbedText(gomock.Any(), "giá hpg hôm nay").Return([]float32{2}, nil)

	shared := result("p1", "Giá HPG hôm nay: 28.000đ", 0.95, map[string]any{
		vectorstore.MetaPriority: vectorstore.PriorityHigh,
	})
	gateway.EXPECT().Search(gomock.Any(), []float32{1}, 4, weights).Return([]vectorstore.SearchResult{
		shared,
		result("p2", "HPG khối lượng giao dịch lớn", 0.85, nil),
	}, nil)
	gateway.EXPECT().Search(gomock.Any(), []float32{2}, 4, weights).Return([]vectorstore.SearchResult{
		shared,
		result("n1", "Ngành thép phục hồi", 0.7, nil),
	}, nil)

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "  Giá HPG   hôm nay ", 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"HPG có nên mua không", "Triển vọng ngành thép"}, got.Suggestions)
	require.NotEmpty(t, got.Results)

	// p1 is a deduplicated high-priority exact match and must lead.
	assert.Equal(t, "p1", got.Results[0].Meta["id"])
	ids := make(map[string]int)
	for _, r := range got.Results {
		ids[r.Meta["id"].(string)]++
	}
	assert.Equal(t, 1, ids["p1"], "shared hit must appear once")

	for _, r := range got.Results {
		assert.InDelta(t, 0.7*r.Similarity+0.3*r.SparseScore, r.CombinedScore, 1e-9)
	}
}

func TestRetrieveGatesOffTopicQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	expander.EXPECT().Expand(gomock.Any(), "ngày mai có mưa không", 3).Return(retrieval.Expansion{
		Variants: []string{"ngày mai có mưa không"},
		Weights:  map[string]float64{vectorstore.CollectionMarketNews: 0.1},
		Gate:     2,
	})
	// Neither the embedder nor the gateway may be touched for a gated query.

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "Ngày mai có mưa không", 5)
	require.NoError(t, err)

	assert.Empty(t, got.Results)
	assert.Equal(t, []string{"Tin tức thị trường mới nhất"}, got.Suggestions)
}

func TestRetrieveValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := retrieval.NewEngine(
		mocks.NewMockEmbedder(ctrl),
		mocks.NewMockSearchGateway(ctrl),
		mocks.NewMockQueryExpander(ctrl),
	)

	_, err := engine.Retrieve(context.Background(), "giá hpg", 0)
	assert.Error(t, err)

	_, err = engine.Retrieve(context.Background(), "   ", 5)
	assert.Error(t, err)
}

func TestRetrieveDegradesOnVariantFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	expander.EXPECT().Expand(gomock.Any(), "giá hpg", 3).Return(retrieval.Expansion{
		Variants: []string{"Giá cổ phiếu HPG"},
		Weights:  map[string]float64{vectorstore.CollectionStockInfo: 0.9},
		Gate:     9,
	})

	embedder.EXPECT().EmbedText(gomock.Any(), "Giá cổ phiếu HPG").Return(nil, errors.New("embedding backend down"))
	embedder.EXPECT().EmbedText(gomock.Any(), "giá hpg").Return([]float32{1}, nil)
	gateway.EXPECT().Search(gomock.Any(), []float32{1}, 3, gomock.Any()).Return([]vectorstore.SearchResult{
		result("p1", "giá hpg tăng", 0.9, nil),
	}, nil)

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "giá hpg", 3)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "p1", got.Results[0].Meta["id"])
}

func TestRetrieveEmptyWhenAllVariantsFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	expander.EXPECT().Expand(gomock.Any(), "giá hpg", 3).Return(retrieval.Expansion{
		Variants: []string{"Giá cổ phiếu HPG", "Nên mua HPG không"},
		Weights:  map[string]float64{vectorstore.CollectionStockInfo: 0.9},
		Gate:     9,
	})
	embedder.EXPECT().EmbedText(gomock.Any(), gomock.Any()).Return(nil, errors.New("down")).Times(2)

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "giá hpg", 3)
	require.NoError(t, err)
	assert.Empty(t, got.Results)
	assert.Equal(t, []string{"Nên mua HPG không"}, got.Suggestions)
}

func TestRetrieveHighPriorityBypassesThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	expander.EXPECT().Expand(gomock.Any(), "hpg", 3).Return(retrieval.Expansion{
		Variants: []string{"hpg"},
		Weights:  map[string]float64{vectorstore.CollectionStockInfo: 0.9},
		Gate:     8,
	})
	embedder.EXPECT().EmbedText(gomock.Any(), "hpg").Return([]float32{1}, nil).Times(2)

	// The priority hit scores far below the strong one; only the priority
	// tag keeps it in the final set.
	hits := []vectorstore.SearchResult{
		result("strong", "hpg giá hiện tại", 0.95, nil),
		result("weak-cao", "báo cáo thường niên", 0.30, map[string]any{
			vectorstore.MetaPriority: vectorstore.PriorityHigh,
		}),
	}
	gateway.EXPECT().Search(gomock.Any(), []float32{1}, 2, gomock.Any()).Return(hits, nil).Times(2)

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "hpg", 2)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)

	// The high-priority group leads even though its combined score is lower.
	assert.Equal(t, "weak-cao", got.Results[0].Meta["id"])
	assert.Equal(t, "strong", got.Results[1].Meta["id"])
}

func TestRetrieveServesBestTwoWhenNothingPasses(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := mocks.NewMockEmbedder(ctrl)
	gateway := mocks.NewMockSearchGateway(ctrl)
	expander := mocks.NewMockQueryExpander(ctrl)

	expander.EXPECT().Expand(gomock.Any(), "cổ tức vnm", 3).Return(retrieval.Expansion{
		Variants: []string{"cổ tức vnm"},
		Weights:  map[string]float64{vectorstore.CollectionStockKnowledge: 0.4},
		Gate:     7,
	})
	embedder.EXPECT().EmbedText(gomock.Any(), "cổ tức vnm").Return([]float32{1}, nil).Times(2)

	// Low similarities with zero sparse overlap: every combined score lands
	// below the 0.5 floor.
	hits := []vectorstore.SearchResult{
		result("a", "chính sách tiền tệ", 0.40, nil),
		result("b", "giá vàng thế giới", 0.35, nil),
		result("c", "tỷ giá usd", 0.30, nil),
	}
	gateway.EXPECT().Search(gomock.Any(), []float32{1}, 5, gomock.Any()).Return(hits, nil).Times(2)

	engine := retrieval.NewEngine(embedder, gateway, expander)
	got, err := engine.Retrieve(context.Background(), "cổ tức vnm", 5)
	require.NoError(t, err)

	require.Len(t, got.Results, 2, "best-available fallback serves exactly two")
	assert.Equal(t, "a", got.Results[0].Meta["id"])
	assert.Equal(t, "b", got.Results[1].Meta["id"])
}
