package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/llm"
	"finchat-ai/internal/vectorstore"
)

const (
	// defaultGateScore means "always retrieve" and is used whenever the
	// model response cannot be parsed.
	defaultGateScore = 10

	// fallbackWeight is the equal split across the three collections when
	// expansion degrades.
	fallbackWeight = 0.33
)

// expander asks the completion backend to paraphrase a query into variants
// and to weight the topic collections, all in one structured prompt. Any
// failure (transport, missing JSON, missing fields) degrades to a fallback
// Expansion; Expand never fails.
type expander struct {
	completer Completer
}

// NewExpander creates a QueryExpander backed by a completion client.
func NewExpander(completer Completer) QueryExpander {
	return &expander{completer: completer}
}

// expansionPayload is the JSON contract the prompt asks the model to emit.
type expansionPayload struct {
	Variants  []string           `json:"variants"`
	Weights   map[string]float64 `json:"weights"`
	Relevance int                `json:"relevance"`
}

func (e *expander) Expand(ctx context.Context, query string, variantCount int) Expansion {
	logger := contextutil.LoggerFromContext(ctx)

	if variantCount <= 0 {
		variantCount = 3
	}

	prompt := buildExpansionPrompt(query, variantCount)
	text, err := e.completer.ChatWithMessages(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.ChatParams{
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		logger.WarnContext(ctx, "query expansion call failed, using fallback", "error", err)
		return fallbackExpansion(query)
	}

	raw := extractJSONObject(text)
	if raw == "" {
		logger.WarnContext(ctx, "no JSON object in expansion response, using fallback")
		return fallbackExpansion(query)
	}

	var payload expansionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.WarnContext(ctx, "failed to parse expansion JSON, using fallback", "error", err)
		return fallbackExpansion(query)
	}
	if len(payload.Variants) == 0 || len(payload.Weights) == 0 {
		logger.WarnContext(ctx, "expansion JSON missing variants or weights, using fallback")
		return fallbackExpansion(query)
	}

	gate := payload.Relevance
	if gate == 0 {
		gate = defaultGateScore
	}

	logger.DebugContext(ctx, "query expanded",
		"variants", payload.Variants,
		"weights", payload.Weights,
		"gate", gate,
	)
	return Expansion{
		Variants: payload.Variants,
		Weights:  payload.Weights,
		Gate:     gate,
	}
}

// fallbackExpansion is the graceful-degradation contract for the whole
// retrieval pipeline: the original query as its own variant, an equal weight
// split, and an always-retrieve gate.
func fallbackExpansion(query string) Expansion {
	return Expansion{
		Variants: []string{query},
		Weights: map[string]float64{
			vectorstore.CollectionStockKnowledge: fallbackWeight,
			vectorstore.CollectionMarketNews:     fallbackWeight,
			vectorstore.CollectionStockInfo:      fallbackWeight,
		},
		Gate:     defaultGateScore,
		Fallback: true,
	}
}

// buildExpansionPrompt builds the structured expansion prompt. The product
// serves Vietnamese-speaking finance users, so the instructions stay in the
// product language.
func buildExpansionPrompt(query string, variantCount int) string {
	return fmt.Sprintf(`# Nhiệm vụ: Mở rộng truy vấn và phân bổ trọng số collection

Bạn là trợ lý AI chuyên về tài chính và chứng khoán, giúp tối ưu hóa việc truy xuất thông tin. Người dùng đã đặt câu hỏi: "%s".

## Yêu cầu
1. Tạo %d biến thể truy vấn, trong đó:
   - Biến thể đầu tiên PHẢI sát với câu hỏi gốc nhất, giữ nguyên ý nghĩa và từ khóa quan trọng
   - Các biến thể còn lại là câu hỏi đề xuất tiếp theo, mở rộng chủ đề
2. Đánh giá trọng số (0.0 đến 1.0) cho mỗi collection theo mức độ liên quan:
   - %s: tài liệu chứng khoán, báo cáo phân tích, báo cáo tài chính doanh nghiệp, kiến thức đầu tư cơ bản
   - %s: tin tức thị trường mới nhất, sự kiện kinh tế, số liệu vĩ mô, tin tức doanh nghiệp
   - %s: thông tin chi tiết về mã chứng khoán, giá hiện tại, khối lượng giao dịch, chỉ số tài chính
3. Đánh giá câu hỏi có liên quan tới tài chính, chứng khoán, thị trường hay không, thang điểm 1 tới 10 (10 là liên quan nhất). VD: "ngày mai có mưa không" trả về 2.

## Format phản hồi
Trả về duy nhất một đối tượng JSON (không thêm văn bản nào khác):
{
  "variants": ["Biến thể 1", "Biến thể 2", "Biến thể 3"],
  "weights": {"%s": 0.0, "%s": 0.0, "%s": 0.0},
  "relevance": 10
}`,
		query, variantCount,
		vectorstore.CollectionStockKnowledge,
		vectorstore.CollectionMarketNews,
		vectorstore.CollectionStockInfo,
		vectorstore.CollectionStockInfo,
		vectorstore.CollectionMarketNews,
		vectorstore.CollectionStockKnowledge,
	)
}

// extractJSONObject returns the first balanced {...} block in s, or "" if
// none exists. Models wrap JSON in prose and code fences; scanning for a
// balanced object tolerates both. String literals and escapes are respected
// so braces inside values do not unbalance the scan.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
