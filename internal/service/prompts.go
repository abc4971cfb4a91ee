package service

import (
	"fmt"
	"strings"

	"finchat-ai/internal/retrieval"
	"finchat-ai/internal/vectorstore"
)

// defaultSystemPrompt is used for sessions created without an explicit one.
// The product serves Vietnamese-speaking retail investors.
const defaultSystemPrompt = `Bạn là trợ lý AI chuyên về tài chính và chứng khoán Việt Nam.

## Nguyên tắc trả lời
- Trả lời bằng tiếng Việt, ngắn gọn, chính xác và dễ hiểu.
- Ưu tiên sử dụng thông tin trong phần "Thông tin truy xuất" nếu có; trích dẫn số liệu cụ thể khi trả lời.
- Nếu thông tin truy xuất không đủ để trả lời, nói rõ điều đó thay vì suy đoán.
- Không đưa ra lời khuyên đầu tư tuyệt đối; luôn nhắc người dùng tự cân nhắc rủi ro.
- Với câu hỏi ngoài phạm vi tài chính, chứng khoán, lịch sự từ chối và gợi ý chủ đề phù hợp.`

// noContextMessage steers the model when retrieval found nothing usable,
// including questions gated out as unrelated to the assistant's specialty.
const noContextMessage = `Không có dữ liệu truy xuất phù hợp cho câu hỏi này. Hãy ghi nhận câu hỏi của người dùng một cách lịch sự, sau đó hướng cuộc trò chuyện trở lại chuyên môn của bạn: tài chính, chứng khoán và thị trường Việt Nam. Gợi ý một vài chủ đề trong lĩnh vực đó mà người dùng có thể quan tâm. Không suy đoán hay bịa đặt số liệu.`

// metaSourceKey is the document-level metadata field naming where a chunk
// came from, supplied by the ingesting client.
const metaSourceKey = "source"

// collectionLabels maps collection names to their Vietnamese display names
// used in retrieval context blocks.
var collectionLabels = map[string]string{
	vectorstore.CollectionStockKnowledge: "Kiến thức chứng khoán",
	vectorstore.CollectionMarketNews:     "Tin tức thị trường",
	vectorstore.CollectionStockInfo:      "Thông tin cổ phiếu",
}

// buildContextMessage renders retrieval results as a system message the model
// can cite from. Each chunk carries its document source, collection, priority
// and fused relevance score so the model can weigh conflicting chunks. The
// percentage shown is the combined dense+sparse score, not raw similarity.
func buildContextMessage(results []retrieval.ExtendedResult) string {
	if len(results) == 0 {
		return noContextMessage
	}

	var b strings.Builder
	b.WriteString("Thông tin truy xuất:\n")
	for i, r := range results {
		name, _ := r.Meta[vectorstore.MetaCollectionName].(string)
		label, ok := collectionLabels[name]
		if !ok {
			label = name
		}
		source, _ := r.Meta[metaSourceKey].(string)
		if source == "" {
			source = label
		}
		priority, _ := r.Meta[vectorstore.MetaPriority].(string)
		if priority == "" {
			priority = vectorstore.PriorityLow
		}

		fmt.Fprintf(&b, "\n[#%d] [Nguồn: %s | Bộ sưu tập: %s | Độ ưu tiên: %s | Độ liên quan: %.0f%%]\n%s\n",
			i+1, source, label, priority, r.CombinedScore*100, strings.TrimSpace(r.Content))
	}
	return b.String()
}
