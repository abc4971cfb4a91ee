package llm

// Message represents a single message in a chat conversation.
// This type is used by the retrieval engine and other structured message consumers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatParams holds sampling parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	Temperature float32

	// TopP enables nucleus sampling when non-zero.
	TopP float32

	// PresencePenalty penalizes tokens already present in the context when non-zero.
	PresencePenalty float32

	// FrequencyPenalty penalizes frequent tokens when non-zero.
	FrequencyPenalty float32
}
