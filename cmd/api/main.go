package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"finchat-ai/internal/config"
	"finchat-ai/internal/http"
	"finchat-ai/internal/llm"
	"finchat-ai/internal/retrieval"
	"finchat-ai/internal/service"
	"finchat-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize Qdrant vector store and make sure every topic collection
	// exists with the configured vector size.
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	for _, collection := range vectorstore.Collections() {
		if err := vectorStore.EnsureCollection(ctx, collection, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection %s: %v", collection, err)
		}
	}
	slog.Info("Qdrant collections ready", "collections", vectorstore.Collections(), "vector_size", cfg.VectorSize)

	// Validate embedding client vector size (fail-fast)
	embeddings := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.VectorSize)
	testEmbeddings, err := embeddings.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.VectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.VectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	// Cache query embeddings so repeated and paraphrased questions skip the
	// embedding backend.
	embedder, err := llm.NewCachedEmbedder(embeddings, cfg.EmbedCacheSize)
	if err != nil {
		log.Fatalf("Failed to create embedding cache: %v", err)
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Assemble the hybrid retrieval engine
	gateway := vectorstore.NewGateway(vectorStore)
	expander := retrieval.NewExpander(llmClient)
	engine := retrieval.NewEngine(embedder, gateway, expander)
	slog.Info("Retrieval engine initialized")

	// Create chat service over in-memory sessions
	sessions := service.NewMemorySessionStore()
	chatService := service.NewChatService(sessions, engine, llmClient)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		ChatService: chatService,
		Embedder:    embeddings,
		VectorStore: vectorStore,
		VectorSize:  cfg.VectorSize,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
