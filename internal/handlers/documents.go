package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/vectorstore"
)

// maxDocumentsPerRequest bounds one ingest batch. Each document costs one
// embedding call slot, so the bound protects the embedding backend.
const maxDocumentsPerRequest = 100

// BatchEmbedder produces vectors for a batch of texts.
// This interface is defined from the handler's perspective (consumer-first).
type BatchEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentsHandler handles HTTP requests for document ingestion.
type DocumentsHandler struct {
	embedder BatchEmbedder
	store    vectorstore.VectorStore
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(embedder BatchEmbedder, store vectorstore.VectorStore) *DocumentsHandler {
	return &DocumentsHandler{
		embedder: embedder,
		store:    store,
	}
}

// IngestDocument is one document in an ingest request.
type IngestDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestRequest represents the HTTP request payload for document ingestion.
type IngestRequest struct {
	Collection string           `json:"collection"`
	Documents  []IngestDocument `json:"documents"`
}

// IngestResponse represents the HTTP response payload for document ingestion.
type IngestResponse struct {
	Collection string   `json:"collection"`
	Ingested   int      `json:"ingested"`
	IDs        []string `json:"ids"`
}

// ServeHTTP handles POST /api/documents: embeds the batch and upserts it
// into the target collection.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !slices.Contains(vectorstore.Collections(), req.Collection) {
		writeError(w, http.StatusBadRequest, "Unknown collection")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents is required")
		return
	}
	if len(req.Documents) > maxDocumentsPerRequest {
		writeError(w, http.StatusBadRequest, "Too many documents in one request")
		return
	}

	texts := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		if doc.Content == "" {
			writeError(w, http.StatusBadRequest, "document content cannot be empty")
			return
		}
		texts = append(texts, doc.Content)
	}

	embeddings, err := h.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed documents", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to embed documents")
		return
	}

	points := make([]vectorstore.Point, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for i, doc := range req.Documents {
		id := uuid.NewString()
		ids = append(ids, id)
		points = append(points, vectorstore.Point{
			ID:      id,
			Vec:     embeddings[i],
			Content: doc.Content,
			Meta:    doc.Metadata,
		})
	}

	if err := h.store.Upsert(ctx, req.Collection, points); err != nil {
		logger.ErrorContext(ctx, "failed to upsert documents", "error", err, "collection", req.Collection)
		writeError(w, http.StatusBadGateway, "Failed to store documents")
		return
	}

	logger.InfoContext(ctx, "documents ingested", "collection", req.Collection, "count", len(points))
	writeJSON(w, http.StatusCreated, IngestResponse{
		Collection: req.Collection,
		Ingested:   len(points),
		IDs:        ids,
	})
}
