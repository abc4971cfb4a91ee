package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/vectorstore"
)

// CollectionsHandler handles HTTP requests for collection administration.
type CollectionsHandler struct {
	store      vectorstore.VectorStore
	vectorSize int
}

// NewCollectionsHandler creates a new CollectionsHandler. vectorSize is used
// to recreate a collection empty after it is dropped.
func NewCollectionsHandler(store vectorstore.VectorStore, vectorSize int) *CollectionsHandler {
	return &CollectionsHandler{
		store:      store,
		vectorSize: vectorSize,
	}
}

// CollectionInfo describes one collection in HTTP responses.
type CollectionInfo struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// ListResponse represents the HTTP response payload for listing collections.
type ListResponse struct {
	Collections []CollectionInfo `json:"collections"`
}

// List handles GET /api/collections: the known topic collections with their
// point counts. A collection that cannot be counted reports zero points
// rather than failing the whole listing.
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	infos := make([]CollectionInfo, 0, len(vectorstore.Collections()))
	for _, name := range vectorstore.Collections() {
		count, err := h.store.Count(ctx, name)
		if err != nil {
			logger.WarnContext(ctx, "failed to count collection", "collection", name, "error", err)
			count = 0
		}
		infos = append(infos, CollectionInfo{Name: name, Points: count})
	}

	writeJSON(w, http.StatusOK, ListResponse{Collections: infos})
}

// Delete handles DELETE /api/collections/{name}: drops every point by
// deleting and recreating the collection empty. Only the known topic
// collections can be targeted.
func (h *CollectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	name := chi.URLParam(r, "name")

	if !slices.Contains(vectorstore.Collections(), name) {
		writeError(w, http.StatusNotFound, "Unknown collection")
		return
	}

	if err := h.store.DeleteCollection(ctx, name); err != nil {
		logger.ErrorContext(ctx, "failed to delete collection", "collection", name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to delete collection")
		return
	}
	if err := h.store.EnsureCollection(ctx, name, h.vectorSize); err != nil {
		logger.ErrorContext(ctx, "failed to recreate collection", "collection", name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to recreate collection")
		return
	}

	logger.InfoContext(ctx, "collection emptied", "collection", name)
	w.WriteHeader(http.StatusNoContent)
}
