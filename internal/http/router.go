package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finchat-ai/internal/handlers"
	"finchat-ai/internal/service"
	"finchat-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	Embedder    handlers.BatchEmbedder
	VectorStore vectorstore.VectorStore
	VectorSize  int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	sessionsHandler := handlers.NewSessionsHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.Embedder, deps.VectorStore)
	collectionsHandler := handlers.NewCollectionsHandler(deps.VectorStore, deps.VectorSize)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/documents", documentsHandler)

		r.Post("/sessions", sessionsHandler.Create)
		r.Put("/sessions/{id}/system-prompt", sessionsHandler.UpdateSystemPrompt)
		r.Get("/sessions/{id}/history", sessionsHandler.History)
		r.Delete("/sessions/{id}", sessionsHandler.Delete)

		r.Get("/collections", collectionsHandler.List)
		r.Delete("/collections/{name}", collectionsHandler.Delete)
	})

	return r
}
