package handler

import "net/http"

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Documents *DocumentHandler
	Sharing   *SharingHandler
	Community *CommunityHandler
}

// NewRouter registers all routes (Go 1.22+ method and wildcard patterns)
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", h.Documents.HealthCheck)

	// Document routes
	mux.HandleFunc("GET /api/documents", h.Documents.ListDocuments)
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Documents.DeleteDocument)
	mux.HandleFunc("GET /api/documents/{id}/access", h.Documents.GetAccess)

	// Sharing routes
	mux.HandleFunc("POST /api/documents/{id}/collaborators", h.Sharing.Invite)
	mux.HandleFunc("PATCH /api/documents/{id}/collaborators/{userId}", h.Sharing.SetRole)
	mux.HandleFunc("DELETE /api/documents/{id}/collaborators/{userId}", h.Sharing.Remove)
	mux.HandleFunc("PUT /api/documents/{id}/visibility", h.Sharing.SetVisibility)
	mux.HandleFunc("POST /api/documents/{id}/publish", h.Sharing.Publish)
	mux.HandleFunc("DELETE /api/documents/{id}/publish", h.Sharing.Unpublish)

	// Community routes (anonymous)
	mux.HandleFunc("GET /api/community", h.Community.ListPublished)
	mux.HandleFunc("GET /api/community/search", h.Community.Search)

	return mux
}
