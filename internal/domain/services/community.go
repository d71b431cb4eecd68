package services

import (
	"context"

	"studysync/internal/domain/models"
)

// CommunityIndexer keeps the community search index in step with publish state.
// Both calls are fire-and-forget.
type CommunityIndexer interface {
	IndexDocument(doc *models.Document)
	RemoveDocument(documentID string)
}

// CommunityService serves the public feed of published documents
type CommunityService interface {
	// ListPublished returns a page of published documents, newest first
	ListPublished(ctx context.Context, limit, offset int) (*models.CommunityPage, error)

	// Search finds published documents matching query
	Search(ctx context.Context, query string, limit, offset int) (*models.CommunityPage, error)
}
