package repositories

import (
	"context"

	"studysync/internal/domain/models"
)

// CommunityRepository reads published documents for the community feed
type CommunityRepository interface {
	// ListPublished returns a page of published documents ordered by published_at DESC and the total count
	ListPublished(ctx context.Context, limit, offset int) ([]models.PublishedDocument, int, error)

	// SearchPublished runs a full-text search over published titles and content
	SearchPublished(ctx context.Context, query string, limit, offset int) ([]models.PublishedDocument, int, error)

	// FilterPublished returns the subset of ids that are currently published
	FilterPublished(ctx context.Context, ids []string) ([]string, error)
}
