package repositories

import (
	"context"

	"studysync/internal/domain/models"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a document with empty collaborator sets and invite-only sharing
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID, no access scoping
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// Update writes title/content. Scoped to the owner or an editor of an
	// unpublished document; returns ErrForbidden when the predicate fails.
	Update(ctx context.Context, doc *models.Document, actorID string) error

	// Delete removes a document owned by ownerID
	Delete(ctx context.Context, id, ownerID string) error

	// ListAccessible lists documents owned by or shared with userID, ordered by updated_at DESC
	ListAccessible(ctx context.Context, userID string) ([]models.Document, error)
}
