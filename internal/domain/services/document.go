package services

import (
	"context"

	"studysync/internal/domain/models"
)

// DocumentService defines business logic operations for documents.
// Every method resolves the caller's access level before acting.
type DocumentService interface {
	CreateDocument(ctx context.Context, req *models.CreateDocumentRequest) (*models.DocumentView, error)

	// GetDocument requires view access; anonymous callers pass an empty callerID
	GetDocument(ctx context.Context, id, callerID string) (*models.DocumentView, error)

	// UpdateDocument requires edit access on an unpublished document
	UpdateDocument(ctx context.Context, id, callerID string, req *models.UpdateDocumentRequest) (*models.DocumentView, error)

	// DeleteDocument is owner only
	DeleteDocument(ctx context.Context, id, callerID string) error

	// ListDocuments lists documents owned by or shared with userID
	ListDocuments(ctx context.Context, userID string) ([]models.DocumentSummary, error)

	// GetAccess returns the caller's capabilities and, for editors and the owner, the collaborator lists
	GetAccess(ctx context.Context, id, callerID string) (*models.AccessView, error)
}
