package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"studysync/internal/config"
	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo    repositories.DocumentRepository
	authorizer services.DocumentAuthorizer
	indexer    services.CommunityIndexer
	logger     *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	authorizer services.DocumentAuthorizer,
	indexer services.CommunityIndexer,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:    docRepo,
		authorizer: authorizer,
		indexer:    indexer,
		logger:     logger,
	}
}

// CreateDocument creates an invite-only document with no collaborators
func (s *documentService) CreateDocument(ctx context.Context, req *models.CreateDocumentRequest) (*models.DocumentView, error) {
	if req.OwnerID == "" {
		return nil, &domain.UnauthorizedError{Message: "sign in to create documents"}
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc := &models.Document{
		OwnerID: req.OwnerID,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"title", doc.Title,
		"user_id", req.OwnerID,
	)

	return viewOf(doc, req.OwnerID), nil
}

// GetDocument returns the document if the caller may view it
func (s *documentService) GetDocument(ctx context.Context, id, callerID string) (*models.DocumentView, error) {
	if _, err := s.authorizer.Authorize(ctx, callerID, id, sharing.AccessView); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(doc, callerID), nil
}

// UpdateDocument applies a partial update. Published documents are read-only
// for everyone, the owner included.
func (s *documentService) UpdateDocument(ctx context.Context, id, callerID string, req *models.UpdateDocumentRequest) (*models.DocumentView, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	acl, err := s.authorizer.Authorize(ctx, callerID, id, sharing.AccessEdit)
	if err != nil {
		return nil, err
	}
	if !acl.Capabilities(callerID).CanEdit {
		return nil, domain.Forbidden()
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}

	if err := s.docRepo.Update(ctx, doc, callerID); err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", id,
		"user_id", callerID,
	)

	return viewOf(doc, callerID), nil
}

// DeleteDocument removes the document together with its access-control state
func (s *documentService) DeleteDocument(ctx context.Context, id, callerID string) error {
	acl, err := s.authorizer.Authorize(ctx, callerID, id, sharing.AccessOwner)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, id, callerID); err != nil {
		return err
	}
	if acl.ShareStatus == sharing.SharePublished {
		s.indexer.RemoveDocument(id)
	}

	s.logger.Info("document deleted",
		"id", id,
		"user_id", callerID,
	)

	return nil
}

// ListDocuments lists documents owned by or shared with userID
func (s *documentService) ListDocuments(ctx context.Context, userID string) ([]models.DocumentSummary, error) {
	if userID == "" {
		return nil, &domain.UnauthorizedError{Message: "sign in to list documents"}
	}

	docs, err := s.docRepo.ListAccessible(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.DocumentSummary, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		summaries = append(summaries, models.DocumentSummary{
			ID:          doc.ID,
			OwnerID:     doc.OwnerID,
			Title:       doc.Title,
			ShareStatus: doc.ShareStatus,
			AccessLevel: doc.AccessControl().Resolve(userID),
			UpdatedAt:   doc.UpdatedAt,
		})
	}
	return summaries, nil
}

// GetAccess returns the sharing panel. Collaborator lists are only shown to
// callers who can invite.
func (s *documentService) GetAccess(ctx context.Context, id, callerID string) (*models.AccessView, error) {
	acl, err := s.authorizer.Authorize(ctx, callerID, id, sharing.AccessView)
	if err != nil {
		return nil, err
	}

	caps := acl.Capabilities(callerID)
	view := &models.AccessView{
		DocumentID:   acl.DocumentID,
		OwnerID:      acl.OwnerID,
		ShareStatus:  acl.ShareStatus,
		Capabilities: caps,
	}
	if caps.CanInvite {
		view.Collaborators = acl.Collaborators()
	}
	return view, nil
}

func viewOf(doc *models.Document, callerID string) *models.DocumentView {
	return &models.DocumentView{
		Document:     *doc,
		Capabilities: doc.AccessControl().Capabilities(callerID),
	}
}

// validateCreateRequest validates a create document request
func (s *documentService) validateCreateRequest(req *models.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxDocumentTitleLength),
			validation.By(validateTitle),
		),
		validation.Field(&req.Content, validation.Length(0, config.MaxDocumentContentLength)),
	)
}

// validateUpdateRequest validates an update document request
func (s *documentService) validateUpdateRequest(req *models.UpdateDocumentRequest) error {
	if req.Title == nil && req.Content == nil {
		return fmt.Errorf("nothing to update")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxDocumentTitleLength),
			validation.By(validateTitle),
		),
		validation.Field(&req.Content, validation.Length(0, config.MaxDocumentContentLength)),
	)
}

// validateTitle rejects titles that are empty after trimming
func validateTitle(value interface{}) error {
	var title string
	switch v := value.(type) {
	case string:
		title = v
	case *string:
		if v == nil {
			return nil
		}
		title = *v
	default:
		return fmt.Errorf("title must be a string")
	}

	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	return nil
}
