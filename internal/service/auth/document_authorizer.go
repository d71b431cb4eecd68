package auth

import (
	"context"
	"fmt"
	"log/slog"

	"studysync/internal/domain"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/domain/services"
)

// SharingAuthorizer implements DocumentAuthorizer from the document's own
// access-control record: owner, editors, viewers and share status.
//
// The record is re-read on every call so a revoked collaborator loses access
// on their next request.
type SharingAuthorizer struct {
	accessRepo repositories.AccessControlRepository
	logger     *slog.Logger
}

// NewSharingAuthorizer creates a new record-based authorizer
func NewSharingAuthorizer(accessRepo repositories.AccessControlRepository, logger *slog.Logger) services.DocumentAuthorizer {
	return &SharingAuthorizer{
		accessRepo: accessRepo,
		logger:     logger,
	}
}

// Authorize checks userID against the current record. A view requirement is
// also met by published documents, which anyone may read.
func (a *SharingAuthorizer) Authorize(ctx context.Context, userID, documentID string, required sharing.AccessLevel) (*sharing.AccessControl, error) {
	acl, err := a.accessRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return acl, a.check(acl, userID, required)
}

// AuthorizeForUpdate is Authorize on a row locked until the transaction ends
func (a *SharingAuthorizer) AuthorizeForUpdate(ctx context.Context, userID, documentID string, required sharing.AccessLevel) (*sharing.AccessControl, error) {
	acl, err := a.accessRepo.GetForUpdate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return acl, a.check(acl, userID, required)
}

func (a *SharingAuthorizer) check(acl *sharing.AccessControl, userID string, required sharing.AccessLevel) error {
	level := acl.Resolve(userID)
	if level.AtLeast(required) {
		return nil
	}
	if required == sharing.AccessView && acl.CanRead(userID) {
		return nil
	}

	a.logger.Debug("access denied",
		"document_id", acl.DocumentID,
		"user_id", userID,
		"level", level,
		"required", required,
	)
	return fmt.Errorf("document %s requires %s: %w", acl.DocumentID, required, domain.Forbidden())
}
