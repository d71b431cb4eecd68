package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studysync/internal/domain"
	"studysync/internal/domain/models"
	acl "studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/domain/services"
)

// DefaultNotifyTimeout bounds the invite notification after commit
const DefaultNotifyTimeout = 10 * time.Second

// Dependencies groups the collaborators of the sharing service
type Dependencies struct {
	AccessRepo repositories.AccessControlRepository
	DocRepo    repositories.DocumentRepository
	TxManager  repositories.TransactionManager
	Authorizer services.DocumentAuthorizer
	Identities services.IdentityResolver
	Notifier   services.InviteNotifier
	Indexer    services.CommunityIndexer

	// NotifyTimeout defaults to DefaultNotifyTimeout
	NotifyTimeout time.Duration
}

// sharingService implements the SharingService interface
type sharingService struct {
	accessRepo    repositories.AccessControlRepository
	docRepo       repositories.DocumentRepository
	txManager     repositories.TransactionManager
	authorizer    services.DocumentAuthorizer
	identities    services.IdentityResolver
	notifier      services.InviteNotifier
	indexer       services.CommunityIndexer
	notifyTimeout time.Duration
	logger        *slog.Logger
}

// NewSharingService creates a new sharing service
func NewSharingService(deps Dependencies, logger *slog.Logger) services.SharingService {
	timeout := deps.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	indexer := deps.Indexer
	if indexer == nil {
		indexer = noopIndexer{}
	}
	return &sharingService{
		accessRepo:    deps.AccessRepo,
		docRepo:       deps.DocRepo,
		txManager:     deps.TxManager,
		authorizer:    deps.Authorizer,
		identities:    deps.Identities,
		notifier:      deps.Notifier,
		indexer:       indexer,
		notifyTimeout: timeout,
		logger:        logger,
	}
}

// Invite adds a collaborator by email.
//
// The caller is checked once without a lock so an unauthorized caller learns
// nothing about the invitee, then again under the row lock before the write.
func (s *sharingService) Invite(ctx context.Context, req *services.InviteRequest) (*services.InviteResult, error) {
	if err := validateInviteRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	role := acl.Role(req.Role)
	email := normalizeEmail(req.Email)

	if _, err := s.authorizer.Authorize(ctx, req.CallerID, req.DocumentID, acl.AccessEdit); err != nil {
		return nil, err
	}

	invitee, err := s.identities.LookupUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no user with email %s", email)}
		}
		return nil, fmt.Errorf("look up invitee: %w", err)
	}

	var collabs *acl.Collaborators
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.authorizer.AuthorizeForUpdate(txCtx, req.CallerID, req.DocumentID, acl.AccessEdit)
		if err != nil {
			return err
		}

		switch {
		case invitee.ID == current.OwnerID:
			return fmt.Errorf("cannot invite the document owner: %w", domain.ErrInvalidInvitee)
		case invitee.ID == req.CallerID:
			return fmt.Errorf("cannot invite yourself: %w", domain.ErrInvalidInvitee)
		case current.IsCollaborator(invitee.ID):
			return domain.AlreadyCollaborator(invitee.ID)
		}

		collabs, err = s.accessRepo.AddCollaborator(txCtx, req.DocumentID, req.CallerID, invitee.ID, role)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collaborator invited",
		"document_id", req.DocumentID,
		"user_id", req.CallerID,
		"invitee_id", invitee.ID,
		"role", role,
	)

	result := &services.InviteResult{
		Collaborators: *collabs,
		InviteeID:     invitee.ID,
		Warnings:      []services.Warning{},
	}
	if warning := s.notifyInvite(ctx, req, invitee, role); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}
	return result, nil
}

// notifyInvite runs after commit. Failures become a warning, never an error.
func (s *sharingService) notifyInvite(ctx context.Context, req *services.InviteRequest, invitee *models.Identity, role acl.Role) *services.Warning {
	if s.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	n := &models.InviteNotification{
		DocumentID:   req.DocumentID,
		InviterEmail: req.CallerEmail,
		InviteeID:    invitee.ID,
		InviteeEmail: invitee.Email,
		Role:         role,
	}
	if doc, err := s.docRepo.GetByID(ctx, req.DocumentID); err == nil {
		n.DocumentTitle = doc.Title
	} else {
		s.logger.Warn("load document title for notification", "document_id", req.DocumentID, "error", err)
	}

	if err := s.notifier.NotifyInvite(ctx, n); err != nil {
		s.logger.Warn("invite notification failed",
			"document_id", req.DocumentID,
			"invitee_id", invitee.ID,
			"error", err,
		)
		return &services.Warning{
			Kind:    services.WarningNotificationFailed,
			Message: fmt.Sprintf("%s was added but could not be notified", invitee.Email),
		}
	}
	return nil
}

// SetRole moves an existing collaborator between editors and viewers
func (s *sharingService) SetRole(ctx context.Context, req *services.SetRoleRequest) (*acl.Collaborators, error) {
	if err := validateSetRoleRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	role := acl.Role(req.Role)

	var collabs *acl.Collaborators
	changed := false
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.authorizer.AuthorizeForUpdate(txCtx, req.CallerID, req.DocumentID, acl.AccessOwner)
		if err != nil {
			return err
		}

		if req.TargetID == current.OwnerID {
			return fmt.Errorf("the owner has no collaborator role: %w", domain.ErrInvalidInvitee)
		}
		held, ok := current.RoleOf(req.TargetID)
		if !ok {
			return &domain.NotFoundError{Message: fmt.Sprintf("user %s is not a collaborator on this document", req.TargetID)}
		}
		if held == role {
			collabs = current.Collaborators()
			return nil
		}

		collabs, err = s.accessRepo.SetCollaboratorRole(txCtx, req.DocumentID, req.CallerID, req.TargetID, role)
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("collaborator role changed",
			"document_id", req.DocumentID,
			"user_id", req.CallerID,
			"target_id", req.TargetID,
			"role", role,
		)
	}
	return collabs, nil
}

// Remove drops targetID from both sets. Removing a non-member returns the
// current sets unchanged.
func (s *sharingService) Remove(ctx context.Context, documentID, callerID, targetID string) (*acl.Collaborators, error) {
	if strings.TrimSpace(targetID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	var collabs *acl.Collaborators
	removed := false
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.authorizer.AuthorizeForUpdate(txCtx, callerID, documentID, acl.AccessOwner)
		if err != nil {
			return err
		}
		if !current.IsCollaborator(targetID) {
			collabs = current.Collaborators()
			return nil
		}

		collabs, err = s.accessRepo.RemoveCollaborator(txCtx, documentID, callerID, targetID)
		removed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if removed {
		s.logger.Info("collaborator removed",
			"document_id", documentID,
			"user_id", callerID,
			"target_id", targetID,
		)
	}
	return collabs, nil
}

// SetVisibility switches between invite-only and anyone-with-link. Leaving
// the published state this way also drops the community listing.
func (s *sharingService) SetVisibility(ctx context.Context, documentID, callerID, status string) (*acl.AccessControl, error) {
	target, err := acl.ParseShareStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if target == acl.SharePublished {
		return nil, fmt.Errorf("%w: use publish to list a document in the community", domain.ErrValidation)
	}

	updated, previous, err := s.transition(ctx, documentID, callerID, target)
	if err != nil {
		return nil, err
	}

	if previous == acl.SharePublished {
		s.indexer.RemoveDocument(documentID)
	}
	return updated, nil
}

// Publish lists the document in the community feed from any prior state
func (s *sharingService) Publish(ctx context.Context, documentID, callerID string) (*acl.AccessControl, error) {
	updated, _, err := s.transition(ctx, documentID, callerID, acl.SharePublished)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		s.logger.Warn("load published document for indexing", "document_id", documentID, "error", err)
	} else {
		s.indexer.IndexDocument(doc)
	}
	return updated, nil
}

// Unpublish returns the document to invite-only from any prior state
func (s *sharingService) Unpublish(ctx context.Context, documentID, callerID string) (*acl.AccessControl, error) {
	updated, _, err := s.transition(ctx, documentID, callerID, acl.ShareInviteOnly)
	if err != nil {
		return nil, err
	}

	s.indexer.RemoveDocument(documentID)
	return updated, nil
}

// transition applies an owner-only share status change under the row lock.
// It returns the updated record and the status it replaced.
func (s *sharingService) transition(ctx context.Context, documentID, callerID string, target acl.ShareStatus) (*acl.AccessControl, acl.ShareStatus, error) {
	var updated *acl.AccessControl
	var previous acl.ShareStatus
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.authorizer.AuthorizeForUpdate(txCtx, callerID, documentID, acl.AccessOwner)
		if err != nil {
			return err
		}
		previous = current.ShareStatus

		updated, err = s.accessRepo.SetShareStatus(txCtx, documentID, callerID, target)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	if previous != target {
		s.logger.Info("share status changed",
			"document_id", documentID,
			"user_id", callerID,
			"from", previous,
			"to", target,
		)
	}
	return updated, previous, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type noopIndexer struct{}

func (noopIndexer) IndexDocument(*models.Document) {}
func (noopIndexer) RemoveDocument(string)          {}
