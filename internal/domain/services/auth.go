package services

import (
	"context"

	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
)

// DocumentAuthorizer is the single place access to a document is decided.
//
// Services call it before operating on a document. It loads the current
// access-control record, resolves the caller and rejects callers below the
// required level with ErrForbidden. Nothing is cached between calls.
type DocumentAuthorizer interface {
	// Authorize checks userID against the current record
	Authorize(ctx context.Context, userID, documentID string, required sharing.AccessLevel) (*sharing.AccessControl, error)

	// AuthorizeForUpdate is Authorize with a row lock; call it inside a transaction
	AuthorizeForUpdate(ctx context.Context, userID, documentID string, required sharing.AccessLevel) (*sharing.AccessControl, error)
}

// IdentityResolver maps a contact address to a registered user
type IdentityResolver interface {
	// LookupUserByEmail returns ErrNotFound when no user has that email
	LookupUserByEmail(ctx context.Context, email string) (*models.Identity, error)
}
