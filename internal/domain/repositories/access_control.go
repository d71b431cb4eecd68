package repositories

import (
	"context"

	"studysync/internal/domain/models/sharing"
)

// AccessControlRepository reads and atomically mutates the access-control
// fields of a document row. Every mutation is a single statement that also
// carries its own authorization predicate, so a failed predicate changes nothing.
type AccessControlRepository interface {
	// Get reads the current access-control record
	Get(ctx context.Context, documentID string) (*sharing.AccessControl, error)

	// GetForUpdate reads the record and locks the row until the surrounding
	// transaction ends. Must be called inside TransactionManager.ExecTx.
	GetForUpdate(ctx context.Context, documentID string) (*sharing.AccessControl, error)

	// AddCollaborator appends userID to the set for role. Applies only when
	// actorID is the owner or an editor and userID is neither the owner nor
	// already a collaborator.
	AddCollaborator(ctx context.Context, documentID, actorID, userID string, role sharing.Role) (*sharing.Collaborators, error)

	// SetCollaboratorRole moves an existing collaborator into the set for role.
	// Applies only when ownerID owns the document.
	SetCollaboratorRole(ctx context.Context, documentID, ownerID, userID string, role sharing.Role) (*sharing.Collaborators, error)

	// RemoveCollaborator drops userID from both sets. Applies only when ownerID owns the document.
	RemoveCollaborator(ctx context.Context, documentID, ownerID, userID string) (*sharing.Collaborators, error)

	// SetShareStatus changes share_status (and published_at). Applies only when ownerID owns the document.
	SetShareStatus(ctx context.Context, documentID, ownerID string, status sharing.ShareStatus) (*sharing.AccessControl, error)
}
