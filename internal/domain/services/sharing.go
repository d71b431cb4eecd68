package services

import (
	"context"

	"studysync/internal/domain/models/sharing"
)

// WarningNotificationFailed marks an invite whose notification could not be delivered.
const WarningNotificationFailed = "notification_failed"

// Warning is a non-fatal problem reported alongside a successful result
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// InviteRequest adds a collaborator by contact address
type InviteRequest struct {
	DocumentID  string `json:"-"`
	CallerID    string `json:"-"`
	CallerEmail string `json:"-"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

// InviteResult carries the updated sets plus any notification warnings
type InviteResult struct {
	sharing.Collaborators
	InviteeID string    `json:"invitee_id"`
	Warnings  []Warning `json:"warnings"`
}

// SetRoleRequest changes an existing collaborator's role
type SetRoleRequest struct {
	DocumentID string `json:"-"`
	CallerID   string `json:"-"`
	TargetID   string `json:"-"`
	Role       string `json:"role"`
}

// SharingService mutates document access control. Each operation resolves the
// caller against the current persisted record before writing anything.
type SharingService interface {
	// Invite is allowed for the owner and editors
	Invite(ctx context.Context, req *InviteRequest) (*InviteResult, error)

	// SetRole is owner only and idempotent
	SetRole(ctx context.Context, req *SetRoleRequest) (*sharing.Collaborators, error)

	// Remove is owner only; removing a non-member is a no-op
	Remove(ctx context.Context, documentID, callerID, targetID string) (*sharing.Collaborators, error)

	// SetVisibility switches between invite-only and anyone-with-link (owner only)
	SetVisibility(ctx context.Context, documentID, callerID, status string) (*sharing.AccessControl, error)

	// Publish lists the document in the community feed (owner only)
	Publish(ctx context.Context, documentID, callerID string) (*sharing.AccessControl, error)

	// Unpublish returns the document to invite-only (owner only)
	Unpublish(ctx context.Context, documentID, callerID string) (*sharing.AccessControl, error)
}
