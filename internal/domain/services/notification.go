package services

import (
	"context"

	"studysync/internal/domain/models"
)

// InviteNotifier tells an invitee that a document was shared with them.
// Errors are reported to the caller as warnings and never undo the share.
type InviteNotifier interface {
	NotifyInvite(ctx context.Context, n *models.InviteNotification) error
}
