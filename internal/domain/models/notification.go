package models

import "studysync/internal/domain/models/sharing"

// InviteNotification is everything the notifier needs to tell an invitee about a share.
type InviteNotification struct {
	DocumentID    string
	DocumentTitle string
	InviterEmail  string
	InviteeID     string
	InviteeEmail  string
	Role          sharing.Role
}
