// Package notify delivers invite emails. Templates are embedded YAML,
// delivery is SMTP and repeats are suppressed through Redis.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/services"
)

const (
	kindInvite     = "invite"
	defaultAppName = "StudySync"
)

var _ services.InviteNotifier = (*Notifier)(nil)

// inviteData is the template data for the invite email
type inviteData struct {
	AppName       string
	Inviter       string
	InviteeEmail  string
	DocumentTitle string
	DocumentURL   string
	Action        string
}

// Notifier implements InviteNotifier over a Sender
type Notifier struct {
	sender    Sender
	templates *Templates
	dedupe    *Deduper
	baseURL   string
	logger    *slog.Logger
}

// NewNotifier creates a notifier. dedupe may be nil.
func NewNotifier(sender Sender, templates *Templates, dedupe *Deduper, baseURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:    sender,
		templates: templates,
		dedupe:    dedupe,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// NotifyInvite emails the invitee. A repeat inside the dedupe window is
// skipped silently. Redis failures never block delivery.
func (n *Notifier) NotifyInvite(ctx context.Context, inv *models.InviteNotification) error {
	if !n.sender.IsConfigured() {
		return ErrNotConfigured
	}
	if inv.InviteeEmail == "" {
		return fmt.Errorf("invitee %s has no email address", inv.InviteeID)
	}

	claimed := false
	if n.dedupe != nil {
		ok, err := n.dedupe.Claim(ctx, inv.DocumentID, inv.InviteeID)
		switch {
		case err != nil:
			n.logger.Warn("invite dedupe unavailable, sending anyway", "error", err)
		case !ok:
			n.logger.Debug("invite notification already sent",
				"document_id", inv.DocumentID,
				"invitee_id", inv.InviteeID,
			)
			return nil
		default:
			claimed = true
		}
	}

	msg, err := n.templates.Render(kindInvite, inv.InviteeEmail, n.inviteData(inv))
	if err != nil {
		n.release(ctx, inv, claimed)
		return err
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		n.release(ctx, inv, claimed)
		return err
	}

	n.logger.Info("invite notification sent",
		"document_id", inv.DocumentID,
		"invitee_id", inv.InviteeID,
		"role", inv.Role,
	)
	return nil
}

func (n *Notifier) release(ctx context.Context, inv *models.InviteNotification, claimed bool) {
	if !claimed {
		return
	}
	if err := n.dedupe.Release(context.WithoutCancel(ctx), inv.DocumentID, inv.InviteeID); err != nil {
		n.logger.Warn("release invite dedupe", "error", err)
	}
}

func (n *Notifier) inviteData(inv *models.InviteNotification) inviteData {
	inviter := inv.InviterEmail
	if inviter == "" {
		inviter = "A collaborator"
	}
	title := inv.DocumentTitle
	if title == "" {
		title = "a document"
	}
	action := "view"
	if inv.Role == sharing.RoleEditor {
		action = "edit"
	}

	return inviteData{
		AppName:       defaultAppName,
		Inviter:       inviter,
		InviteeEmail:  inv.InviteeEmail,
		DocumentTitle: title,
		DocumentURL:   fmt.Sprintf("%s/documents/%s", n.baseURL, inv.DocumentID),
		Action:        action,
	}
}
