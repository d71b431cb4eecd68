package sharing

// Capabilities is the UI-facing view of what a requester may do with a document.
type Capabilities struct {
	Level     AccessLevel `json:"level"`
	CanView   bool        `json:"can_view"`
	CanEdit   bool        `json:"can_edit"`
	CanInvite bool        `json:"can_invite"`
	CanManage bool        `json:"can_manage"`
}

// Capabilities resolves the requester once and derives the affordances.
// Published documents are read-only for everyone, the owner included.
func (a *AccessControl) Capabilities(requesterID string) Capabilities {
	level := a.Resolve(requesterID)
	published := a.ShareStatus == SharePublished

	return Capabilities{
		Level:     level,
		CanView:   level.AtLeast(AccessView) || published,
		CanEdit:   level.AtLeast(AccessEdit) && !published,
		CanInvite: level.AtLeast(AccessEdit),
		CanManage: level == AccessOwner,
	}
}

// CanRead reports whether requesterID may read the document body.
// Published documents are readable by anyone through the community listing.
func (a *AccessControl) CanRead(requesterID string) bool {
	return a.Capabilities(requesterID).CanView
}
