package sharing

import (
	"fmt"
	"slices"
	"time"
)

// AccessLevel is the permission tier a requester holds on a document.
// Derived on every check, never persisted.
type AccessLevel string

const (
	AccessNone  AccessLevel = "none"
	AccessView  AccessLevel = "view"
	AccessEdit  AccessLevel = "edit"
	AccessOwner AccessLevel = "owner"
)

func (l AccessLevel) rank() int {
	switch l {
	case AccessOwner:
		return 3
	case AccessEdit:
		return 2
	case AccessView:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l grants everything other grants.
func (l AccessLevel) AtLeast(other AccessLevel) bool {
	return l.rank() >= other.rank()
}

// ShareStatus is the document-wide visibility mode.
type ShareStatus string

const (
	ShareInviteOnly     ShareStatus = "invite-only"
	ShareAnyoneWithLink ShareStatus = "anyone-with-link"
	SharePublished      ShareStatus = "published"
)

// ShareStatuses lists every valid share status.
var ShareStatuses = []ShareStatus{ShareInviteOnly, ShareAnyoneWithLink, SharePublished}

// ParseShareStatus converts a raw string into a ShareStatus, rejecting unknown values.
func ParseShareStatus(s string) (ShareStatus, error) {
	status := ShareStatus(s)
	if !slices.Contains(ShareStatuses, status) {
		return "", fmt.Errorf("unknown share status %q", s)
	}
	return status, nil
}

// Role is the collaborator role granted by an invite.
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Roles lists every valid collaborator role.
var Roles = []Role{RoleEditor, RoleViewer}

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !slices.Contains(Roles, role) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// Collaborators is the pair of membership sets returned to callers after a mutation.
type Collaborators struct {
	Editors []string `json:"editors"`
	Viewers []string `json:"viewers"`
}

// AccessControl is the access-control subset of a document row.
type AccessControl struct {
	DocumentID  string      `json:"document_id" db:"id"`
	OwnerID     string      `json:"owner_id" db:"owner_id"`
	Editors     []string    `json:"editors" db:"editors"`
	Viewers     []string    `json:"viewers" db:"viewers"`
	ShareStatus ShareStatus `json:"share_status" db:"share_status"`
	PublishedAt *time.Time  `json:"published_at,omitempty" db:"published_at"`
}

// Resolve computes the requester's access level. An empty requesterID is an
// anonymous caller. Precedence: owner, editor, viewer, link access.
func (a *AccessControl) Resolve(requesterID string) AccessLevel {
	switch {
	case requesterID == "":
		return AccessNone
	case requesterID == a.OwnerID:
		return AccessOwner
	case slices.Contains(a.Editors, requesterID):
		return AccessEdit
	case slices.Contains(a.Viewers, requesterID):
		return AccessView
	case a.ShareStatus == ShareAnyoneWithLink:
		return AccessView
	default:
		return AccessNone
	}
}

// RoleOf returns the collaborator role held by userID, if any.
func (a *AccessControl) RoleOf(userID string) (Role, bool) {
	if slices.Contains(a.Editors, userID) {
		return RoleEditor, true
	}
	if slices.Contains(a.Viewers, userID) {
		return RoleViewer, true
	}
	return "", false
}

// IsCollaborator reports whether userID is in either membership set.
func (a *AccessControl) IsCollaborator(userID string) bool {
	_, ok := a.RoleOf(userID)
	return ok
}

// Collaborators returns copies of both membership sets, never nil.
func (a *AccessControl) Collaborators() *Collaborators {
	return &Collaborators{
		Editors: cloneSet(a.Editors),
		Viewers: cloneSet(a.Viewers),
	}
}

// Validate checks the persisted invariants: disjoint sets, owner in neither.
func (a *AccessControl) Validate() error {
	if a.IsCollaborator(a.OwnerID) {
		return fmt.Errorf("owner %s listed as collaborator", a.OwnerID)
	}
	for _, id := range a.Editors {
		if slices.Contains(a.Viewers, id) {
			return fmt.Errorf("user %s is both editor and viewer", id)
		}
	}
	if _, err := ParseShareStatus(string(a.ShareStatus)); err != nil {
		return err
	}
	return nil
}

func cloneSet(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	return slices.Clone(ids)
}
