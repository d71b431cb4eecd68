package sharing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
	"studysync/internal/domain/models"
	acl "studysync/internal/domain/models/sharing"
	"studysync/internal/domain/services"
	"studysync/internal/repository/memory"
	"studysync/internal/service/auth"
)

const docID = "doc-1"

// ============================================================================
// Test fakes
// ============================================================================

type fakeIdentities struct {
	users map[string]string // email -> id
	err   error
}

func (f *fakeIdentities) LookupUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return &models.Identity{ID: id, Email: email}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.InviteNotification
	err  error
}

func (f *fakeNotifier) NotifyInvite(ctx context.Context, n *models.InviteNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *n)
	return nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (f *fakeIndexer) IndexDocument(doc *models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, doc.ID)
}

func (f *fakeIndexer) RemoveDocument(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
}

type fixture struct {
	store    *memory.Store
	svc      services.SharingService
	notifier *fakeNotifier
	indexer  *fakeIndexer
	ids      *fakeIdentities
}

// newFixture seeds docID owned by alice with the given sets and status
func newFixture(t *testing.T, editors, viewers []string, status acl.ShareStatus) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	store.Put(&models.Document{
		ID:          docID,
		OwnerID:     "alice",
		Title:       "Organic chemistry notes",
		Content:     "alkenes and alkynes",
		Editors:     editors,
		Viewers:     viewers,
		ShareStatus: status,
	})

	f := &fixture{
		store:    store,
		notifier: &fakeNotifier{},
		indexer:  &fakeIndexer{},
		ids: &fakeIdentities{users: map[string]string{
			"alice@example.com": "alice",
			"bob@example.com":   "bob",
			"carol@example.com": "carol",
			"dave@example.com":  "dave",
		}},
	}
	f.svc = NewSharingService(Dependencies{
		AccessRepo: store,
		DocRepo:    store,
		TxManager:  store,
		Authorizer: auth.NewSharingAuthorizer(store, logger),
		Identities: f.ids,
		Notifier:   f.notifier,
		Indexer:    f.indexer,
	}, logger)
	return f
}

func (f *fixture) record(t *testing.T) *acl.AccessControl {
	t.Helper()
	doc := f.store.Snapshot(docID)
	require.NotNil(t, doc)
	return doc.AccessControl()
}

func assertInvariants(t *testing.T, a *acl.AccessControl) {
	t.Helper()
	require.NoError(t, a.Validate())
	for _, id := range a.Editors {
		assert.False(t, slices.Contains(a.Viewers, id), "%s in both sets", id)
	}
	assert.False(t, a.IsCollaborator(a.OwnerID), "owner listed as collaborator")
}

func invite(caller, email, role string) *services.InviteRequest {
	return &services.InviteRequest{
		DocumentID:  docID,
		CallerID:    caller,
		CallerEmail: caller + "@example.com",
		Email:       email,
		Role:        role,
	}
}

// ============================================================================
// Invite
// ============================================================================

func TestInvite_OwnerInvitesViewer(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	result, err := f.svc.Invite(context.Background(), invite("alice", "bob@example.com", "viewer"))
	require.NoError(t, err)

	assert.Equal(t, []string{}, result.Editors)
	assert.Equal(t, []string{"bob"}, result.Viewers)
	assert.Equal(t, "bob", result.InviteeID)
	assert.Empty(t, result.Warnings)

	current := f.record(t)
	assert.Equal(t, acl.AccessView, current.Resolve("bob"))
	assertInvariants(t, current)
}

func TestInvite_ViewerCannotInvite(t *testing.T) {
	f := newFixture(t, nil, []string{"bob"}, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("bob", "carol@example.com", "editor"))
	require.ErrorIs(t, err, domain.ErrForbidden)

	current := f.record(t)
	assert.Equal(t, acl.AccessNone, current.Resolve("carol"))
	assert.Equal(t, []string{"bob"}, current.Viewers)
	assert.Empty(t, f.notifier.sent)
}

func TestInvite_OwnerCannotInviteThemself(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("alice", "alice@example.com", "editor"))
	require.ErrorIs(t, err, domain.ErrInvalidInvitee)
	assert.Empty(t, f.record(t).Editors)
}

func TestInvite_EditorCannotInviteOwner(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("bob", "alice@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrInvalidInvitee)
}

func TestInvite_EditorCannotInviteThemself(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("bob", "bob@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrInvalidInvitee)
}

func TestInvite_EditorMayInviteAtEitherRole(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	result, err := f.svc.Invite(context.Background(), invite("bob", "carol@example.com", "editor"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, result.Editors)

	result, err = f.svc.Invite(context.Background(), invite("bob", "dave@example.com", "viewer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, result.Viewers)
	assertInvariants(t, f.record(t))
}

func TestInvite_AlreadyCollaborator(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{name: "same role", role: "viewer"},
		{name: "other role", role: "editor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, []string{"bob"}, acl.ShareInviteOnly)

			_, err := f.svc.Invite(context.Background(), invite("alice", "bob@example.com", tt.role))
			require.ErrorIs(t, err, domain.ErrAlreadyCollaborator)
			assert.ErrorIs(t, err, domain.ErrConflict)

			current := f.record(t)
			assert.Empty(t, current.Editors)
			assert.Equal(t, []string{"bob"}, current.Viewers)
		})
	}
}

func TestInvite_UnknownEmail(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("alice", "nobody@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "nobody@example.com")
}

func TestInvite_UnauthorizedCallerDoesNotProbeIdentity(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)
	f.ids.err = errors.New("identity service must not be called")

	_, err := f.svc.Invite(context.Background(), invite("mallory", "nobody@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestInvite_AnonymousCaller(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareAnyoneWithLink)

	_, err := f.svc.Invite(context.Background(), invite("", "bob@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestInvite_LinkViewerCannotInvite(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareAnyoneWithLink)

	_, err := f.svc.Invite(context.Background(), invite("dave", "bob@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestInvite_Validation(t *testing.T) {
	tests := []struct {
		name  string
		email string
		role  string
	}{
		{name: "missing email", email: "", role: "viewer"},
		{name: "malformed email", email: "not-an-email", role: "viewer"},
		{name: "unknown role", email: "bob@example.com", role: "admin"},
		{name: "owner role", email: "bob@example.com", role: "owner"},
		{name: "missing role", email: "bob@example.com", role: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil, acl.ShareInviteOnly)

			_, err := f.svc.Invite(context.Background(), invite("alice", tt.email, tt.role))
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, f.record(t).Viewers)
		})
	}
}

func TestInvite_EmailIsNormalized(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	result, err := f.svc.Invite(context.Background(), invite("alice", "  Bob@Example.com ", "viewer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, result.Viewers)
}

func TestInvite_DocumentNotFound(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	req := invite("alice", "bob@example.com", "viewer")
	req.DocumentID = "missing"
	_, err := f.svc.Invite(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvite_SendsNotification(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("alice", "bob@example.com", "editor"))
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	sent := f.notifier.sent[0]
	assert.Equal(t, docID, sent.DocumentID)
	assert.Equal(t, "Organic chemistry notes", sent.DocumentTitle)
	assert.Equal(t, "alice@example.com", sent.InviterEmail)
	assert.Equal(t, "bob", sent.InviteeID)
	assert.Equal(t, "bob@example.com", sent.InviteeEmail)
	assert.Equal(t, acl.RoleEditor, sent.Role)
}

func TestInvite_NotificationFailureIsAWarning(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)
	f.notifier.err = errors.New("smtp: connection refused")

	result, err := f.svc.Invite(context.Background(), invite("alice", "bob@example.com", "viewer"))
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, services.WarningNotificationFailed, result.Warnings[0].Kind)
	assert.Equal(t, []string{"bob"}, f.record(t).Viewers, "share must not be rolled back")
}

func TestInvite_ConcurrentInvitesAllLand(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		f.ids.users[email] = fmt.Sprintf("user-%d", i)
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := "viewer"
			if i%2 == 0 {
				role = "editor"
			}
			_, err := f.svc.Invite(context.Background(), invite("alice", fmt.Sprintf("user%d@example.com", i), role))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	current := f.record(t)
	assert.Len(t, current.Editors, 10)
	assert.Len(t, current.Viewers, 10)
	assertInvariants(t, current)
}

// ============================================================================
// SetRole
// ============================================================================

func setRole(caller, target, role string) *services.SetRoleRequest {
	return &services.SetRoleRequest{DocumentID: docID, CallerID: caller, TargetID: target, Role: role}
}

func TestSetRole_PromotesViewer(t *testing.T) {
	f := newFixture(t, nil, []string{"bob"}, acl.ShareInviteOnly)

	collabs, err := f.svc.SetRole(context.Background(), setRole("alice", "bob", "editor"))
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, collabs.Editors)
	assert.Empty(t, collabs.Viewers)
	assert.Equal(t, acl.AccessEdit, f.record(t).Resolve("bob"))
	assertInvariants(t, f.record(t))
}

func TestSetRole_DemotesEditor(t *testing.T) {
	f := newFixture(t, []string{"bob", "carol"}, nil, acl.ShareInviteOnly)

	collabs, err := f.svc.SetRole(context.Background(), setRole("alice", "bob", "viewer"))
	require.NoError(t, err)

	assert.Equal(t, []string{"carol"}, collabs.Editors)
	assert.Equal(t, []string{"bob"}, collabs.Viewers)
	assertInvariants(t, f.record(t))
}

func TestSetRole_SameRoleIsNoOp(t *testing.T) {
	f := newFixture(t, []string{"bob", "carol"}, []string{"dave"}, acl.ShareInviteOnly)
	before := f.record(t)

	collabs, err := f.svc.SetRole(context.Background(), setRole("alice", "bob", "editor"))
	require.NoError(t, err)

	after := f.record(t)
	assert.Equal(t, before.Editors, after.Editors)
	assert.Equal(t, before.Viewers, after.Viewers)
	assert.Equal(t, before.Editors, collabs.Editors)
}

func TestSetRole_OnlyOwner(t *testing.T) {
	f := newFixture(t, []string{"bob"}, []string{"carol"}, acl.ShareInviteOnly)

	_, err := f.svc.SetRole(context.Background(), setRole("bob", "carol", "editor"))
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, []string{"carol"}, f.record(t).Viewers)
}

func TestSetRole_TargetIsOwner(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	_, err := f.svc.SetRole(context.Background(), setRole("alice", "alice", "viewer"))
	require.ErrorIs(t, err, domain.ErrInvalidInvitee)
}

func TestSetRole_TargetNotCollaborator(t *testing.T) {
	f := newFixture(t, nil, nil, acl.ShareInviteOnly)

	_, err := f.svc.SetRole(context.Background(), setRole("alice", "bob", "editor"))
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.record(t).Editors)
}

func TestSetRole_InvalidRole(t *testing.T) {
	f := newFixture(t, nil, []string{"bob"}, acl.ShareInviteOnly)

	_, err := f.svc.SetRole(context.Background(), setRole("alice", "bob", "owner"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

// ============================================================================
// Remove
// ============================================================================

func TestRemove_Idempotent(t *testing.T) {
	f := newFixture(t, []string{"bob"}, []string{"carol"}, acl.ShareInviteOnly)

	first, err := f.svc.Remove(context.Background(), docID, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, first.Editors)
	assert.Equal(t, []string{"carol"}, first.Viewers)

	second, err := f.svc.Remove(context.Background(), docID, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, acl.AccessNone, f.record(t).Resolve("bob"))
}

func TestRemove_NonMemberIsNoOp(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	collabs, err := f.svc.Remove(context.Background(), docID, "alice", "zed")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, collabs.Editors)
}

func TestRemove_EditorCannotRemove(t *testing.T) {
	f := newFixture(t, []string{"bob"}, []string{"carol"}, acl.ShareInviteOnly)

	_, err := f.svc.Remove(context.Background(), docID, "bob", "carol")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, []string{"carol"}, f.record(t).Viewers)
}

// ============================================================================
// Publish state machine
// ============================================================================

func TestPublish_EditorCannotPublish(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	_, err := f.svc.Publish(context.Background(), docID, "bob")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, acl.ShareInviteOnly, f.record(t).ShareStatus)
	assert.Empty(t, f.indexer.indexed)
}

func TestPublish_FromAnyState(t *testing.T) {
	for _, from := range acl.ShareStatuses {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t, nil, nil, from)

			updated, err := f.svc.Publish(context.Background(), docID, "alice")
			require.NoError(t, err)

			assert.Equal(t, acl.SharePublished, updated.ShareStatus)
			assert.NotNil(t, updated.PublishedAt)
			assert.Equal(t, []string{docID}, f.indexer.indexed)
			assert.False(t, updated.Capabilities("alice").CanEdit, "published documents are read-only")
		})
	}
}

func TestUnpublish_ReturnsToInviteOnly(t *testing.T) {
	for _, from := range acl.ShareStatuses {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t, nil, nil, from)

			updated, err := f.svc.Unpublish(context.Background(), docID, "alice")
			require.NoError(t, err)

			assert.Equal(t, acl.ShareInviteOnly, updated.ShareStatus)
			assert.Nil(t, updated.PublishedAt)
			assert.Equal(t, []string{docID}, f.indexer.removed)
		})
	}
}

func TestUnpublish_OnlyOwner(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.SharePublished)

	_, err := f.svc.Unpublish(context.Background(), docID, "bob")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, acl.SharePublished, f.record(t).ShareStatus)
}

func TestSetVisibility(t *testing.T) {
	tests := []struct {
		name        string
		from        acl.ShareStatus
		target      string
		caller      string
		wantErr     error
		wantStatus  acl.ShareStatus
		wantRemoved bool
	}{
		{name: "owner opens link access", from: acl.ShareInviteOnly, target: "anyone-with-link", caller: "alice", wantStatus: acl.ShareAnyoneWithLink},
		{name: "owner closes link access", from: acl.ShareAnyoneWithLink, target: "invite-only", caller: "alice", wantStatus: acl.ShareInviteOnly},
		{name: "leaving published drops listing", from: acl.SharePublished, target: "anyone-with-link", caller: "alice", wantStatus: acl.ShareAnyoneWithLink, wantRemoved: true},
		{name: "same status is accepted", from: acl.ShareInviteOnly, target: "invite-only", caller: "alice", wantStatus: acl.ShareInviteOnly},
		{name: "published needs publish", from: acl.ShareInviteOnly, target: "published", caller: "alice", wantErr: domain.ErrValidation, wantStatus: acl.ShareInviteOnly},
		{name: "unknown status", from: acl.ShareInviteOnly, target: "public", caller: "alice", wantErr: domain.ErrValidation, wantStatus: acl.ShareInviteOnly},
		{name: "editor is refused", from: acl.ShareInviteOnly, target: "anyone-with-link", caller: "bob", wantErr: domain.ErrForbidden, wantStatus: acl.ShareInviteOnly},
		{name: "anonymous is refused", from: acl.ShareAnyoneWithLink, target: "invite-only", caller: "", wantErr: domain.ErrForbidden, wantStatus: acl.ShareAnyoneWithLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, []string{"bob"}, nil, tt.from)

			_, err := f.svc.SetVisibility(context.Background(), docID, tt.caller, tt.target)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantStatus, f.record(t).ShareStatus)
			assert.Equal(t, tt.wantRemoved, len(f.indexer.removed) == 1)
		})
	}
}

func TestRevokedCollaboratorLosesAccessImmediately(t *testing.T) {
	f := newFixture(t, []string{"bob"}, nil, acl.ShareInviteOnly)

	_, err := f.svc.Invite(context.Background(), invite("bob", "carol@example.com", "viewer"))
	require.NoError(t, err)

	_, err = f.svc.Remove(context.Background(), docID, "alice", "bob")
	require.NoError(t, err)

	_, err = f.svc.Invite(context.Background(), invite("bob", "dave@example.com", "viewer"))
	require.ErrorIs(t, err, domain.ErrForbidden)
}
