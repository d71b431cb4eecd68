package docsystem

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/config"
	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/services"
	"studysync/internal/repository/memory"
	"studysync/internal/service/auth"
)

type recordingIndexer struct {
	removed []string
}

func (r *recordingIndexer) IndexDocument(*models.Document) {}
func (r *recordingIndexer) RemoveDocument(id string)       { r.removed = append(r.removed, id) }

func newTestService(t *testing.T) (services.DocumentService, *memory.Store, *recordingIndexer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	indexer := &recordingIndexer{}
	svc := NewDocumentService(store, auth.NewSharingAuthorizer(store, logger), indexer, logger)
	return svc, store, indexer
}

func seed(store *memory.Store, status sharing.ShareStatus) {
	store.Put(&models.Document{
		ID:          "doc-1",
		OwnerID:     "alice",
		Title:       "Linear algebra",
		Content:     "eigenvalues",
		Editors:     []string{"bob"},
		Viewers:     []string{"carol"},
		ShareStatus: status,
	})
}

func strPtr(s string) *string { return &s }

func TestCreateDocument(t *testing.T) {
	svc, _, _ := newTestService(t)

	view, err := svc.CreateDocument(context.Background(), &models.CreateDocumentRequest{
		OwnerID: "alice",
		Title:   "  Thermodynamics  ",
		Content: "entropy",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "Thermodynamics", view.Title)
	assert.Equal(t, sharing.ShareInviteOnly, view.ShareStatus)
	assert.Empty(t, view.Editors)
	assert.Empty(t, view.Viewers)
	assert.Equal(t, sharing.AccessOwner, view.Capabilities.Level)
	assert.True(t, view.Capabilities.CanManage)
}

func TestCreateDocument_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     *models.CreateDocumentRequest
		wantErr error
	}{
		{
			name:    "anonymous",
			req:     &models.CreateDocumentRequest{Title: "x"},
			wantErr: domain.ErrUnauthorized,
		},
		{
			name:    "blank title",
			req:     &models.CreateDocumentRequest{OwnerID: "alice", Title: "   "},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "title too long",
			req:     &models.CreateDocumentRequest{OwnerID: "alice", Title: strings.Repeat("a", config.MaxDocumentTitleLength+1)},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			_, err := svc.CreateDocument(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetDocument(t *testing.T) {
	tests := []struct {
		name      string
		status    sharing.ShareStatus
		caller    string
		wantErr   error
		wantLevel sharing.AccessLevel
	}{
		{name: "owner", status: sharing.ShareInviteOnly, caller: "alice", wantLevel: sharing.AccessOwner},
		{name: "editor", status: sharing.ShareInviteOnly, caller: "bob", wantLevel: sharing.AccessEdit},
		{name: "viewer", status: sharing.ShareInviteOnly, caller: "carol", wantLevel: sharing.AccessView},
		{name: "stranger on invite-only", status: sharing.ShareInviteOnly, caller: "dave", wantErr: domain.ErrForbidden},
		{name: "anonymous on invite-only", status: sharing.ShareInviteOnly, caller: "", wantErr: domain.ErrForbidden},
		{name: "stranger with link", status: sharing.ShareAnyoneWithLink, caller: "dave", wantLevel: sharing.AccessView},
		{name: "anonymous with link", status: sharing.ShareAnyoneWithLink, caller: "", wantErr: domain.ErrForbidden},
		{name: "anonymous on published", status: sharing.SharePublished, caller: "", wantLevel: sharing.AccessNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			seed(store, tt.status)

			view, err := svc.GetDocument(context.Background(), "doc-1", tt.caller)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "eigenvalues", view.Content)
			assert.Equal(t, tt.wantLevel, view.Capabilities.Level)
			assert.True(t, view.Capabilities.CanView)
		})
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetDocument(context.Background(), "missing", "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateDocument(t *testing.T) {
	t.Run("editor updates content", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.ShareInviteOnly)

		view, err := svc.UpdateDocument(context.Background(), "doc-1", "bob", &models.UpdateDocumentRequest{
			Content: strPtr("eigenvectors"),
		})
		require.NoError(t, err)
		assert.Equal(t, "eigenvectors", view.Content)
		assert.Equal(t, "Linear algebra", view.Title)
		assert.Equal(t, "eigenvectors", store.Snapshot("doc-1").Content)
	})

	t.Run("viewer is refused", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.ShareInviteOnly)

		_, err := svc.UpdateDocument(context.Background(), "doc-1", "carol", &models.UpdateDocumentRequest{
			Title: strPtr("mine now"),
		})
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, "Linear algebra", store.Snapshot("doc-1").Title)
	})

	t.Run("published is read-only for the owner", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.SharePublished)

		_, err := svc.UpdateDocument(context.Background(), "doc-1", "alice", &models.UpdateDocumentRequest{
			Title: strPtr("edited"),
		})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("empty update", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.ShareInviteOnly)

		_, err := svc.UpdateDocument(context.Background(), "doc-1", "alice", &models.UpdateDocumentRequest{})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("blank title", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.ShareInviteOnly)

		_, err := svc.UpdateDocument(context.Background(), "doc-1", "alice", &models.UpdateDocumentRequest{
			Title: strPtr("  "),
		})
		require.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestDeleteDocument(t *testing.T) {
	t.Run("editor cannot delete", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		seed(store, sharing.ShareInviteOnly)

		err := svc.DeleteDocument(context.Background(), "doc-1", "bob")
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.NotNil(t, store.Snapshot("doc-1"))
	})

	t.Run("owner deletes published document", func(t *testing.T) {
		svc, store, indexer := newTestService(t)
		seed(store, sharing.SharePublished)

		require.NoError(t, svc.DeleteDocument(context.Background(), "doc-1", "alice"))
		assert.Nil(t, store.Snapshot("doc-1"))
		assert.Equal(t, []string{"doc-1"}, indexer.removed)
	})
}

func TestListDocuments(t *testing.T) {
	svc, store, _ := newTestService(t)
	seed(store, sharing.ShareInviteOnly)

	for caller, want := range map[string]sharing.AccessLevel{
		"alice": sharing.AccessOwner,
		"bob":   sharing.AccessEdit,
		"carol": sharing.AccessView,
	} {
		docs, err := svc.ListDocuments(context.Background(), caller)
		require.NoError(t, err)
		require.Len(t, docs, 1, caller)
		assert.Equal(t, want, docs[0].AccessLevel, caller)
	}

	docs, err := svc.ListDocuments(context.Background(), "dave")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = svc.ListDocuments(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGetAccess(t *testing.T) {
	svc, store, _ := newTestService(t)
	seed(store, sharing.ShareInviteOnly)

	owner, err := svc.GetAccess(context.Background(), "doc-1", "alice")
	require.NoError(t, err)
	require.NotNil(t, owner.Collaborators)
	assert.Equal(t, []string{"bob"}, owner.Collaborators.Editors)
	assert.True(t, owner.Capabilities.CanManage)

	editor, err := svc.GetAccess(context.Background(), "doc-1", "bob")
	require.NoError(t, err)
	require.NotNil(t, editor.Collaborators)
	assert.True(t, editor.Capabilities.CanInvite)
	assert.False(t, editor.Capabilities.CanManage)

	viewer, err := svc.GetAccess(context.Background(), "doc-1", "carol")
	require.NoError(t, err)
	assert.Nil(t, viewer.Collaborators)
	assert.False(t, viewer.Capabilities.CanEdit)

	_, err = svc.GetAccess(context.Background(), "doc-1", "dave")
	require.ErrorIs(t, err, domain.ErrForbidden)
}
