// Package memory is an in-process implementation of the document and
// access-control repositories. It applies the same predicates as the
// Postgres statements and is used by service and handler tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
)

var (
	_ repositories.DocumentRepository      = (*Store)(nil)
	_ repositories.AccessControlRepository = (*Store)(nil)
	_ repositories.CommunityRepository     = (*Store)(nil)
	_ repositories.TransactionManager      = (*Store)(nil)
)

// Store holds documents keyed by ID
type Store struct {
	mu   sync.Mutex
	docs map[string]*models.Document

	// txMu serializes ExecTx calls, standing in for the row lock
	txMu sync.Mutex

	// Now is the clock; tests may override it
	Now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		docs: make(map[string]*models.Document),
		Now:  time.Now,
	}
}

// Put inserts or replaces a document as-is, bypassing validation
func (s *Store) Put(doc *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = cloneDoc(doc)
}

// Snapshot returns a copy of a stored document, nil if absent
func (s *Store) Snapshot(id string) *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		return cloneDoc(doc)
	}
	return nil
}

// ExecTx runs fn with exclusive access. State changes made by fn are
// rolled back if fn returns an error.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := make(map[string]*models.Document, len(s.docs))
	for id, doc := range s.docs {
		saved[id] = cloneDoc(doc)
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.docs = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- DocumentRepository ---

func (s *Store) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	doc.ID = uuid.NewString()
	doc.Editors = []string{}
	doc.Viewers = []string{}
	doc.ShareStatus = sharing.ShareInviteOnly
	doc.PublishedAt = nil
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.docs[doc.ID] = cloneDoc(doc)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return cloneDoc(doc), nil
}

func (s *Store) Update(ctx context.Context, doc *models.Document, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	if current.ShareStatus == sharing.SharePublished ||
		(current.OwnerID != actorID && !slices.Contains(current.Editors, actorID)) {
		return domain.Forbidden()
	}

	current.Title = doc.Title
	current.Content = doc.Content
	current.UpdatedAt = s.Now()
	doc.UpdatedAt = current.UpdatedAt
	return nil
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if current.OwnerID != ownerID {
		return domain.Forbidden()
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) ListAccessible(ctx context.Context, userID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := []models.Document{}
	for _, doc := range s.docs {
		if doc.OwnerID == userID || slices.Contains(doc.Editors, userID) || slices.Contains(doc.Viewers, userID) {
			d := cloneDoc(doc)
			d.Content = ""
			docs = append(docs, *d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.After(docs[j].UpdatedAt) })
	return docs, nil
}

// --- AccessControlRepository ---

func (s *Store) Get(ctx context.Context, documentID string) (*sharing.AccessControl, error) {
	doc, err := s.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return doc.AccessControl(), nil
}

func (s *Store) GetForUpdate(ctx context.Context, documentID string) (*sharing.AccessControl, error) {
	return s.Get(ctx, documentID)
}

func (s *Store) AddCollaborator(ctx context.Context, documentID, actorID, userID string, role sharing.Role) (*sharing.Collaborators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	acl := doc.AccessControl()
	switch {
	case !acl.Resolve(actorID).AtLeast(sharing.AccessEdit):
		return nil, domain.Forbidden()
	case userID == doc.OwnerID:
		return nil, fmt.Errorf("cannot invite the document owner: %w", domain.ErrInvalidInvitee)
	case acl.IsCollaborator(userID):
		return nil, domain.AlreadyCollaborator(userID)
	}

	if role == sharing.RoleEditor {
		doc.Editors = append(doc.Editors, userID)
	} else {
		doc.Viewers = append(doc.Viewers, userID)
	}
	doc.UpdatedAt = s.Now()
	return doc.AccessControl().Collaborators(), nil
}

func (s *Store) SetCollaboratorRole(ctx context.Context, documentID, ownerID, userID string, role sharing.Role) (*sharing.Collaborators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.Forbidden()
	}
	current, ok := doc.AccessControl().RoleOf(userID)
	if !ok {
		return nil, fmt.Errorf("collaborator %s: %w", userID, domain.ErrNotFound)
	}

	if current != role {
		doc.Editors = without(doc.Editors, userID)
		doc.Viewers = without(doc.Viewers, userID)
		if role == sharing.RoleEditor {
			doc.Editors = append(doc.Editors, userID)
		} else {
			doc.Viewers = append(doc.Viewers, userID)
		}
	}
	doc.UpdatedAt = s.Now()
	return doc.AccessControl().Collaborators(), nil
}

func (s *Store) RemoveCollaborator(ctx context.Context, documentID, ownerID, userID string) (*sharing.Collaborators, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.Forbidden()
	}

	if doc.AccessControl().IsCollaborator(userID) {
		doc.Editors = without(doc.Editors, userID)
		doc.Viewers = without(doc.Viewers, userID)
		doc.UpdatedAt = s.Now()
	}
	return doc.AccessControl().Collaborators(), nil
}

func (s *Store) SetShareStatus(ctx context.Context, documentID, ownerID string, status sharing.ShareStatus) (*sharing.AccessControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.Forbidden()
	}

	doc.ShareStatus = status
	if status == sharing.SharePublished {
		if doc.PublishedAt == nil {
			now := s.Now()
			doc.PublishedAt = &now
		}
	} else {
		doc.PublishedAt = nil
	}
	doc.UpdatedAt = s.Now()
	return cloneDoc(doc).AccessControl(), nil
}

// --- CommunityRepository ---

func (s *Store) ListPublished(ctx context.Context, limit, offset int) ([]models.PublishedDocument, int, error) {
	return s.published(func(*models.Document) bool { return true }, limit, offset)
}

// SearchPublished matches titles and content case-insensitively
func (s *Store) SearchPublished(ctx context.Context, query string, limit, offset int) ([]models.PublishedDocument, int, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.PublishedDocument{}, 0, nil
	}
	return s.published(func(d *models.Document) bool {
		return strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Content), q)
	}, limit, offset)
}

func (s *Store) FilterPublished(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	published := []string{}
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok && doc.ShareStatus == sharing.SharePublished {
			published = append(published, id)
		}
	}
	return published, nil
}

func (s *Store) published(match func(*models.Document) bool, limit, offset int) ([]models.PublishedDocument, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.PublishedDocument
	for _, doc := range s.docs {
		if doc.ShareStatus != sharing.SharePublished || doc.PublishedAt == nil || !match(doc) {
			continue
		}
		all = append(all, models.PublishedDocument{
			ID:          doc.ID,
			OwnerID:     doc.OwnerID,
			Title:       doc.Title,
			Snippet:     doc.Content,
			PublishedAt: *doc.PublishedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PublishedAt.After(all[j].PublishedAt) })

	total := len(all)
	page := []models.PublishedDocument{}
	if offset < total {
		end := min(offset+limit, total)
		page = append(page, all[offset:end]...)
	}
	return page, total, nil
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(v string) bool { return v == id })
}

func cloneDoc(doc *models.Document) *models.Document {
	c := *doc
	c.Editors = slices.Clone(doc.Editors)
	c.Viewers = slices.Clone(doc.Viewers)
	if c.Editors == nil {
		c.Editors = []string{}
	}
	if c.Viewers == nil {
		c.Viewers = []string{}
	}
	if doc.PublishedAt != nil {
		t := *doc.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
