// Package community serves the public feed of published documents and keeps
// its search index in step with publish state.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"studysync/internal/config"
	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/domain/services"
)

var (
	_ services.CommunityService = (*Service)(nil)
	_ services.CommunityIndexer = (*Service)(nil)
)

// searcher is the subset of Meili the service depends on
type searcher interface {
	Healthy() bool
	Recovered() <-chan struct{}
	Search(query string, limit, offset int) ([]models.PublishedDocument, int, error)
	Index(records ...record) error
	Delete(ids ...string) error
	IndexedIDs() ([]string, error)
}

// indexQueueSize bounds pending index changes before they are dropped
const indexQueueSize = 256

// indexOp is one queued change to the search index. Exactly one of rec and
// removeID is set.
type indexOp struct {
	rec      *record
	removeID string
}

// Service lists published documents from Postgres and searches them through
// Meilisearch when it is healthy, falling back to Postgres full-text search.
//
// Index changes go through a single worker so they reach Meilisearch in the
// order they were made. Removals that cannot be applied are kept until the
// next successful delete or reindex.
type Service struct {
	repo   repositories.CommunityRepository
	meili  searcher
	logger *slog.Logger

	ops  chan indexOp
	done chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	stale map[string]struct{}

	reindexMu sync.Mutex
}

// NewService creates a community service. meili may be nil when Meilisearch
// is not configured.
func NewService(repo repositories.CommunityRepository, meili *Meili, logger *slog.Logger) *Service {
	var search searcher
	if meili != nil {
		search = meili
	}
	return newService(repo, search, logger)
}

func newService(repo repositories.CommunityRepository, search searcher, logger *slog.Logger) *Service {
	s := &Service{
		repo:   repo,
		meili:  search,
		logger: logger,
		ops:    make(chan indexOp, indexQueueSize),
		done:   make(chan struct{}),
		stale:  make(map[string]struct{}),
	}
	if search != nil {
		s.wg.Add(1)
		go s.run()
	}
	return s
}

// Close stops the index worker. Queued changes that have not run are dropped;
// the next Reindex catches up.
func (s *Service) Close() {
	close(s.done)
	s.wg.Wait()
}

// ListPublished returns a page of published documents, newest first
func (s *Service) ListPublished(ctx context.Context, limit, offset int) (*models.CommunityPage, error) {
	limit, offset = models.NormalizePage(limit, offset)

	docs, total, err := s.repo.ListPublished(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &models.CommunityPage{Documents: docs, Total: total, Limit: limit, Offset: offset}, nil
}

// Search finds published documents matching query. Meilisearch hits are
// checked against Postgres so a stale index never returns a document that is
// no longer published.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) (*models.CommunityPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(query) > config.MaxSearchQueryLength {
		return nil, fmt.Errorf("%w: search query exceeds %d characters", domain.ErrValidation, config.MaxSearchQueryLength)
	}
	limit, offset = models.NormalizePage(limit, offset)

	page := &models.CommunityPage{Limit: limit, Offset: offset, Query: query}

	if s.meili != nil && s.meili.Healthy() {
		docs, total, err := s.searchIndex(ctx, query, limit, offset)
		if err == nil {
			page.Documents, page.Total = docs, total
			return page, nil
		}
		s.logger.Warn("meilisearch error, falling back to postgres", "error", err)
	}

	docs, total, err := s.repo.SearchPublished(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	page.Documents, page.Total = docs, total
	return page, nil
}

// searchIndex queries Meilisearch and drops hits Postgres no longer lists as
// published, queueing their removal from the index.
func (s *Service) searchIndex(ctx context.Context, query string, limit, offset int) ([]models.PublishedDocument, int, error) {
	hits, total, err := s.meili.Search(query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if len(hits) == 0 {
		return hits, total, nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	published, err := s.repo.FilterPublished(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("verify search hits: %w", err)
	}
	live := make(map[string]struct{}, len(published))
	for _, id := range published {
		live[id] = struct{}{}
	}

	docs := make([]models.PublishedDocument, 0, len(hits))
	for _, hit := range hits {
		if _, ok := live[hit.ID]; ok {
			docs = append(docs, hit)
			continue
		}
		s.logger.Warn("dropping unpublished document from search results", "document_id", hit.ID)
		s.RemoveDocument(hit.ID)
	}

	dropped := len(hits) - len(docs)
	return docs, max(total-dropped, offset+len(docs)), nil
}

// IndexDocument queues a published document for indexing
func (s *Service) IndexDocument(doc *models.Document) {
	if s.meili == nil || doc.ShareStatus != sharing.SharePublished {
		return
	}
	rec := recordOf(doc)
	if !s.enqueue(indexOp{rec: &rec}) {
		s.logger.Warn("index queue full, document waits for reindex", "document_id", rec.ID)
	}
}

// RemoveDocument queues a document for removal from the index
func (s *Service) RemoveDocument(documentID string) {
	if s.meili == nil {
		return
	}
	if !s.enqueue(indexOp{removeID: documentID}) {
		s.markStale(documentID)
		s.logger.Warn("index queue full, removal deferred", "document_id", documentID)
	}
}

func (s *Service) enqueue(op indexOp) bool {
	select {
	case s.ops <- op:
		return true
	default:
		return false
	}
}

// run applies queued index changes one at a time and reindexes whenever
// Meilisearch recovers.
func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.meili.Recovered():
			if err := s.Reindex(context.Background()); err != nil {
				s.logger.Warn("community reindex after recovery failed", "error", err)
			}
		case op := <-s.ops:
			s.apply(op)
		}
	}
}

func (s *Service) apply(op indexOp) {
	if op.rec != nil {
		if !s.meili.Healthy() {
			return
		}
		if err := s.meili.Index(*op.rec); err != nil {
			s.logger.Warn("index community document", "document_id", op.rec.ID, "error", err)
		}
		return
	}

	s.markStale(op.removeID)
	if !s.meili.Healthy() {
		s.logger.Info("meilisearch unavailable, removal deferred", "document_id", op.removeID)
		return
	}
	ids := s.takeStale()
	if err := s.meili.Delete(ids...); err != nil {
		s.markStale(ids...)
		s.logger.Warn("remove community documents", "document_ids", ids, "error", err)
	}
}

func (s *Service) markStale(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.stale[id] = struct{}{}
	}
}

func (s *Service) takeStale() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.stale))
	for id := range s.stale {
		ids = append(ids, id)
	}
	clear(s.stale)
	return ids
}

// Reindex makes Meilisearch match Postgres: every published document is
// indexed and every other indexed ID is deleted. It runs at startup and
// whenever Meilisearch recovers.
func (s *Service) Reindex(ctx context.Context) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	published := make(map[string]struct{})
	for offset := 0; ; offset += models.MaxCommunityPageSize {
		docs, total, err := s.repo.ListPublished(ctx, models.MaxCommunityPageSize, offset)
		if err != nil {
			return fmt.Errorf("load published documents: %w", err)
		}
		records := make([]record, 0, len(docs))
		for _, doc := range docs {
			records = append(records, recordOfPublished(doc))
			published[doc.ID] = struct{}{}
		}
		if err := s.meili.Index(records...); err != nil {
			return fmt.Errorf("index published documents: %w", err)
		}
		if len(docs) == 0 || offset+len(docs) >= total {
			break
		}
	}

	indexed, err := s.meili.IndexedIDs()
	if err != nil {
		return err
	}
	candidates := append(s.takeStale(), indexed...)
	seen := make(map[string]struct{}, len(candidates))
	var remove []string
	for _, id := range candidates {
		if _, ok := published[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		remove = append(remove, id)
	}
	if err := s.meili.Delete(remove...); err != nil {
		s.markStale(remove...)
		return fmt.Errorf("delete unpublished documents: %w", err)
	}

	s.logger.Info("community index rebuilt", "documents", len(published), "removed", len(remove))
	return nil
}
