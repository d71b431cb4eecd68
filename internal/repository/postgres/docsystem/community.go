package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/domain/models"
	"studysync/internal/domain/repositories"
	"studysync/internal/repository/postgres"
)

const (
	// searchLanguage is the text-search configuration for community search
	searchLanguage = "english"

	// snippetLength is the number of leading content characters shown in the feed
	snippetLength = 280
)

// PostgresCommunityRepository reads published documents
type PostgresCommunityRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(config *postgres.RepositoryConfig) repositories.CommunityRepository {
	return &PostgresCommunityRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// ListPublished returns published documents, newest first
func (r *PostgresCommunityRepository) ListPublished(ctx context.Context, limit, offset int) ([]models.PublishedDocument, int, error) {
	query := fmt.Sprintf(`
		SELECT id::text, owner_id::text, title, left(content, %d), published_at
		FROM %s
		WHERE share_status = 'published'
		ORDER BY published_at DESC, id
		LIMIT $1 OFFSET $2
	`, snippetLength, r.tables.Documents)

	docs, err := r.queryPublished(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list published documents: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE share_status = 'published'`, r.tables.Documents)
	var total int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count published documents: %w", err)
	}

	return docs, total, nil
}

// SearchPublished runs a full-text query over published titles and content.
// Title matches rank twice as high as content matches.
func (r *PostgresCommunityRepository) SearchPublished(ctx context.Context, query string, limit, offset int) ([]models.PublishedDocument, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.PublishedDocument{}, 0, nil
	}

	match := `(to_tsvector($1, title) @@ websearch_to_tsquery($1, $2)
	        OR to_tsvector($1, content) @@ websearch_to_tsquery($1, $2))`

	searchQuery := fmt.Sprintf(`
		SELECT id::text, owner_id::text, title,
		       ts_headline($1, content, websearch_to_tsquery($1, $2),
		                   'MaxWords=40, MinWords=15, MaxFragments=1'),
		       published_at
		FROM %s
		WHERE share_status = 'published' AND %s
		ORDER BY ts_rank(to_tsvector($1, title), websearch_to_tsquery($1, $2)) * 2.0
		       + ts_rank(to_tsvector($1, content), websearch_to_tsquery($1, $2)) DESC,
		         published_at DESC
		LIMIT $3 OFFSET $4
	`, r.tables.Documents, match)

	docs, err := r.queryPublished(ctx, searchQuery, searchLanguage, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search published documents: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE share_status = 'published' AND %s`, r.tables.Documents, match)
	var total int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, countQuery, searchLanguage, query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search matches: %w", err)
	}

	return docs, total, nil
}

// FilterPublished returns which of ids are still published. IDs that are not
// valid UUIDs fail the cast and surface as an error.
func (r *PostgresCommunityRepository) FilterPublished(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id::text
		FROM %s
		WHERE share_status = 'published' AND id = ANY($1::text[]::uuid[])
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("filter published documents: %w", err)
	}
	defer rows.Close()

	published := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan published id: %w", err)
		}
		published = append(published, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("filter published documents: %w", err)
	}
	return published, nil
}

func (r *PostgresCommunityRepository) queryPublished(ctx context.Context, query string, args ...any) ([]models.PublishedDocument, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.PublishedDocument{}
	for rows.Next() {
		var doc models.PublishedDocument
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Snippet, &doc.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan published document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
