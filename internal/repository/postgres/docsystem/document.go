package docsystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/domain"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/repository/postgres"
)

const documentColumns = `id::text, owner_id::text, title, content, editors::text[], viewers::text[], share_status, published_at, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document owned by doc.OwnerID
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, title, content)
		VALUES ($1::uuid, $2, $3)
		RETURNING id::text, share_status, created_at, updated_at
	`, r.tables.Documents)

	var status string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.OwnerID,
		doc.Title,
		doc.Content,
	).Scan(&doc.ID, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if postgres.IsPgInvalidInput(err) {
			return fmt.Errorf("owner id %q: %w", doc.OwnerID, domain.ErrValidation)
		}
		return fmt.Errorf("create document: %w", err)
	}

	doc.ShareStatus = sharing.ShareStatus(status)
	doc.Editors = []string{}
	doc.Viewers = []string{}
	doc.PublishedAt = nil
	return nil
}

// GetByID retrieves a document by ID. Access is decided by the caller.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidInput(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update writes title and content. The WHERE clause re-checks that actorID
// is the owner or an editor and that the document is not published.
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document, actorID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, content = $3, updated_at = NOW()
		WHERE id = $1
		  AND share_status <> 'published'
		  AND (owner_id = $4::uuid OR $4::uuid = ANY(editors))
		RETURNING updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, doc.ID, doc.Title, doc.Content, actorID).Scan(&doc.UpdatedAt)
	if err == nil {
		return nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return fmt.Errorf("update document: %w", err)
	}

	if _, getErr := r.GetByID(ctx, doc.ID); getErr != nil {
		return getErr
	}
	return domain.Forbidden()
}

// Delete hard-deletes a document owned by ownerID
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2::uuid`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, ownerID)
	if err != nil {
		if postgres.IsPgInvalidInput(err) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.Forbidden()
	}

	r.logger.Debug("document deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ListAccessible lists documents owned by or shared with userID.
// Content is not loaded.
func (r *PostgresDocumentRepository) ListAccessible(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id::text, owner_id::text, title, '' AS content, editors::text[], viewers::text[],
		       share_status, published_at, created_at, updated_at
		FROM %s
		WHERE owner_id = $1::uuid OR $1::uuid = ANY(editors) OR $1::uuid = ANY(viewers)
		ORDER BY updated_at DESC
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		if postgres.IsPgInvalidInput(err) {
			return []models.Document{}, nil
		}
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var status string
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Content,
		&doc.Editors,
		&doc.Viewers,
		&status,
		&doc.PublishedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.ShareStatus = sharing.ShareStatus(status)
	normalizeSets(&doc.Editors, &doc.Viewers)
	return &doc, nil
}
