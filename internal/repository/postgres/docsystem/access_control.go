package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/domain"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/repositories"
	"studysync/internal/repository/postgres"
)

const accessColumns = `id::text, owner_id::text, editors::text[], viewers::text[], share_status, published_at`

// PostgresAccessControlRepository implements AccessControlRepository.
//
// Collaborator sets are Postgres UUID arrays mutated in place with
// array_append/array_remove, never read-modify-written from Go, so two
// concurrent invites cannot lose each other's update.
type PostgresAccessControlRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewAccessControlRepository creates a new access-control repository
func NewAccessControlRepository(config *postgres.RepositoryConfig) repositories.AccessControlRepository {
	return &PostgresAccessControlRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get reads the current access-control record
func (r *PostgresAccessControlRepository) Get(ctx context.Context, documentID string) (*sharing.AccessControl, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, accessColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	acl, err := scanAccessControl(executor.QueryRow(ctx, query, documentID))
	if err != nil {
		return nil, documentLookupError(documentID, err)
	}
	return acl, nil
}

// GetForUpdate reads the record under a row lock held until the transaction ends
func (r *PostgresAccessControlRepository) GetForUpdate(ctx context.Context, documentID string) (*sharing.AccessControl, error) {
	if !repositories.InTx(ctx) {
		return nil, errors.New("GetForUpdate requires a transaction")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, accessColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	acl, err := scanAccessControl(executor.QueryRow(ctx, query, documentID))
	if err != nil {
		return nil, documentLookupError(documentID, err)
	}
	return acl, nil
}

// AddCollaborator appends userID to the editors or viewers array
func (r *PostgresAccessControlRepository) AddCollaborator(ctx context.Context, documentID, actorID, userID string, role sharing.Role) (*sharing.Collaborators, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET editors = CASE WHEN $3::text = 'editor' THEN array_append(editors, $2::uuid) ELSE editors END,
		    viewers = CASE WHEN $3::text = 'viewer' THEN array_append(viewers, $2::uuid) ELSE viewers END,
		    updated_at = NOW()
		WHERE id = $1
		  AND owner_id <> $2::uuid
		  AND NOT ($2::uuid = ANY(editors) OR $2::uuid = ANY(viewers))
		  AND (owner_id = $4::uuid OR $4::uuid = ANY(editors))
		RETURNING editors::text[], viewers::text[]
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	collabs, err := scanCollaborators(executor.QueryRow(ctx, query, documentID, userID, string(role), actorID))
	if err == nil {
		return collabs, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return nil, mutationError("add collaborator", err)
	}

	// Predicate failed: re-read to report which rule blocked the write
	current, getErr := r.Get(ctx, documentID)
	if getErr != nil {
		return nil, getErr
	}
	switch {
	case !current.Resolve(actorID).AtLeast(sharing.AccessEdit):
		return nil, domain.Forbidden()
	case userID == current.OwnerID:
		return nil, fmt.Errorf("cannot invite the document owner: %w", domain.ErrInvalidInvitee)
	case current.IsCollaborator(userID):
		return nil, domain.AlreadyCollaborator(userID)
	default:
		return nil, fmt.Errorf("add collaborator to document %s: %w", documentID, domain.ErrConflict)
	}
}

// SetCollaboratorRole moves an existing collaborator into the set for role.
// Setting the role a user already holds leaves both arrays untouched.
func (r *PostgresAccessControlRepository) SetCollaboratorRole(ctx context.Context, documentID, ownerID, userID string, role sharing.Role) (*sharing.Collaborators, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET editors = CASE
		        WHEN $3::text = 'editor' AND $2::uuid = ANY(editors) THEN editors
		        WHEN $3::text = 'editor' THEN array_append(editors, $2::uuid)
		        ELSE array_remove(editors, $2::uuid)
		    END,
		    viewers = CASE
		        WHEN $3::text = 'viewer' AND $2::uuid = ANY(viewers) THEN viewers
		        WHEN $3::text = 'viewer' THEN array_append(viewers, $2::uuid)
		        ELSE array_remove(viewers, $2::uuid)
		    END,
		    updated_at = NOW()
		WHERE id = $1
		  AND owner_id = $4::uuid
		  AND ($2::uuid = ANY(editors) OR $2::uuid = ANY(viewers))
		RETURNING editors::text[], viewers::text[]
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	collabs, err := scanCollaborators(executor.QueryRow(ctx, query, documentID, userID, string(role), ownerID))
	if err == nil {
		return collabs, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return nil, mutationError("set collaborator role", err)
	}

	current, getErr := r.Get(ctx, documentID)
	if getErr != nil {
		return nil, getErr
	}
	if current.Resolve(ownerID) != sharing.AccessOwner {
		return nil, domain.Forbidden()
	}
	return nil, fmt.Errorf("collaborator %s: %w", userID, domain.ErrNotFound)
}

// RemoveCollaborator drops userID from both arrays; a non-member is a no-op
func (r *PostgresAccessControlRepository) RemoveCollaborator(ctx context.Context, documentID, ownerID, userID string) (*sharing.Collaborators, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET editors = array_remove(editors, $2::uuid),
		    viewers = array_remove(viewers, $2::uuid),
		    updated_at = CASE
		        WHEN $2::uuid = ANY(editors) OR $2::uuid = ANY(viewers) THEN NOW()
		        ELSE updated_at
		    END
		WHERE id = $1 AND owner_id = $3::uuid
		RETURNING editors::text[], viewers::text[]
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	collabs, err := scanCollaborators(executor.QueryRow(ctx, query, documentID, userID, ownerID))
	if err == nil {
		return collabs, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return nil, mutationError("remove collaborator", err)
	}

	if _, getErr := r.Get(ctx, documentID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.Forbidden()
}

// SetShareStatus changes share_status. published_at is stamped on first
// publish and cleared when the document leaves the published state.
func (r *PostgresAccessControlRepository) SetShareStatus(ctx context.Context, documentID, ownerID string, status sharing.ShareStatus) (*sharing.AccessControl, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET share_status = $2::text,
		    published_at = CASE
		        WHEN $2::text = 'published' THEN COALESCE(published_at, NOW())
		        ELSE NULL
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $3::uuid
		RETURNING %s
	`, r.tables.Documents, accessColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	acl, err := scanAccessControl(executor.QueryRow(ctx, query, documentID, string(status), ownerID))
	if err == nil {
		return acl, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return nil, mutationError("set share status", err)
	}

	if _, getErr := r.Get(ctx, documentID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.Forbidden()
}

func scanAccessControl(row pgx.Row) (*sharing.AccessControl, error) {
	var acl sharing.AccessControl
	var status string
	if err := row.Scan(
		&acl.DocumentID,
		&acl.OwnerID,
		&acl.Editors,
		&acl.Viewers,
		&status,
		&acl.PublishedAt,
	); err != nil {
		return nil, err
	}
	acl.ShareStatus = sharing.ShareStatus(status)
	normalizeSets(&acl.Editors, &acl.Viewers)
	return &acl, nil
}

func scanCollaborators(row pgx.Row) (*sharing.Collaborators, error) {
	var c sharing.Collaborators
	if err := row.Scan(&c.Editors, &c.Viewers); err != nil {
		return nil, err
	}
	normalizeSets(&c.Editors, &c.Viewers)
	return &c, nil
}

// normalizeSets turns NULL arrays into empty slices so JSON renders []
func normalizeSets(sets ...*[]string) {
	for _, s := range sets {
		if *s == nil {
			*s = []string{}
		}
	}
}

func documentLookupError(documentID string, err error) error {
	if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidInput(err) {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	return fmt.Errorf("get document access: %w", err)
}

func mutationError(op string, err error) error {
	switch {
	case postgres.IsPgCheckViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case postgres.IsPgInvalidInput(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
