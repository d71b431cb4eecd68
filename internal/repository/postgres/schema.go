package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaStatements returns the idempotent DDL for all tables.
//
// The two CHECK constraints mirror the access-control invariants: editors and
// viewers never overlap, and the owner is never a collaborator. The service
// layer enforces both before writing; the constraints catch anything else.
func SchemaStatements(tables *TableNames, prefix string) []string {
	docs := tables.Documents
	return []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			editors UUID[] NOT NULL DEFAULT '{}',
			viewers UUID[] NOT NULL DEFAULT '{}',
			share_status TEXT NOT NULL DEFAULT 'invite-only',
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT %[2]sdocuments_share_status_check
				CHECK (share_status IN ('invite-only', 'anyone-with-link', 'published')),
			CONSTRAINT %[2]sdocuments_roles_disjoint
				CHECK (NOT (editors && viewers)),
			CONSTRAINT %[2]sdocuments_owner_not_collaborator
				CHECK (NOT (owner_id = ANY(editors) OR owner_id = ANY(viewers)))
		)`, docs, prefix),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_owner ON %s (owner_id, updated_at DESC)`, prefix, docs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_editors ON %s USING GIN (editors)`, prefix, docs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_viewers ON %s USING GIN (viewers)`, prefix, docs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_published ON %s (published_at DESC) WHERE share_status = 'published'`, prefix, docs),
	}
}

// EnsureSchema creates tables and indexes if they don't exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string) error {
	for _, stmt := range SchemaStatements(tables, prefix) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// DropAll drops every table
func DropAll(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range tables.All() {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
