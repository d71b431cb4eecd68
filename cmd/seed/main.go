package main

import (
	"context"
	"flag"
	"log"
	"os"

	"studysync/internal/auth"
	"studysync/internal/community"
	"studysync/internal/config"
	"studysync/internal/domain/models"
	"studysync/internal/domain/models/sharing"
	"studysync/internal/domain/services"
	"studysync/internal/repository/postgres"
	postgresDocsys "studysync/internal/repository/postgres/docsystem"
	serviceAuth "studysync/internal/service/auth"
	serviceDocsys "studysync/internal/service/docsystem"
	serviceSharing "studysync/internal/service/sharing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// demoUser is a Supabase account the seed creates
type demoUser struct {
	email string
	id    string
}

type seedDocument struct {
	title   string
	content string
	invites map[string]sharing.Role // email -> role
	status  sharing.ShareStatus
}

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed users or documents")
	clearData := flag.Bool("clear-data", false, "Delete all documents (keep schema)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.IsProduction() && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	switch {
	case *clearData:
		log.Printf("Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	case *schemaOnly:
		log.Printf("Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	default:
		log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL, postgres.PoolSettings{MaxConns: 4, MinConns: 1})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := postgres.DropAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		if err := clearDocuments(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("Data cleared successfully")
		return
	}

	admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "studysync-demo"
	}

	users := []*demoUser{
		{email: "alice@studysync.test"},
		{email: "bob@studysync.test"},
		{email: "carol@studysync.test"},
	}
	for _, u := range users {
		if err := admin.DeleteUserByEmail(ctx, u.email); err != nil {
			log.Fatalf("Failed to reset user %s: %v", u.email, err)
		}
		id, err := admin.CreateUser(ctx, u.email, password)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.email, err)
		}
		u.id = id
		log.Printf("Created user %s (ID: %s)", u.email, id)
	}
	owner := users[0]

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresDocsys.NewDocumentRepository(repoConfig)
	accessRepo := postgresDocsys.NewAccessControlRepository(repoConfig)
	authorizer := serviceAuth.NewSharingAuthorizer(accessRepo, logger)
	communityService := community.NewService(postgresDocsys.NewCommunityRepository(repoConfig), nil, logger)
	defer communityService.Close()

	docService := serviceDocsys.NewDocumentService(docRepo, authorizer, communityService, logger)
	sharingService := serviceSharing.NewSharingService(serviceSharing.Dependencies{
		AccessRepo: accessRepo,
		DocRepo:    docRepo,
		TxManager:  postgres.NewTransactionManager(pool, logger),
		Authorizer: authorizer,
		Identities: admin,
		Indexer:    communityService,
	}, logger)

	for i, seed := range seedDocuments() {
		doc, err := docService.CreateDocument(ctx, &models.CreateDocumentRequest{
			OwnerID: owner.id,
			Title:   seed.title,
			Content: seed.content,
		})
		if err != nil {
			log.Printf("Failed to create document '%s': %v", seed.title, err)
			continue
		}

		for email, role := range seed.invites {
			if _, err := sharingService.Invite(ctx, &services.InviteRequest{
				DocumentID:  doc.ID,
				CallerID:    owner.id,
				CallerEmail: owner.email,
				Email:       email,
				Role:        string(role),
			}); err != nil {
				log.Printf("Failed to invite %s to '%s': %v", email, seed.title, err)
			}
		}

		switch seed.status {
		case sharing.ShareAnyoneWithLink:
			_, err = sharingService.SetVisibility(ctx, doc.ID, owner.id, string(seed.status))
		case sharing.SharePublished:
			_, err = sharingService.Publish(ctx, doc.ID, owner.id)
		}
		if err != nil {
			log.Printf("Failed to set visibility of '%s': %v", seed.title, err)
		}

		log.Printf("Created document %d: %s (ID: %s, status: %s)", i+1, seed.title, doc.ID, seed.status)
	}

	log.Println("Seeding complete")
}

// clearDocuments deletes every document row
func clearDocuments(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents)
	return err
}

func seedDocuments() []seedDocument {
	return []seedDocument{
		{
			title:   "Cell Biology Midterm Notes",
			content: "Mitochondria, ribosomes and the endomembrane system.",
			invites: map[string]sharing.Role{
				"bob@studysync.test":   sharing.RoleEditor,
				"carol@studysync.test": sharing.RoleViewer,
			},
			status: sharing.ShareInviteOnly,
		},
		{
			title:   "Linear Algebra Cheat Sheet",
			content: "Eigenvalues satisfy det(A - λI) = 0.",
			invites: map[string]sharing.Role{"bob@studysync.test": sharing.RoleViewer},
			status:  sharing.ShareAnyoneWithLink,
		},
		{
			title:   "Intro to Thermodynamics",
			content: "The first law: energy is conserved. The second law: entropy of an isolated system never decreases.",
			status:  sharing.SharePublished,
		},
	}
}
