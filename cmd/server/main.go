package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studysync/internal/auth"
	"studysync/internal/community"
	"studysync/internal/config"
	"studysync/internal/handler"
	"studysync/internal/middleware"
	"studysync/internal/notify"
	"studysync/internal/repository/postgres"
	postgresDocsys "studysync/internal/repository/postgres/docsystem"
	serviceAuth "studysync/internal/service/auth"
	serviceDocsys "studysync/internal/service/docsystem"
	serviceSharing "studysync/internal/service/sharing"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL, postgres.DefaultPoolSettings)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", postgres.DefaultPoolSettings.MaxConns,
		"min_conns", postgres.DefaultPoolSettings.MinConns,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgresDocsys.NewDocumentRepository(repoConfig)
	accessRepo := postgresDocsys.NewAccessControlRepository(repoConfig)
	communityRepo := postgresDocsys.NewCommunityRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Meilisearch is optional; search falls back to Postgres without it
	var meiliClient *community.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = community.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	} else {
		logger.Info("MEILI_URL not set, community search uses postgres")
	}
	communityService := community.NewService(communityRepo, meiliClient, logger)
	defer communityService.Close()
	if err := communityService.Reindex(ctx); err != nil {
		logger.Warn("community reindex failed", "error", err)
	}

	// Invite notifications: SMTP delivery, Redis de-duplication when configured
	templates, err := notify.LoadTemplates()
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		logger.Warn("SMTP not configured, invite emails will be reported as warnings")
	}
	var deduper *notify.Deduper
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisClient, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		deduper = notify.NewDeduper(redisClient, cfg.TablePrefix, notify.DefaultDedupeWindow)
	}
	notifier := notify.NewNotifier(mailer, templates, deduper, cfg.AppBaseURL, logger)

	// Create services
	authorizer := serviceAuth.NewSharingAuthorizer(accessRepo, logger)
	docService := serviceDocsys.NewDocumentService(docRepo, authorizer, communityService, logger)
	sharingService := serviceSharing.NewSharingService(serviceSharing.Dependencies{
		AccessRepo:    accessRepo,
		DocRepo:       docRepo,
		TxManager:     txManager,
		Authorizer:    authorizer,
		Identities:    auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey),
		Notifier:      notifier,
		Indexer:       communityService,
		NotifyTimeout: cfg.NotifyTimeout,
	}, logger)

	logger.Info("services initialized")

	mux := handler.NewRouter(handler.Handlers{
		Documents: handler.NewDocumentHandler(docService, logger),
		Sharing:   handler.NewSharingHandler(sharingService, logger),
		Community: handler.NewCommunityHandler(communityService, logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
