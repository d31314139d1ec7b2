package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/cache"
	"github.com/GTDGit/cms_api/internal/config"
	"github.com/GTDGit/cms_api/internal/database"
	"github.com/GTDGit/cms_api/internal/handler"
	"github.com/GTDGit/cms_api/internal/middleware"
	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/router"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

// main is the application entrypoint for the CMS admin API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting cms api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.RunMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	roleCache := cache.NewRoleCache(redisClient, cfg.Auth.RoleCacheTTL)
	loginAttempts := cache.NewLoginAttempts(redisClient, cfg.Auth.LoginFailureWindow)

	// 3c. Object storage for profile pictures
	var storage service.ObjectStore
	if cfg.S3.Bucket != "" {
		s3Svc, err := service.NewS3Service(context.Background(), &cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 initialization failed - profile pictures will be disabled")
		} else {
			storage = s3Svc
		}
	} else {
		log.Warn().Msg("S3_BUCKET not set - profile pictures will be disabled")
	}

	// 4. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	contentRepo := repository.NewContentRepository(db)

	// 5. Initialize services
	policy := models.DefaultPolicy()
	hasher := utils.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	auditSvc := service.NewAuditService(auditRepo)
	roleSvc := service.NewRoleService(roleRepo, userRepo, roleCache, auditSvc, policy)
	authSvc := service.NewAuthService(userRepo, roleSvc, hasher, tokens, auditSvc)
	userSvc := service.NewUserService(userRepo, roleSvc, hasher, auditSvc)
	profileSvc := service.NewProfileService(userRepo, storage, auditSvc)
	contentSvc := service.NewContentService(contentRepo)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	seeded, err := roleSvc.SeedSystemRoles(seedCtx)
	seedCancel()
	if err != nil {
		log.Error().Err(err).Msg("system role seeding failed")
		fmt.Fprintf(os.Stderr, "system role seeding failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Int("inserted", seeded).Msg("system roles ready")

	// 6. Initialize handlers
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		User:    handler.NewUserHandler(userSvc),
		Role:    handler.NewRoleHandler(roleSvc),
		Audit:   handler.NewAuditHandler(auditSvc),
		Profile: handler.NewProfileHandler(profileSvc, authSvc),
		Content: handler.NewContentHandler(contentSvc),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
	}

	// 7. Initialize middleware
	guards := &router.Guards{
		Auth:         middleware.NewAuthMiddleware(authSvc),
		Gate:         middleware.NewPermissionGate(policy),
		LoginLimiter: middleware.NewLoginRateLimiter(loginAttempts, cfg.Auth.LoginMaxFailures),
		CORSOrigins:  cfg.CORS.AllowedOrigins,
	}

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(handlers, guards)

	// 9. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 11. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
