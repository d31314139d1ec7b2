// Command seed creates the first super admin account and prints its
// generated password. It is a no-op once any super admin exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/config"
	"github.com/GTDGit/cms_api/internal/database"
	"github.com/GTDGit/cms_api/internal/models"
	"github.com/GTDGit/cms_api/internal/repository"
	"github.com/GTDGit/cms_api/internal/service"
	"github.com/GTDGit/cms_api/internal/utils"
)

func main() {
	cfg, err := config.LoadSeed()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if cfg.Seed.AdminEmail == "" {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_EMAIL must be set")
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	auditSvc := service.NewAuditService(repository.NewAuditLogRepository(db))
	roleSvc := service.NewRoleService(repository.NewRoleRepository(db), userRepo, nil, auditSvc, models.DefaultPolicy())
	userSvc := service.NewUserService(userRepo, roleSvc, utils.NewPasswordHasher(cfg.Auth.BcryptCost), auditSvc)

	if _, err := roleSvc.SeedSystemRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("system role seeding failed")
	}

	created, err := userSvc.BootstrapSuperAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminEmail)
	if err != nil {
		log.Fatal().Err(err).Msg("super admin bootstrap failed")
	}
	if created == nil {
		log.Info().Msg("A super admin already exists, nothing to do")
		return
	}

	log.Info().Str("username", created.User.Username).Msg("Super admin created")
	fmt.Printf("username: %s\npassword: %s\n", created.User.Username, created.GeneratedPassword)
	fmt.Println("The password must be changed at first login.")
}
