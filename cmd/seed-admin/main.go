package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/garageworks/garage-backend/internal/auth"
	"github.com/garageworks/garage-backend/internal/users"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/logger"
	"github.com/garageworks/garage-backend/pkg/migrate"
	"github.com/garageworks/garage-backend/pkg/security"
)

const tempPasswordLength = 16

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed-admin"})

	_ = godotenv.Load()

	email := flag.String("email", os.Getenv(config.EnvPrefix+"_SEED_ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv(config.EnvPrefix+"_SEED_ADMIN_PASSWORD"), "admin password; a temporary one is generated when empty")
	name := flag.String("name", envOr(config.EnvPrefix+"_SEED_ADMIN_NAME", "Administrator"), "admin full name")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "missing -email")
		os.Exit(1)
	}
	generated := *password == ""
	if generated {
		temp, err := security.GenerateTempPassword(tempPasswordLength)
		requireResource(ctx, logg, "temporary password", err)
		*password = temp
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed-admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "schema", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	seeder, err := auth.NewAdminSeedService(auth.AdminSeedServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "admin seed service", err)

	user, created, err := seeder.Seed(ctx, auth.SeedAdminRequest{
		Email:    *email,
		Password: *password,
		FullName: *name,
	})
	if err != nil {
		logg.Error(ctx, "failed to seed admin", err)
		os.Exit(1)
	}
	if !created {
		logg.Info(ctx, "an admin already exists, nothing to do")
		return
	}

	ctx = logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "email": user.Email})
	logg.Info(ctx, "admin user created")
	if generated {
		// stdout only, never the structured log
		fmt.Printf("temporary password for %s: %s\nchange it with PUT /api/auth/password after the first login\n", user.Email, *password)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
