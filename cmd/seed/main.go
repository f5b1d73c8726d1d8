package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/identity-core/config"
	"github.com/oksasatya/identity-core/internal/application"
	"github.com/oksasatya/identity-core/internal/domain/apperr"
	repo "github.com/oksasatya/identity-core/internal/domain/repository"
	pginfra "github.com/oksasatya/identity-core/internal/infrastructure/postgres"
	sqliteinfra "github.com/oksasatya/identity-core/internal/infrastructure/sqlite"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/imagecheck"
)

// seed registers a demo account through the same workflow the API uses, so
// every validation and uniqueness rule applies.
func main() {
	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "password123", "account password")
	username := flag.String("username", "demo.user", "account username")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	var users repo.UserRepository
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		store, err := sqliteinfra.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite: %v", err)
		}
		defer func() { _ = store.Close() }()
		users = store
	default:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, ApplicationName: cfg.AppName + "-seed"})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		users = pginfra.NewUserRepository(pool)
	}

	svc := application.NewService(
		users,
		helpers.NewCredentialVault(cfg.BcryptCost, cfg.HashConcurrency),
		imagecheck.New(imagecheck.DefaultPolicy()),
		nil, nil, nil,
		logger,
	)

	res, err := svc.Register(ctx, application.RegisterInput{Email: *email, Password: *password, Username: *username})
	switch {
	case apperr.KindOf(err) == apperr.KindConflict:
		field, _ := apperr.ConflictField(err)
		fmt.Printf("seed skipped: %s already taken\n", field)
		return
	case err != nil:
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s username=%s password=%s\n", res.User.ID, res.User.Email, res.User.Username, *password)
}
