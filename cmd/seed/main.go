package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/user-service/config"
	"github.com/oksasatya/user-service/internal/application"
	"github.com/oksasatya/user-service/internal/domain/entity"
	"github.com/oksasatya/user-service/internal/infrastructure/cache"
	"github.com/oksasatya/user-service/internal/infrastructure/events"
	pginfra "github.com/oksasatya/user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/user-service/pkg/helpers"
)

var demoUsers = []application.CreateUserInput{
	{FirstName: "Admin", LastName: "Demo", Email: "admin@example.com", Password: "password123", Role: entity.RoleAdmin},
	{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Password: "password123", Role: entity.RoleUser},
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	if err := pginfra.Migrate(cfg.PostgresDSN()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
		AppName:     cfg.AppName,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := application.NewService(
		pginfra.NewUserRepository(pool),
		cache.NewLRU[application.UserDTO](len(demoUsers), 0),
		helpers.NewBcryptHasher(cfg.BcryptCost),
		events.New(),
		logger,
	)

	for _, in := range demoUsers {
		exists, err := svc.ExistsByEmail(ctx, in.Email)
		if err != nil {
			log.Fatalf("failed to check %s: %v", in.Email, err)
		}
		if exists {
			fmt.Printf("user exists: email=%s\n", in.Email)
			continue
		}
		dto, err := svc.Create(ctx, in)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", in.Email, err)
		}
		fmt.Printf("seeded user: id=%d email=%s role=%s password=%s\n", dto.ID, dto.Email, dto.Role, in.Password)
	}

	if cfg.JWTSecret == "" {
		return
	}
	token, exp, err := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL).GenerateToken("seed")
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Printf("service token (expires %s):\n%s\n", exp.Format("2006-01-02 15:04:05Z07:00"), token)
}
