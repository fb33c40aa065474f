/**
 * @description
 * One-shot bootstrap tool that seeds a back-office administrator account. Admins
 * cannot self-register through the API, so the first (super_admin) account is
 * created with this tool and further admins are provisioned the same way.
 *
 * Usage:
 *   go run ./cmd/create-admin -username admin -email admin@example.com -password 'S3cret!'
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: PostgreSQL connection pool.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - internal/app, internal/config, internal/domain, internal/store: Service internals.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/globepay/payments-service/internal/app"
	"github.com/globepay/payments-service/internal/config"
	"github.com/globepay/payments-service/internal/domain"
	"github.com/globepay/payments-service/internal/store"
)

func main() {
	fullName := flag.String("full-name", "System Administrator", "admin display name")
	username := flag.String("username", "admin", "admin login username")
	email := flag.String("email", "admin@globepay.example", "admin email address")
	password := flag.String("password", "", "admin password (required)")
	role := flag.String("role", domain.RoleSuperAdmin, "admin role: admin or super_admin")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		log.Fatalf("level=fatal component=create-admin msg=\"-password is required\"")
	}
	if *role != domain.RoleAdmin && *role != domain.RoleSuperAdmin {
		log.Fatalf("level=fatal component=create-admin msg=\"invalid role\" role=%s", *role)
	}

	if err := godotenv.Load(); err == nil {
		log.Println("level=info component=create-admin msg=\".env file loaded\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=create-admin msg=\"config load failed\" err=%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=create-admin msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()

	hash, err := app.HashPassword(*password)
	if err != nil {
		log.Fatalf("level=fatal component=create-admin msg=\"password hashing failed\" err=%v", err)
	}

	repository := store.NewPostgresRepository(dbpool)
	admin, err := repository.CreateAdmin(ctx, &domain.Admin{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(*fullName),
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		Username:     strings.ToLower(strings.TrimSpace(*username)),
		PasswordHash: hash,
		Role:         *role,
		IsActive:     true,
	})
	if err != nil {
		var duplicate *store.DuplicateError
		if errors.As(err, &duplicate) {
			log.Printf("level=warn component=create-admin msg=\"admin already exists\" field=%s", duplicate.Field)
			return
		}
		log.Fatalf("level=fatal component=create-admin msg=\"admin creation failed\" err=%v", err)
	}

	log.Printf("level=info component=create-admin msg=\"admin created\" admin_id=%s username=%s role=%s", admin.ID, admin.Username, admin.Role)
}
