package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository"
	"github.com/ManuelReschke/TazaQala/internal/pkg/accounts"
	"github.com/ManuelReschke/TazaQala/internal/pkg/database"
	"github.com/ManuelReschke/TazaQala/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "create-admin" {
		createAdmin(os.Args[2:])
		return
	}

	dbURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		env.GetEnv("DB_USER", "tazaqala"),
		env.GetEnv("DB_PASSWORD", "tazaqala"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "tazaqala_db"),
	)

	log.Printf("Connecting to database: %s@%s:%s/%s",
		env.GetEnv("DB_USER", "tazaqala"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "tazaqala_db"),
	)

	m, err := migrate.New(
		"file://"+env.GetEnv("MIGRATIONS_DIR", "migrations"),
		dbURL,
	)
	if err != nil {
		log.Fatalf("Failed to initialise migrations: %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("Failed to close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Failed to apply migrations: %v", err)
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Println("No change: database is already up to date")
		} else {
			log.Println("Migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Failed to roll back the last migration: %v", err)
		}
		log.Println("Rolled back the last migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("Please provide a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Invalid version number: %v", err)
		}

		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Failed to migrate to version %d: %v", version, err)
		} else if errors.Is(err, migrate.ErrNoChange) {
			log.Printf("No change: database is already at version %d", version)
		} else {
			log.Printf("Migrated to version %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Println("No migrations have been applied yet")
			} else {
				log.Fatalf("Failed to read migration version: %v", err)
			}
		} else {
			dirtyStatus := ""
			if dirty {
				dirtyStatus = " (dirty)"
			}
			log.Printf("Current migration version: %d%s", version, dirtyStatus)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

// createAdmin bootstraps a staff account and prints its API key once.
func createAdmin(args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	name := fs.String("name", "admin", "display name")
	email := fs.String("email", "", "login email (required)")
	password := fs.String("password", "", "password, at least 6 characters (required)")
	role := fs.String("role", models.ROLE_ADMIN, "role: admin or moderator")
	cleaner := fs.Bool("cleaner", false, "also allow submitting cleanups")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		fs.Usage()
		os.Exit(1)
	}

	database.SetupDatabase()
	svc := accounts.NewService(repository.NewUnitOfWork(database.GetDB()))

	ctx := context.Background()
	user, err := svc.Create(ctx, *name, *email, *password, *role)
	if err != nil {
		log.Fatalf("Failed to create account: %v", err)
	}
	if *cleaner {
		user.IsCleaner = true
		if err := repository.NewUserRepository(database.GetDB()).Update(user); err != nil {
			log.Fatalf("Failed to set cleaner flag: %v", err)
		}
	}
	key, err := svc.IssueAPIKey(ctx, user.ID)
	if err != nil {
		log.Fatalf("Failed to issue API key: %v", err)
	}

	log.Printf("Created %s account %d (%s)", user.Role, user.ID, user.Email)
	fmt.Printf("API key (shown once): %s\n", key)
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - show the current migration version")
	fmt.Println("  create-admin -email E -password P [-name N] [-role admin|moderator] [-cleaner]")
}
