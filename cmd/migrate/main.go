package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"supporthub/config"
	"supporthub/internal/domain/account"
	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
	"supporthub/pkg/database"
)

const usage = `
Supporthub - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run all migrations (GORM + SQL indexes)
  status      Show database connection status
  reset       Drop all tables and re-run migrations (DANGEROUS)

Flags:
  -migrations string   Path to migrations directory (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go reset
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)

	switch command {
	case "up":
		migrateUp(*migrationsDir)
	case "status":
		showStatus()
	case "reset":
		reset(*migrationsDir)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func tables() []interface{} {
	return []interface{}{
		&account.Account{},
		&account.Agent{},
		&channel.Channel{},
		&inbox.Inbox{},
		&contact.Contact{},
		&contact.ContactInbox{},
		&conversation.Conversation{},
		&message.Message{},
		&message.Attachment{},
		&task.Task{},
	}
}

func migrateUp(migrationsDir string) {
	if err := database.DB.AutoMigrate(tables()...); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}
	// The unique indexes the pipeline depends on live in raw SQL.
	if err := database.ApplyRawMigrations(migrationsDir); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}
	log.Println("Migrations applied")
}

func showStatus() {
	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	log.Println("Database connection OK")
}

func reset(migrationsDir string) {
	ts := tables()
	for i := len(ts) - 1; i >= 0; i-- {
		if err := database.DB.Migrator().DropTable(ts[i]); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
	}
	log.Println("All tables dropped")
	migrateUp(migrationsDir)
}
