//go:build ignore

package main

import (
	"flag"
	"log"

	migrate "github.com/rubenv/sql-migrate"

	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// go run scripts/migrate.go [-down]
func main() {
	down := flag.Bool("down", false, "roll back the latest migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if *down {
		n, err := database.Migrate(db, migrate.Down, 1)
		if err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		log.Printf("✅ Rolled back %d migration(s)", n)
		return
	}

	n, err := database.Migrate(db, migrate.Up, 0)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	log.Printf("✅ Successfully applied %d migration(s)!", n)
}
