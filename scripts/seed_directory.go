//go:build ignore

package main

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/entities"
	"github.com/johnquangdev/meeting-scheduler/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// Seeds a few CRM companies, contacts and deals so the linker has something
// to match against in a local environment. Run with: go run scripts/seed_directory.go
func main() {
	log.Println("🚀 Seeding CRM directory...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	seeds := []struct {
		Company string
		Domain  string
		Contact string
		Email   string
		Persona string
		Deal    string
		Stage   string
	}{
		{"Acme Corp", "acme.test", "Jordan Buyer", "jordan@acme.test", "economic_buyer", "Acme platform", "negotiation"},
		{"Globex", "globex.test", "Sam Lead", "sam@globex.test", "champion", "Globex pilot", "discovery"},
		{"Initech", "initech.test", "Pat Engineer", "pat@initech.test", "technical", "Initech expansion", "demo"},
	}

	log.Println("🗑️  Cleaning up existing seed records...")
	for _, s := range seeds {
		db.Where("email = ?", s.Email).Delete(&entities.Contact{})
		db.Where("domain = ?", s.Domain).Delete(&entities.Company{})
	}

	now := time.Now().UTC()
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, s := range seeds {
			company := entities.Company{ID: uuid.New(), Name: s.Company, Domain: s.Domain}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&company).Error; err != nil {
				return err
			}
			contact := entities.Contact{
				ID:             uuid.New(),
				CompanyID:      &company.ID,
				Email:          s.Email,
				Name:           s.Contact,
				Persona:        s.Persona,
				LastActivityAt: &now,
			}
			if err := tx.Create(&contact).Error; err != nil {
				return err
			}
			deal := entities.Deal{
				ID:        uuid.New(),
				CompanyID: company.ID,
				ContactID: &contact.ID,
				Name:      s.Deal,
				Stage:     s.Stage,
				IsActive:  true,
			}
			if err := tx.Create(&deal).Error; err != nil {
				return err
			}
			log.Printf("✅ %s <%s> → %s (%s)", s.Contact, s.Email, s.Deal, s.Stage)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("🎉 Seeded %d companies", len(seeds))
}
