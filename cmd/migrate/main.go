package main

import (
	"log"

	"arkham-nexus/internal/config"
	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/domain/outbox"
	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
	"arkham-nexus/pkg/database"
)

// Standalone migration runner for deploy pipelines that migrate before
// rolling the API.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.ApplyRawMigrations(db, "migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	if err := db.AutoMigrate(
		&user.User{},
		&user.Group{},
		&user.GroupMember{},
		&schedule.Series{},
		&schedule.Occurrence{},
		&schedule.Session{},
		&poll.DatePoll{},
		&poll.DatePollOption{},
		&poll.DatePollVote{},
		&poll.DatePollComment{},
		&availability.SessionAvailability{},
		&outbox.OutboxEvent{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	log.Println("migrations applied")
}
