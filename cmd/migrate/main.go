package main

import (
	"peak_pulse/internal/config" // Custom import path (Config)
	"peak_pulse/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	database, err := db.Connect(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		logrus.Fatalf("failed to migrate: %v", err)
	}
	// Seeding is idempotent, safe on every deploy
	if err := db.Seed(database); err != nil {
		logrus.Fatalf("failed to seed: %v", err)
	}
	logrus.Info("Database migrated and seeded")
}
