package main

import (
	"os"

	"essay-coach-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		color.Yellow("Info: No .env file found, using system env")
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDB(database.Options{Driver: driver, DSN: dsn})
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	color.Cyan("Starting GORM migration (%s)...", driver)

	if driver == "postgres" {
		color.Cyan("Step 1: Setting up extensions...")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
			color.Yellow("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
		}
	}

	color.Cyan("Step 2: Running AutoMigrate for %d tables...", len(database.Models()))
	if err := database.Migrate(db); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	if driver == "postgres" {
		// Messages go with their conversation even when deleted outside the service.
		color.Cyan("Step 3: Adding cascade constraint...")
		fk := `DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_messages_conversation') THEN
		    ALTER TABLE messages ADD CONSTRAINT fk_messages_conversation
		      FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE;
		  END IF;
		END $$;`
		if err := db.Exec(fk).Error; err != nil {
			color.Yellow("Warn: Failed to add cascade constraint: %v", err)
		}
	}

	color.Green("Success: Database migration completed.")
}
