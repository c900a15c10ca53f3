package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/eventhall/booking-wizard/internal/config"
	"github.com/eventhall/booking-wizard/internal/database"
	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var dbURLFlag string
	var days int
	var all bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&days, "days", 90, "delete audit events older than this many days")
	flag.BoolVar(&all, "all", false, "delete every audit event and reset the id sequence")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if all {
		if _, err := db.Exec(`TRUNCATE TABLE audit_logs RESTART IDENTITY;`); err != nil {
			log.Fatalf("failed to truncate audit_logs: %v", err)
		}
		fmt.Println("All audit events cleared (table truncated, identity reset).")
		return
	}

	if days <= 0 {
		log.Fatal("-days must be positive")
	}

	logger := logrus.New()
	auditService := services.NewAuditService(db, logger)

	deleted, err := auditService.CleanupOldAuditLogs(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		log.Fatalf("failed to purge audit events: %v", err)
	}

	var remaining int
	if err := db.Get(&remaining, "SELECT COUNT(*) FROM audit_logs"); err != nil {
		fmt.Printf("Deleted %d audit events older than %d days\n", deleted, days)
		return
	}
	fmt.Printf("Deleted %d audit events older than %d days, %d remaining\n", deleted, days, remaining)
}
