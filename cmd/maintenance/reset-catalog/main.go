package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/seinetours/booking-backend/internal/config"
	"github.com/seinetours/booking-backend/internal/database"
	"github.com/seinetours/booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		dbURLFlag string
		confirm   bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&confirm, "yes", false, "confirm that every package will be deleted")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Optional .env so secrets need not be passed on the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}
	if !confirm {
		logger.Fatal("Refusing to wipe the catalog without -yes")
	}
	if os.Getenv("ENVIRONMENT") == "production" {
		logger.Warn("⚠️  Resetting the catalog of a production database")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db.DB); err != nil {
		logger.Fatalf("Failed to apply schema: %v", err)
	}

	// The running API's Redis cache expires on its own TTL
	catalog := services.NewCatalogService(database.NewPackageRepository(db.DB), nil, true, logger)
	pkgs, err := catalog.Seed(ctx)
	if err != nil {
		logger.Fatalf("Failed to reset catalog: %v", err)
	}

	fmt.Printf("Catalog reset: %d packages loaded\n", len(pkgs))
	for _, p := range pkgs {
		fmt.Printf("  %-40s %s  €%.2f / €%.2f  slots=%d\n", p.Title.Get("en"), p.ID, p.Price, p.ChildPrice, p.AvailableSlots)
	}
}
