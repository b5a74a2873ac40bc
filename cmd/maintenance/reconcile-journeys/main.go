package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/croffers/journey-backend/internal/config"
	"github.com/croffers/journey-backend/internal/database"
	"github.com/croffers/journey-backend/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		dbURLFlag string
		userFlag  string
		allFlag   bool
		archive   bool
		timeout   time.Duration
		verbose   bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVarP(&userFlag, "user", "u", "", "reconcile the journeys of one user")
	flag.BoolVarP(&allFlag, "all", "a", false, "reconcile the journeys of every user")
	flag.BoolVar(&archive, "archive", false, "also complete journeys whose end date has passed")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "overall time limit")
	flag.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if (userFlag == "") == !allFlag {
		fmt.Fprintln(os.Stderr, "exactly one of --user or --all is required")
		flag.Usage()
		os.Exit(2)
	}

	var userID uuid.UUID
	if userFlag != "" {
		id, err := uuid.Parse(userFlag)
		if err != nil {
			logger.Fatalf("invalid --user %q: %v", userFlag, err)
		}
		userID = id
	}

	// .env is optional; secrets stay off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	catalogRepo := database.NewCatalogRepository(db.DB)
	bookingService := services.NewBookingService(database.NewBookingRepository(db.DB), catalogRepo, decimal.Zero, logger)
	journeyService := services.NewJourneyService(
		database.NewJourneyRepository(db.DB),
		database.NewSegmentRepository(db.DB),
		bookingService,
		services.NewCatalogService(catalogRepo, logger),
		services.NewLogNotifier(logger),
		1,
		services.JourneyServiceConfig{MaxActivePlans: 1, DefaultCurrency: "EUR"},
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if allFlag {
		result, err := journeyService.ReconcileAll(ctx)
		if err != nil {
			logger.Fatalf("reconciliation failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"checked": result.Checked,
			"updated": result.Updated,
			"failed":  result.Failed,
		}).Info("Reconciled all journeys")
	} else {
		result, err := journeyService.RecalculateAllJourneyStatuses(ctx, userID)
		if err != nil {
			logger.Fatalf("reconciliation failed: %v", err)
		}
		for _, j := range result.Journeys {
			logger.WithFields(logrus.Fields{
				"journey_id": j.ID,
				"status":     j.Status,
			}).Debug("Journey status")
		}
		logger.WithFields(logrus.Fields{
			"user_id": userID,
			"updated": result.UpdatedCount,
		}).Info("Reconciled user journeys")
	}

	if archive {
		result, err := journeyService.ArchiveEnded(ctx, time.Now())
		if err != nil {
			logger.Fatalf("archive failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"checked": result.Checked,
			"updated": result.Updated,
			"failed":  result.Failed,
		}).Info("Archived ended journeys")
	}
}
