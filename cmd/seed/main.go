package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/verdanthq/verdant-backend/pkg/config"
	"github.com/verdanthq/verdant-backend/pkg/db"
	"github.com/verdanthq/verdant-backend/pkg/db/models"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	"github.com/verdanthq/verdant-backend/pkg/logger"
	"github.com/verdanthq/verdant-backend/pkg/security"
)

var errDryRun = errors.New("dry run, rolling back")

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	dryRun := flag.Bool("dry-run", false, "roll back instead of committing")
	adminEmail := flag.String("admin-email", "admin@verdant.local", "seeded staff account email")
	adminPassword := flag.String("admin-password", "", "seeded staff account password (required)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.App.IsProd() {
		logg.Warn(ctx, "refusing to seed a production database")
		os.Exit(1)
	}
	if strings.TrimSpace(*adminPassword) == "" {
		fmt.Fprintln(os.Stderr, "missing -admin-password")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	hash, err := security.HashPassword(*adminPassword, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to hash admin password", err)
		os.Exit(1)
	}

	err = dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := seedCatalog(tx); err != nil {
			return err
		}
		if err := seedAdmin(tx, strings.ToLower(strings.TrimSpace(*adminEmail)), hash); err != nil {
			return err
		}
		if *dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		logg.Info(ctx, "dry run complete, all changes rolled back")
		return
	}
	if err != nil {
		logg.Error(ctx, "seeding failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "seeding complete")
}

func seedCatalog(tx *gorm.DB) error {
	for _, svc := range catalogFixtures() {
		var existing models.CatalogService
		err := tx.Where("name = ?", svc.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking service %q: %w", svc.Name, err)
		}
		if err := tx.Create(&svc).Error; err != nil {
			return fmt.Errorf("creating service %q: %w", svc.Name, err)
		}
	}
	return nil
}

func seedAdmin(tx *gorm.DB, email, passwordHash string) error {
	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking admin account: %w", err)
	}

	admin := models.User{
		Email:         email,
		PasswordHash:  passwordHash,
		FirstName:     "Site",
		LastName:      "Admin",
		Roles:         enums.RoleCustomer.Grant(enums.RoleStaff),
		EmailVerified: true,
		IsActive:      true,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}
	return nil
}

func catalogFixtures() []models.CatalogService {
	price := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	return []models.CatalogService{
		{
			Name:        "Weekly Mowing",
			Description: "Weekly mow, edge, and blow for a tidy lawn all season.",
			SmallPrice:  price("35.00"),
			MediumPrice: price("50.00"),
			LargePrice:  price("75.00"),
		},
		{
			Name:        "Fertilization",
			Description: "Slow-release granular feeding matched to the season.",
			SmallPrice:  price("45.00"),
			MediumPrice: price("65.00"),
			LargePrice:  price("95.00"),
		},
		{
			Name:        "Aeration",
			Description: "Core aeration to relieve compaction and thicken turf.",
			SmallPrice:  price("80.00"),
			MediumPrice: price("120.00"),
			LargePrice:  price("180.00"),
		},
		{
			Name:        "Weed Control",
			Description: "Targeted pre and post emergent weed treatment.",
			SmallPrice:  price("40.00"),
			MediumPrice: price("55.00"),
			LargePrice:  price("80.00"),
		},
		{
			Name:        "Leaf Cleanup",
			Description: "Fall cleanup with haul-away of leaves and debris.",
			SmallPrice:  price("90.00"),
			MediumPrice: price("140.00"),
			LargePrice:  price("210.00"),
		},
	}
}
