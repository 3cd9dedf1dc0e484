package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostel-management-backend/config"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log := logging.WithComponent("db")
	log.Info("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableChecks {
		log.Info("Applying PostgreSQL check constraints...")
		if err := applyCheckConstraints(db); err != nil {
			log.WithError(err).Warn("failed to apply some check constraints, continuing without them")
		}
	}

	log.Info("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Room{},
		&model.Account{},
		&model.Student{},
		&model.Payment{},
		&model.Complaint{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyCheckConstraints mirrors the store's occupancy and enum invariants in the schema.
func applyCheckConstraints(db *gorm.DB) error {
	ddls := []string{
		"ALTER TABLE rooms ADD CONSTRAINT rooms_occupancy_bounds " +
			"CHECK (current_occupancy >= 0 AND current_occupancy <= capacity);",
		fmt.Sprintf("ALTER TABLE rooms ADD CONSTRAINT rooms_capacity_range CHECK (capacity BETWEEN %d AND %d);",
			model.MinCapacity, model.MaxCapacity),
		fmt.Sprintf("ALTER TABLE rooms ADD CONSTRAINT rooms_hostel_range CHECK (hostel_id BETWEEN %d AND %d);",
			model.MinHostelID, model.MaxHostelID),
		"ALTER TABLE complaints ADD CONSTRAINT complaints_status_values " +
			"CHECK (status IN ('Pending', 'Forwarded to Admin', 'Resolved'));",
		"ALTER TABLE payments ADD CONSTRAINT payments_amount_positive CHECK (amount_paid > 0);",
		// Partial index backing the allotment scan.
		"CREATE INDEX IF NOT EXISTS idx_rooms_available ON rooms (capacity, id) " +
			"WHERE current_occupancy < capacity;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			// Re-running against an already constrained schema is expected.
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
