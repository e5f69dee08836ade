package database

import (
	"fmt"
	"log"

	"bomserver/internal/model"
	"bomserver/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB initializes the database connection with configuration and runs migrations
func InitDB(cfg *config.Config) error {
	var err error

	// Create DSN string
	dsn := cfg.DB.GetDSN()

	// Configure Postgres options
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	// Open connection. TranslateError maps driver unique/foreign-key errors
	// onto gorm.ErrDuplicatedKey and friends so callers can errors.Is on them.
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.DB.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return err
	}

	// Get generic database object SQL
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get database object: %v", err)
		return err
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	// Run migrations
	if err := Migrate(db); err != nil {
		return err
	}

	return nil
}

// Migrate runs schema migrations for all models
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Category{},
		&model.Part{},
		&model.PartVersion{},
		&model.Manufacturer{},
		&model.Supplier{},
		&model.Project{},
		&model.CustomField{},
		&model.ManufacturerCustomValue{},
		&model.SupplierCustomValue{},
		&model.CategoryCustomValue{},
	); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the database instance. Used by tests to inject an in-memory DB.
func SetDB(gdb *gorm.DB) {
	db = gdb
}
