package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rilaconsulting/pmpulse/internal/model"
)

// NewDatabase establishes a GORM connection backed by pgx. Schema setup is a
// separate, explicit step — see RunMigrations.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surfaces unique-constraint violations as gorm.ErrDuplicatedKey so
		// the single-in-flight analysis race resolves to a clean conflict.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations applies the schema: AutoMigrate for all tables, then
// idempotent SQL patches for constraints GORM cannot express (partial unique
// indexes). Also used by integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Vendor{},
		&model.VendorDuplicateAnalysis{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// At most one analysis may be pending or processing system-wide.
		// The admission check in the service is check-then-insert; this
		// partial unique index makes the guard atomic — a racing second
		// insert fails with a duplicate-key error.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_vendor_duplicate_analyses_active') THEN
		    CREATE UNIQUE INDEX uni_vendor_duplicate_analyses_active
		        ON vendor_duplicate_analyses ((status IN ('pending','processing')))
		        WHERE status IN ('pending','processing');
		  END IF;
		END $$`,
		// Canonical vendors are scanned constantly; duplicates never are.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_vendors_canonical') THEN
		    CREATE INDEX idx_vendors_canonical
		        ON vendors (active)
		        WHERE canonical_vendor_id IS NULL;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
