package infra

import (
	"fmt"

	"ventafacil/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection to PostgreSQL and runs
// AutoMigrate for every model.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
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

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// NewSQLite opens a local SQLite file. The terminal uses it for its durable
// auth store; tests use it with ":memory:".
func NewSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// RunMigrations creates or updates all tables, then applies the patches
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent PostgreSQL DDL.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Only one drawer may be open at a time, whichever terminal opened it.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_una_abierta
		    ON sesiones_caja ((estado)) WHERE estado = 'abierta'`,
		`CREATE INDEX IF NOT EXISTS idx_movimientos_caja_sesion_tipo
		    ON movimientos_caja (sesion_caja_id, tipo, metodo_pago)`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
