package database

import (
	"fmt"
	"log/slog"
	"time"

	"expense-tracker/internal/config"
	"expense-tracker/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the application's gorm handle
type DB struct {
	*gorm.DB
}

// schema lists every table AutoMigrate manages, parents first
var schema = []interface{}{
	&models.User{},
	&models.RefreshToken{},
	&models.ActiveToken{},
	&models.AuditLog{},
	&models.Category{},
	&models.Transaction{},
	&models.Budget{},
}

// Partial indexes AutoMigrate cannot express. The unique ones only count
// rows that are not soft deleted, so a deleted budget or category frees its slot.
var partialIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS uq_categories_owner_type_name ON categories(user_id, type, name) WHERE is_deleted = FALSE",
	"CREATE INDEX IF NOT EXISTS idx_categories_predefined_type_name ON categories(type, name) WHERE is_predefined = TRUE AND is_deleted = FALSE",
	"CREATE UNIQUE INDEX IF NOT EXISTS uq_budgets_period ON budgets(user_id, category_id, year, month) WHERE is_deleted = FALSE",
	"CREATE INDEX IF NOT EXISTS idx_transactions_active_period ON transactions(user_id, category_id, date) WHERE is_deleted = FALSE",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_action_created_at ON audit_logs(action, created_at)",
}

// New opens a pooled postgres connection and verifies it answers
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(schema...)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateIndexes tries every partial index and reports how many failed
func (db *DB) CreateIndexes() error {
	var failed int
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			failed++
			slog.Warn("failed to create index", "statement", stmt, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to create %d of %d indexes", failed, len(partialIndexes))
	}
	return nil
}

// Initialize connects and brings the schema up to date. SQL migrations are
// preferred; AutoMigrate only runs when the migration runner fails.
func Initialize(cfg *config.Config) (*DB, error) {
	db, err := New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := RunMigrationsIfEnabled(sqlDB, &cfg.Database); err != nil {
		slog.Warn("migration runner failed, falling back to gorm AutoMigrate", "error", err)
		if err := db.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if err := db.CreateIndexes(); err != nil {
		slog.Warn("some indexes are missing", "error", err)
	}

	slog.Info("database initialized", "host", cfg.Database.Host, "database", cfg.Database.Name)
	return db, nil
}
