package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"yatube/internal/middleware"

	"gorm.io/gorm"
)

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// AppliedMigration is one row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Ledger records which embedded migrations have run against a database.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Versions lists applied versions in ascending order. A missing ledger table means none.
func (l *Ledger) Versions(ctx context.Context) ([]int, error) {
	var versions []int
	err := l.db.WithContext(ctx).Model(&AppliedMigration{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// apply runs the up script and writes the ledger row in one transaction.
func (l *Ledger) apply(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s: %w", m.String(), err)
		}
		return tx.Create(&AppliedMigration{Version: m.Version, Name: m.Name}).Error
	})
}

// revert runs the down script and removes the ledger row in one transaction.
func (l *Ledger) revert(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&AppliedMigration{}).Error
	})
}

// splitMigrations returns the registered migrations not yet applied, and any
// applied versions the binary does not know about.
func splitMigrations(applied []int, registered []Migration) (pending []Migration, unknown []int) {
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	for _, v := range applied {
		if GetMigrationByVersionIn(registered, v) == nil {
			unknown = append(unknown, v)
		}
	}
	slices.Sort(unknown)
	return pending, unknown
}

func unknownVersionsError(unknown []int) error {
	names := make([]string, len(unknown))
	for i, v := range unknown {
		names[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("schema_migrations has versions this build does not ship: %s", strings.Join(names, ", "))
}

// RunMigrations applies every pending embedded migration in version order.
// It refuses to run against a database migrated by a newer build.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createLedgerSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	ledger := NewLedger(db)
	applied, err := ledger.Versions(ctx)
	if err != nil {
		return err
	}
	pending, unknown := splitMigrations(applied, migrations)
	if len(unknown) > 0 {
		return unknownVersionsError(unknown)
	}

	for _, m := range pending {
		if err := ledger.apply(ctx, m); err != nil {
			return err
		}
		middleware.Logger.Info("Migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
	}
	return nil
}

// RollbackMigration runs the down script of an applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	ledger := NewLedger(db)
	applied, err := ledger.Versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	if err := ledger.revert(ctx, *m); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", version), slog.String("name", m.Name))
	return nil
}
