package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/androsik2006/radmon/internal/datastore"
)

// Migrator copies the radmon tables from SQLite to MySQL.
type Migrator struct {
	cfg      Config
	sourceDB *gorm.DB
	targetDB *gorm.DB
	out      io.Writer
}

// MigrationStats tracks migration statistics.
type MigrationStats struct {
	StartTime time.Time
	EndTime   time.Time
	Tables    []TableStats
}

// TableStats tracks per-table migration statistics.
type TableStats struct {
	Name      string
	Migrated  int64
	Skipped   int64
	Errors    int64
	Duration  time.Duration
	BatchSize int
}

// Print outputs the migration statistics.
func (s *MigrationStats) Print(w io.Writer) {
	fmt.Fprintln(w, "\n=== Export Summary ===")
	fmt.Fprintf(w, "Duration: %s\n\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))

	rule := strings.Repeat("-", 70)
	fmt.Fprintf(w, "%-25s %10s %10s %10s %12s\n", "Table", "Migrated", "Skipped", "Errors", "Duration")
	fmt.Fprintln(w, rule)

	var totalMigrated, totalSkipped, totalErrors int64
	for _, t := range s.Tables {
		fmt.Fprintf(w, "%-25s %10d %10d %10d %12s\n",
			t.Name, t.Migrated, t.Skipped, t.Errors, t.Duration.Round(time.Millisecond))
		totalMigrated += t.Migrated
		totalSkipped += t.Skipped
		totalErrors += t.Errors
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-25s %10d %10d %10d\n", "TOTAL", totalMigrated, totalSkipped, totalErrors)
}

// NewMigrator opens both databases and checks that they respond.
func NewMigrator(cfg *Config) (*Migrator, error) {
	logLevel := logger.Silent
	if cfg.Verbose {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	sourceDB, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	targetDB, err := gorm.Open(mysql.Open(cfg.GetMySQLDSN()), gormConfig)
	if err != nil {
		closeDB(sourceDB)
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	m := newMigrator(cfg, sourceDB, targetDB)
	if err := ping(sourceDB); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if err := ping(targetDB); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	fmt.Println("Database connections established successfully")
	return m, nil
}

func newMigrator(cfg *Config, sourceDB, targetDB *gorm.DB) *Migrator {
	return &Migrator{cfg: *cfg, sourceDB: sourceDB, targetDB: targetDB, out: io.Discard}
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Close closes both database connections.
func (m *Migrator) Close() {
	closeDB(m.sourceDB)
	closeDB(m.targetDB)
}

// Run executes the full export. Tables are created in the target when
// missing; sensors are copied before the rows that reference them.
func (m *Migrator) Run() (*MigrationStats, error) {
	stats := &MigrationStats{StartTime: time.Now()}

	if err := m.targetDB.AutoMigrate(&datastore.Sensor{}, &datastore.Measurement{}, &datastore.Alert{}); err != nil {
		return nil, fmt.Errorf("failed to create target tables: %w", err)
	}

	if m.cfg.Clean {
		if err := m.cleanTables(); err != nil {
			return nil, fmt.Errorf("failed to clean tables: %w", err)
		}
	}

	tables := []struct {
		name      string
		batchSize int
		migrate   func(int) (*TableStats, error)
	}{
		{"sensors", 500, m.migrateSensors},
		{"measurements", 5000, m.migrateMeasurements},
		{"alerts", 2000, m.migrateAlerts},
	}

	for _, t := range tables {
		batchSize := t.batchSize
		if m.cfg.BatchSize > 0 && m.cfg.BatchSize < t.batchSize {
			batchSize = m.cfg.BatchSize
		}

		tableStats, err := t.migrate(batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to migrate %s: %w", t.name, err)
		}
		stats.Tables = append(stats.Tables, *tableStats)
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// cleanTables deletes every row from the target tables, dependents first.
func (m *Migrator) cleanTables() error {
	fmt.Fprintln(m.out, "Cleaning target tables...")
	for _, model := range []any{&datastore.Alert{}, &datastore.Measurement{}, &datastore.Sensor{}} {
		if err := m.targetDB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", model, err)
		}
	}
	fmt.Fprintln(m.out, "Tables cleaned")
	return nil
}

// migrateTable is a generic function for migrating a table using batched operations.
func migrateTable[T any](m *Migrator, tableName string, batchSize int) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{
		Name:      tableName,
		BatchSize: batchSize,
	}

	fmt.Fprintf(m.out, "Migrating %s...\n", tableName)

	var sourceCount int64
	if err := m.sourceDB.Model(new(T)).Count(&sourceCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count source records: %w", err)
	}

	if sourceCount == 0 {
		fmt.Fprintf(m.out, "  %s: no records to migrate\n", tableName)
		stats.Duration = time.Since(start)
		return stats, nil
	}

	var processed int64
	batchNum := 0

	err := m.sourceDB.Model(new(T)).FindInBatches(new([]T), batchSize, func(tx *gorm.DB, batch int) error {
		batchNum++
		records := tx.Statement.Dest.(*[]T)

		// Insert with ON CONFLICT DO NOTHING for idempotency
		result := m.targetDB.Clauses(clause.OnConflict{DoNothing: true}).Create(records)
		if result.Error != nil {
			stats.Errors += int64(len(*records))
			fmt.Fprintf(m.out, "  Batch %d error: %v\n", batchNum, result.Error)
			// Continue with next batch - don't fail entire migration on batch error
			return nil //nolint:nilerr // intentional: continue migration despite batch error
		}

		stats.Migrated += result.RowsAffected
		stats.Skipped += int64(len(*records)) - result.RowsAffected
		processed += int64(len(*records))

		if m.cfg.Verbose || batchNum%10 == 0 {
			fmt.Fprintf(m.out, "  %s: %d/%d (%.1f%%)\n", tableName, processed, sourceCount,
				float64(processed)/float64(sourceCount)*100)
		}

		return nil
	}).Error

	if err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	fmt.Fprintf(m.out, "  %s: completed (%d migrated, %d skipped, %d errors) in %s\n",
		tableName, stats.Migrated, stats.Skipped, stats.Errors, stats.Duration.Round(time.Millisecond))

	return stats, nil
}

func (m *Migrator) migrateSensors(batchSize int) (*TableStats, error) {
	return migrateTable[datastore.Sensor](m, "sensors", batchSize)
}

func (m *Migrator) migrateMeasurements(batchSize int) (*TableStats, error) {
	return migrateTable[datastore.Measurement](m, "measurements", batchSize)
}

func (m *Migrator) migrateAlerts(batchSize int) (*TableStats, error) {
	return migrateTable[datastore.Alert](m, "alerts", batchSize)
}
