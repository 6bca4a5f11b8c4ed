// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Query defaults.
const (
	DefaultRecentMeasurements = 100
	DefaultRecentAlerts       = 50
)

// Gateway is the persistence contract of the monitoring engine. Callers
// bound each call with a context deadline; failures are never fatal to
// the caller.
type Gateway interface {
	RecordReading(ctx context.Context, r radiation.Reading) error
	RecordAlert(ctx context.Context, a radiation.AlertEvent) error
	MarkNotified(ctx context.Context, alertID string) error
}

// Interface abstracts the underlying database implementation.
type Interface interface {
	Gateway
	Open() error
	Close() error

	SyncSensors(ctx context.Context, sensors []radiation.SensorDescriptor) error
	GetSensors(ctx context.Context) ([]Sensor, error)
	SetSensorStatus(ctx context.Context, sensorID string, status radiation.SensorStatus) error

	GetStatistics(ctx context.Context, now time.Time) (Statistics, error)
	GetDailyAggregates(ctx context.Context, day time.Time) ([]DailyAggregate, error)
	GetAggregates(ctx context.Context, from, to time.Time) ([]DailyAggregate, error)
	GetSummary(ctx context.Context) (Summary, error)
	GetMeasurementsBetween(ctx context.Context, from, to time.Time) ([]MeasurementRecord, error)
	GetAlertsBetween(ctx context.Context, from, to time.Time) ([]Alert, error)
	GetRecentMeasurements(ctx context.Context, limit int) ([]MeasurementRecord, error)
	GetRecentAlerts(ctx context.Context, limit int) ([]Alert, error)
	ClearAlerts(ctx context.Context) (int64, error)

	// Backup writes a consistent copy of the database to destPath.
	Backup(ctx context.Context, destPath string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates the store selected by settings. Open must be called before use.
func New(settings *conf.DatabaseSettings) (Interface, error) {
	switch settings.Type {
	case "sqlite":
		return &SQLiteStore{Settings: settings}, nil
	case "mysql":
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, validationError("unsupported database type", "database.type", settings.Type)
	}
}

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

func (ds *DataStore) checkOpen(operation string) error {
	if ds.DB == nil {
		return dbError(errors.NewStd("database connection is not initialized"), operation, errors.PriorityHigh)
	}
	return nil
}

// performAutoMigration creates or updates the schema.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Sensor{}, &Measurement{}, &Alert{}); err != nil {
		return dbError(err, "auto_migrate", errors.PriorityCritical, "db_type", dbType)
	}
	GetLogger().Debug("database schema migrated",
		logger.String("db_type", dbType),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// RecordReading stores one measurement.
func (ds *DataStore) RecordReading(ctx context.Context, r radiation.Reading) error {
	if err := ds.checkOpen("record_reading"); err != nil {
		return err
	}
	m := measurementFromReading(r)
	if err := ds.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return persistenceError(err, "record_reading", "sensor_id", r.SensorID)
	}
	return nil
}

// RecordAlert stores one alert event.
func (ds *DataStore) RecordAlert(ctx context.Context, a radiation.AlertEvent) error {
	if err := ds.checkOpen("record_alert"); err != nil {
		return err
	}
	row := alertFromEvent(a)
	if err := ds.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return persistenceError(err, "record_alert", "alert_id", a.ID, "sensor_id", a.SensorID)
	}
	return nil
}

// MarkNotified sets notified on the alert. Marking an already notified
// alert is a no-op; an unknown id is a not-found error.
func (ds *DataStore) MarkNotified(ctx context.Context, alertID string) error {
	if err := ds.checkOpen("mark_notified"); err != nil {
		return err
	}
	db := ds.DB.WithContext(ctx)
	result := db.Model(&Alert{}).
		Where("id = ? AND notified = ?", alertID, false).
		Update("notified", true)
	if result.Error != nil {
		return persistenceError(result.Error, "mark_notified", "alert_id", alertID)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&Alert{}).Where("id = ?", alertID).Count(&count).Error; err != nil {
		return persistenceError(err, "mark_notified", "alert_id", alertID)
	}
	if count == 0 {
		return notFoundError("alert", alertID)
	}
	return nil
}

// SyncSensors upserts the configured sensors. Existing rows keep their
// operator-set status.
func (ds *DataStore) SyncSensors(ctx context.Context, sensors []radiation.SensorDescriptor) error {
	if err := ds.checkOpen("sync_sensors"); err != nil {
		return err
	}
	if len(sensors) == 0 {
		return nil
	}
	rows := make([]Sensor, 0, len(sensors))
	for _, d := range sensors {
		rows = append(rows, sensorFromDescriptor(d))
	}
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sensor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "location", "warning_threshold", "danger_threshold", "calibration_date", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return dbError(err, "sync_sensors", errors.PriorityHigh, "count", len(rows))
	}
	return nil
}

// GetSensors returns every registered sensor ordered by id.
func (ds *DataStore) GetSensors(ctx context.Context) ([]Sensor, error) {
	if err := ds.checkOpen("get_sensors"); err != nil {
		return nil, err
	}
	var sensors []Sensor
	if err := ds.DB.WithContext(ctx).Order("sensor_id").Find(&sensors).Error; err != nil {
		return nil, dbError(err, "get_sensors", errors.PriorityMedium)
	}
	return sensors, nil
}

// SetSensorStatus changes the lifecycle status of a sensor.
func (ds *DataStore) SetSensorStatus(ctx context.Context, sensorID string, status radiation.SensorStatus) error {
	if !status.Valid() {
		return validationError("invalid sensor status", "status", status)
	}
	if err := ds.checkOpen("set_sensor_status"); err != nil {
		return err
	}
	result := ds.DB.WithContext(ctx).Model(&Sensor{}).
		Where("sensor_id = ?", sensorID).
		Update("status", string(status))
	if result.Error != nil {
		return dbError(result.Error, "set_sensor_status", errors.PriorityMedium, "sensor_id", sensorID)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := ds.DB.WithContext(ctx).Model(&Sensor{}).Where("sensor_id = ?", sensorID).Count(&count).Error; err != nil {
			return dbError(err, "set_sensor_status", errors.PriorityMedium, "sensor_id", sensorID)
		}
		if count == 0 {
			return notFoundError("sensor", sensorID)
		}
	}
	return nil
}

// GetRecentMeasurements returns the newest measurements first, joined
// with the sensor location. limit <= 0 means DefaultRecentMeasurements.
func (ds *DataStore) GetRecentMeasurements(ctx context.Context, limit int) ([]MeasurementRecord, error) {
	if err := ds.checkOpen("get_recent_measurements"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentMeasurements
	}
	var records []MeasurementRecord
	err := ds.DB.WithContext(ctx).
		Table("measurements AS m").
		Select("m.id, m.sensor_id, COALESCE(s.location, '') AS location, m.radiation_level, m.status, m.cycle, m.timestamp").
		Joins("LEFT JOIN sensors AS s ON s.sensor_id = m.sensor_id").
		Order("m.timestamp DESC, m.id DESC").
		Limit(limit).
		Scan(&records).Error
	if err != nil {
		return nil, dbError(err, "get_recent_measurements", errors.PriorityMedium, "limit", limit)
	}
	return records, nil
}

// GetRecentAlerts returns the newest alerts first. limit <= 0 means
// DefaultRecentAlerts.
func (ds *DataStore) GetRecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	if err := ds.checkOpen("get_recent_alerts"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentAlerts
	}
	var alerts []Alert
	if err := ds.DB.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, dbError(err, "get_recent_alerts", errors.PriorityMedium, "limit", limit)
	}
	return alerts, nil
}

// ClearAlerts deletes every persisted alert and returns how many were removed.
func (ds *DataStore) ClearAlerts(ctx context.Context) (int64, error) {
	if err := ds.checkOpen("clear_alerts"); err != nil {
		return 0, err
	}
	result := ds.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&Alert{})
	if result.Error != nil {
		return 0, dbError(result.Error, "clear_alerts", errors.PriorityHigh)
	}
	GetLogger().Info("alert log cleared", logger.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

// closeDB releases the underlying connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", errors.PriorityMedium, "db_type", dbType)
	}
	ds.DB = nil
	return nil
}
