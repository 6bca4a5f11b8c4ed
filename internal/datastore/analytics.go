package datastore

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

// dayBounds returns [start, end) of the calendar day containing t, in t's
// location, converted to UTC for querying.
func dayBounds(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// GetStatistics summarizes the persisted history. "Today" is the calendar
// day of now in now's location.
func (ds *DataStore) GetStatistics(ctx context.Context, now time.Time) (Statistics, error) {
	var stats Statistics
	if err := ds.checkOpen("get_statistics"); err != nil {
		return stats, err
	}
	db := ds.DB.WithContext(ctx)
	start, end := dayBounds(now)

	counts := []struct {
		name  string
		query *gorm.DB
		dest  *int64
	}{
		{"total_measurements", db.Model(&Measurement{}), &stats.TotalMeasurements},
		{"today_measurements", db.Model(&Measurement{}).Where("timestamp >= ? AND timestamp < ?", start, end), &stats.TodayMeasurements},
		{"exceedances", db.Model(&Measurement{}).Where("status <> ?", radiation.StatusNormal.String()), &stats.Exceedances},
		{"active_sensors", db.Model(&Sensor{}).Where("status = ?", string(radiation.SensorActive)), &stats.ActiveSensors},
		{"pending_alerts", db.Model(&Alert{}).Where("notified = ?", false), &stats.PendingAlerts},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return stats, dbError(err, "get_statistics", errors.PriorityMedium, "count", c.name)
		}
	}

	var last Measurement
	err := db.Order("timestamp DESC").Limit(1).Take(&last).Error
	switch {
	case err == nil:
		ts := last.Timestamp
		stats.LastUpdate = &ts
	case !stderrors.Is(err, gorm.ErrRecordNotFound):
		return stats, dbError(err, "get_statistics", errors.PriorityMedium, "count", "last_update")
	}
	return stats, nil
}

// GetDailyAggregates returns per-sensor avg/max/min/count for the calendar
// day containing day, ordered by sensor id.
func (ds *DataStore) GetDailyAggregates(ctx context.Context, day time.Time) ([]DailyAggregate, error) {
	start, end := dayBounds(day)
	return ds.GetAggregates(ctx, start, end)
}

// GetAggregates returns per-sensor avg/max/min/count for measurements in
// [from, to), ordered by sensor id.
func (ds *DataStore) GetAggregates(ctx context.Context, from, to time.Time) ([]DailyAggregate, error) {
	if err := ds.checkOpen("get_aggregates"); err != nil {
		return nil, err
	}

	var rows []DailyAggregate
	err := ds.DB.WithContext(ctx).
		Model(&Measurement{}).
		Select("sensor_id, AVG(radiation_level) AS avg, MAX(radiation_level) AS max, MIN(radiation_level) AS min, COUNT(*) AS count").
		Where("timestamp >= ? AND timestamp < ?", from.UTC(), to.UTC()).
		Group("sensor_id").
		Order("sensor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "get_aggregates", errors.PriorityMedium,
			"from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly))
	}
	return rows, nil
}

// GetSummary returns all-time level statistics over every measurement.
func (ds *DataStore) GetSummary(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := ds.checkOpen("get_summary"); err != nil {
		return sum, err
	}
	err := ds.DB.WithContext(ctx).
		Model(&Measurement{}).
		Select("COUNT(*) AS total, COALESCE(AVG(radiation_level), 0) AS avg, "+
			"COALESCE(MAX(radiation_level), 0) AS max, COALESCE(MIN(radiation_level), 0) AS min, "+
			"COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) AS exceedances", radiation.StatusNormal.String()).
		Scan(&sum).Error
	if err != nil {
		return sum, dbError(err, "get_summary", errors.PriorityMedium)
	}
	return sum, nil
}

// GetMeasurementsBetween returns measurements in [from, to) oldest first,
// joined with the sensor location.
func (ds *DataStore) GetMeasurementsBetween(ctx context.Context, from, to time.Time) ([]MeasurementRecord, error) {
	if err := ds.checkOpen("get_measurements_between"); err != nil {
		return nil, err
	}
	var records []MeasurementRecord
	err := ds.DB.WithContext(ctx).
		Table("measurements AS m").
		Select("m.id, m.sensor_id, COALESCE(s.location, '') AS location, m.radiation_level, m.status, m.cycle, m.timestamp").
		Joins("LEFT JOIN sensors AS s ON s.sensor_id = m.sensor_id").
		Where("m.timestamp >= ? AND m.timestamp < ?", from.UTC(), to.UTC()).
		Order("m.timestamp, m.id").
		Scan(&records).Error
	if err != nil {
		return nil, dbError(err, "get_measurements_between", errors.PriorityMedium)
	}
	return records, nil
}

// GetAlertsBetween returns alerts in [from, to) newest first.
func (ds *DataStore) GetAlertsBetween(ctx context.Context, from, to time.Time) ([]Alert, error) {
	if err := ds.checkOpen("get_alerts_between"); err != nil {
		return nil, err
	}
	var alerts []Alert
	err := ds.DB.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", from.UTC(), to.UTC()).
		Order("timestamp DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, dbError(err, "get_alerts_between", errors.PriorityMedium)
	}
	return alerts, nil
}
