package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

var testThresholds = radiation.Thresholds{Warning: 1.0, Danger: 2.5}

// setupTestDB opens a fresh SQLite database in a temp dir.
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	store := &SQLiteStore{Settings: &conf.DatabaseSettings{
		Type:   "sqlite",
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "radmon.db")},
	}}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newReading(t *testing.T, sensorID string, value float64, ts time.Time, cycle uint64) radiation.Reading {
	t.Helper()
	r, err := radiation.NewReading(sensorID, value, ts, testThresholds, cycle)
	require.NoError(t, err)
	return r
}

func testSensors() []radiation.SensorDescriptor {
	return []radiation.SensorDescriptor{
		{ID: "Д-124", Name: "Датчик радиации А-1", Location: "Участок А-1", Status: radiation.SensorActive,
			CalibrationDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "Д-128", Name: "Датчик радиации Б-3", Location: "Участок Б-3", Status: radiation.SensorActive,
			Thresholds: &radiation.Thresholds{Warning: 0.5, Danger: 1.5}},
	}
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	s, err := New(&conf.DatabaseSettings{Type: "sqlite"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	m, err := New(&conf.DatabaseSettings{Type: "mysql"})
	require.NoError(t, err)
	assert.IsType(t, &MySQLStore{}, m)

	_, err = New(&conf.DatabaseSettings{Type: "csv"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestUnopenedStoreFails(t *testing.T) {
	t.Parallel()

	store := &SQLiteStore{Settings: &conf.DatabaseSettings{Type: "sqlite"}}
	err := store.RecordReading(t.Context(), radiation.Reading{SensorID: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestSensorRegistry(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	require.NoError(t, store.SyncSensors(ctx, testSensors()))
	require.NoError(t, store.SetSensorStatus(ctx, "Д-128", radiation.SensorDisabled))

	// a second sync updates descriptive fields but keeps the operator status
	updated := testSensors()
	updated[1].Location = "Участок Б-4"
	require.NoError(t, store.SyncSensors(ctx, updated))

	sensors, err := store.GetSensors(ctx)
	require.NoError(t, err)
	require.Len(t, sensors, 2)

	byID := map[string]Sensor{}
	for _, s := range sensors {
		byID[s.SensorID] = s
	}
	assert.Equal(t, "disabled", byID["Д-128"].Status)
	assert.Equal(t, "Участок Б-4", byID["Д-128"].Location)

	d := byID["Д-128"].Descriptor()
	require.NotNil(t, d.Thresholds)
	assert.InDelta(t, 0.5, d.Thresholds.Warning, 1e-9)
	assert.Nil(t, byID["Д-124"].Descriptor().Thresholds)
	assert.True(t, byID["Д-124"].Descriptor().CalibrationDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))

	err = store.SetSensorStatus(ctx, "missing", radiation.SensorActive)
	assert.True(t, errors.IsNotFound(err))
	err = store.SetSensorStatus(ctx, "Д-124", "broken")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestAlertLifecycle(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()

	a, ok := radiation.NewAlertEvent(newReading(t, "Д-124", 3.0, time.Now(), 1))
	require.True(t, ok)
	require.NoError(t, store.RecordAlert(ctx, a))

	// duplicate ids are rejected as persistence failures
	err := store.RecordAlert(ctx, a)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPersistence)

	alerts, err := store.GetRecentAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Notified)
	assert.Equal(t, radiation.AlertCritical, alerts[0].Event().Type)
	assert.InDelta(t, 2.5, alerts[0].ThresholdValue, 1e-9)

	require.NoError(t, store.MarkNotified(ctx, a.ID))
	require.NoError(t, store.MarkNotified(ctx, a.ID), "idempotent")
	assert.True(t, errors.IsNotFound(store.MarkNotified(ctx, "no-such-alert")))

	alerts, err = store.GetRecentAlerts(ctx, 10)
	require.NoError(t, err)
	assert.True(t, alerts[0].Notified)

	deleted, err := store.ClearAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	alerts, err = store.GetRecentAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestRecentMeasurementsJoinLocation(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()
	require.NoError(t, store.SyncSensors(ctx, testSensors()))

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, store.RecordReading(ctx, newReading(t, "Д-124", 0.1*float64(i+1), base.Add(time.Duration(i)*time.Second), uint64(i+1))))
	}
	require.NoError(t, store.RecordReading(ctx, newReading(t, "unregistered", 0.2, base.Add(time.Minute), 6)))

	records, err := store.GetRecentMeasurements(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "unregistered", records[0].SensorID, "newest first")
	assert.Empty(t, records[0].Location)
	assert.Equal(t, "Участок А-1", records[1].Location)
	assert.Equal(t, uint64(5), records[1].Cycle)
	assert.InDelta(t, 0.5, records[1].RadiationLevel, 1e-9)
}

func TestStatisticsAndDailyAggregates(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()
	require.NoError(t, store.SyncSensors(ctx, testSensors()))
	require.NoError(t, store.SetSensorStatus(ctx, "Д-128", radiation.SensorDisabled))

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := day.Add(-2 * time.Hour)
	readings := []radiation.Reading{
		newReading(t, "Д-124", 0.5, day.Add(1*time.Hour), 1),
		newReading(t, "Д-124", 1.5, day.Add(2*time.Hour), 2),
		newReading(t, "Д-128", 3.0, day.Add(3*time.Hour), 3),
		newReading(t, "Д-124", 0.2, yesterday, 0),
	}
	for _, r := range readings {
		require.NoError(t, store.RecordReading(ctx, r))
	}
	a, _ := radiation.NewAlertEvent(readings[2])
	require.NoError(t, store.RecordAlert(ctx, a))

	stats, err := store.GetStatistics(ctx, day.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalMeasurements)
	assert.Equal(t, int64(3), stats.TodayMeasurements)
	assert.Equal(t, int64(2), stats.Exceedances)
	assert.Equal(t, int64(1), stats.ActiveSensors)
	assert.Equal(t, int64(1), stats.PendingAlerts)
	require.NotNil(t, stats.LastUpdate)
	assert.True(t, stats.LastUpdate.Equal(day.Add(3*time.Hour)))

	aggs, err := store.GetDailyAggregates(ctx, day)
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "Д-124", aggs[0].SensorID)
	assert.Equal(t, int64(2), aggs[0].Count)
	assert.InDelta(t, 1.0, aggs[0].Avg, 1e-9)
	assert.InDelta(t, 1.5, aggs[0].Max, 1e-9)
	assert.InDelta(t, 0.5, aggs[0].Min, 1e-9)
	assert.Equal(t, int64(1), aggs[1].Count)

	empty, err := store.GetDailyAggregates(ctx, day.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRangeQueries(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()
	require.NoError(t, store.SyncSensors(ctx, testSensors()))

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	readings := []radiation.Reading{
		newReading(t, "Д-124", 0.4, start.AddDate(0, 0, 1), 1),
		newReading(t, "Д-128", 0.8, start.AddDate(0, 0, 2), 2),
		newReading(t, "Д-124", 2.6, start.AddDate(0, 0, 3), 3),
		newReading(t, "Д-124", 0.1, start.AddDate(0, 0, 10), 4),
	}
	for _, r := range readings {
		require.NoError(t, store.RecordReading(ctx, r))
	}
	a, _ := radiation.NewAlertEvent(readings[2])
	require.NoError(t, store.RecordAlert(ctx, a))

	week := start.AddDate(0, 0, 7)
	aggs, err := store.GetAggregates(ctx, start, week)
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, int64(2), aggs[0].Count)
	assert.InDelta(t, 1.5, aggs[0].Avg, 1e-9)

	records, err := store.GetMeasurementsBetween(ctx, start, week)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(1), records[0].Cycle, "oldest first")
	assert.Equal(t, "Участок Б-3", records[1].Location)

	alerts, err := store.GetAlertsBetween(ctx, start, week)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, string(radiation.AlertCritical), alerts[0].AlertType)

	none, err := store.GetAlertsBetween(ctx, week, week.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, none)

	sum, err := store.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Total)
	assert.InDelta(t, 0.975, sum.Avg, 1e-9)
	assert.InDelta(t, 2.6, sum.Max, 1e-9)
	assert.InDelta(t, 0.1, sum.Min, 1e-9)
	assert.Equal(t, int64(1), sum.Exceedances)
}

func TestStatisticsOnEmptyDatabase(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	stats, err := store.GetStatistics(t.Context(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMeasurements)
	assert.Nil(t, stats.LastUpdate)

	sum, err := store.GetSummary(t.Context())
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestSQLiteBackup(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)
	ctx := t.Context()
	require.NoError(t, store.RecordReading(ctx, newReading(t, "Д-124", 0.4, time.Now(), 1)))

	dest := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, store.Backup(ctx, dest))
	assert.FileExists(t, dest)

	copied := &SQLiteStore{Settings: &conf.DatabaseSettings{Type: "sqlite", SQLite: conf.SQLiteSettings{Path: dest}}}
	require.NoError(t, copied.Open())
	t.Cleanup(func() { _ = copied.Close() })
	records, err := copied.GetRecentMeasurements(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Error(t, store.Backup(ctx, dest), "existing destination is refused")
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	store := &MySQLStore{Settings: &conf.DatabaseSettings{MySQL: conf.MySQLSettings{
		Host: "db.local", Port: 3307, Username: "radmon", Password: "p@ss", Database: "radiation",
	}}}
	dsn := store.DSN()
	assert.Contains(t, dsn, "radmon:p@ss@tcp(db.local:3307)/radiation")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	err := store.Backup(t.Context(), "unused")
	assert.True(t, errors.IsCategory(err, errors.CategoryBackup))
	assert.ErrorIs(t, err, ErrBackupUnsupported)
}
