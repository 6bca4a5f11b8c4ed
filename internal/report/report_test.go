package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
)

type fakeSource struct {
	aggregates   []datastore.DailyAggregate
	summary      datastore.Summary
	alerts       []datastore.Alert
	measurements []datastore.MeasurementRecord
	err          error

	from, to time.Time
}

func (f *fakeSource) GetAggregates(_ context.Context, from, to time.Time) ([]datastore.DailyAggregate, error) {
	f.from, f.to = from, to
	return f.aggregates, f.err
}

func (f *fakeSource) GetSummary(context.Context) (datastore.Summary, error) {
	return f.summary, f.err
}

func (f *fakeSource) GetAlertsBetween(_ context.Context, from, to time.Time) ([]datastore.Alert, error) {
	f.from, f.to = from, to
	return f.alerts, f.err
}

func (f *fakeSource) GetMeasurementsBetween(_ context.Context, from, to time.Time) ([]datastore.MeasurementRecord, error) {
	f.from, f.to = from, to
	return f.measurements, f.err
}

var fixedNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func newTestGenerator(src Source) *Generator {
	g := NewGenerator(src)
	g.now = func() time.Time { return fixedNow }
	return g
}

func render(t *testing.T, g *Generator, kind Kind) [][]string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, g.Write(t.Context(), kind, &buf))
	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{Daily, "radiation_daily_report_20260315.csv"},
		{Weekly, "radiation_weekly_report_20260308_to_20260315.csv"},
		{Monthly, "radiation_monthly_report_202602.csv"},
		{Statistical, "radiation_statistical_report_20260315_1430.csv"},
		{Events, "radiation_events_report_20260315_1430.csv"},
		{Export, "radiation_export_20260315_1430.csv"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Filename(tt.kind, fixedNow))
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("yearly")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestDailyReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{aggregates: []datastore.DailyAggregate{
		{SensorID: "Д-124", Avg: 0.5, Max: 1.25, Min: 0.1, Count: 12},
	}}
	records := render(t, newTestGenerator(src), Daily)

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), src.from)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), src.to)

	require.Len(t, records, 5)
	assert.Equal(t, "Дата: 2026-03-15", records[1][0])
	assert.Equal(t, []string{"Датчик", "Средний уровень", "Максимум", "Минимум", "Измерений"}, records[3])
	assert.Equal(t, []string{"Д-124", "0.50 мкЗв/ч", "1.25 мкЗв/ч", "0.10 мкЗв/ч", "12"}, records[4])
}

func TestPeriodReports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     Kind
		wantFrom time.Time
		period   string
	}{
		{Weekly, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), "Период: 2026-03-08 - 2026-03-15"},
		{Monthly, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), "Период: 2026-02-13 - 2026-03-15"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			src := &fakeSource{}
			records := render(t, newTestGenerator(src), tt.kind)
			assert.Equal(t, tt.wantFrom, src.from)
			assert.Equal(t, tt.period, records[1][0])
			assert.Equal(t, "Датчик", records[3][0])
		})
	}
}

func TestStatisticalReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{summary: datastore.Summary{Total: 8, Avg: 0.4567, Max: 3.1, Min: 0.05, Exceedances: 2}}
	records := render(t, newTestGenerator(src), Statistical)

	rows := map[string]string{}
	for _, r := range records {
		if len(r) == 2 {
			rows[r[0]] = r[1]
		}
	}
	assert.Equal(t, "8", rows["Всего измерений"])
	assert.Equal(t, "0.457 мкЗв/ч", rows["Средний уровень"])
	assert.Equal(t, "3.10 мкЗв/ч", rows["Максимальный уровень"])
	assert.Equal(t, "2", rows["Количество предупреждений"])
	assert.Equal(t, "25.0%", rows["Процент аномалий"])
}

func TestStatisticalReportEmpty(t *testing.T) {
	t.Parallel()

	records := render(t, newTestGenerator(&fakeSource{}), Statistical)
	assert.Equal(t, []string{"Процент аномалий", "0.0%"}, records[len(records)-1])
}

func TestEventsReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{alerts: []datastore.Alert{{
		ID:             "a1",
		SensorID:       "D-1",
		AlertType:      "CRITICAL",
		ThresholdValue: 2.5,
		ActualValue:    3,
		Timestamp:      time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}}}
	records := render(t, newTestGenerator(src), Events)

	assert.True(t, src.from.IsZero())
	assert.True(t, src.to.After(fixedNow))
	assert.Equal(t, []string{"Время", "Датчик", "Тип события", "Фактический уровень", "Пороговый уровень"}, records[3])
	assert.Equal(t, []string{"2026-03-15 09:00:00", "D-1", "CRITICAL", "3.00 мкЗв/ч", "2.5 мкЗв/ч"}, records[4])
}

func TestExportReport(t *testing.T) {
	t.Parallel()

	src := &fakeSource{measurements: []datastore.MeasurementRecord{{
		SensorID:       "D-1",
		Location:       "Цех 1",
		RadiationLevel: 0.123,
		Status:         "NORMAL",
		Timestamp:      time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}}}
	records := render(t, newTestGenerator(src), Export)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"2026-03-15 09:00:00", "D-1", "Цех 1", "0.12 мкЗв/ч", "NORMAL"}, records[1])
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()

	boom := errors.NewStd("database is locked")
	g := newTestGenerator(&fakeSource{err: boom})
	for _, k := range Kinds {
		err := g.Write(t.Context(), k, &bytes.Buffer{})
		require.ErrorIs(t, err, boom, "kind %s", k)
	}

	err := g.Write(t.Context(), Kind("yearly"), &bytes.Buffer{})
	require.Error(t, err)
}

func TestGenerateWritesFileWithBOM(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	g := newTestGenerator(&fakeSource{summary: datastore.Summary{Total: 1}})

	path, err := g.Generate(t.Context(), Statistical, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "radiation_statistical_report_20260315_1430.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(utf8BOM)))
	assert.True(t, strings.Contains(string(data), "Всего измерений,1"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestGenerateFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := newTestGenerator(&fakeSource{err: errors.NewStd("boom")})

	_, err := g.Generate(t.Context(), Daily, dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
