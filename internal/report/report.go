// Package report renders operator reports from the persisted history as CSV.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// Kind selects a report.
type Kind string

const (
	Daily       Kind = "daily"
	Weekly      Kind = "weekly"
	Monthly     Kind = "monthly"
	Statistical Kind = "statistical"
	Events      Kind = "events"
	Export      Kind = "export"
)

// Kinds lists every report kind.
var Kinds = []Kind{Daily, Weekly, Monthly, Statistical, Events, Export}

// ParseKind validates a report kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Newf("unknown report kind %q", s).
		Component("report").
		Category(errors.CategoryValidation).
		Build()
}

const (
	unit          = " мкЗв/ч"
	generatedTime = "02.01.2006 15:04:05"

	// utf8BOM keeps spreadsheet applications from garbling Cyrillic text.
	utf8BOM = "\xEF\xBB\xBF"
)

// Source is the subset of the datastore reports read from.
type Source interface {
	GetAggregates(ctx context.Context, from, to time.Time) ([]datastore.DailyAggregate, error)
	GetSummary(ctx context.Context) (datastore.Summary, error)
	GetAlertsBetween(ctx context.Context, from, to time.Time) ([]datastore.Alert, error)
	GetMeasurementsBetween(ctx context.Context, from, to time.Time) ([]datastore.MeasurementRecord, error)
}

// Generator renders reports relative to the current time.
type Generator struct {
	src Source
	now func() time.Time
	log logger.Logger
}

// NewGenerator creates a Generator reading from src.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src, now: time.Now, log: GetLogger()}
}

// Filename returns the file name for a report generated at now.
func Filename(kind Kind, now time.Time) string {
	today := now.Format("20060102")
	stamp := now.Format("20060102_1504")
	switch kind {
	case Daily:
		return "radiation_daily_report_" + today + ".csv"
	case Weekly:
		return fmt.Sprintf("radiation_weekly_report_%s_to_%s.csv", now.AddDate(0, 0, -7).Format("20060102"), today)
	case Monthly:
		return "radiation_monthly_report_" + now.AddDate(0, 0, -30).Format("200601") + ".csv"
	case Statistical:
		return "radiation_statistical_report_" + stamp + ".csv"
	case Events:
		return "radiation_events_report_" + stamp + ".csv"
	default:
		return "radiation_export_" + stamp + ".csv"
	}
}

// Write renders kind to w.
func (g *Generator) Write(ctx context.Context, kind Kind, w io.Writer) error {
	now := g.now()
	cw := csv.NewWriter(w)

	var err error
	switch kind {
	case Daily:
		err = g.writeAggregates(ctx, cw, now, 0, []string{"Суточный отчет по уровню радиации", "Дата: " + now.Format(time.DateOnly)})
	case Weekly:
		err = g.writeAggregates(ctx, cw, now, 7, []string{"Недельный отчет по уровню радиации"})
	case Monthly:
		err = g.writeAggregates(ctx, cw, now, 30, []string{"Месячный отчет по уровню радиации"})
	case Statistical:
		err = g.writeStatistical(ctx, cw, now)
	case Events:
		err = g.writeEvents(ctx, cw, now)
	case Export:
		err = g.writeExport(ctx, cw, now)
	default:
		_, err = ParseKind(string(kind))
	}
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Render returns the file name and the BOM-prefixed content of kind.
func (g *Generator) Render(ctx context.Context, kind Kind) (string, []byte, error) {
	now := g.now()
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	if err := g.Write(ctx, kind, &buf); err != nil {
		return "", nil, err
	}
	return Filename(kind, now), buf.Bytes(), nil
}

// Generate writes kind into dir and returns the file path.
func (g *Generator) Generate(ctx context.Context, kind Kind, dir string) (string, error) {
	name, data, err := g.Render(ctx, kind)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fileError(err, dir)
	}
	path := filepath.Join(dir, name)
	if err := writeAtomic(path, data); err != nil {
		return "", fileError(err, path)
	}
	g.log.Info("report created",
		logger.String("kind", string(kind)),
		logger.String("path", path))
	return path, nil
}

// writeAggregates renders per-sensor statistics. days == 0 means the current
// calendar day; otherwise the period is the last days calendar days
// including today.
func (g *Generator) writeAggregates(ctx context.Context, cw *csv.Writer, now time.Time, days int, title []string) error {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	from, to := today.AddDate(0, 0, -days), today.AddDate(0, 0, 1)

	rows, err := g.src.GetAggregates(ctx, from, to)
	if err != nil {
		return err
	}

	records := [][]string{title}
	if days > 0 {
		records = append(records, []string{fmt.Sprintf("Период: %s - %s", from.Format(time.DateOnly), today.Format(time.DateOnly))})
	}
	records = append(records, []string{}, []string{"Датчик", "Средний уровень", "Максимум", "Минимум", "Измерений"})
	for _, r := range rows {
		records = append(records, []string{
			r.SensorID,
			level(r.Avg, 2),
			level(r.Max, 2),
			level(r.Min, 2),
			strconv.FormatInt(r.Count, 10),
		})
	}
	return cw.WriteAll(records)
}

func (g *Generator) writeStatistical(ctx context.Context, cw *csv.Writer, now time.Time) error {
	sum, err := g.src.GetSummary(ctx)
	if err != nil {
		return err
	}
	share := 0.0
	if sum.Total > 0 {
		share = float64(sum.Exceedances) / float64(sum.Total) * 100
	}
	return cw.WriteAll([][]string{
		{"Статистический отчет системы контроля радиации"},
		{"Сформирован: " + now.Format(generatedTime)},
		{},
		{"Параметр", "Значение"},
		{"Всего измерений", strconv.FormatInt(sum.Total, 10)},
		{"Средний уровень", level(sum.Avg, 3)},
		{"Максимальный уровень", level(sum.Max, 2)},
		{"Минимальный уровень", level(sum.Min, 2)},
		{"Количество предупреждений", strconv.FormatInt(sum.Exceedances, 10)},
		{"Процент аномалий", strconv.FormatFloat(share, 'f', 1, 64) + "%"},
	})
}

func (g *Generator) writeEvents(ctx context.Context, cw *csv.Writer, now time.Time) error {
	alerts, err := g.src.GetAlertsBetween(ctx, time.Time{}, now.Add(time.Second))
	if err != nil {
		return err
	}
	records := [][]string{
		{"Отчет по событиям системы контроля радиации"},
		{"Сформирован: " + now.Format(generatedTime)},
		{},
		{"Время", "Датчик", "Тип события", "Фактический уровень", "Пороговый уровень"},
	}
	for _, a := range alerts {
		records = append(records, []string{
			a.Timestamp.In(now.Location()).Format(time.DateTime),
			a.SensorID,
			a.AlertType,
			level(a.ActualValue, 2),
			strconv.FormatFloat(a.ThresholdValue, 'f', -1, 64) + unit,
		})
	}
	return cw.WriteAll(records)
}

func (g *Generator) writeExport(ctx context.Context, cw *csv.Writer, now time.Time) error {
	data, err := g.src.GetMeasurementsBetween(ctx, time.Time{}, now.Add(time.Second))
	if err != nil {
		return err
	}
	records := [][]string{{"Время", "Датчик", "Участок", "Уровень радиации", "Статус"}}
	for _, m := range data {
		records = append(records, []string{
			m.Timestamp.In(now.Location()).Format(time.DateTime),
			m.SensorID,
			m.Location,
			level(m.RadiationLevel, 2),
			m.Status,
		})
	}
	return cw.WriteAll(records)
}

// writeAtomic writes data next to path and renames it into place so readers
// never see a partial report.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func level(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64) + unit
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("report").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
