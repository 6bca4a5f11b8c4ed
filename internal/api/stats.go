package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/report"
)

const statsCacheKey = "statistics"

// DailyStatistics holds per-sensor aggregates of one calendar day.
type DailyStatistics struct {
	Date    string                     `json:"date"`
	Sensors []datastore.DailyAggregate `json:"sensors"`
}

// getStatistics handles GET /api/v1/stats. Results are cached for
// StatsCacheTTL; collection and clearing alerts drop the cache.
func (s *Server) getStatistics(c echo.Context) error {
	if s.store == nil {
		return s.unavailable(c, "datastore")
	}
	if cached, found := s.statsCache.Get(statsCacheKey); found {
		if stats, ok := cached.(datastore.Statistics); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSON(http.StatusOK, stats)
		}
	}

	stats, err := s.store.GetStatistics(c.Request().Context(), time.Now())
	if err != nil {
		return s.handleErr(c, err, "Failed to load statistics")
	}
	s.statsCache.SetDefault(statsCacheKey, stats)
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSON(http.StatusOK, stats)
}

// getDailyStatistics handles GET /api/v1/stats/daily?date=YYYY-MM-DD
func (s *Server) getDailyStatistics(c echo.Context) error {
	if s.store == nil {
		return s.unavailable(c, "datastore")
	}
	day := time.Now()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return s.HandleError(c, err, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		}
		day = parsed
	}

	aggs, err := s.store.GetDailyAggregates(c.Request().Context(), day)
	if err != nil {
		return s.handleErr(c, err, "Failed to load daily statistics")
	}
	return c.JSON(http.StatusOK, DailyStatistics{Date: day.Format(time.DateOnly), Sensors: aggs})
}

// listMeasurements handles GET /api/v1/measurements?limit=
func (s *Server) listMeasurements(c echo.Context) error {
	if s.store == nil {
		return s.unavailable(c, "datastore")
	}
	limit, err := intParam(c, "limit", datastore.DefaultRecentMeasurements, maxQueryLimit)
	if err != nil {
		return s.handleErr(c, err, "Invalid limit")
	}
	records, err := s.store.GetRecentMeasurements(c.Request().Context(), limit)
	if err != nil {
		return s.handleErr(c, err, "Failed to load measurements")
	}
	return c.JSON(http.StatusOK, records)
}

// downloadReport handles GET /api/v1/reports/:kind and streams the CSV.
func (s *Server) downloadReport(c echo.Context) error {
	if s.reports == nil {
		return s.unavailable(c, "datastore")
	}
	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		return s.handleErr(c, err, "Unknown report kind")
	}

	name, data, err := s.reports.Render(c.Request().Context(), kind)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryValidation) {
			return s.handleErr(c, err, "Invalid report request")
		}
		return s.HandleError(c, err, "Failed to generate report", http.StatusInternalServerError)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
