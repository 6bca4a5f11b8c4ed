package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

// SensorView is a sensor with its effective thresholds and newest reading.
type SensorView struct {
	ID              string                 `json:"sensor_id"`
	Name            string                 `json:"name"`
	Location        string                 `json:"location"`
	Status          radiation.SensorStatus `json:"status"`
	CalibrationDate *time.Time             `json:"calibration_date,omitempty"`
	Thresholds      radiation.Thresholds   `json:"thresholds"`
	Override        bool                   `json:"threshold_override"`
	Latest          *radiation.Reading     `json:"latest,omitempty"`
	Stale           bool                   `json:"stale"`
}

// SensorHistory is the reading window of one sensor, oldest first.
type SensorHistory struct {
	SensorID string              `json:"sensor_id"`
	Capacity int                 `json:"capacity"`
	Readings []radiation.Reading `json:"readings"`
}

// StatusRequest is the body of PUT /api/v1/sensors/:id/status.
type StatusRequest struct {
	Status radiation.SensorStatus `json:"status"`
}

// StatusResult reports a sensor status change.
type StatusResult struct {
	SensorID  string                 `json:"sensor_id"`
	Status    radiation.SensorStatus `json:"status"`
	Persisted bool                   `json:"persisted"`
	Warning   string                 `json:"warning,omitempty"`
}

// listSensors handles GET /api/v1/sensors
func (s *Server) listSensors(c echo.Context) error {
	snap := s.snapshot()
	sensors := snap.Sensors()
	if s.sensors != nil {
		sensors = s.sensors.Sensors()
	}

	views := make([]SensorView, 0, len(sensors))
	for _, d := range sensors {
		v := SensorView{
			ID:         d.ID,
			Name:       d.Name,
			Location:   d.Location,
			Status:     d.Status,
			Thresholds: snap.ThresholdsFor(d),
			Override:   d.Thresholds != nil,
			Stale:      s.history.IsStale(d.ID),
		}
		if !d.CalibrationDate.IsZero() {
			cal := d.CalibrationDate
			v.CalibrationDate = &cal
		}
		if r, ok := s.history.Latest(d.ID); ok {
			v.Latest = &r
		}
		views = append(views, v)
	}
	return c.JSON(http.StatusOK, views)
}

// setSensorStatus handles PUT /api/v1/sensors/:id/status
func (s *Server) setSensorStatus(c echo.Context) error {
	if s.sensors == nil {
		return s.unavailable(c, "sensor registry")
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "Invalid request body", http.StatusBadRequest)
	}

	id := c.Param("id")
	err := s.sensors.SetStatus(c.Request().Context(), id, req.Status)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, StatusResult{SensorID: id, Status: req.Status, Persisted: true})
	case errors.IsCategory(err, errors.CategoryValidation), errors.IsCategory(err, errors.CategoryNotFound):
		return s.handleErr(c, err, "Failed to change sensor status")
	default:
		// The change applies to the next cycle even though it was not stored.
		return c.JSON(http.StatusAccepted, StatusResult{
			SensorID: id,
			Status:   req.Status,
			Warning:  err.Error(),
		})
	}
}

// sensorHistory handles GET /api/v1/sensors/:id/history?n=
func (s *Server) sensorHistory(c echo.Context) error {
	id := c.Param("id")
	if _, ok := s.snapshot().Sensor(id); !ok {
		return s.HandleError(c, nil, "Unknown sensor "+id, http.StatusNotFound)
	}
	n, err := s.windowParam(c)
	if err != nil {
		return s.handleErr(c, err, "Invalid window size")
	}
	return c.JSON(http.StatusOK, SensorHistory{
		SensorID: id,
		Capacity: s.history.Capacity(),
		Readings: s.history.Recent(id, n),
	})
}

// alignedHistory handles GET /api/v1/history?n= and returns every sensor
// aligned to the shared cycle axis.
func (s *Server) alignedHistory(c echo.Context) error {
	n, err := s.windowParam(c)
	if err != nil {
		return s.handleErr(c, err, "Invalid window size")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"cycles": s.history.Cycles(n),
		"series": s.history.RecentAll(n),
	})
}

// windowParam parses ?n=, defaulting to the whole window. Values above the
// window size are rejected.
func (s *Server) windowParam(c echo.Context) (int, error) {
	return intParam(c, "n", s.history.Capacity(), s.history.Capacity())
}

// intParam parses a positive integer query parameter no larger than maxValue.
func intParam(c echo.Context, name string, def, maxValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxValue {
		return 0, errors.Newf("%s must be an integer between 1 and %d", name, maxValue).
			Component("api").
			Category(errors.CategoryValidation).
			Context("value", raw).
			Build()
	}
	return n, nil
}
