package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/radiation"
)

// maxQueryLimit bounds ?limit= on datastore listings.
const maxQueryLimit = 1000

// Control actions reported in ControlResult.Action.
const (
	ActionResetAlarms = "reset_alarms"
	ActionTestNotify  = "test_notification"
	ActionCollect     = "collect"
	ActionBackup      = "backup"
	ActionReload      = "reload_config"
	ActionClearAlerts = "clear_alerts"
)

// ControlResult is the response of an operator action.
type ControlResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func controlResult(action, message string) ControlResult {
	return ControlResult{Success: true, Message: message, Action: action, Timestamp: time.Now()}
}

// AlertLog is the in-memory alert log, oldest first.
type AlertLog struct {
	Alerts  []radiation.AlertEvent `json:"alerts"`
	Pending int                    `json:"pending"`
}

// ResetRequest is the optional body of POST /api/v1/alarms/reset.
type ResetRequest struct {
	Operator string `json:"operator"`
}

// listAlerts handles GET /api/v1/alerts?n=&pending=true
func (s *Server) listAlerts(c echo.Context) error {
	pending := s.history.PendingAlerts()
	if c.QueryParam("pending") == "true" {
		return c.JSON(http.StatusOK, AlertLog{Alerts: pending, Pending: len(pending)})
	}

	n, err := intParam(c, "n", 0, maxQueryLimit)
	if err != nil {
		return s.handleErr(c, err, "Invalid alert count")
	}
	return c.JSON(http.StatusOK, AlertLog{Alerts: s.history.Alerts(n), Pending: len(pending)})
}

// listStoredAlerts handles GET /api/v1/alerts/db?limit=
func (s *Server) listStoredAlerts(c echo.Context) error {
	if s.store == nil {
		return s.unavailable(c, "datastore")
	}
	limit, err := intParam(c, "limit", datastore.DefaultRecentAlerts, maxQueryLimit)
	if err != nil {
		return s.handleErr(c, err, "Invalid limit")
	}
	alerts, err := s.store.GetRecentAlerts(c.Request().Context(), limit)
	if err != nil {
		return s.handleErr(c, err, "Failed to load alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// clearAlerts handles DELETE /api/v1/alerts. Both the stored alerts and the
// in-memory log are emptied.
func (s *Server) clearAlerts(c echo.Context) error {
	var deleted int64
	if s.store != nil {
		var err error
		deleted, err = s.store.ClearAlerts(c.Request().Context())
		if err != nil {
			return s.handleErr(c, err, "Failed to clear alerts")
		}
	}
	s.history.ClearAlerts()
	s.statsCache.Flush()

	s.log.Info("alert log cleared", logger.Int64("deleted", deleted))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"action":  ActionClearAlerts,
		"deleted": deleted,
	})
}

// resetAlarms handles POST /api/v1/alarms/reset
func (s *Server) resetAlarms(c echo.Context) error {
	if s.alerter == nil {
		return s.unavailable(c, "alert dispatcher")
	}
	var req ResetRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return s.HandleError(c, err, "Invalid request body", http.StatusBadRequest)
		}
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		operator = "api:" + c.RealIP()
	}
	s.alerter.ResetAlarms(operator)
	return c.JSON(http.StatusOK, controlResult(ActionResetAlarms, "Аварийные сигналы сброшены"))
}

// sendTestNotification handles POST /api/v1/notify/test
func (s *Server) sendTestNotification(c echo.Context) error {
	if s.alerter == nil {
		return s.unavailable(c, "alert dispatcher")
	}
	if err := s.alerter.SendTest(c.Request().Context()); err != nil {
		return s.handleErr(c, err, "Failed to send test notification")
	}
	return c.JSON(http.StatusOK, controlResult(ActionTestNotify, "Тестовое уведомление отправлено"))
}
