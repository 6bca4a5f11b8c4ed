package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/androsik2006/radmon/internal/logger"
)

// collectNow handles POST /api/v1/collect and returns the cycle summary.
func (s *Server) collectNow(c echo.Context) error {
	if s.collector == nil {
		return s.unavailable(c, "collection scheduler")
	}
	ev, err := s.collector.CollectNow(c.Request().Context())
	if err != nil {
		return s.handleErr(c, err, "Collection cycle failed")
	}
	s.statsCache.Flush()
	return c.JSON(http.StatusOK, ev)
}

// runBackup handles POST /api/v1/backup
func (s *Server) runBackup(c echo.Context) error {
	if s.backups == nil {
		return s.unavailable(c, "backup manager")
	}
	res, err := s.backups.Run(c.Request().Context())
	if err != nil {
		return s.handleErr(c, err, "Backup failed")
	}
	s.log.Info("backup requested via API",
		logger.String("backup_id", res.ID),
		logger.Int("targets", len(res.Targets)))
	return c.JSON(http.StatusOK, res)
}

// reloadConfig handles POST /api/v1/config/reload. An invalid file leaves
// the running configuration in place.
func (s *Server) reloadConfig(c echo.Context) error {
	if s.reloader == nil {
		return s.unavailable(c, "configuration manager")
	}
	if err := s.reloader.Reload(); err != nil {
		return s.handleErr(c, err, "Configuration reload rejected")
	}
	return c.JSON(http.StatusOK, controlResult(ActionReload, "Конфигурация перезагружена"))
}
