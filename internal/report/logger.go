package report

import "github.com/androsik2006/radmon/internal/logger"

// GetLogger returns the report package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("report")
}
