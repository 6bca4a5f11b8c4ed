package alerting

import "github.com/androsik2006/radmon/internal/logger"

// GetLogger returns the alerting package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("alerting")
}
