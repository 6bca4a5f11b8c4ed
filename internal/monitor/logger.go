package monitor

import "github.com/androsik2006/radmon/internal/logger"

// GetLogger returns the monitor package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("monitor")
}
