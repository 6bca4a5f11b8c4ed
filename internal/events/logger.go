package events

import "github.com/androsik2006/radmon/internal/logger"

// GetLogger returns the events package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("events")
}
