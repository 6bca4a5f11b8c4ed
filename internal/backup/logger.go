// Package backup copies the measurement database to a timestamped file and
// stores it on the configured targets.
package backup

import "github.com/androsik2006/radmon/internal/logger"

// GetLogger returns the backup package logger scoped to the backup module.
// The logger is fetched from the global logger each time to ensure it uses
// the current centralized logger (which may be set after package init).
func GetLogger() logger.Logger {
	return logger.Global().Module("backup")
}
