package backup

import (
	"os"
	"time"
)

// File system permission constants
const (
	// PermBackupDir is the permission for backup directories (owner + group read)
	PermBackupDir os.FileMode = 0o750

	// PermBackupFile is the permission for backup files (owner + group read)
	PermBackupFile os.FileMode = 0o640
)

// Byte size constants for readable calculations
const (
	KB = 1024
	MB = KB * 1024
	GB = MB * 1024
)

// SpaceBufferMultiplier is the multiplier for calculating required disk space
// (e.g., 1.1 = 10% buffer over actual file size)
const SpaceBufferMultiplier = 1.1

// Default timeout constants for backup operations
const (
	// DefaultBackupTimeout bounds a whole Run
	DefaultBackupTimeout = 30 * time.Minute

	// DefaultStoreTimeout is the default timeout for storing a backup to a single target
	DefaultStoreTimeout = 10 * time.Minute
)

// FilePrefix starts every backup file name.
const FilePrefix = "radiation_system_backup_"

// timestampLayout follows FilePrefix.
const timestampLayout = "20060102_150405"
