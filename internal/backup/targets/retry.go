// Package targets stores backup archives on local disk, FTP and SFTP servers.
package targets

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/logger"
)

const (
	PermDirGroup   = 0o750
	PermFileGroup  = 0o640
	CopyBufferSize = 32 * 1024

	DefaultFTPPort = 21
	DefaultSSHPort = 22
	DefaultTimeout = 30 * time.Second

	tempPrefix = ".upload-"
)

// GetLogger returns the logger shared by all targets.
func GetLogger() logger.Logger {
	return logger.Global().Module("backup")
}

// RetryConfig bounds the attempts of one remote operation. Attempt n waits
// n*Backoff before the next one.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryConfig tries three times, one second apart at first.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, Backoff: time.Second}
}

var transientErrnos = []syscall.Errno{
	syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
	syscall.EPIPE, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.EAGAIN,
}

// Server libraries often flatten network errors into strings.
var transientMessages = []string{
	"connection reset", "connection refused", "connection closed",
	"broken pipe", "timeout", "temporary", "no route to host",
	"EOF", "ssh: handshake failed",
}

// IsTransientError reports whether retrying err may succeed.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range transientErrnos {
		if stderrors.Is(err, errno) {
			return true
		}
	}
	msg := err.Error()
	for _, s := range transientMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// WithRetry runs op until it succeeds, fails permanently or runs out of
// attempts.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	attempts := max(cfg.MaxRetries, 1)
	var err error
	for n := 1; n <= attempts; n++ {
		if ctx.Err() != nil {
			return backup.NewError(backup.ErrCanceled, "operation canceled", ctx.Err())
		}
		if err = op(); err == nil || !IsTransientError(err) {
			return err
		}
		if n == attempts {
			break
		}
		GetLogger().Debug("transient target error, retrying",
			logger.Error(err),
			logger.Int("attempt", n),
			logger.Int("max_retries", attempts))

		wait := time.NewTimer(cfg.Backoff * time.Duration(n))
		select {
		case <-ctx.Done():
			wait.Stop()
			return backup.NewError(backup.ErrCanceled, "operation canceled", ctx.Err())
		case <-wait.C:
		}
	}
	return backup.NewError(backup.ErrIO, "operation failed after retries", err)
}

// tempName is the name an upload carries until it is renamed into place.
func tempName(name string) string {
	return tempPrefix + name
}
