package targets

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
)

func writeBackup(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "radiation_system_backup_20260315_143005.db")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLocalTargetStore(t *testing.T) {
	t.Parallel()

	src := writeBackup(t, "payload")
	dir := filepath.Join(t.TempDir(), "nested", "copies")
	target, err := NewLocalTarget(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", target.Name())

	location, err := target.Store(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, filepath.Base(src)), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files remain")
}

func TestLocalTargetSameDirectory(t *testing.T) {
	t.Parallel()

	src := writeBackup(t, "payload")
	target, err := NewLocalTarget(filepath.Dir(src))
	require.NoError(t, err)

	location, err := target.Store(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, src, location)
}

func TestLocalTargetErrors(t *testing.T) {
	t.Parallel()

	_, err := NewLocalTarget("")
	assert.True(t, backup.IsErrorCode(err, backup.ErrValidation))

	target, err := NewLocalTarget(t.TempDir())
	require.NoError(t, err)
	_, err = target.Store(t.Context(), filepath.Join(t.TempDir(), "missing.db"))
	assert.True(t, backup.IsErrorCode(err, backup.ErrIO))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = target.Store(ctx, writeBackup(t, "x"))
	assert.True(t, backup.IsErrorCode(err, backup.ErrCanceled))
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	targets, err := FromSettings([]conf.BackupTarget{
		{Type: "local", Path: t.TempDir()},
		{Type: "ftp", Host: "ftp.example.com", Path: "/radmon/"},
		{Type: "sftp", Host: "backup.example.com", Username: "radmon", Password: "secret"},
	})
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "local", targets[0].Name())
	assert.Equal(t, "ftp", targets[1].Name())
	assert.Equal(t, "sftp", targets[2].Name())

	ftpTarget := targets[1].(*FTPTarget)
	assert.Equal(t, DefaultFTPPort, ftpTarget.config.Port)
	assert.Equal(t, "/radmon", ftpTarget.config.BasePath)

	sftpTarget := targets[2].(*SFTPTarget)
	assert.Equal(t, DefaultSSHPort, sftpTarget.config.Port)
	assert.Equal(t, "backups", sftpTarget.config.BasePath)
}

func TestFromSettingsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target conf.BackupTarget
	}{
		{"unknown type", conf.BackupTarget{Type: "gdrive"}},
		{"local without path", conf.BackupTarget{Type: "local"}},
		{"ftp without host", conf.BackupTarget{Type: "ftp"}},
		{"sftp without user", conf.BackupTarget{Type: "sftp", Host: "h", Password: "p"}},
		{"sftp without auth", conf.BackupTarget{Type: "sftp", Host: "h", Username: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FromSettings([]conf.BackupTarget{tt.target})
			require.Error(t, err)
		})
	}
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestFTPTargetConnectionRefused(t *testing.T) {
	t.Parallel()

	target, err := NewFTPTarget(&FTPTargetConfig{
		Host:    "127.0.0.1",
		Port:    closedPort(t),
		Timeout: time.Second,
		Retry:   RetryConfig{MaxRetries: 1},
	})
	require.NoError(t, err)

	_, err = target.Store(t.Context(), writeBackup(t, "x"))
	require.Error(t, err)
	assert.True(t, backup.IsErrorCode(err, backup.ErrIO))
}

func TestSFTPTargetConnectionRefused(t *testing.T) {
	t.Parallel()

	target, err := NewSFTPTarget(&SFTPTargetConfig{
		Host:     "127.0.0.1",
		Port:     closedPort(t),
		Username: "radmon",
		Password: "secret",
		Timeout:  time.Second,
		Retry:    RetryConfig{MaxRetries: 1},
	})
	require.NoError(t, err)

	_, err = target.Store(t.Context(), writeBackup(t, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSFTPTargetBadKnownHosts(t *testing.T) {
	t.Parallel()

	target, err := NewSFTPTarget(&SFTPTargetConfig{
		Host:           "127.0.0.1",
		Username:       "radmon",
		Password:       "secret",
		KnownHostsFile: filepath.Join(t.TempDir(), "missing_known_hosts"),
	})
	require.NoError(t, err)

	_, err = target.Store(t.Context(), writeBackup(t, "x"))
	assert.True(t, backup.IsErrorCode(err, backup.ErrSecurity))
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("transient errors are retried with linear backoff", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			start := time.Now()
			calls := 0
			err := WithRetry(t.Context(), RetryConfig{MaxRetries: 3, Backoff: time.Second}, func() error {
				calls++
				if calls < 3 {
					return errors.NewStd("connection reset by peer")
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 3, calls)
			assert.Equal(t, 3*time.Second, time.Since(start), "1s then 2s")
		})
	})

	t.Run("permanent errors return at once", func(t *testing.T) {
		t.Parallel()
		boom := errors.NewStd("530 login incorrect")
		calls := 0
		err := WithRetry(t.Context(), DefaultRetryConfig(), func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted retries wrap the last error", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			err := WithRetry(t.Context(), RetryConfig{MaxRetries: 2, Backoff: time.Millisecond}, func() error {
				return errors.NewStd("i/o timeout")
			})
			assert.True(t, backup.IsErrorCode(err, backup.ErrIO))
		})
	})

	t.Run("cancellation stops the backoff", func(t *testing.T) {
		t.Parallel()
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
			defer cancel()
			err := WithRetry(ctx, RetryConfig{MaxRetries: 3, Backoff: time.Hour}, func() error {
				return errors.NewStd("broken pipe")
			})
			assert.True(t, backup.IsErrorCode(err, backup.ErrCanceled))
		})
	})
}

func TestIsTransientError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTransientError(nil))
	assert.True(t, IsTransientError(errors.NewStd("dial tcp: connection refused")))
	assert.True(t, IsTransientError(errors.NewStd("unexpected EOF")))
	assert.False(t, IsTransientError(errors.NewStd("550 permission denied")))
}

func TestTempNameSharesUploadPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".upload-radmon.db", tempName("radmon.db"))

	dir := t.TempDir()
	err := atomicWriteFile(filepath.Join(dir, "out.db"), PermFileGroup, func(f *os.File) error {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, tempPrefix, entries[0].Name()[:len(tempPrefix)])
		_, err = f.WriteString("ok")
		return err
	})
	require.NoError(t, err)
}
