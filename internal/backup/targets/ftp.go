package targets

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/logger"
)

// FTPTarget implements the backup.Target interface for FTP storage
type FTPTarget struct {
	config FTPTargetConfig
	log    logger.Logger
}

// FTPTargetConfig holds configuration for the FTP target
type FTPTargetConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	BasePath string
	Timeout  time.Duration
	Retry    RetryConfig
}

// NewFTPTarget creates a new FTP target with the given configuration
func NewFTPTarget(config *FTPTargetConfig) (*FTPTarget, error) {
	if config.Host == "" {
		return nil, backup.NewError(backup.ErrConfig, "ftp: host is required", nil)
	}
	if config.Port == 0 {
		config.Port = DefaultFTPPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	config.BasePath = strings.TrimRight(config.BasePath, "/")

	return &FTPTarget{
		config: *config,
		log:    GetLogger().Module("ftp"),
	}, nil
}

// Name returns the name of this target
func (t *FTPTarget) Name() string {
	return "ftp"
}

// connect establishes a connection to the FTP server with context support
func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(t.config.Timeout))
	if err != nil {
		return nil, backup.NewError(backup.ErrIO, "ftp: connection failed", err)
	}

	if t.config.Username != "" {
		if err := conn.Login(t.config.Username, t.config.Password); err != nil {
			if quitErr := conn.Quit(); quitErr != nil {
				t.log.Debug("failed to quit connection after login error", logger.Error(quitErr))
			}
			return nil, backup.NewError(backup.ErrSecurity, "ftp: login failed", err)
		}
	}
	return conn, nil
}

// atomicUpload uploads to a temporary name and renames it into place
func (t *FTPTarget) atomicUpload(conn *ftp.ServerConn, localPath, remotePath string) error {
	file, err := os.Open(localPath) //nolint:gosec // G304 - localPath is the manager's own staging file
	if err != nil {
		return backup.NewError(backup.ErrIO, "ftp: failed to open local file", err)
	}
	defer func() { _ = file.Close() }()

	tmp := path.Join(path.Dir(remotePath), tempName(path.Base(remotePath)))
	if err := conn.Stor(tmp, file); err != nil {
		_ = conn.Delete(tmp)
		return backup.NewError(backup.ErrIO, "ftp: failed to store file", err)
	}
	if err := conn.Rename(tmp, remotePath); err != nil {
		_ = conn.Delete(tmp)
		return backup.NewError(backup.ErrIO, "ftp: failed to rename temporary file", err)
	}
	return nil
}

// Store implements the backup.Target interface
func (t *FTPTarget) Store(ctx context.Context, localPath string) (string, error) {
	remotePath := path.Join(t.config.BasePath, filepath.Base(localPath))

	err := WithRetry(ctx, t.config.Retry, func() error {
		conn, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := conn.Quit(); err != nil {
				t.log.Debug("failed to close connection", logger.Error(err))
			}
		}()

		if err := t.createDirectory(conn, t.config.BasePath); err != nil {
			return err
		}
		return t.atomicUpload(conn, localPath, remotePath)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ftp://%s:%d/%s", t.config.Host, t.config.Port, strings.TrimPrefix(remotePath, "/")), nil
}

// createDirectory ensures every component of dirPath exists on the server
func (t *FTPTarget) createDirectory(conn *ftp.ServerConn, dirPath string) error {
	if dirPath == "" || dirPath == "." {
		return nil
	}

	current := ""
	if strings.HasPrefix(dirPath, "/") {
		current = "/"
	}
	for part := range strings.SplitSeq(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		if err := conn.MakeDir(current); err != nil && !isDirectoryExistsError(err.Error()) {
			return backup.NewError(backup.ErrIO, fmt.Sprintf("ftp: failed to create directory %s", current), err)
		}
	}
	return nil
}

// isDirectoryExistsError reports server replies meaning the directory is already there
func isDirectoryExistsError(errStr string) bool {
	errStr = strings.ToLower(errStr)
	return strings.Contains(errStr, "file exists") ||
		strings.Contains(errStr, "already exists") ||
		strings.Contains(errStr, "directory exists") ||
		strings.Contains(errStr, "550") // Common FTP error code for existing directory
}
