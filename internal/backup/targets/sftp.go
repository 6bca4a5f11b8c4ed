package targets

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/logger"
)

// SFTPTarget implements the backup.Target interface for SFTP storage
type SFTPTarget struct {
	config SFTPTargetConfig
	log    logger.Logger
}

// SFTPTargetConfig holds configuration for the SFTP target
type SFTPTargetConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string
	KnownHostsFile string // empty disables host key verification
	BasePath       string
	Timeout        time.Duration
	Retry          RetryConfig
}

// NewSFTPTarget creates a new SFTP target with the given configuration
func NewSFTPTarget(config *SFTPTargetConfig) (*SFTPTarget, error) {
	if config.Host == "" {
		return nil, backup.NewError(backup.ErrConfig, "sftp: host is required", nil)
	}
	if config.Username == "" {
		return nil, backup.NewError(backup.ErrConfig, "sftp: username is required", nil)
	}
	if config.KeyFile == "" && config.Password == "" {
		return nil, backup.NewError(backup.ErrConfig, "sftp: no authentication method provided", nil)
	}
	if config.Port == 0 {
		config.Port = DefaultSSHPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.BasePath == "" {
		config.BasePath = "backups"
	}
	config.BasePath = strings.TrimRight(config.BasePath, "/")

	t := &SFTPTarget{config: *config, log: GetLogger().Module("sftp")}
	if config.KnownHostsFile == "" {
		t.log.Warn("sftp host key verification disabled", logger.String("host", config.Host))
	}
	return t, nil
}

// Name returns the name of this target
func (t *SFTPTarget) Name() string {
	return "sftp"
}

func (t *SFTPTarget) clientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:            t.config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // opt-in verification via known_hosts_file
		Timeout:         t.config.Timeout,
	}
	if t.config.KnownHostsFile != "" {
		callback, err := knownhosts.New(t.config.KnownHostsFile)
		if err != nil {
			return nil, backup.NewError(backup.ErrSecurity, "sftp: failed to load known hosts", err)
		}
		config.HostKeyCallback = callback
	}

	switch {
	case t.config.KeyFile != "":
		key, err := os.ReadFile(t.config.KeyFile)
		if err != nil {
			return nil, backup.NewError(backup.ErrConfig, "sftp: failed to read private key", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, backup.NewError(backup.ErrConfig, "sftp: failed to parse private key", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	default:
		config.Auth = []ssh.AuthMethod{ssh.Password(t.config.Password)}
	}
	return config, nil
}

// connect establishes an SFTP connection
func (t *SFTPTarget) connect(ctx context.Context) (*sftp.Client, error) {
	config, err := t.clientConfig()
	if err != nil {
		return nil, err
	}

	type connResult struct {
		client *sftp.Client
		err    error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
		sshConn, err := ssh.Dial("tcp", addr, config)
		if err != nil {
			resultChan <- connResult{nil, fmt.Errorf("sftp: failed to connect: %w", err)}
			return
		}
		client, err := sftp.NewClient(sshConn)
		if err != nil {
			_ = sshConn.Close()
			resultChan <- connResult{nil, fmt.Errorf("sftp: failed to create client: %w", err)}
			return
		}
		resultChan <- connResult{client, nil}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after we gave up.
		go func() {
			if res := <-resultChan; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, backup.NewError(backup.ErrCanceled, "sftp: connection attempt canceled", ctx.Err())
	case result := <-resultChan:
		return result.client, result.err
	}
}

// Store implements the backup.Target interface
func (t *SFTPTarget) Store(ctx context.Context, localPath string) (string, error) {
	remotePath := path.Join(t.config.BasePath, filepath.Base(localPath))

	err := WithRetry(ctx, t.config.Retry, func() error {
		client, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		if err := client.MkdirAll(t.config.BasePath); err != nil {
			return fmt.Errorf("sftp: failed to create directory %s: %w", t.config.BasePath, err)
		}
		return t.upload(client, localPath, remotePath)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sftp://%s@%s:%d/%s", t.config.Username, t.config.Host, t.config.Port,
		strings.TrimPrefix(remotePath, "/")), nil
}

func (t *SFTPTarget) upload(client *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath) //nolint:gosec // G304 - localPath is the manager's own staging file
	if err != nil {
		return backup.NewError(backup.ErrIO, "sftp: failed to open local file", err)
	}
	defer func() { _ = src.Close() }()

	tmp := path.Join(path.Dir(remotePath), tempName(path.Base(remotePath)))
	dst, err := client.Create(tmp)
	if err != nil {
		return fmt.Errorf("sftp: failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = client.Remove(tmp)
		return fmt.Errorf("sftp: failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = client.Remove(tmp)
		return fmt.Errorf("sftp: failed to close file: %w", err)
	}
	// PosixRename replaces an existing file; plain Rename does not on most servers.
	if err := client.PosixRename(tmp, remotePath); err != nil {
		_ = client.Remove(tmp)
		return fmt.Errorf("sftp: failed to rename temporary file: %w", err)
	}
	return nil
}
