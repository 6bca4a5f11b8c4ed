package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/logger"
)

// Snapshotter writes a consistent copy of the database to destPath.
type Snapshotter interface {
	Backup(ctx context.Context, destPath string) error
}

// Target represents a destination where backups are stored
type Target interface {
	// Name returns the name of the target
	Name() string
	// Store copies the backup file at localPath and returns where it landed
	Store(ctx context.Context, localPath string) (string, error)
}

// FreeSpaceFunc reports the free bytes of the filesystem holding path.
type FreeSpaceFunc func(path string) (uint64, error)

// DiskFree is the default FreeSpaceFunc.
func DiskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Config configures a Manager.
type Config struct {
	Dir          string // staging directory for the database copy
	DatabasePath string // live database file, used to estimate the required space
	MinFreeBytes uint64

	Timeout      time.Duration
	StoreTimeout time.Duration
}

// ConfigFromSettings builds a Config from the backup and database settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := Config{
		Dir:          settings.Backup.Dir,
		MinFreeBytes: settings.Backup.MinFreeBytes,
	}
	if settings.Database.Type == "sqlite" {
		cfg.DatabasePath = settings.Database.SQLite.Path
	}
	return cfg
}

// TargetResult is the outcome of storing a backup on one target.
type TargetResult struct {
	Target   string `json:"target"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result describes a completed backup.
type Result struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Size       int64          `json:"size"`
	CreatedAt  time.Time      `json:"created_at"`
	DurationMS int64          `json:"duration_ms"`
	Targets    []TargetResult `json:"targets"`
}

// Manager handles the backup operations. One backup runs at a time.
type Manager struct {
	cfg     Config
	store   Snapshotter
	targets []Target
	free    FreeSpaceFunc
	now     func() time.Time
	log     logger.Logger
	mu      sync.Mutex
}

// NewManager creates a new backup manager
func NewManager(cfg Config, store Snapshotter, targets ...Target) (*Manager, error) {
	if store == nil {
		return nil, NewError(ErrConfig, "no database to back up", nil)
	}
	if cfg.Dir == "" {
		return nil, NewError(ErrConfig, "backup directory is required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBackupTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		targets: targets,
		free:    DiskFree,
		now:     time.Now,
		log:     GetLogger(),
	}, nil
}

// Run copies the database into the staging directory and stores the copy on
// every target. A failing target does not stop the others; Run fails when
// the copy cannot be made or when every target failed.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	if !m.mu.TryLock() {
		return nil, NewError(ErrLocked, "a backup is already running", nil)
	}
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	started := m.now()
	m.log.Info("starting backup", logger.String("dir", m.cfg.Dir), logger.Int("targets", len(m.targets)))

	if err := os.MkdirAll(m.cfg.Dir, PermBackupDir); err != nil {
		return nil, NewError(ErrIO, "failed to create backup directory", err)
	}
	if err := m.checkSpace(); err != nil {
		return nil, err
	}

	id := FilePrefix + started.Format(timestampLayout)
	path := filepath.Join(m.cfg.Dir, id+".db")
	if err := m.store.Backup(ctx, path); err != nil {
		if errors.Is(err, datastore.ErrBackupUnsupported) {
			return nil, NewError(ErrUnsupported, "database backend cannot be backed up", err)
		}
		if ctx.Err() != nil {
			return nil, NewError(ErrCanceled, "backup canceled", err)
		}
		return nil, NewError(ErrDatabase, "failed to copy database", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, NewError(ErrIO, "backup file missing after copy", err)
	}
	if err := os.Chmod(path, PermBackupFile); err != nil {
		m.log.Warn("failed to restrict backup file permissions", logger.String("path", path), logger.Error(err))
	}

	res := &Result{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: started,
	}
	failed := m.storeInTargets(ctx, res)
	res.DurationMS = m.now().Sub(started).Milliseconds()

	if len(m.targets) > 0 && len(failed) == len(m.targets) {
		return res, NewError(ErrIO, "no target stored the backup", errors.Join(failed...))
	}

	m.log.Info("backup completed",
		logger.String("id", id),
		logger.String("path", path),
		logger.Int64("size", res.Size),
		logger.Int("failed_targets", len(failed)))
	return res, nil
}

func (m *Manager) storeInTargets(ctx context.Context, res *Result) []error {
	var failed []error
	for _, t := range m.targets {
		sctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
		location, err := t.Store(sctx, res.Path)
		cancel()

		tr := TargetResult{Target: t.Name(), Location: location}
		if err != nil {
			tr.Error = err.Error()
			failed = append(failed, fmt.Errorf("%s: %w", t.Name(), err))
			m.log.Warn("failed to store backup on target",
				logger.String("target", t.Name()),
				logger.String("id", res.ID),
				logger.Error(err))
		} else {
			m.log.Info("backup stored on target",
				logger.String("target", t.Name()),
				logger.String("location", location))
		}
		res.Targets = append(res.Targets, tr)
	}
	return failed
}

// checkSpace refuses to run below the configured free space or when the
// copy would not fit.
func (m *Manager) checkSpace() error {
	free, err := m.free(m.cfg.Dir)
	if err != nil {
		return NewError(ErrIO, "failed to check free disk space", err)
	}

	required := m.cfg.MinFreeBytes
	if m.cfg.DatabasePath != "" {
		if info, err := os.Stat(m.cfg.DatabasePath); err == nil {
			required = max(required, uint64(float64(info.Size())*SpaceBufferMultiplier))
		}
	}
	if free < required {
		return NewError(ErrInsufficientSpace,
			fmt.Sprintf("insufficient disk space: %.1f MB free, %.1f MB required",
				float64(free)/MB, float64(required)/MB), nil)
	}
	return nil
}
