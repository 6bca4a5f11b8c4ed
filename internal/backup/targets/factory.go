package targets

import (
	"github.com/androsik2006/radmon/internal/backup"
	"github.com/androsik2006/radmon/internal/conf"
)

// FromSettings builds the configured targets.
func FromSettings(settings []conf.BackupTarget) ([]backup.Target, error) {
	targets := make([]backup.Target, 0, len(settings))
	for _, s := range settings {
		t, err := New(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// New builds one target from its settings.
func New(s conf.BackupTarget) (backup.Target, error) {
	switch s.Type {
	case "local":
		return NewLocalTarget(s.Path)
	case "ftp":
		return NewFTPTarget(&FTPTargetConfig{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
			BasePath: s.Path,
		})
	case "sftp":
		return NewSFTPTarget(&SFTPTargetConfig{
			Host:           s.Host,
			Port:           s.Port,
			Username:       s.Username,
			Password:       s.Password,
			KeyFile:        s.KeyFile,
			KnownHostsFile: s.KnownHostsFile,
			BasePath:       s.Path,
		})
	default:
		return nil, backup.NewError(backup.ErrConfig, "unknown backup target type "+s.Type, nil)
	}
}
