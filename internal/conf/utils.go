// conf/utils.go
package conf

import (
	"os"
	"path/filepath"

	"github.com/androsik2006/radmon/internal/errors"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order. The first entry is where a missing config is created.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "radmon"),
		"/etc/radmon",
	}, nil
}
