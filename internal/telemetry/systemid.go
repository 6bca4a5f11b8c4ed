package telemetry

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// SystemIDFile is the file next to the config that keeps the instance id.
const SystemIDFile = ".system_id"

var systemIDPattern = regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`)

// GenerateSystemID returns a random id formatted as XXXX-XXXX-XXXX.
func GenerateSystemID() (string, error) {
	var raw [6]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", errors.New(err).Component("telemetry").Category(errors.CategorySystem).Build()
	}
	h := strings.ToUpper(hex.EncodeToString(raw[:]))
	return h[:4] + "-" + h[4:8] + "-" + h[8:], nil
}

// LoadOrCreateSystemID returns the id stored in configDir, creating and
// storing a fresh one when the file is missing or malformed.
func LoadOrCreateSystemID(configDir string) (string, error) {
	path := filepath.Join(configDir, SystemIDFile)
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.ToUpper(strings.TrimSpace(string(data))); isValidSystemID(id) {
			return id, nil
		}
		GetLogger().Warn("replacing malformed system id", logger.String("path", path))
	}

	id, err := GenerateSystemID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fileError(err, configDir)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fileError(err, path)
	}
	return id, nil
}

func isValidSystemID(id string) bool {
	return systemIDPattern.MatchString(id)
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("telemetry").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
