package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// SecretFilePrefix marks a credential value that names a file holding the
// secret, e.g. a Docker or Kubernetes mounted secret.
const SecretFilePrefix = "file:"

const maxSecretFileSize = 64 * 1024

// resolveSecrets replaces ${VAR}, ${VAR:-default} and file: references in
// the credential fields with their values. Values without a reference are
// kept literally.
func resolveSecrets(s *Settings) error {
	fields := []struct {
		key   string
		value *string
	}{
		{"notification.email.password", &s.Notification.Email.Password},
		{"database.mysql.password", &s.Database.MySQL.Password},
		{"mqtt.password", &s.MQTT.Password},
		{"sentry.dsn", &s.Sentry.DSN},
	}
	for i := range s.Backup.Targets {
		fields = append(fields, struct {
			key   string
			value *string
		}{fmt.Sprintf("backup.targets[%d].password", i), &s.Backup.Targets[i].Password})
	}

	var problems []string
	for _, f := range fields {
		resolved, err := ResolveSecret(*f.value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.key, err))
			continue
		}
		*f.value = resolved
	}
	for name, value := range s.Notification.Webhook.Headers {
		resolved, err := ResolveSecret(value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("notification.webhook.headers.%s: %v", name, err))
			continue
		}
		s.Notification.Webhook.Headers[name] = resolved
	}

	if len(problems) > 0 {
		return errors.New(ValidationError{Errors: problems}).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "resolve_secrets").
			Build()
	}
	return nil
}

// ResolveSecret returns the secret a credential value refers to.
func ResolveSecret(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, SecretFilePrefix); ok {
		return readSecretFile(path)
	}
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var missing []string
	expanded := os.Expand(value, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if !hasFallback {
			missing = append(missing, name)
		}
		return fallback
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variable(s) %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

func readSecretFile(path string) (string, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret file %s is not a regular file", path)
	}
	if info.Size() > maxSecretFileSize {
		return "", fmt.Errorf("secret file %s exceeds %d bytes", path, maxSecretFileSize)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		GetLogger().Warn("secret file is readable by group or others",
			logger.String("path", path),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", path, err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
