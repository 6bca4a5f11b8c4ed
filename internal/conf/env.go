// env.go - Environment variable configuration and validation for radmon
package conf

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every automatically bound configuration key.
const EnvPrefix = "RADMON"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicit bindings. Any other key is reachable
// through AutomaticEnv as RADMON_<SECTION>_<KEY>.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"monitor.polling_interval", "RADMON_POLLING_INTERVAL", validateEnvPositiveFloat},
		{"thresholds.warning", "RADMON_WARNING_THRESHOLD", validateEnvThreshold},
		{"thresholds.danger", "RADMON_DANGER_THRESHOLD", validateEnvThreshold},

		// Secrets are kept out of the config file when possible
		{"notification.email.password", "RADMON_SMTP_PASSWORD", nil},
		{"database.mysql.password", "RADMON_MYSQL_PASSWORD", nil},
		{"mqtt.password", "RADMON_MQTT_PASSWORD", nil},
		{"sentry.dsn", "RADMON_SENTRY_DSN", validateEnvURL},

		{"database.type", "RADMON_DATABASE_TYPE", validateEnvDatabaseType},
		{"api.listen", "RADMON_API_LISTEN", nil},
		{"main.debug", "RADMON_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings and returns one warning
// per binding whose current value does not validate.
func bindEnvVars(v *viper.Viper) []string {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}
	return warnings
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f <= 0 || math.IsInf(f, 0) {
		return fmt.Errorf("must be a positive finite number, got %g", f)
	}
	return nil
}

func validateEnvThreshold(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}
	if f < 0 || math.IsInf(f, 0) {
		return fmt.Errorf("threshold must be a non-negative finite number, got %g", f)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case "sqlite", "mysql":
		return nil
	default:
		return fmt.Errorf("must be one of: sqlite, mysql")
	}
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}
