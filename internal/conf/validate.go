// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/radiation"
)

// CalibrationDateLayout is the format of SensorSettings.CalibrationDate.
const CalibrationDateLayout = "2006-01-02"

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. The returned error
// carries CategoryConfiguration and unwraps to ValidationError.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateMonitorSettings,
		validateThresholdSettings,
		validateSensorSettings,
		validateHistorySettings,
		validateNotificationSettings,
		validateDatabaseSettings,
		validateMQTTSettings,
		validateAPISettings,
		validateBackupSettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateMonitorSettings(s *Settings) []string {
	var errs []string
	m := s.Monitor
	if m.PollingInterval <= 0 {
		errs = append(errs, fmt.Sprintf("monitor.polling_interval must be greater than 0, got %v", float64(m.PollingInterval)))
	}
	if m.ReadTimeout <= 0 {
		errs = append(errs, "monitor.read_timeout must be greater than 0")
	}
	if m.PersistTimeout <= 0 {
		errs = append(errs, "monitor.persist_timeout must be greater than 0")
	}
	if m.ReadConcurrency < 1 {
		errs = append(errs, "monitor.read_concurrency must be at least 1")
	}
	if m.StaleAfter < 0 {
		errs = append(errs, "monitor.stale_after must not be negative")
	}
	if m.Source != "simulator" {
		errs = append(errs, fmt.Sprintf("monitor.source %q is not supported, valid sources: simulator", m.Source))
	}
	return errs
}

func validateThresholdSettings(s *Settings) []string {
	if err := s.Thresholds.Validate(); err != nil {
		return []string{"thresholds: " + err.Error()}
	}
	return nil
}

func validateSensorSettings(s *Settings) []string {
	var errs []string
	seen := make(map[string]struct{}, len(s.Sensors))
	for i := range s.Sensors {
		sensor := &s.Sensors[i]
		if strings.TrimSpace(sensor.ID) == "" {
			errs = append(errs, fmt.Sprintf("sensors[%d]: id must not be empty", i))
			continue
		}
		if _, dup := seen[sensor.ID]; dup {
			errs = append(errs, fmt.Sprintf("sensors[%d]: duplicate id %s", i, sensor.ID))
		}
		seen[sensor.ID] = struct{}{}

		if sensor.Status != "" && !radiation.SensorStatus(sensor.Status).Valid() {
			errs = append(errs, fmt.Sprintf("sensor %s: status must be active or disabled, got %q", sensor.ID, sensor.Status))
		}
		if sensor.CalibrationDate != "" {
			if _, err := time.Parse(CalibrationDateLayout, sensor.CalibrationDate); err != nil {
				errs = append(errs, fmt.Sprintf("sensor %s: calibration_date must be YYYY-MM-DD", sensor.ID))
			}
		}
		if sensor.Thresholds != nil {
			if err := sensor.Thresholds.Validate(); err != nil {
				errs = append(errs, fmt.Sprintf("sensor %s: thresholds: %v", sensor.ID, err))
			}
		}
	}
	return errs
}

func validateHistorySettings(s *Settings) []string {
	var errs []string
	if s.History.Capacity < 1 {
		errs = append(errs, "history.capacity must be at least 1")
	}
	if s.History.AlertCapacity < 1 {
		errs = append(errs, "history.alert_capacity must be at least 1")
	}
	return errs
}

func validateNotificationSettings(s *Settings) []string {
	n := s.Notification
	if !n.Enabled {
		return nil
	}

	var errs []string
	if n.Timeout <= 0 {
		errs = append(errs, "notification.timeout must be greater than 0")
	}
	if n.MaxInFlight < 1 {
		errs = append(errs, "notification.max_in_flight must be at least 1")
	}
	if n.Email.Enabled {
		if n.Email.SMTPServer == "" {
			errs = append(errs, "notification.email.smtp_server is required when email is enabled")
		}
		if n.Email.SMTPPort < 1 || n.Email.SMTPPort > 65535 {
			errs = append(errs, fmt.Sprintf("notification.email.smtp_port must be between 1 and 65535, got %d", n.Email.SMTPPort))
		}
		if n.Email.To == "" {
			errs = append(errs, "notification.email.to is required when email is enabled")
		}
	}
	if n.Webhook.Enabled {
		if err := validateHTTPURL(n.Webhook.URL); err != nil {
			errs = append(errs, "notification.webhook.url: "+err.Error())
		}
	}
	if n.RateLimit.Enabled && (n.RateLimit.PerMinute < 1 || n.RateLimit.Burst < 1) {
		errs = append(errs, "notification.rate_limit.per_minute and burst must be at least 1")
	}
	if n.CircuitBreaker.Enabled {
		if n.CircuitBreaker.MaxFailures < 1 {
			errs = append(errs, "notification.circuit_breaker.max_failures must be at least 1")
		}
		if n.CircuitBreaker.Timeout <= 0 {
			errs = append(errs, "notification.circuit_breaker.timeout must be greater than 0")
		}
	}
	for i, raw := range n.URLs {
		if _, err := url.Parse(raw); err != nil || !strings.Contains(raw, "://") {
			errs = append(errs, fmt.Sprintf("notification.urls[%d] is not a valid service URL", i))
		}
	}
	return errs
}

func validateDatabaseSettings(s *Settings) []string {
	var errs []string
	switch s.Database.Type {
	case "sqlite":
		if s.Database.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path is required")
		}
	case "mysql":
		my := s.Database.MySQL
		if my.Host == "" || my.Database == "" || my.Username == "" {
			errs = append(errs, "database.mysql host, username and database are required")
		}
		if my.Port < 1 || my.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.mysql.port must be between 1 and 65535, got %d", my.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.type must be sqlite or mysql, got %q", s.Database.Type))
	}
	return errs
}

func validateMQTTSettings(s *Settings) []string {
	m := s.MQTT
	if !m.Enabled {
		return nil
	}
	var errs []string
	if u, err := url.Parse(m.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("mqtt.broker must be a URL such as tcp://host:1883, got %q", m.Broker))
	}
	if m.Topic == "" {
		errs = append(errs, "mqtt.topic must not be empty")
	}
	if m.QoS > 2 {
		errs = append(errs, fmt.Sprintf("mqtt.qos must be 0, 1 or 2, got %d", m.QoS))
	}
	return errs
}

func validateAPISettings(s *Settings) []string {
	if !s.API.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.API.Listen); err != nil {
		return []string{fmt.Sprintf("api.listen must be host:port, got %q", s.API.Listen)}
	}
	return nil
}

func validateBackupSettings(s *Settings) []string {
	var errs []string
	for i, target := range s.Backup.Targets {
		switch target.Type {
		case "local":
			if target.Path == "" {
				errs = append(errs, fmt.Sprintf("backup.targets[%d]: path is required for local targets", i))
			}
		case "ftp", "sftp":
			if target.Host == "" {
				errs = append(errs, fmt.Sprintf("backup.targets[%d]: host is required for %s targets", i, target.Type))
			}
		default:
			errs = append(errs, fmt.Sprintf("backup.targets[%d]: unknown type %q", i, target.Type))
		}
	}
	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
