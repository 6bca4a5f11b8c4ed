// Package conf loads, validates and hot-reloads radmon settings.
package conf

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Seconds is a duration expressed in (possibly fractional) seconds in the
// configuration file.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// MainSettings contains the instance identity.
type MainSettings struct {
	Name  string `yaml:"name" mapstructure:"name" json:"name"`    // instance name shown in notifications
	Debug bool   `yaml:"debug" mapstructure:"debug" json:"debug"` // true to enable debug mode
}

// MonitorSettings controls the collection loop.
type MonitorSettings struct {
	PollingInterval Seconds `yaml:"polling_interval" mapstructure:"polling_interval" json:"polling_interval"` // seconds between cycles
	ReadTimeout     Seconds `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`             // per-sensor read timeout
	PersistTimeout  Seconds `yaml:"persist_timeout" mapstructure:"persist_timeout" json:"persist_timeout"`    // per-call persistence timeout
	ReadConcurrency int     `yaml:"read_concurrency" mapstructure:"read_concurrency" json:"read_concurrency"` // parallel sensor reads per cycle
	StaleAfter      Seconds `yaml:"stale_after" mapstructure:"stale_after" json:"stale_after"`                // 0 = 3x polling interval
	Source          string  `yaml:"source" mapstructure:"source" json:"source"`                               // reading source, "simulator"
	SimulatorSeed   uint64  `yaml:"simulator_seed" mapstructure:"simulator_seed" json:"simulator_seed"`       // 0 = random seed
}

// HistorySettings sizes the in-memory buffers.
type HistorySettings struct {
	Capacity      int `yaml:"capacity" mapstructure:"capacity" json:"capacity"`                   // readings kept per sensor
	AlertCapacity int `yaml:"alert_capacity" mapstructure:"alert_capacity" json:"alert_capacity"` // alerts kept in the log
}

// SensorSettings describes a configured sensor.
type SensorSettings struct {
	ID              string                `yaml:"id" mapstructure:"id" json:"id"`
	Name            string                `yaml:"name" mapstructure:"name" json:"name"`
	Location        string                `yaml:"location" mapstructure:"location" json:"location"`
	CalibrationDate string                `yaml:"calibration_date" mapstructure:"calibration_date" json:"calibration_date"` // YYYY-MM-DD
	Status          string                `yaml:"status" mapstructure:"status" json:"status"`                               // active or disabled
	Thresholds      *radiation.Thresholds `yaml:"thresholds,omitempty" mapstructure:"thresholds" json:"thresholds,omitempty"`
}

// EmailSettings configures SMTP delivery.
type EmailSettings struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	SMTPServer string `yaml:"smtp_server" mapstructure:"smtp_server" json:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port" mapstructure:"smtp_port" json:"smtp_port"`
	Username   string `yaml:"username" mapstructure:"username" json:"username"`
	Password   string `yaml:"password" mapstructure:"password" json:"-"`
	From       string `yaml:"from" mapstructure:"from" json:"from"`
	To         string `yaml:"to" mapstructure:"to" json:"to"`
}

// WebhookSettings configures JSON POST delivery.
type WebhookSettings struct {
	Enabled bool              `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	URL     string            `yaml:"url" mapstructure:"url" json:"url"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers" json:"-"`
	Timeout Seconds           `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
}

// RateLimitSettings throttles outbound notifications.
type RateLimitSettings struct {
	Enabled   bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	PerMinute int  `yaml:"per_minute" mapstructure:"per_minute" json:"per_minute"`
	Burst     int  `yaml:"burst" mapstructure:"burst" json:"burst"`
}

// CircuitBreakerSettings configures the per-sink breaker.
type CircuitBreakerSettings struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	MaxFailures      int     `yaml:"max_failures" mapstructure:"max_failures" json:"max_failures"`
	Timeout          Seconds `yaml:"timeout" mapstructure:"timeout" json:"timeout"`                               // open duration before a probe
	HalfOpenMaxTries int     `yaml:"half_open_max_tries" mapstructure:"half_open_max_tries" json:"half_open_max_tries"` // probes allowed while half-open
}

// EmergencyContact is listed in critical notifications.
type EmergencyContact struct {
	Service string `yaml:"service" mapstructure:"service" json:"service"`
	Contact string `yaml:"contact" mapstructure:"contact" json:"contact"` // phone number or e-mail
}

// NotificationSettings groups every delivery target.
type NotificationSettings struct {
	Enabled           bool                   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Timeout           Seconds                `yaml:"timeout" mapstructure:"timeout" json:"timeout"`                         // one delivery attempt
	MaxInFlight       int                    `yaml:"max_in_flight" mapstructure:"max_in_flight" json:"max_in_flight"`       // concurrent deliveries
	Phone             string                 `yaml:"phone" mapstructure:"phone" json:"phone"`                               // SMS recipient
	URLs              []string               `yaml:"urls" mapstructure:"urls" json:"-"`                                     // extra shoutrrr URLs
	Email             EmailSettings          `yaml:"email" mapstructure:"email" json:"email"`
	Webhook           WebhookSettings        `yaml:"webhook" mapstructure:"webhook" json:"webhook"`
	RateLimit         RateLimitSettings      `yaml:"rate_limit" mapstructure:"rate_limit" json:"rate_limit"`
	CircuitBreaker    CircuitBreakerSettings `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"circuit_breaker"`
	EmergencyContacts []EmergencyContact     `yaml:"emergency_contacts" mapstructure:"emergency_contacts" json:"emergency_contacts"`
}

// SQLiteSettings configures the embedded database.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path" json:"path"`
}

// MySQLSettings configures the MySQL backend.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host" json:"host"`
	Port     int    `yaml:"port" mapstructure:"port" json:"port"`
	Username string `yaml:"username" mapstructure:"username" json:"username"`
	Password string `yaml:"password" mapstructure:"password" json:"-"`
	Database string `yaml:"database" mapstructure:"database" json:"database"`
}

// DatabaseSettings selects and configures persistence.
type DatabaseSettings struct {
	Type          string         `yaml:"type" mapstructure:"type" json:"type"` // sqlite or mysql
	SlowThreshold Seconds        `yaml:"slow_threshold" mapstructure:"slow_threshold" json:"slow_threshold"`
	SQLite        SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite" json:"sqlite"`
	MySQL         MySQLSettings  `yaml:"mysql" mapstructure:"mysql" json:"mysql"`
}

// MQTTSettings configures the cycle publisher.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker" json:"broker"`
	ClientID string `yaml:"client_id" mapstructure:"client_id" json:"client_id"`
	Username string `yaml:"username" mapstructure:"username" json:"username"`
	Password string `yaml:"password" mapstructure:"password" json:"-"`
	Topic    string `yaml:"topic" mapstructure:"topic" json:"topic"`
	QoS      byte   `yaml:"qos" mapstructure:"qos" json:"qos"`
	Retain   bool   `yaml:"retain" mapstructure:"retain" json:"retain"`

	// Home Assistant auto-discovery
	Discovery       bool   `yaml:"discovery" mapstructure:"discovery" json:"discovery"`
	DiscoveryPrefix string `yaml:"discovery_prefix" mapstructure:"discovery_prefix" json:"discovery_prefix"` // default homeassistant
}

// APISettings configures the HTTP surface.
type APISettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen" json:"listen"`
	Metrics bool   `yaml:"metrics" mapstructure:"metrics" json:"metrics"` // expose /metrics
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn" json:"-"`
	Environment string `yaml:"environment" mapstructure:"environment" json:"environment"`
}

// BackupTarget is one destination for database backups.
type BackupTarget struct {
	Type     string `yaml:"type" mapstructure:"type" json:"type"` // local, ftp or sftp
	Path     string `yaml:"path" mapstructure:"path" json:"path"` // directory on the target
	Host     string `yaml:"host" mapstructure:"host" json:"host"`
	Port     int    `yaml:"port" mapstructure:"port" json:"port"`
	Username string `yaml:"username" mapstructure:"username" json:"username"`
	Password string `yaml:"password" mapstructure:"password" json:"-"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file" json:"key_file"` // sftp private key
	// KnownHostsFile enables host key verification for sftp when set.
	KnownHostsFile string `yaml:"known_hosts_file" mapstructure:"known_hosts_file" json:"known_hosts_file"`
}

// BackupSettings configures database backups.
type BackupSettings struct {
	Dir          string         `yaml:"dir" mapstructure:"dir" json:"dir"`                         // staging directory
	MinFreeBytes uint64         `yaml:"min_free_bytes" mapstructure:"min_free_bytes" json:"min_free_bytes"` // refuse below this
	Targets      []BackupTarget `yaml:"targets" mapstructure:"targets" json:"targets"`
}

// Settings contains all configuration options for radmon.
type Settings struct {
	Main         MainSettings         `yaml:"main" mapstructure:"main" json:"main"`
	Monitor      MonitorSettings      `yaml:"monitor" mapstructure:"monitor" json:"monitor"`
	Thresholds   radiation.Thresholds `yaml:"thresholds" mapstructure:"thresholds" json:"thresholds"`
	Sensors      []SensorSettings     `yaml:"sensors" mapstructure:"sensors" json:"sensors"`
	History      HistorySettings      `yaml:"history" mapstructure:"history" json:"history"`
	Notification NotificationSettings `yaml:"notification" mapstructure:"notification" json:"notification"`
	Database     DatabaseSettings     `yaml:"database" mapstructure:"database" json:"database"`
	MQTT         MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt" json:"mqtt"`
	API          APISettings          `yaml:"api" mapstructure:"api" json:"api"`
	Sentry       SentrySettings       `yaml:"sentry" mapstructure:"sentry" json:"sentry"`
	Backup       BackupSettings       `yaml:"backup" mapstructure:"backup" json:"backup"`
	Logging      logger.LoggingConfig `yaml:"logging" mapstructure:"logging" json:"logging"`
}

// Manager owns the current settings. Readers get an immutable value via
// Settings or Snapshot; Reload swaps it atomically.
type Manager struct {
	v          *viper.Viper
	configFile string
	current    atomic.Pointer[Settings]

	mu        sync.Mutex // guards v and listeners
	listeners []func(*Settings)
}

// Load reads settings from configFile, or from the default search paths
// when configFile is empty. A missing file is replaced by a defaults file.
// Validation failures are returned as CategoryConfiguration errors.
func Load(configFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}

	if err := m.initViper(configFile); err != nil {
		return nil, err
	}

	settings, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.current.Store(settings)
	return m, nil
}

// initViper initializes viper with default values and reads the configuration file.
func (m *Manager) initViper(configFile string) error {
	v := m.v
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	setDefaultConfig(v)

	for _, warning := range bindEnvVars(v) {
		GetLogger().Warn("environment variable rejected", logger.String("detail", warning))
	}

	err := v.ReadInConfig()
	if err == nil {
		m.configFile = v.ConfigFileUsed()
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !(configFile != "" && os.IsNotExist(err)) {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_file", configFile).
			Build()
	}

	target := configFile
	if target == "" {
		paths, pathErr := GetDefaultConfigPaths()
		if pathErr != nil {
			return pathErr
		}
		target = filepath.Join(paths[0], "config.yaml")
	}
	if err := createDefaultConfig(v, target); err != nil {
		return err
	}
	m.configFile = target
	v.SetConfigFile(target)
	return nil
}

// decode unmarshals and validates the current viper state.
func (m *Manager) decode() (*Settings, error) {
	settings := &Settings{}
	if err := m.v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}
	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// createDefaultConfig writes the default settings to path.
func createDefaultConfig(v *viper.Viper, path string) error {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryConfiguration).Build()
	}
	if err := SaveYAMLConfig(path, settings); err != nil {
		return err
	}
	GetLogger().Info("created default config file", logger.String("path", path))
	return nil
}

// SaveYAMLConfig writes settings to configPath atomically.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal").
			Build()
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml.tmp")
	if err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Build()
	}
	tempName := tempFile.Name()
	defer func() {
		_ = os.Remove(tempName) // no-op after a successful rename
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Build()
	}
	if err := tempFile.Close(); err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Build()
	}
	if err := os.Rename(tempName, configPath); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}
	return nil
}

// Settings returns the current settings. The value must not be modified.
func (m *Manager) Settings() *Settings {
	return m.current.Load()
}

// Snapshot returns an immutable per-cycle view of the current settings.
func (m *Manager) Snapshot() *Snapshot {
	return NewSnapshot(m.current.Load())
}

// ConfigFile returns the path of the file the settings were read from.
func (m *Manager) ConfigFile() string {
	return m.configFile
}

// OnChange registers fn to run after every successful reload.
func (m *Manager) OnChange(fn func(*Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Reload re-reads the config file. On any failure the previous settings
// stay in effect and the error is returned.
func (m *Manager) Reload() error {
	m.mu.Lock()
	if err := m.v.ReadInConfig(); err != nil {
		m.mu.Unlock()
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_file", m.configFile).
			Context("operation", "reload").
			Build()
	}
	settings, err := m.decode()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.current.Store(settings)
	listeners := append([]func(*Settings){}, m.listeners...)
	m.mu.Unlock()

	GetLogger().Info("configuration reloaded",
		logger.String("config_file", m.configFile),
		logger.Float64("polling_interval", float64(settings.Monitor.PollingInterval)),
		logger.Int("sensors", len(settings.Sensors)))

	for _, fn := range listeners {
		fn(settings)
	}
	return nil
}

// Watch reloads the settings whenever the config file changes on disk.
func (m *Manager) Watch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := m.Reload(); err != nil {
			GetLogger().Error("config reload failed, keeping previous settings",
				logger.String("file", e.Name),
				logger.Error(err))
		}
	})
	m.v.WatchConfig()
}

// GetLogger returns the conf module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
