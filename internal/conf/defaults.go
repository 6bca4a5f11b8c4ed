// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/androsik2006/radmon/internal/logger"
)

// Default values shared with other packages.
const (
	DefaultPollingInterval = 5.0 // seconds
	DefaultWarning         = 1.0 // µSv/h
	DefaultDanger          = 2.5 // µSv/h
	DefaultHistoryCapacity = 50
	DefaultAlertCapacity   = 1000
)

// defaultSensors is the sensor inventory of a fresh installation.
func defaultSensors() []map[string]any {
	return []map[string]any{
		{"id": "Д-124", "name": "Датчик радиации А-1", "location": "Участок А-1", "calibration_date": "2024-01-15", "status": "active"},
		{"id": "Д-128", "name": "Датчик радиации Б-3", "location": "Участок Б-3", "calibration_date": "2024-01-20", "status": "active"},
		{"id": "Д-135", "name": "Датчик радиации В-2", "location": "Участок В-2", "calibration_date": "2024-01-18", "status": "active"},
		{"id": "Д-142", "name": "Датчик радиации Г-4", "location": "Участок Г-4", "calibration_date": "2024-01-22", "status": "active"},
	}
}

func defaultContacts() []map[string]any {
	return []map[string]any{
		{"service": "Главный инженер", "contact": "+79001112233"},
		{"service": "Начальник смены", "contact": "+79004445566"},
		{"service": "Радиационная безопасность", "contact": "safety@company.com"},
		{"service": "Технический отдел", "contact": "tech@company.com"},
		{"service": "Служба эксплуатации", "contact": "+79007778899"},
	}
}

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("main.name", "radmon")
	v.SetDefault("main.debug", false)

	v.SetDefault("monitor.polling_interval", DefaultPollingInterval)
	v.SetDefault("monitor.read_timeout", 2.0)
	v.SetDefault("monitor.persist_timeout", 2.0)
	v.SetDefault("monitor.read_concurrency", 4)
	v.SetDefault("monitor.stale_after", 0)
	v.SetDefault("monitor.source", "simulator")
	v.SetDefault("monitor.simulator_seed", 0)

	v.SetDefault("thresholds.warning", DefaultWarning)
	v.SetDefault("thresholds.danger", DefaultDanger)

	v.SetDefault("sensors", defaultSensors())

	v.SetDefault("history.capacity", DefaultHistoryCapacity)
	v.SetDefault("history.alert_capacity", DefaultAlertCapacity)

	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.timeout", 10.0)
	v.SetDefault("notification.max_in_flight", 8)
	v.SetDefault("notification.phone", "+79001234567")
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.email.enabled", false)
	v.SetDefault("notification.email.smtp_server", "smtp.company.com")
	v.SetDefault("notification.email.smtp_port", 587)
	v.SetDefault("notification.email.username", "")
	v.SetDefault("notification.email.password", "")
	v.SetDefault("notification.email.from", "radiation-monitor@company.com")
	v.SetDefault("notification.email.to", "safety@company.com")
	v.SetDefault("notification.webhook.enabled", false)
	v.SetDefault("notification.webhook.url", "")
	v.SetDefault("notification.webhook.timeout", 5.0)
	v.SetDefault("notification.rate_limit.enabled", false)
	v.SetDefault("notification.rate_limit.per_minute", 30)
	v.SetDefault("notification.rate_limit.burst", 10)
	v.SetDefault("notification.circuit_breaker.enabled", true)
	v.SetDefault("notification.circuit_breaker.max_failures", 5)
	v.SetDefault("notification.circuit_breaker.timeout", 30.0)
	v.SetDefault("notification.circuit_breaker.half_open_max_tries", 1)
	v.SetDefault("notification.emergency_contacts", defaultContacts())

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.slow_threshold", 0.2)
	v.SetDefault("database.sqlite.path", "radiation_monitoring.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "radmon")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "radmon")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "radmon")
	v.SetDefault("mqtt.topic", "radmon")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.discovery", false)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen", "127.0.0.1:8090")
	v.SetDefault("api.metrics", true)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.min_free_bytes", 64<<20)
	v.SetDefault("backup.targets", []map[string]any{{"type": "local", "path": "backups/archive"}})

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.console.format", "text")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	v.SetDefault("logging.file_output.compress", true)
}
