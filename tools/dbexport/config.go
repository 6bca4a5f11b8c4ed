package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

const maxBatchSize = 10000

// Config is the export job as given on the command line, completed from the
// radmon config file where flags are missing.
type Config struct {
	SQLitePath string

	// Either a full DSN or the discrete connection settings.
	MySQLDSN      string
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPass     string
	MySQLDatabase string

	BatchSize  int
	Clean      bool
	SkipVerify bool
	Verbose    bool

	ConfigPath string
}

// Load fills the gaps from config.yaml and checks the job can run.
func (c *Config) Load() error {
	if c.SQLitePath == "" || !c.hasTarget() {
		if err := c.readRadmonConfig(); err != nil && c.SQLitePath == "" {
			return fmt.Errorf("--sqlite-path is required (or provide config.yaml): %w", err)
		}
	}
	switch {
	case !c.hasTarget():
		return fmt.Errorf("--mysql-dsn or --mysql-host is required (or set database.mysql in config.yaml)")
	case c.BatchSize < 1 || c.BatchSize > maxBatchSize:
		return fmt.Errorf("batch-size must be between 1 and %d", maxBatchSize)
	}
	if _, err := os.Stat(c.SQLitePath); err != nil {
		return fmt.Errorf("SQLite database not found: %s", c.SQLitePath)
	}
	return nil
}

func (c *Config) hasTarget() bool {
	return c.MySQLDSN != "" || c.MySQLHost != ""
}

func (c *Config) configFile() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "radmon", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "config.yaml"
}

func (c *Config) readRadmonConfig() error {
	v := viper.New()
	v.SetConfigFile(c.configFile())
	v.SetDefault("database.mysql.port", 3306)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	if c.SQLitePath == "" {
		c.SQLitePath = v.GetString("database.sqlite.path")
	}
	if !c.hasTarget() && v.GetString("database.mysql.host") != "" {
		c.MySQLHost = v.GetString("database.mysql.host")
		c.MySQLPort = v.GetInt("database.mysql.port")
		c.MySQLUser = v.GetString("database.mysql.username")
		c.MySQLPass = v.GetString("database.mysql.password")
		c.MySQLDatabase = v.GetString("database.mysql.database")
	}
	return nil
}

func (c *Config) mysqlConfig() *mysql.Config {
	if c.MySQLDSN != "" {
		if mc, err := mysql.ParseDSN(c.MySQLDSN); err == nil {
			return mc
		}
		return nil
	}
	mc := mysql.NewConfig()
	mc.User = c.MySQLUser
	mc.Passwd = c.MySQLPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.MySQLHost, strconv.Itoa(c.MySQLPort))
	mc.DBName = c.MySQLDatabase
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc
}

// GetMySQLDSN returns the DSN handed to the gorm MySQL driver.
func (c *Config) GetMySQLDSN() string {
	if c.MySQLDSN != "" {
		return c.MySQLDSN
	}
	return c.mysqlConfig().FormatDSN()
}

// GetSanitizedMySQLDSN returns the DSN with the password replaced by ****.
func (c *Config) GetSanitizedMySQLDSN() string {
	mc := c.mysqlConfig()
	if mc == nil {
		return "<unparseable dsn>"
	}
	if mc.Passwd != "" {
		mc.Passwd = "****"
	}
	return mc.FormatDSN()
}
