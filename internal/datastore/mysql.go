package datastore

import (
	"context"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.DatabaseSettings
}

// DSN builds the driver connection string. Times are stored in UTC.
func (store *MySQLStore) DSN() string {
	my := store.Settings.MySQL
	cfg := gomysql.NewConfig()
	cfg.User = my.Username
	cfg.Passwd = my.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(my.Host, strconv.Itoa(my.Port))
	cfg.DBName = my.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	my := store.Settings.MySQL
	gormLogger := logger.NewGormLoggerAdapter(GetLogger(), store.Settings.SlowThreshold.Duration())

	db, err := gorm.Open(mysql.New(mysql.Config{DSN: store.DSN()}), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return dbError(err, "open", errors.PriorityCritical,
			"db_type", "mysql",
			"host", my.Host,
			"port", my.Port,
			"database", my.Database)
	}

	store.DB = db
	if err := performAutoMigration(db, "mysql"); err != nil {
		return err
	}
	GetLogger().Info("mysql database opened",
		logger.String("host", my.Host),
		logger.Int("port", my.Port),
		logger.String("database", my.Database))
	return nil
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}

// ErrBackupUnsupported is returned by backends that cannot copy themselves.
var ErrBackupUnsupported = errors.NewStd("backup is not supported for the mysql backend")

// Backup is not available for MySQL; use the server's own tooling.
func (store *MySQLStore) Backup(_ context.Context, _ string) error {
	return errors.New(ErrBackupUnsupported).
		Component("datastore").
		Category(errors.CategoryBackup).
		Context("db_type", "mysql").
		Build()
}
