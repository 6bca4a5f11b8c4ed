// Command dbexport copies a station's SQLite database into MySQL when the
// station moves to the shared backend. Row ids are preserved and rows that
// already exist in the target are skipped, so an interrupted export can be
// rerun.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &Config{}
	cmd := &cobra.Command{
		Use:          "dbexport",
		Short:        "Copy radmon sensors, measurements and alerts from SQLite to MySQL",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return export(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.SQLitePath, "sqlite-path", "", "source SQLite database file")
	f.StringVar(&cfg.MySQLDSN, "mysql-dsn", "", "target DSN, e.g. user:pass@tcp(host:3306)/dbname")
	f.StringVar(&cfg.MySQLHost, "mysql-host", "", "target host when no DSN is given")
	f.IntVar(&cfg.MySQLPort, "mysql-port", 3306, "target port")
	f.StringVar(&cfg.MySQLUser, "mysql-user", "radmon", "target user")
	f.StringVar(&cfg.MySQLPass, "mysql-pass", "", "target password")
	f.StringVar(&cfg.MySQLDatabase, "mysql-database", "radiation_monitoring", "target database")
	f.IntVar(&cfg.BatchSize, "batch-size", 1000, "rows per insert batch")
	f.BoolVar(&cfg.Clean, "clean", false, "delete existing target rows first")
	f.BoolVar(&cfg.SkipVerify, "skip-verify", false, "skip the row count and sample checks")
	f.BoolVar(&cfg.Verbose, "verbose", false, "print every batch")
	f.StringVar(&cfg.ConfigPath, "config", "", "radmon config.yaml used for missing connection settings")
	return cmd
}

func export(cmd *cobra.Command, cfg *Config) error {
	out := cmd.OutOrStdout()
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Verbose {
		fmt.Fprintf(out, "%s -> %s (batch %d, clean %t)\n",
			cfg.SQLitePath, cfg.GetSanitizedMySQLDSN(), cfg.BatchSize, cfg.Clean)
	}

	m, err := NewMigrator(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}
	defer m.Close()
	m.out = out

	stats, err := m.Run()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	stats.Print(out)

	if cfg.SkipVerify {
		return nil
	}
	v := NewVerifier(m.sourceDB, m.targetDB)
	v.out = out
	if err := v.Verify(); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	fmt.Fprintln(out, "verification passed")
	return nil
}
