package mysql

import (
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultConnectTimeout  = 5 * time.Second
	defaultPort            = 3306
)

// openPool configures and returns a *sql.DB with pool settings.
func openPool(cfg *database.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to open mysql", err)
	}

	maxOpen := int(cfg.MaxConns)
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := int(cfg.MinConns)
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(durationOr(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(durationOr(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	return db, nil
}

// buildDSN returns a DSN with parseTime enabled. An explicit cfg.DSN is
// parsed and re-emitted so the option is set either way.
func buildDSN(cfg *database.Config) (string, error) {
	var mc *gomysql.Config
	if cfg.DSN != "" {
		parsed, err := gomysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
		}
		mc = parsed
	} else {
		port := cfg.Port
		if port == 0 {
			port = defaultPort
		}
		mc = gomysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
		mc.DBName = cfg.Database
	}
	mc.ParseTime = true
	mc.MultiStatements = true
	if mc.Timeout == 0 {
		mc.Timeout = connectTimeout(cfg)
	}
	return mc.FormatDSN(), nil
}

func connectTimeout(cfg *database.Config) time.Duration {
	return durationOr(cfg.ConnectTimeout, defaultConnectTimeout)
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
