package harness

import (
	"fmt"
	"os"

	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore"
	"github.com/koustreak/sqlconform/internal/logger"
	"go.yaml.in/yaml/v3"
)

// EnvDSN overrides database.dsn when set.
const EnvDSN = "SQLCONFORM_DSN"

// Config is the run configuration, usually loaded from YAML.
type Config struct {
	Database  database.Config  `yaml:"database"`
	Fixture   FixtureConfig    `yaml:"fixture"`
	Log       logger.Config    `yaml:"log"`
	FileStore filestore.Config `yaml:"filestore"`
	Server    ServerConfig     `yaml:"server"`

	// Expect lists the capabilities the backend must report. Nil skips the
	// capability comparison.
	Expect *database.Capabilities `yaml:"expect"`

	// Suites restricts the run to the named suites. Empty runs all of them.
	Suites []string `yaml:"suites"`
}

// FixtureConfig describes the table the cursor suites read.
type FixtureConfig struct {
	Table string `yaml:"table"`
	Rows  int    `yaml:"rows"`

	// Keep leaves the table in place after the run.
	Keep bool `yaml:"keep"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a config for a local Postgres.
func DefaultConfig() *Config {
	return &Config{
		Database: *database.DefaultConfig(""),
		Fixture: FixtureConfig{
			Table: "sqlconform_fixture",
			Rows:  5,
		},
		Log: *logger.DefaultConfig(),
		FileStore: filestore.Config{
			Provider: filestore.ProviderMinIO,
			Bucket:   filestore.DefaultBucket,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads path over the defaults and applies the environment
// override. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read config %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to parse config %s", path), err)
		}
	}
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverMySQL:
	default:
		return errs.InvalidInput(fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}
	if c.Fixture.Table == "" {
		return errs.InvalidInput("fixture.table is required")
	}
	if c.Fixture.Rows < 1 {
		return errs.InvalidInput("fixture.rows must be at least 1")
	}
	return nil
}
