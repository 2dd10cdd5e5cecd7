package util

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var (
	errStorageInvalid       = errors.New("storage must be postgres or memory")
	errPostgresUserRequired = errors.New("postgres username is required")
	errPostgresHostRequired = errors.New("postgres host is required")
	errPostgresPortRequired = errors.New("postgres port is required")
	errBindPortRequired     = errors.New("http bind-port is required")
)

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type PostgresConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	DB       string `toml:"db"`
	SSLMode  string `toml:"ssl-mode"`
	Workers  int    `toml:"workers"`
}

type HTTPConfig struct {
	BindHost       string   `toml:"bind-host"`
	BindPort       int      `toml:"bind-port"`
	ReadTimeout    duration `toml:"read-timeout"`
	WriteTimeout   duration `toml:"write-timeout"`
	LineBufferSize int      `toml:"line-buffer-size"`
}

type Config struct {
	Storage           string         `toml:"storage"`
	LogLevel          string         `toml:"log-level"`
	Timezone          string         `toml:"timezone"`
	TimezoneCacheSize int            `toml:"timezone-cache-size"`
	Postgres          PostgresConfig `toml:"postgres"`
	HTTP              HTTPConfig     `toml:"http"`
}

func defaultConfig() *Config {
	return &Config{
		Storage:           StoragePostgres,
		LogLevel:          "info",
		Timezone:          "UTC",
		TimezoneCacheSize: 64,
		Postgres: PostgresConfig{
			Port:    5432,
			DB:      "monportal",
			SSLMode: "disable",
			Workers: 4,
		},
		HTTP: HTTPConfig{
			BindHost:       "0.0.0.0",
			ReadTimeout:    duration{10 * time.Second},
			WriteTimeout:   duration{10 * time.Second},
			LineBufferSize: 65536,
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. MONPORTAL_PG_PASSWORD
// overrides the password from the file.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if p := os.Getenv("MONPORTAL_PG_PASSWORD"); p != "" {
		cfg.Postgres.Password = p
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.Username == "" {
			return errPostgresUserRequired
		}
		if c.Postgres.Host == "" {
			return errPostgresHostRequired
		}
		if c.Postgres.Port == 0 {
			return errPostgresPortRequired
		}
	default:
		return errStorageInvalid
	}
	if c.HTTP.BindPort == 0 {
		return errBindPortRequired
	}
	if c.Postgres.Workers < 1 {
		c.Postgres.Workers = 1
	}
	return nil
}

func (c *HTTPConfig) ReadTimeoutDuration() time.Duration {
	return c.ReadTimeout.Duration
}

func (c *HTTPConfig) WriteTimeoutDuration() time.Duration {
	return c.WriteTimeout.Duration
}
