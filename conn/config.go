package conn

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/lockql/internal/render"
	"gopkg.in/yaml.v3"
)

// Config describes a connection in YAML.
//
//	driver: pgx
//	dsn: postgres://app@localhost/app
//	log_level: debug
//	server:
//	  version: "16.2"
//	replicas:
//	  - postgres://app@replica/app
type Config struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	Dialect      string        `yaml:"dialect,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	MaxOpenConns int           `yaml:"max_open_conns,omitempty"`
	Server       *ServerConfig `yaml:"server,omitempty"`
	Replicas     []string      `yaml:"replicas,omitempty"`
}

// ServerConfig pins the server facts instead of probing for them.
type ServerConfig struct {
	Version       string `yaml:"version"`
	Variant       string `yaml:"variant,omitempty"`
	StorageEngine string `yaml:"storage_engine,omitempty"`
}

// LoadConfig reads a YAML config file. Environment variables in the DSNs
// are expanded.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.DSN = os.ExpandEnv(cfg.DSN)
	for i, dsn := range cfg.Replicas {
		cfg.Replicas[i] = os.ExpandEnv(dsn)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the config can be opened.
func (c Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.Server != nil {
		if _, err := render.ParseVersion(c.Server.Version); err != nil {
			return fmt.Errorf("server version: %w", err)
		}
	}
	return nil
}

// options translates the config into DB options, applied before extra.
func (c Config) options(extra []Option) ([]Option, error) {
	var opts []Option
	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		log := logrus.New()
		log.SetLevel(level)
		opts = append(opts, WithLogger(log))
	}
	if c.Dialect != "" {
		opts = append(opts, WithDialect(c.Dialect))
	}
	if c.Server != nil {
		v, err := render.ParseVersion(c.Server.Version)
		if err != nil {
			return nil, fmt.Errorf("server version: %w", err)
		}
		opts = append(opts, WithServerInfo(render.ServerInfo{
			Version:       v,
			Variant:       c.Server.Variant,
			StorageEngine: c.Server.StorageEngine,
		}))
	}
	return append(opts, extra...), nil
}

// FromConfig opens the primary database described by cfg.
func FromConfig(cfg Config, opts ...Option) (*DB, error) {
	return openDSN(cfg, cfg.DSN, opts)
}

func openDSN(cfg Config, dsn string, extra []Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.options(extra)
	if err != nil {
		return nil, err
	}
	d, err := Open(cfg.Driver, dsn, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		d.db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return d, nil
}
