package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config is loaded from defaults, then an optional yaml file, then
// TSUNDOKU_-prefixed environment variables (double underscore nests keys,
// e.g. TSUNDOKU_SERVER__PORT maps to server.port).
type Config struct {
	Environment string         `koanf:"environment"`
	Server      ServerConfig   `koanf:"server"`
	Database    DatabaseConfig `koanf:"database"`
	Identity    IdentityConfig `koanf:"identity"`
	Catalog     CatalogConfig  `koanf:"catalog"`
	Storage     StorageConfig  `koanf:"storage"`

	// Fixed operational knobs, not exposed through the config file.
	DatabaseConnectRetryCount int           `koanf:"-"`
	DatabaseConnectRetryDelay time.Duration `koanf:"-"`
	DatabaseBusyTimeout       time.Duration `koanf:"-"`
	CatalogTimeout            time.Duration `koanf:"-"`
	TagCacheTTL               time.Duration `koanf:"-"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DatabaseConfig struct {
	FilePath string `koanf:"file_path"`
	Debug    bool   `koanf:"debug"`
}

// IdentityConfig configures verification of tokens minted by the external
// identity provider.
type IdentityConfig struct {
	Issuer string `koanf:"issuer"`
	Secret string `koanf:"secret"`
}

type CatalogConfig struct {
	// APIKey is the Google Books API key used by the catalog search proxy.
	APIKey string `koanf:"api_key"`
}

type StorageConfig struct {
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	Bucket        string `koanf:"bucket"`
	UseSSL        bool   `koanf:"use_ssl"`
	PublicBaseURL string `koanf:"public_base_url"`
}

const (
	envPrefix     = "TSUNDOKU_"
	configFileENV = "CONFIG_FILE"
)

func New() (*Config, error) {
	cfg := &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4770,
		},
		Database: DatabaseConfig{
			FilePath: "./tmp/data.sqlite",
		},
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		CatalogTimeout:            15 * time.Second,
		TagCacheTTL:               60 * time.Second,
	}

	k := koanf.New(".")

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	switch cfg.Environment {
	case "development":
		cfg.Database.Debug = true
	case "test":
		cfg.Database.FilePath = ":memory:"
	}

	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(configFileENV); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
