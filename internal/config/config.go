// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// A .env file in the working directory, if present, is loaded into the
// environment first, so every env:"..." override can live there too.
package config

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// StoragePath is the filesystem path to the SQLite cache file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`

	API   `yaml:"api"`
	Probe `yaml:"probe"`

	// HTTPServer is only read by the mock course API.
	HTTPServer `yaml:"http_server"`
}

// API holds settings for the remote course API.
type API struct {
	// BaseURL is the scheme+host the REST paths are appended to,
	// e.g. "http://10.0.2.2:5000".
	BaseURL string `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`

	// ImageBaseURL is what relative image paths are resolved against.
	// Defaults to BaseURL when empty.
	ImageBaseURL string `yaml:"image_base_url" env:"API_IMAGE_BASE_URL"`

	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

// Probe holds settings for the connectivity check.
type Probe struct {
	// Address is the host:port dialled to decide whether we are online.
	// Defaults to the host of API.BaseURL.
	Address string        `yaml:"address" env:"PROBE_ADDRESS"`
	Timeout time.Duration `yaml:"timeout" env:"PROBE_TIMEOUT" env-default:"2s"`
}

// HTTPServer holds settings for the mock course API server.
type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:5000"`
}

// MustLoad reads, validates, and returns the application config.
// It exits the process on failure.
func MustLoad() *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}
	return cfg
}

// Load reads the YAML file at path, applies env overrides and defaults,
// and fills in derived values.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDerived(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDerived() error {
	base, err := url.Parse(c.API.BaseURL)
	if err != nil || base.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}

	if c.API.ImageBaseURL == "" {
		c.API.ImageBaseURL = c.API.BaseURL
	}

	if c.Probe.Address == "" {
		port := base.Port()
		if port == "" {
			port = "80"
			if base.Scheme == "https" {
				port = "443"
			}
		}
		c.Probe.Address = net.JoinHostPort(base.Hostname(), port)
	}
	return nil
}
