// Package config resolves service settings from the process environment.
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envDatabaseURL = "TSC_DATABASE_URL"
	envRedisURL    = "TSC_REDIS_URL"
	envProjectName = "TSC_PROJECT_NAME"
	envHTTPAddr    = "TSC_HTTP_ADDR"

	defaultProjectName = "traffic-signal-controller"
	defaultHTTPAddr    = ":8001"
)

// Config is the service configuration. DatabaseURL and RedisURL are required.
type Config struct {
	DatabaseURL string
	RedisURL    string
	ProjectName string
	HTTPAddr    string
}

// Load resolves configuration from the process environment.
func Load() (Config, error) {
	return LoadWithLookup(os.LookupEnv)
}

// LoadWithLookup resolves configuration using the supplied lookup function.
func LoadWithLookup(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("env lookup function is required")
	}
	get := func(name string, fallback string) string {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}
	cfg := Config{
		DatabaseURL: get(envDatabaseURL, ""),
		RedisURL:    get(envRedisURL, ""),
		ProjectName: get(envProjectName, defaultProjectName),
		HTTPAddr:    get(envHTTPAddr, defaultHTTPAddr),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required settings.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s is required", envDatabaseURL)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("%s is required", envRedisURL)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http addr is required")
	}
	return nil
}
