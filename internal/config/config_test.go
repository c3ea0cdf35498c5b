package config

import (
	"strings"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithLookup(lookupFrom(map[string]string{
		"TSC_DATABASE_URL": "postgres://localhost/traffic",
		"TSC_REDIS_URL":    "redis://localhost:6379/0",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProjectName != "traffic-signal-controller" {
		t.Fatalf("project name = %q", cfg.ProjectName)
	}
	if cfg.HTTPAddr != ":8001" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithLookup(lookupFrom(map[string]string{
		"TSC_DATABASE_URL": "postgres://db/traffic",
		"TSC_REDIS_URL":    "redis://cache:6379/1",
		"TSC_PROJECT_NAME": " city-grid ",
		"TSC_HTTP_ADDR":    ":9090",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProjectName != "city-grid" {
		t.Fatalf("project name = %q, want trimmed override", cfg.ProjectName)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Parallel()

	_, err := LoadWithLookup(lookupFrom(map[string]string{
		"TSC_REDIS_URL": "redis://localhost:6379/0",
	}))
	if err == nil || !strings.Contains(err.Error(), "TSC_DATABASE_URL") {
		t.Fatalf("expected database url error, got %v", err)
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Parallel()

	_, err := LoadWithLookup(lookupFrom(map[string]string{
		"TSC_DATABASE_URL": "postgres://localhost/traffic",
		"TSC_REDIS_URL":    "   ",
	}))
	if err == nil || !strings.Contains(err.Error(), "TSC_REDIS_URL") {
		t.Fatalf("expected redis url error, got %v", err)
	}
}
