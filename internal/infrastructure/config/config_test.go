package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Fatalf("expected default port 3001, got %d", cfg.Server.Port)
	}
	if cfg.JWT.SignupExpiresIn != time.Hour {
		t.Fatalf("expected signup ttl 1h, got %s", cfg.JWT.SignupExpiresIn)
	}
	if cfg.JWT.LoginExpiresIn != time.Minute {
		t.Fatalf("expected login ttl 1m, got %s", cfg.JWT.LoginExpiresIn)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Security.RateLimitStore != "memory" {
		t.Fatalf("expected memory rate limit store, got %q", cfg.Security.RateLimitStore)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_LOGIN_EXPIRES_IN", "1h")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/xpresstask.db")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("RATE_LIMIT_STORE", "redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.LoginExpiresIn != time.Hour {
		t.Fatalf("expected login ttl override, got %s", cfg.JWT.LoginExpiresIn)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("expected port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Security.RateLimitStore != "redis" {
		t.Fatalf("expected redis store, got %q", cfg.Security.RateLimitStore)
	}
	if got := cfg.Database.GetDSN(); !strings.HasPrefix(got, "/tmp/xpresstask.db?") || !strings.Contains(got, "_foreign_keys=on") {
		t.Fatalf("unexpected sqlite dsn %q", got)
	}
}

func TestLoadRejectsPlaceholderSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for placeholder secret")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 3001},
			Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "xpresstask"},
			JWT:      JWTConfig{Secret: "s", SignupExpiresIn: time.Hour, LoginExpiresIn: time.Minute},
			Security: SecurityConfig{RateLimitStore: "memory"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite3"; c.Database.Path = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"zero login ttl", func(c *Config) { c.JWT.LoginExpiresIn = 0 }},
		{"unknown limiter", func(c *Config) { c.Security.RateLimitStore = "memcached" }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Fatalf("GetDSN() = %q, want %q", got, want)
	}
}
