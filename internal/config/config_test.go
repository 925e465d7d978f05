package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidateWithAdminKey(t *testing.T) {
	cfg := Defaults()
	cfg.Server.AdminKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Storage.Backend = "sqlite"
	cfg.LogLevel = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"port must be 1-65535", "unknown backend", "unknown log_level", "admin_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateMemoryBackendSkipsInfra(t *testing.T) {
	cfg := Defaults()
	cfg.Server.AdminKey = "secret"
	cfg.Storage.Backend = "memory"
	// Gut the infra sections; the memory backend must not require them.
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidatePostgresRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Server.AdminKey = "secret"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"postgres: host", "postgres: database", "redis: addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}

	// A DSN stands in for the discrete connection fields.
	cfg.Postgres.DSN = "postgres://u:p@db:5432/arena"
	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with DSN: %v", err)
	}
}

func TestValidateS3AndNotify(t *testing.T) {
	cfg := Defaults()
	cfg.Server.AdminKey = "secret"
	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""
	cfg.Notify.TelegramToken = "tok"
	cfg.Notify.TelegramChatID = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"s3: bucket", "telegram_chat_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[server]
port = 9100
admin_key = "file-key"

[storage]
backend = "memory"

[limits]
bets_per_minute = 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 || cfg.Server.AdminKey != "file-key" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "memory" || cfg.LogLevel != "debug" {
		t.Fatalf("backend = %q, log_level = %q", cfg.Storage.Backend, cfg.LogLevel)
	}
	if cfg.Limits.BetsPerMinute != 5 {
		t.Fatalf("bets_per_minute = %d", cfg.Limits.BetsPerMinute)
	}
	// Untouched sections keep their defaults.
	if cfg.Limits.VotesPerMinute != 60 || cfg.Postgres.Port != 5432 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Storage.Backend != "postgres" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_SERVER_PORT", "9200")
	t.Setenv("ARENA_ADMIN_KEY", "env-key")
	t.Setenv("ARENA_STORAGE_BACKEND", "memory")
	t.Setenv("ARENA_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("ARENA_LIMITS_VOTES_PER_MINUTE", "120")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 || cfg.Server.AdminKey != "env-key" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Postgres.RunMigrations {
		t.Fatal("run_migrations override not applied")
	}
	if cfg.Limits.VotesPerMinute != 120 {
		t.Fatalf("votes_per_minute = %d", cfg.Limits.VotesPerMinute)
	}
}

func TestDatabaseURLAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/arena")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://u:p@db:5432/arena" {
		t.Fatalf("dsn = %q", cfg.Postgres.DSN)
	}
}

func TestEnvUnparsableValuesIgnored(t *testing.T) {
	t.Setenv("ARENA_SERVER_PORT", "not-a-number")
	t.Setenv("ARENA_REDIS_TLS_ENABLED", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("port = %d, want default 8000", cfg.Server.Port)
	}
	if cfg.Redis.TLSEnabled {
		t.Fatal("tls_enabled flipped by unparsable value")
	}
}
