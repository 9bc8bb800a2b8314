package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8985 {
		t.Errorf("default port = %d, want 8985", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "badger" {
		t.Errorf("default driver = %q, want badger", cfg.Storage.Driver)
	}
	if cfg.Storage.Bucket != "tabula" {
		t.Errorf("default bucket = %q, want tabula", cfg.Storage.Bucket)
	}
	if cfg.Index.MaxJobs != 100 {
		t.Errorf("default max jobs = %d, want 100", cfg.Index.MaxJobs)
	}
	if cfg.Index.MaxLogEntries != 200 {
		t.Errorf("default max log entries = %d, want 200", cfg.Index.MaxLogEntries)
	}
	if cfg.Index.IndexKey != "jobs/index.json" {
		t.Errorf("default index key = %q", cfg.Index.IndexKey)
	}
	if cfg.Cleanup.RetentionDays != 30 {
		t.Errorf("default retention days = %d, want 30", cfg.Cleanup.RetentionDays)
	}
	if cfg.Cleanup.StuckTimeoutMinutes != 30 {
		t.Errorf("default stuck timeout = %d, want 30", cfg.Cleanup.StuckTimeoutMinutes)
	}
	if cfg.Cleanup.StuckScanLimit != 500 {
		t.Errorf("default stuck scan limit = %d, want 500", cfg.Cleanup.StuckScanLimit)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "tabula.toml", `
environment = "production"

[server]
port = 9000

[storage]
driver = "memory"
bucket = "jobs-test"

[index]
max_log_entries = 10
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment = %q, want production", cfg.Environment)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Index.MaxLogEntries != 10 {
		t.Errorf("max log entries = %d, want 10", cfg.Index.MaxLogEntries)
	}
	// Untouched keys keep their defaults
	if cfg.Index.MaxJobs != 100 {
		t.Errorf("max jobs = %d, want default 100", cfg.Index.MaxJobs)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host = %q, want default localhost", cfg.Server.Host)
	}
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
[server]
port = 9000
`)
	local := writeConfigFile(t, "local.toml", `
[server]
port = 9001
`)

	cfg, err := LoadFromFiles(base, local)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001 from later file", cfg.Server.Port)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/tabula.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TABULA_SERVER_PORT", "7777")
	t.Setenv("TABULA_STORAGE_DRIVER", "memory")
	t.Setenv("TABULA_STORAGE_BUCKET", "env-bucket")
	t.Setenv("TABULA_INDEX_MAX_JOBS", "25")
	t.Setenv("TABULA_CLEANUP_RETENTION_DAYS", "7")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Storage.Bucket != "env-bucket" {
		t.Errorf("bucket = %q, want env-bucket", cfg.Storage.Bucket)
	}
	if cfg.Index.MaxJobs != 25 {
		t.Errorf("max jobs = %d, want 25", cfg.Index.MaxJobs)
	}
	if cfg.Cleanup.RetentionDays != 7 {
		t.Errorf("retention days = %d, want 7", cfg.Cleanup.RetentionDays)
	}
}

func TestValidationRejectsBadDriver(t *testing.T) {
	path := writeConfigFile(t, "bad.toml", `
[storage]
driver = "dynamo"
`)

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected validation error for unknown storage driver")
	}
}

func TestValidationRejectsBadPort(t *testing.T) {
	path := writeConfigFile(t, "bad.toml", `
[server]
port = 70000
`)

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}

func TestLogKey(t *testing.T) {
	cfg := NewDefaultConfig()
	got := cfg.Index.LogKey("job_abc")
	want := "jobs/logs/job_abc.json"
	if got != want {
		t.Errorf("LogKey = %q, want %q", got, want)
	}
}
