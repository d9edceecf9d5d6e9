package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the config dir at a temp dir, runs from an empty working
// directory and clears every SOMNUS_* variable.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	for _, k := range []string{EnvDB, EnvLogFile, EnvLogLevel, EnvListen} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != filepath.Join(dir, "config", "somnus", "somnus.db") {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.LogFile != filepath.Join(dir, "state", "somnus", "somnus.log") {
		t.Fatalf("LogFile = %q", cfg.LogFile)
	}
	if cfg.LogLevel != "info" || cfg.Listen != "127.0.0.1:7420" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "db_path: /tmp/custom.db\nlog_level: DEBUG\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Listen != "127.0.0.1:7420" {
		t.Fatal("unset fields should keep defaults")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "db_path: /tmp/file.db\nlisten: 127.0.0.1:1\n")
	t.Setenv(EnvDB, "/tmp/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("DBPath = %q, env should win", cfg.DBPath)
	}
	if cfg.Listen != "127.0.0.1:1" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), EnvListen+"=127.0.0.1:9999\n")
	t.Cleanup(func() { os.Unsetenv(EnvListen) })

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:9999" {
		t.Fatalf("Listen = %q, want value from .env", cfg.Listen)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HOME", dir)
	t.Setenv(EnvDB, "~/sleep.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != filepath.Join(dir, "sleep.db") {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
}

func TestLoadInvalidLevel(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "loud")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "loud") {
		t.Fatalf("expected invalid level error, got %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "db_path: [unterminated\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultPath(t *testing.T) {
	dir := isolate(t)
	path, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "config", "somnus", "config.yaml") {
		t.Fatalf("path = %q", path)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{LogLevel: "info"}).Validate(); err == nil {
		t.Fatal("missing db path should fail")
	}
	if err := (Config{DBPath: "x", LogLevel: "warn"}).Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWithOverride(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "log_level: verbose\n")
	t.Setenv(EnvDB, "/tmp/env.db")

	cfg, err := LoadWith(path, Config{DBPath: "/tmp/flag.db", LogLevel: "WARN"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/flag.db" || cfg.LogLevel != "warn" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
