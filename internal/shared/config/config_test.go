package config

import (
	"os"
	"path/filepath"
	"testing"

	"freeproxy_pool/internal/shared/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadIni_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "proxypool.ini", `
[pool]
proxies_needed = 4
want_https = false

[validator]
timeout_seconds = 2

[log]
level = debug
`)
	cfg := types.DefaultConfig()
	if err := LoadIni(cfg, path); err != nil {
		t.Fatalf("LoadIni() returned an error: %v", err)
	}

	if cfg.PoolConf.ProxiesNeeded != 4 {
		t.Errorf("Expected proxies_needed 4, got %d", cfg.PoolConf.ProxiesNeeded)
	}
	if cfg.PoolConf.WantHTTPS {
		t.Error("Expected want_https to be false")
	}
	if cfg.ValidatorConf.TimeoutSeconds != 2 {
		t.Errorf("Expected timeout 2, got %d", cfg.ValidatorConf.TimeoutSeconds)
	}
	// Untouched keys keep their defaults.
	if cfg.ValidatorConf.Attempts != 3 {
		t.Errorf("Expected default attempts 3, got %d", cfg.ValidatorConf.Attempts)
	}
	if cfg.LogConf.Level != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.LogConf.Level)
	}
}

func TestLoadIni_EnvOverride(t *testing.T) {
	path := writeFile(t, "proxypool.ini", "[pool]\nproxies_needed = 4\n")
	t.Setenv("PROXIES_NEEDED", "7")
	t.Setenv("PROXY_ORACLE_URL", "http://oracle.test/ip")

	cfg := types.DefaultConfig()
	if err := LoadIni(cfg, path); err != nil {
		t.Fatalf("LoadIni() returned an error: %v", err)
	}
	if cfg.PoolConf.ProxiesNeeded != 7 {
		t.Errorf("Expected env override 7, got %d", cfg.PoolConf.ProxiesNeeded)
	}
	if cfg.ValidatorConf.OracleURL != "http://oracle.test/ip" {
		t.Errorf("Expected oracle override, got %q", cfg.ValidatorConf.OracleURL)
	}
}

func TestLoadSources(t *testing.T) {
	path := writeFile(t, "sources.yaml", `
sources:
  - name: local-plain
    url: http://127.0.0.1:9000/list
    https: false
  - name: local-spys
    url: http://127.0.0.1:9000/spys
    format: obfuscated
    https: true
`)
	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources() returned an error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].Format != "plain" || sources[0].Scheme != "http" {
		t.Errorf("Expected defaults to be filled in, got %+v", sources[0])
	}
	if sources[1].Format != "obfuscated" || !sources[1].HTTPS {
		t.Errorf("Unexpected second source: %+v", sources[1])
	}
}

func TestLoadSources_MissingFileFallsBack(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadSources() returned an error: %v", err)
	}
	if len(sources) != len(types.DefaultSources()) {
		t.Errorf("Expected built-in sources, got %d entries", len(sources))
	}
}

func TestLoadSources_RejectsMissingURL(t *testing.T) {
	path := writeFile(t, "sources.yaml", "sources:\n  - name: broken\n")
	if _, err := LoadSources(path); err == nil {
		t.Fatal("Expected an error for a source without url")
	}
}
