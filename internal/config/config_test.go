package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v, want nil", err)
	}
	if cfg.Backend != BackendYtdlp {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendYtdlp)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.APICourtesyDelay != 10*time.Second {
		t.Errorf("timeouts = %v/%v, want 10s/10s", cfg.FetchTimeout, cfg.APICourtesyDelay)
	}
	if !filepath.IsAbs(cfg.CacheDir) || filepath.Base(cfg.CacheDir) != appName {
		t.Errorf("CacheDir = %q, want absolute path ending in %s", cfg.CacheDir, appName)
	}
	if filepath.Base(cfg.Path) != "config.json" {
		t.Errorf("Path = %q, want config.json", cfg.Path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "config.json")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	want := DefaultConfig()
	want.Path = path
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{
  "cache_dir": "/srv/cache",
  "plugins_dir": "/srv/plugins",
  "backend": "YTAPI",
  "api_key": "AIzaSyExample",
  "disable_local_metadata": true,
  "ytdlp_path": "/usr/local/bin/yt-dlp",
  "fetch_timeout": "30s",
  "api_courtesy_delay": "1s",
  "search_limit": 5,
  "worker_count": 8,
  "probe_runtime": true,
  "log_level": "debug",
  "enable_logging": false,
  "log_dir": "/srv/logs",
  "log_retention_days": 7,
  "reindex_interval": "12h"
}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		CacheDir:             "/srv/cache",
		PluginsDir:           "/srv/plugins",
		Backend:              BackendAPI,
		APIKey:               "AIzaSyExample",
		DisableLocalMetadata: true,
		YtdlpPath:            "/usr/local/bin/yt-dlp",
		FetchTimeout:         30 * time.Second,
		APICourtesyDelay:     time.Second,
		SearchLimit:          5,
		WorkerCount:          8,
		ProbeRuntime:         true,
		LogLevel:             "debug",
		EnableLogging:        false,
		LogDir:               "/srv/logs",
		LogRetentionDays:     7,
		ReindexInterval:      12 * time.Hour,
		Path:                 path,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `{"backend": "innertube", "worker_count": 2}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	want.Backend = BackendInnertube
	want.WorkerCount = 2
	want.Path = path
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		content string
		wantMsg string
	}{
		"invalid json":     {content: `{"backend": `, wantMsg: "failed to read config file"},
		"unknown backend":  {content: `{"backend": "vimeo"}`, wantMsg: "unknown backend"},
		"zero workers":     {content: `{"worker_count": 0}`, wantMsg: "worker_count"},
		"negative timeout": {content: `{"fetch_timeout": "-1s"}`, wantMsg: "fetch_timeout"},
		"negative days":    {content: `{"log_retention_days": -1}`, wantMsg: "log_retention_days"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestSave(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Path = path
	cfg.Backend = BackendAPI
	cfg.APIKey = "secret-key"
	cfg.ReindexInterval = 6 * time.Hour

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved config is not JSON: %v", err)
	}
	if raw[KeyReindexInterval] != "6h0m0s" {
		t.Errorf("saved reindex_interval = %v, want 6h0m0s", raw[KeyReindexInterval])
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("Load(Save(cfg)) mismatch (-want +got):\n%s", diff)
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		key  string
		want string
	}{
		"empty": {key: "", want: ""},
		"short": {key: "abc", want: "****"},
		"long":  {key: "AIzaSyExample1234", want: "****1234"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.APIKey = tc.key
			if got := cfg.Redacted()[KeyAPIKey]; got != tc.want {
				t.Errorf("Redacted()[api_key] = %v, want %q", got, tc.want)
			}
		})
	}
}
