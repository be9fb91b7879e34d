package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	appName  = "youtube-metadata"
	fileName = "config.json"

	// Backend names accepted in the backend setting.
	BackendYtdlp     = "ytdlp"
	BackendAPI       = "ytapi"
	BackendInnertube = "innertube"
)

// Keys of every setting, as written in config.json.
const (
	KeyCacheDir             = "cache_dir"
	KeyPluginsDir           = "plugins_dir"
	KeyBackend              = "backend"
	KeyAPIKey               = "api_key"
	KeyDisableLocalMetadata = "disable_local_metadata"
	KeyYtdlpPath            = "ytdlp_path"
	KeyFetchTimeout         = "fetch_timeout"
	KeyAPICourtesyDelay     = "api_courtesy_delay"
	KeySearchLimit          = "search_limit"
	KeyWorkerCount          = "worker_count"
	KeyProbeRuntime         = "probe_runtime"
	KeyLogLevel             = "log_level"
	KeyEnableLogging        = "enable_logging"
	KeyLogDir               = "log_dir"
	KeyLogRetentionDays     = "log_retention_days"
	KeyReindexInterval      = "reindex_interval"
)

// Config holds every user setting.
type Config struct {
	CacheDir             string
	PluginsDir           string
	Backend              string
	APIKey               string
	DisableLocalMetadata bool
	YtdlpPath            string
	FetchTimeout         time.Duration
	APICourtesyDelay     time.Duration
	SearchLimit          int
	WorkerCount          int
	ProbeRuntime         bool
	LogLevel             string
	EnableLogging        bool
	LogDir               string
	LogRetentionDays     int
	ReindexInterval      time.Duration

	// Path is the file the config was loaded from and is saved to.
	Path string
}

// Dir returns the default config directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), fileName)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheDir:         filepath.Join(xdg.CacheHome, appName),
		PluginsDir:       filepath.Join(xdg.DataHome, appName, "plugins"),
		Backend:          BackendYtdlp,
		FetchTimeout:     10 * time.Second,
		APICourtesyDelay: 10 * time.Second,
		SearchLimit:      10,
		WorkerCount:      4,
		LogLevel:         "info",
		EnableLogging:    true,
		LogDir:           filepath.Join(xdg.StateHome, appName, "logs"),
		LogRetentionDays: 30,
		ReindexInterval:  24 * time.Hour,
		Path:             DefaultPath(),
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyCacheDir, d.CacheDir)
	v.SetDefault(KeyPluginsDir, d.PluginsDir)
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyAPIKey, d.APIKey)
	v.SetDefault(KeyDisableLocalMetadata, d.DisableLocalMetadata)
	v.SetDefault(KeyYtdlpPath, d.YtdlpPath)
	v.SetDefault(KeyFetchTimeout, d.FetchTimeout)
	v.SetDefault(KeyAPICourtesyDelay, d.APICourtesyDelay)
	v.SetDefault(KeySearchLimit, d.SearchLimit)
	v.SetDefault(KeyWorkerCount, d.WorkerCount)
	v.SetDefault(KeyProbeRuntime, d.ProbeRuntime)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyEnableLogging, d.EnableLogging)
	v.SetDefault(KeyLogDir, d.LogDir)
	v.SetDefault(KeyLogRetentionDays, d.LogRetentionDays)
	v.SetDefault(KeyReindexInterval, d.ReindexInterval)
}

// Load reads the configuration. An empty path uses DefaultPath. A missing
// file yields the defaults. Settings can be overridden with YTMETA_<KEY>
// environment variables.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("YTMETA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		CacheDir:             v.GetString(KeyCacheDir),
		PluginsDir:           v.GetString(KeyPluginsDir),
		Backend:              strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		APIKey:               v.GetString(KeyAPIKey),
		DisableLocalMetadata: v.GetBool(KeyDisableLocalMetadata),
		YtdlpPath:            v.GetString(KeyYtdlpPath),
		FetchTimeout:         v.GetDuration(KeyFetchTimeout),
		APICourtesyDelay:     v.GetDuration(KeyAPICourtesyDelay),
		SearchLimit:          v.GetInt(KeySearchLimit),
		WorkerCount:          v.GetInt(KeyWorkerCount),
		ProbeRuntime:         v.GetBool(KeyProbeRuntime),
		LogLevel:             v.GetString(KeyLogLevel),
		EnableLogging:        v.GetBool(KeyEnableLogging),
		LogDir:               v.GetString(KeyLogDir),
		LogRetentionDays:     v.GetInt(KeyLogRetentionDays),
		ReindexInterval:      v.GetDuration(KeyReindexInterval),
		Path:                 path,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (cfg *Config) Validate() error {
	var errs []error
	switch cfg.Backend {
	case BackendYtdlp, BackendAPI, BackendInnertube:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s, %s or %s)", cfg.Backend, BackendYtdlp, BackendAPI, BackendInnertube))
	}
	if cfg.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir must not be empty"))
	}
	if cfg.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	}
	if cfg.SearchLimit <= 0 {
		errs = append(errs, errors.New("search_limit must be positive"))
	}
	if cfg.WorkerCount <= 0 {
		errs = append(errs, errors.New("worker_count must be positive"))
	}
	if cfg.LogRetentionDays < 0 {
		errs = append(errs, errors.New("log_retention_days must not be negative"))
	}
	if cfg.ReindexInterval <= 0 {
		errs = append(errs, errors.New("reindex_interval must be positive"))
	}
	return errors.Join(errs...)
}

// Values returns the settings keyed as in config.json. Durations are
// rendered as Go duration strings.
func (cfg *Config) Values() map[string]any {
	return map[string]any{
		KeyCacheDir:             cfg.CacheDir,
		KeyPluginsDir:           cfg.PluginsDir,
		KeyBackend:              cfg.Backend,
		KeyAPIKey:               cfg.APIKey,
		KeyDisableLocalMetadata: cfg.DisableLocalMetadata,
		KeyYtdlpPath:            cfg.YtdlpPath,
		KeyFetchTimeout:         cfg.FetchTimeout.String(),
		KeyAPICourtesyDelay:     cfg.APICourtesyDelay.String(),
		KeySearchLimit:          cfg.SearchLimit,
		KeyWorkerCount:          cfg.WorkerCount,
		KeyProbeRuntime:         cfg.ProbeRuntime,
		KeyLogLevel:             cfg.LogLevel,
		KeyEnableLogging:        cfg.EnableLogging,
		KeyLogDir:               cfg.LogDir,
		KeyLogRetentionDays:     cfg.LogRetentionDays,
		KeyReindexInterval:      cfg.ReindexInterval.String(),
	}
}

// Save writes the configuration to cfg.Path
func (cfg *Config) Save() error {
	path := cfg.Path
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg.Values(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns Values with the API key masked for display.
func (cfg *Config) Redacted() map[string]any {
	values := cfg.Values()
	if key := cfg.APIKey; key != "" {
		masked := "****"
		if len(key) > 4 {
			masked += key[len(key)-4:]
		}
		values[KeyAPIKey] = masked
	}
	return values
}
