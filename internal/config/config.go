package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/title-scout/internal/tracing"
	"gopkg.in/yaml.v3"
)

const dirName = ".title-scout"

// CacheConfig selects and locates the persistent cache tier.
type CacheConfig struct {
	Backend       string `json:"backend" yaml:"backend"` // file, sqlite, redis or memory
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	SQLitePath    string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

// ProviderConfig holds provider selection and credentials.
type ProviderConfig struct {
	Movie    string `json:"movie" yaml:"movie"`
	TVShow   string `json:"tvshow" yaml:"tvshow"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	Images   string `json:"images" yaml:"images"`

	TMDBAPIKey         string `json:"tmdb_api_key,omitempty" yaml:"tmdb_api_key,omitempty"`
	TVDBAPIKey         string `json:"tvdb_api_key,omitempty" yaml:"tvdb_api_key,omitempty"`
	OMDBAPIKey         string `json:"omdb_api_key,omitempty" yaml:"omdb_api_key,omitempty"`
	AllocinePartnerKey string `json:"allocine_partner_key,omitempty" yaml:"allocine_partner_key,omitempty"`
	FanartTVAPIKey     string `json:"fanarttv_api_key,omitempty" yaml:"fanarttv_api_key,omitempty"`

	IMDbHost     string `json:"imdb_host,omitempty" yaml:"imdb_host,omitempty"`
	SubsceneHost string `json:"subscene_host,omitempty" yaml:"subscene_host,omitempty"`
}

// Config is the application configuration.
type Config struct {
	Locale         string `json:"locale" yaml:"locale"`
	ResultLimit    int    `json:"result_limit" yaml:"result_limit"`
	SortByYear     bool   `json:"sort_by_year" yaml:"sort_by_year"`
	HTTPTimeoutSec int    `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	Proxy          string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	UserAgent      string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	WorkerCount    int    `json:"worker_count" yaml:"worker_count"`

	LogLevel         string `json:"log_level" yaml:"log_level"`
	EnableJournal    bool   `json:"enable_journal" yaml:"enable_journal"`
	JournalRetention int    `json:"journal_retention_days" yaml:"journal_retention_days"`

	Cache     CacheConfig    `json:"cache" yaml:"cache"`
	Providers ProviderConfig `json:"providers" yaml:"providers"`
	Tracing   tracing.Config `json:"tracing" yaml:"tracing"`
	Metrics   bool           `json:"metrics" yaml:"metrics"`
	ServeAddr string         `json:"serve_addr" yaml:"serve_addr"`

	path string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Locale:           "en",
		ResultLimit:      10,
		SortByYear:       true,
		HTTPTimeoutSec:   30,
		WorkerCount:      4,
		LogLevel:         "info",
		EnableJournal:    true,
		JournalRetention: 30,
		Cache: CacheConfig{
			Backend: "file",
		},
		Providers: ProviderConfig{
			Movie:    "imdb",
			TVShow:   "tvdb",
			Subtitle: "subscene",
			Images:   "fanarttv",
		},
		Metrics:   true,
		ServeAddr: ":8080",
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, dirName), nil
}

// ConfigPath returns the config file to read. An existing config.yaml wins,
// then config.json; with neither present config.yaml is returned.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	yamlPath := filepath.Join(dir, "config.yaml")
	jsonPath := filepath.Join(dir, "config.json")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath, nil
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return yamlPath, nil
}

// Load reads the configuration from its default location.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if isJSON(path) {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.fillDefaults()
	cfg.path = path
	return cfg, nil
}

// fillDefaults fills in any missing fields.
func (cfg *Config) fillDefaults() {
	defaults := DefaultConfig()
	if cfg.Locale == "" {
		cfg.Locale = defaults.Locale
	}
	if cfg.ResultLimit == 0 {
		cfg.ResultLimit = defaults.ResultLimit
	}
	if cfg.HTTPTimeoutSec == 0 {
		cfg.HTTPTimeoutSec = defaults.HTTPTimeoutSec
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.JournalRetention == 0 {
		cfg.JournalRetention = defaults.JournalRetention
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = defaults.Cache.Backend
	}
	if cfg.Providers.Movie == "" {
		cfg.Providers.Movie = defaults.Providers.Movie
	}
	if cfg.Providers.TVShow == "" {
		cfg.Providers.TVShow = defaults.Providers.TVShow
	}
	if cfg.Providers.Subtitle == "" {
		cfg.Providers.Subtitle = defaults.Providers.Subtitle
	}
	if cfg.Providers.Images == "" {
		cfg.Providers.Images = defaults.Providers.Images
	}
	if cfg.ServeAddr == "" {
		cfg.ServeAddr = defaults.ServeAddr
	}
}

// Path returns the file the configuration was loaded from.
func (cfg *Config) Path() string { return cfg.path }

// Save writes the configuration back to where it was loaded from, or to the
// default location.
func (cfg *Config) Save() error {
	path := cfg.path
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cfg.path = path
	return nil
}

// SaveAs writes the configuration to path and remembers it.
func (cfg *Config) SaveAs(path string) error {
	cfg.path = path
	return cfg.Save()
}

// HTTPTimeout returns the per-fetch timeout.
func (cfg *Config) HTTPTimeout() time.Duration {
	return time.Duration(cfg.HTTPTimeoutSec) * time.Second
}

// CacheDir returns the file cache directory.
func (cfg *Config) CacheDir() string {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	dir, err := Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), dirName, "cache")
	}
	return filepath.Join(dir, "cache")
}

// JournalDir returns the directory resolution journals are written to.
func (cfg *Config) JournalDir() string {
	dir, err := Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), dirName, "logs")
	}
	return filepath.Join(dir, "logs")
}

// Lookup resolves a dotted setting key for provider construction.
// Environment variables named TITLE_SCOUT_<KEY> (dots become underscores,
// upper-cased) take precedence over the file.
func (cfg *Config) Lookup(key string) (string, bool) {
	envKey := "TITLE_SCOUT_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if v, ok := os.LookupEnv(envKey); ok && v != "" {
		return v, true
	}

	var v string
	switch key {
	case "tmdb.apikey":
		v = cfg.Providers.TMDBAPIKey
	case "tvdb.apikey":
		v = cfg.Providers.TVDBAPIKey
	case "omdb.apikey":
		v = cfg.Providers.OMDBAPIKey
	case "allocine.partner":
		v = cfg.Providers.AllocinePartnerKey
	case "fanarttv.apikey":
		v = cfg.Providers.FanartTVAPIKey
	case "imdb.host":
		v = cfg.Providers.IMDbHost
	case "subscene.host":
		v = cfg.Providers.SubsceneHost
	case "search.locale":
		v = cfg.Locale
	case "search.limit":
		v = strconv.Itoa(cfg.ResultLimit)
	case "search.sort_by_year":
		v = strconv.FormatBool(cfg.SortByYear)
	case "http.proxy":
		v = cfg.Proxy
	case "http.user_agent":
		v = cfg.UserAgent
	case "http.timeout":
		v = strconv.Itoa(cfg.HTTPTimeoutSec)
	}
	return v, v != ""
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
