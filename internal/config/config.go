package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7451"
	DefaultOCRURL     = "http://127.0.0.1:5000"
	DefaultDBFileName = "signlens.db"
	DefaultDataDir    = ".signlens"
	DefaultLogLevel   = "info"

	DefaultCacheMaxBytes    int64 = 100 * 1024 * 1024
	DefaultThumbnailWidth         = 200
	DefaultThumbnailQuality       = 70

	// Env override keys, shared with the CLI's server-spawn path.
	EnvConfigDir = "SIGNLENS_CONFIG_DIR"
	EnvDB        = "SIGNLENS_DB"
	EnvAPIURL    = "SIGNLENS_API_URL"
	EnvOCRURL    = "SIGNLENS_OCR_URL"

	configFileName = ".signlens.toml"
)

// CacheConfig defines storage budget and thumbnailing behavior for the image cache.
type CacheConfig struct {
	MaxSizeBytes     int64 `toml:"max_size_bytes"`
	ThumbnailWidth   int   `toml:"thumbnail_width"`
	ThumbnailQuality int   `toml:"thumbnail_quality"`
}

// Config defines runtime configuration for signlens.
type Config struct {
	DataDir    string      `toml:"data_dir"`
	DBPath     string      `toml:"db_path"`
	APIURL     string      `toml:"api_url"`
	OCRURL     string      `toml:"ocr_url"`
	TTSCommand string      `toml:"tts_command"`
	LogLevel   string      `toml:"log_level"`
	Cache      CacheConfig `toml:"cache"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:     DefaultAPIURL,
		OCRURL:     DefaultOCRURL,
		TTSCommand: "espeak-ng",
		LogLevel:   DefaultLogLevel,
		Cache: CacheConfig{
			MaxSizeBytes:     DefaultCacheMaxBytes,
			ThumbnailWidth:   DefaultThumbnailWidth,
			ThumbnailQuality: DefaultThumbnailQuality,
		},
	}
}

// CapturesDir returns the blob cache directory for full images.
func (c *Config) CapturesDir() string {
	return filepath.Join(c.DataDir, "captures")
}

// ThumbnailsDir returns the blob cache directory for thumbnails.
func (c *Config) ThumbnailsDir() string {
	return filepath.Join(c.DataDir, "thumbnails")
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(EnvConfigDir))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

// GlobalPath returns the path to the config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err == nil {
		if _, loadErr := loadFileIfExists(path, &cfg); loadErr != nil {
			return nil, loadErr
		}
	}

	if cfg.DataDir == "" {
		if home, homeErr := os.UserHomeDir(); homeErr == nil {
			cfg.DataDir = filepath.Join(home, DefaultDataDir)
		} else {
			cfg.DataDir = DefaultDataDir
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DefaultDBFileName)
	}

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if ocrURL := os.Getenv(EnvOCRURL); ocrURL != "" {
		cfg.OCRURL = ocrURL
	}
	if dbPath := os.Getenv(EnvDB); dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.normalizeCacheDefaults()

	return &cfg, nil
}

var allowedKeys = []string{
	"data_dir",
	"db_path",
	"api_url",
	"ocr_url",
	"tts_command",
	"log_level",
	"cache.max_size_bytes",
	"cache.thumbnail_width",
	"cache.thumbnail_quality",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "db_path":
		return c.DBPath, nil
	case "api_url":
		return c.APIURL, nil
	case "ocr_url":
		return c.OCRURL, nil
	case "tts_command":
		return c.TTSCommand, nil
	case "log_level":
		return c.LogLevel, nil
	case "cache.max_size_bytes":
		return strconv.FormatInt(c.Cache.MaxSizeBytes, 10), nil
	case "cache.thumbnail_width":
		return strconv.Itoa(c.Cache.ThumbnailWidth), nil
	case "cache.thumbnail_quality":
		return strconv.Itoa(c.Cache.ThumbnailQuality), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "cache.max_size_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "cache.thumbnail_width", "cache.thumbnail_quality":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeCacheDefaults() {
	if c.Cache.MaxSizeBytes <= 0 {
		c.Cache.MaxSizeBytes = DefaultCacheMaxBytes
	}
	if c.Cache.ThumbnailWidth <= 0 {
		c.Cache.ThumbnailWidth = DefaultThumbnailWidth
	}
	if c.Cache.ThumbnailQuality <= 0 || c.Cache.ThumbnailQuality > 100 {
		c.Cache.ThumbnailQuality = DefaultThumbnailQuality
	}
}
