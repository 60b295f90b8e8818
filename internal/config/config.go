package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configName = "config.yaml"
	configType = "yaml"
	envPrefix  = "DIFFGATE"
)

// Config represents the diffgate configuration. Field tags use mapstructure
// for viper unmarshalling and yaml for writing the config file.
type Config struct {
	Provider        string        `mapstructure:"provider" yaml:"provider" json:"provider"`
	Model           string        `mapstructure:"model" yaml:"model" json:"model"`
	Format          string        `mapstructure:"format" yaml:"format" json:"format"`
	FailOnError     bool          `mapstructure:"failOnError" yaml:"failOnError" json:"failOnError"`
	FailOnWarn      bool          `mapstructure:"failOnWarn" yaml:"failOnWarn" json:"failOnWarn"`
	Severity        string        `mapstructure:"severity" yaml:"severity,omitempty" json:"severity,omitempty"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	BatchDelay      time.Duration `mapstructure:"batchDelay" yaml:"batchDelay" json:"batchDelay"`
	MaxSegmentBytes int           `mapstructure:"maxSegmentBytes" yaml:"maxSegmentBytes" json:"maxSegmentBytes"`
	LargeThreshold  int           `mapstructure:"largeThreshold" yaml:"largeThreshold" json:"largeThreshold"`
	PrefixLimit     int           `mapstructure:"prefixLimit" yaml:"prefixLimit" json:"prefixLimit"`
	ContextLines    int           `mapstructure:"contextLines" yaml:"contextLines" json:"contextLines"`
	Include         []string      `mapstructure:"include" yaml:"include,omitempty" json:"include,omitempty"`
	Exclude         []string      `mapstructure:"exclude" yaml:"exclude,omitempty" json:"exclude,omitempty"`
	RulesFile       string        `mapstructure:"rulesFile" yaml:"rulesFile,omitempty" json:"rulesFile,omitempty"`
	BuiltinRules    bool          `mapstructure:"builtinRules" yaml:"builtinRules" json:"builtinRules"`
	RedactSecrets   bool          `mapstructure:"redactSecrets" yaml:"redactSecrets" json:"redactSecrets"`
	RedactPaths     []string      `mapstructure:"redactPaths" yaml:"redactPaths,omitempty" json:"redactPaths,omitempty"`
	Cache           CacheConfig   `mapstructure:"cache" yaml:"cache" json:"cache"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttlSeconds" yaml:"ttlSeconds" json:"ttlSeconds"`
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

var (
	// ErrInvalidConcurrency indicates a non-positive concurrency.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrInvalidSeverity indicates a severity filter other than error, warn or info.
	ErrInvalidSeverity = errors.New("severity must be one of error, warn, info")
	// ErrInvalidSegmentBytes indicates a negative segment size.
	ErrInvalidSegmentBytes = errors.New("maxSegmentBytes must be non-negative")
	// ErrInvalidThreshold indicates a negative large-diff threshold or prefix limit.
	ErrInvalidThreshold = errors.New("largeThreshold and prefixLimit must be non-negative")
	// ErrInvalidTTL indicates a negative cache TTL.
	ErrInvalidTTL = errors.New("cache.ttlSeconds must be non-negative")
	// ErrUnknownKey is returned by SetField for keys it does not know.
	ErrUnknownKey = errors.New("unknown config key")
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:        "anthropic",
		Model:           "claude-sonnet-4-20250514",
		Format:          "text",
		FailOnError:     true,
		Concurrency:     3,
		BatchDelay:      1500 * time.Millisecond,
		MaxSegmentBytes: 30000,
		LargeThreshold:  5,
		PrefixLimit:     5,
		ContextLines:    3,
		Exclude:         []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		BuiltinRules:    true,
		RedactSecrets:   true,
		RedactPaths:     []string{"**/.env", "**/*secrets*"},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
	}
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("format", d.Format)
	v.SetDefault("failOnError", d.FailOnError)
	v.SetDefault("failOnWarn", d.FailOnWarn)
	v.SetDefault("severity", d.Severity)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("batchDelay", d.BatchDelay)
	v.SetDefault("maxSegmentBytes", d.MaxSegmentBytes)
	v.SetDefault("largeThreshold", d.LargeThreshold)
	v.SetDefault("prefixLimit", d.PrefixLimit)
	v.SetDefault("contextLines", d.ContextLines)
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("rulesFile", d.RulesFile)
	v.SetDefault("builtinRules", d.BuiltinRules)
	v.SetDefault("redactSecrets", d.RedactSecrets)
	v.SetDefault("redactPaths", d.RedactPaths)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttlSeconds", d.Cache.TTLSeconds)
}

// FlagKeys maps CLI flag names onto config keys. Only flags the user actually
// set override lower layers.
var FlagKeys = map[string]string{
	"provider":          "provider",
	"model":             "model",
	"format":            "format",
	"fail-on-error":     "failOnError",
	"fail-on-warn":      "failOnWarn",
	"severity":          "severity",
	"concurrency":       "concurrency",
	"batch-delay":       "batchDelay",
	"max-segment-bytes": "maxSegmentBytes",
	"context":           "contextLines",
	"rules":             "rulesFile",
	"builtin-rules":     "builtinRules",
	"redact":            "redactSecrets",
	"cache":             "cache.enabled",
	"cache-dir":         "cache.dir",
}

// Load builds the effective config. Precedence, highest first: flags, env
// (DIFFGATE_*), the config file, defaults. An empty path uses ConfigPath; a
// missing file is not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if !missing || explicit {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and normalizes the severity filter.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Concurrency)
	}
	switch s := strings.ToLower(strings.TrimSpace(c.Severity)); s {
	case "", "error", "warn", "info":
		c.Severity = s
	case "warning":
		c.Severity = "warn"
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidSeverity, c.Severity)
	}
	if c.MaxSegmentBytes < 0 {
		return ErrInvalidSegmentBytes
	}
	if c.LargeThreshold < 0 || c.PrefixLimit < 0 {
		return ErrInvalidThreshold
	}
	if c.Cache.TTLSeconds < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for diffgate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "diffgate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "diffgate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "diffgate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "diffgate"), nil
	default:
		return filepath.Join(home, ".config", "diffgate"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName), nil
}

// LoadFile reads only the config file at path, on top of defaults. A missing
// file yields Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SetField sets a single config field by key name.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "severity":
		cfg.Severity = value
	case "rulesFile":
		cfg.RulesFile = value
	case "cache.dir":
		cfg.Cache.Dir = value
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "redactPaths":
		cfg.RedactPaths = splitList(value)
	case "failOnError":
		return setBool(&cfg.FailOnError, key, value)
	case "failOnWarn":
		return setBool(&cfg.FailOnWarn, key, value)
	case "builtinRules":
		return setBool(&cfg.BuiltinRules, key, value)
	case "redactSecrets":
		return setBool(&cfg.RedactSecrets, key, value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "maxSegmentBytes":
		return setInt(&cfg.MaxSegmentBytes, key, value)
	case "largeThreshold":
		return setInt(&cfg.LargeThreshold, key, value)
	case "prefixLimit":
		return setInt(&cfg.PrefixLimit, key, value)
	case "contextLines":
		return setInt(&cfg.ContextLines, key, value)
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "batchDelay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("batchDelay must be a duration: %w", err)
		}
		cfg.BatchDelay = d
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
