package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// ListsDir is the directory holding YAML, JSON or TOML list files.
	ListsDir string `koanf:"lists_dir" validate:"required"`

	// Feeds are third-party domain feeds imported as deny rules, each in
	// "kind:path" form where kind is "plain" or "hosts".
	Feeds []string `koanf:"feeds" validate:"dive,feed_path"`

	// DB is the path of the bbolt database holding the last applied list.
	DB string `koanf:"db" validate:"required"`

	// CacheSize bounds the per-snapshot match cache. Zero disables it.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// BloomFPRate is the target false-positive rate of the prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings
// for the filter service.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:         "prod",
	LogLevel:    "info",
	ListsDir:    "/etc/rr-filter/lists.d/",
	Feeds:       []string{},
	DB:          "/var/lib/rr-filter/rules.db",
	CacheSize:   10000,
	BloomFPRate: 0.01,
}

// Feed kinds accepted in AppConfig.Feeds.
const (
	FeedPlain = "plain"
	FeedHosts = "hosts"
)

// Feed is a parsed AppConfig.Feeds entry.
type Feed struct {
	Kind string
	Path string
}

// ParseFeed splits a "kind:path" feed entry.
func ParseFeed(s string) (Feed, error) {
	kind, path, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || strings.TrimSpace(path) == "" {
		return Feed{}, fmt.Errorf("feed %q: want kind:path", s)
	}
	kind = strings.ToLower(kind)
	switch kind {
	case FeedPlain, FeedHosts:
	default:
		return Feed{}, fmt.Errorf("feed %q: unsupported kind %q", s, kind)
	}
	return Feed{Kind: kind, Path: strings.TrimSpace(path)}, nil
}

// ParsedFeeds returns the parsed feed entries. Entries are validated by Load.
func (c *AppConfig) ParsedFeeds() []Feed {
	out := make([]Feed, 0, len(c.Feeds))
	for _, s := range c.Feeds {
		if f, err := ParseFeed(s); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// validFeedPath reports whether the field is a well-formed "kind:path" feed.
func validFeedPath(fl validator.FieldLevel) bool {
	_, err := ParseFeed(fl.Field().String())
	return err == nil
}

// envLoader loads environment variables with the prefix "FILTER_".
// It transforms the keys to lowercase and removes the prefix, and
// can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FILTER_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "FILTER_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "feed_path" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("feed_path", validFeedPath)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
