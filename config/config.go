// Package config loads and validates the .lehrer.yaml configuration file.
//
// The file is optional. Missing keys take the defaults from Default, and the
// merged result is validated before use. Command-line flags override the
// file; see the root command in main.go.
package config

import (
	"time"

	"github.com/minios-linux/lehrer/block"
	"github.com/minios-linux/lehrer/translate"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .lehrer.yaml structure.
type Config struct {
	// DefaultTarget is the language a block is translated into when neither
	// the block, the flags nor the front matter name one.
	DefaultTarget string `yaml:"default_target" validate:"langcode"`
	// DefaultSource is the source language when a block declares none
	// (empty = let the provider detect it).
	DefaultSource string `yaml:"default_source,omitempty" validate:"omitempty,langcode"`
	// Separator is the blank-line policy between fragments: single or double.
	Separator string `yaml:"separator" validate:"oneof=single double"`
	// Fence is the info string of fenced Markdown blocks to render.
	Fence string `yaml:"fence" validate:"required,max=40"`

	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig selects and tunes the translation backend. API keys are
// not stored here; see the settings package.
type ProviderConfig struct {
	// Name is the provider ID: google, deepl or openai.
	Name string `yaml:"name" validate:"oneof=google deepl openai"`
	// BaseURL overrides the provider's API base URL.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// Model is the chat model for the openai provider.
	Model string `yaml:"model,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL.
	Proxy string `yaml:"proxy,omitempty" validate:"omitempty,url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	// MaxRetries is the retry count on 429/5xx.
	MaxRetries int `yaml:"max_retries,omitempty" validate:"gte=0,lte=10"`
}

// CacheConfig sizes the in-process translation cache.
type CacheConfig struct {
	// Size is the maximum number of cached sentence translations.
	Size int `yaml:"size" validate:"gte=1"`
}

// ServerConfig configures `lehrer serve`.
type ServerConfig struct {
	Listen         string   `yaml:"listen" validate:"required,hostname_port"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// MaxBodyBytes limits the size of a posted block.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=1"`
}

// LogConfig configures the zerolog root logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultTarget: translate.DefaultTarget,
		Separator:     string(block.SeparatorSingle),
		Fence:         "lang",
		Provider: ProviderConfig{
			Name:       translate.ProviderGoogle,
			MaxRetries: 3,
		},
		Cache: CacheConfig{Size: translate.DefaultCacheSize},
		Server: ServerConfig{
			Listen:       "127.0.0.1:8740",
			MaxBodyBytes: 256 << 10,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// SeparatorPolicy returns the parsed separator.
func (c *Config) SeparatorPolicy() block.Separator {
	sep, err := block.ParseSeparator(c.Separator)
	if err != nil {
		return block.SeparatorSingle
	}
	return sep
}

// TranslateProvider builds the provider definition for the translate
// package. apiKey comes from the caller's credential lookup.
func (c *Config) TranslateProvider(apiKey string) translate.Provider {
	return translate.Provider{
		ID:         c.Provider.Name,
		BaseURL:    c.Provider.BaseURL,
		APIKey:     apiKey,
		Model:      c.Provider.Model,
		Proxy:      c.Provider.Proxy,
		Timeout:    c.Provider.Timeout,
		MaxRetries: c.Provider.MaxRetries,
	}
}
