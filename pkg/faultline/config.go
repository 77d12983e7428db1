// config.go defines tracker configuration and its file/env loading.

package faultline

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConsoleDSN is the destination sentinel that selects the console sink.
const ConsoleDSN = "console://"

// Configuration defaults.
const (
	defaultMaxBreadcrumbs = 100
	defaultMaxQueueSize   = 100
	defaultSampleRate     = 1.0
	defaultEnvironment    = "production"
)

// Config configures a Tracker. Use NewConfig to get a Config with defaults
// applied; a zero Config is not usable (Enabled defaults to false).
type Config struct {
	// DSN identifies where events are delivered: a URL for the HTTP sink,
	// or the ConsoleDSN sentinel for the console sink. Required.
	DSN string `koanf:"dsn"`

	// Environment tags events with a deployment environment
	// (default: "production").
	Environment string `koanf:"environment"`

	// Release tags events with a release identifier.
	Release string `koanf:"release"`

	// ServerName tags events with a host name. Defaults to the local
	// hostname, falling back to "unknown" when lookup fails.
	ServerName string `koanf:"server_name"`

	// MaxBreadcrumbs bounds the breadcrumb trail (default: 100).
	MaxBreadcrumbs int `koanf:"max_breadcrumbs"`

	// SampleRate is the capture probability in [0, 1] (default: 1.0).
	// 1.0 captures everything, 0.0 captures nothing.
	SampleRate float64 `koanf:"sample_rate"`

	// MaxQueueSize bounds queued events for buffering sinks (default: 100).
	// Advisory: synchronous sinks ignore it.
	MaxQueueSize int `koanf:"max_queue_size"`

	// Enabled turns capture on or off (default: true).
	Enabled bool `koanf:"enabled"`

	// BeforeSend runs before delivery. Returning nil suppresses the event;
	// a returned replacement supersedes the original.
	BeforeSend func(*Event) *Event `koanf:"-"`

	// BeforeBreadcrumb runs before a breadcrumb is recorded. Returning nil
	// drops the breadcrumb; a returned replacement supersedes the original.
	BeforeBreadcrumb func(*Breadcrumb) *Breadcrumb `koanf:"-"`

	// Transport overrides DSN-based sink selection.
	Transport Sink `koanf:"-"`
}

// NewConfig returns a Config for the given destination with defaults applied.
func NewConfig(dsn string) Config {
	return Config{
		DSN:            dsn,
		MaxBreadcrumbs: defaultMaxBreadcrumbs,
		SampleRate:     defaultSampleRate,
		MaxQueueSize:   defaultMaxQueueSize,
		Enabled:        true,
	}
}

// envPrefix scopes the environment variables read by LoadConfig.
const envPrefix = "FAULTLINE_"

// LoadConfig builds a Config from an optional YAML file layered under
// FAULTLINE_* environment variables. Pass an empty path to read the
// environment only. Hook and transport fields cannot be loaded this way;
// set them on the returned Config.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Environment variables override file values. Keys are flat:
	// FAULTLINE_MAX_BREADCRUMBS -> max_breadcrumbs.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load config env: %w", err)
	}

	// Default values for keys absent from both sources.
	if !k.Exists("max_breadcrumbs") {
		k.Set("max_breadcrumbs", defaultMaxBreadcrumbs)
	}
	if !k.Exists("sample_rate") {
		k.Set("sample_rate", defaultSampleRate)
	}
	if !k.Exists("max_queue_size") {
		k.Set("max_queue_size", defaultMaxQueueSize)
	}
	if !k.Exists("enabled") {
		k.Set("enabled", true)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// ConfigFromEnv builds a Config from FAULTLINE_* environment variables only.
func ConfigFromEnv() (Config, error) {
	return LoadConfig("")
}

// resolveServerName applies the hostname default.
func resolveServerName(name string) string {
	if name != "" {
		return name
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "unknown"
	}
	return hostname
}
