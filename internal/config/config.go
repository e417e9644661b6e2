package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultFrequency        = 1.0
	defaultMaxLifetime      = 3600.0
	defaultExitPollInterval = time.Second
	defaultLogLevel         = "info"
	envPrefix               = "PROCWATCH"
)

// Target is a watch entry registered when the daemon starts. Zero frequency or
// lifetime falls back to the defaults.
type Target struct {
	Pattern     string  `mapstructure:"pattern" yaml:"pattern"`
	Frequency   float64 `mapstructure:"frequency" yaml:"frequency,omitempty"`
	MaxLifetime float64 `mapstructure:"max_lifetime" yaml:"max_lifetime,omitempty"`
}

// Config aggregates the daemon and client settings.
type Config struct {
	// DefaultFrequency is in checks per minute.
	DefaultFrequency float64 `mapstructure:"default_frequency"`
	// DefaultMaxLifetime is in seconds.
	DefaultMaxLifetime float64 `mapstructure:"default_max_lifetime"`
	// ExitPollInterval is how often exit subscriptions re-check their process.
	ExitPollInterval time.Duration `mapstructure:"exit_poll_interval"`
	// SocketPath overrides the control socket location when set.
	SocketPath string `mapstructure:"socket_path"`
	// MetricsAddr enables the HTTP metrics listener, e.g. "127.0.0.1:9310".
	MetricsAddr string   `mapstructure:"metrics_addr"`
	LogLevel    string   `mapstructure:"log_level"`
	LogFile     string   `mapstructure:"log_file"`
	Targets     []Target `mapstructure:"targets"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DefaultFrequency:   defaultFrequency,
		DefaultMaxLifetime: defaultMaxLifetime,
		ExitPollInterval:   defaultExitPollInterval,
		LogLevel:           defaultLogLevel,
	}
}

// Load builds a Config from an optional YAML file plus PROCWATCH_* environment
// overrides, e.g. PROCWATCH_DEFAULT_FREQUENCY=4.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("default_frequency", def.DefaultFrequency)
	v.SetDefault("default_max_lifetime", def.DefaultMaxLifetime)
	v.SetDefault("exit_poll_interval", def.ExitPollInterval)
	v.SetDefault("socket_path", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("targets", []Target{})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return def, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return def, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return def, err
	}
	return cfg, nil
}

// Validate rejects values the watchdog cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DefaultFrequency <= 0 {
		errs = append(errs, fmt.Errorf("default_frequency must be > 0, got %v", c.DefaultFrequency))
	}
	if c.DefaultMaxLifetime <= 0 {
		errs = append(errs, fmt.Errorf("default_max_lifetime must be > 0, got %v", c.DefaultMaxLifetime))
	}
	if c.ExitPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("exit_poll_interval must be > 0, got %v", c.ExitPollInterval))
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Pattern) == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: pattern must not be empty", i))
		}
		if t.Frequency < 0 {
			errs = append(errs, fmt.Errorf("targets[%d]: frequency must not be negative", i))
		}
		if t.MaxLifetime < 0 {
			errs = append(errs, fmt.Errorf("targets[%d]: max_lifetime must not be negative", i))
		}
	}
	return errors.Join(errs...)
}

type yamlConfig struct {
	DefaultFrequency   float64  `yaml:"default_frequency"`
	DefaultMaxLifetime float64  `yaml:"default_max_lifetime"`
	ExitPollInterval   string   `yaml:"exit_poll_interval"`
	SocketPath         string   `yaml:"socket_path,omitempty"`
	MetricsAddr        string   `yaml:"metrics_addr,omitempty"`
	LogLevel           string   `yaml:"log_level"`
	LogFile            string   `yaml:"log_file,omitempty"`
	Targets            []Target `yaml:"targets,omitempty"`
}

// YAML renders the config in the same shape Load accepts.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(yamlConfig{
		DefaultFrequency:   c.DefaultFrequency,
		DefaultMaxLifetime: c.DefaultMaxLifetime,
		ExitPollInterval:   c.ExitPollInterval.String(),
		SocketPath:         c.SocketPath,
		MetricsAddr:        c.MetricsAddr,
		LogLevel:           c.LogLevel,
		LogFile:            c.LogFile,
		Targets:            c.Targets,
	})
}
