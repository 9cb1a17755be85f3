package envconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Bot tunable defaults
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultNavStackDepth  = 32
	DefaultCallTimeout    = 10 * time.Second
	DefaultSweepInterval  = time.Minute
)

// BotConfig holds order-builder and saga tunables.
type BotConfig struct {
	// SessionTimeout is the idle window after which a builder session is
	// torn down and its draft discarded.
	SessionTimeout time.Duration `yaml:"-"`

	// NavStackDepth bounds the navigation stack; back navigation beyond the
	// horizon exits the flow.
	NavStackDepth int `yaml:"nav_stack_depth"`

	// CallTimeout bounds each record-store and messaging-surface call.
	CallTimeout time.Duration `yaml:"-"`

	// SweepInterval is how often expired sessions are collected.
	SweepInterval time.Duration `yaml:"-"`
}

// botConfigFile is the YAML shape of the optional config file; durations are
// strings so operators can write "45m" rather than nanosecond counts.
type botConfigFile struct {
	SessionTimeout string `yaml:"session_timeout"`
	NavStackDepth  int    `yaml:"nav_stack_depth"`
	CallTimeout    string `yaml:"call_timeout"`
	SweepInterval  string `yaml:"sweep_interval"`
}

// DefaultBotConfig returns bot configuration defaults
func DefaultBotConfig() BotConfig {
	return BotConfig{
		SessionTimeout: DefaultSessionTimeout,
		NavStackDepth:  DefaultNavStackDepth,
		CallTimeout:    DefaultCallTimeout,
		SweepInterval:  DefaultSweepInterval,
	}
}

// LoadBotConfig loads bot configuration from environment variables
func LoadBotConfig() BotConfig {
	config := DefaultBotConfig()

	config.SessionTimeout = GetEnvDuration("BOT_SESSION_TIMEOUT", config.SessionTimeout)
	config.CallTimeout = GetEnvDuration("BOT_CALL_TIMEOUT", config.CallTimeout)
	config.SweepInterval = GetEnvDuration("BOT_SWEEP_INTERVAL", config.SweepInterval)

	if depth := GetEnvInt("BOT_NAV_STACK_DEPTH", 0); depth > 0 {
		config.NavStackDepth = depth
	}

	return config
}

// ApplyBotConfigFile overlays YAML config-file values onto an existing
// configuration. Unset fields in the file leave the base values untouched.
func ApplyBotConfigFile(config BotConfig, path string) (BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %v", err)
	}

	var file botConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	if file.SessionTimeout != "" {
		d, err := time.ParseDuration(file.SessionTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid session_timeout %q: %v", file.SessionTimeout, err)
		}
		config.SessionTimeout = d
	}

	if file.NavStackDepth > 0 {
		config.NavStackDepth = file.NavStackDepth
	}

	if file.CallTimeout != "" {
		d, err := time.ParseDuration(file.CallTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid call_timeout %q: %v", file.CallTimeout, err)
		}
		config.CallTimeout = d
	}

	if file.SweepInterval != "" {
		d, err := time.ParseDuration(file.SweepInterval)
		if err != nil {
			return config, fmt.Errorf("invalid sweep_interval %q: %v", file.SweepInterval, err)
		}
		config.SweepInterval = d
	}

	return config, nil
}
