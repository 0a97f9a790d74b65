package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Bridge  BridgeConfig
	Staging StagingConfig
	Sniff   SniffConfig
	Target  TargetConfig
	Host    HostConfig
	Logging LogConfig
}

// BridgeConfig tunes the polling dispatcher. Poll interval and attempt
// budget trade latency against reliability differently per host runtime,
// so they are configuration, not constants.
type BridgeConfig struct {
	PollInterval         time.Duration `envconfig:"POLL_INTERVAL" default:"50ms"`
	UnstablePollInterval time.Duration `envconfig:"UNSTABLE_POLL_INTERVAL" default:"250ms"`
	MaxAttempts          int           `envconfig:"MAX_ATTEMPTS" default:"100"`
	TransientRetries     int           `envconfig:"TRANSIENT_RETRIES" default:"3"`
	TransientBackoff     time.Duration `envconfig:"TRANSIENT_BACKOFF" default:"100ms"`
	Unstable             bool          `envconfig:"UNSTABLE_HOST" default:"false"`
}

// StagingConfig tunes the chunked binary staging channel.
type StagingConfig struct {
	ChunkSize int `envconfig:"STAGE_CHUNK_SIZE" default:"65536"`
}

// SniffConfig holds the content classifier's heuristic knobs. The ratios
// are empirically chosen, not derived; keep them overridable.
type SniffConfig struct {
	SampleSize       int     `envconfig:"SNIFF_SAMPLE_SIZE" default:"4096"`
	HighByteRatio    float64 `envconfig:"SNIFF_HIGH_BYTE_RATIO" default:"0.30"`
	ControlByteRatio float64 `envconfig:"SNIFF_CONTROL_BYTE_RATIO" default:"0.10"`
}

// TargetConfig holds target context configuration.
type TargetConfig struct {
	Quota              int64         `envconfig:"TARGET_QUOTA" default:"1073741824"`
	EvalTimeout        time.Duration `envconfig:"TARGET_EVAL_TIMEOUT" default:"5s"`
	LargeTextThreshold int64         `envconfig:"LARGE_TEXT_THRESHOLD" default:"262144"`
}

// HostConfig selects the host evaluation calling convention.
type HostConfig struct {
	Convention string `envconfig:"HOST_CONVENTION" default:"callback"` // callback | promise
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SANDBOXFS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			PollInterval:         50 * time.Millisecond,
			UnstablePollInterval: 250 * time.Millisecond,
			MaxAttempts:          100,
			TransientRetries:     3,
			TransientBackoff:     100 * time.Millisecond,
		},
		Staging: StagingConfig{ChunkSize: 64 * 1024},
		Sniff: SniffConfig{
			SampleSize:       4096,
			HighByteRatio:    0.30,
			ControlByteRatio: 0.10,
		},
		Target: TargetConfig{
			Quota:              1 << 30,
			EvalTimeout:        5 * time.Second,
			LargeTextThreshold: 256 * 1024,
		},
		Host: HostConfig{Convention: "callback"},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
