// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// Config holds process-wide settings. CLI flags override these values.
type Config struct {
	LogLevel    string        `env:"LOGICBLOCKS_LOG_LEVEL"    envDefault:"info"`
	LogFile     string        `env:"LOGICBLOCKS_LOG_FILE"`
	Mode        string        `env:"LOGICBLOCKS_EVAL_MODE"    envDefault:"settled"`
	SlotPolicy  string        `env:"LOGICBLOCKS_SLOT_POLICY"  envDefault:"reject"`
	AllowCycles bool          `env:"LOGICBLOCKS_ALLOW_CYCLES" envDefault:"false"`
	LevelFile   string        `env:"LOGICBLOCKS_LEVEL_FILE"`
	DBPath      string        `env:"LOGICBLOCKS_DB_PATH"      envDefault:"logicblocks.db"`
	PlayerID    string        `env:"LOGICBLOCKS_PLAYER"       envDefault:"local"`
	ListenAddr  string        `env:"LOGICBLOCKS_LISTEN_ADDR"  envDefault:":8080"`
	SessionTTL  time.Duration `env:"LOGICBLOCKS_SESSION_TTL"  envDefault:"30m"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every enumerated setting names a known value
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.EvalMode(); err != nil {
		return err
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session ttl must not be negative: %s", c.SessionTTL)
	}
	return nil
}

// Level returns the configured log level
func (c Config) Level() (utils.LogLevel, error) {
	return utils.ParseLogLevel(c.LogLevel)
}

// EvalMode returns the configured evaluation mode
func (c Config) EvalMode() (circuit.Mode, error) {
	return circuit.ParseMode(c.Mode)
}

// Rules returns the configured connection rules
func (c Config) Rules() (circuit.Rules, error) {
	policy, err := circuit.ParseSlotPolicy(c.SlotPolicy)
	if err != nil {
		return circuit.Rules{}, err
	}
	return circuit.Rules{Slots: policy, AllowCycles: c.AllowCycles}, nil
}

// Logger builds the logger described by the config
func (c Config) Logger() (*utils.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	if c.LogFile != "" {
		return utils.NewFileLogger(level, c.LogFile)
	}
	return utils.NewLogger(level), nil
}
