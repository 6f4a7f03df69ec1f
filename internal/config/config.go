package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/divergence"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/health"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/trust"
)

// EnvPrefix is prepended to every environment override, e.g. GOVERNOR_STORE_PATH.
const EnvPrefix = "GOVERNOR"

// #region types
// StoreConfig locates the SQLite record store.
type StoreConfig struct {
	Path string `json:"path" mapstructure:"path" yaml:"path"`
}

// ServerConfig sets the gRPC listen address.
type ServerConfig struct {
	Address string `json:"address" mapstructure:"address" yaml:"address"`
}

// Config is the full governor configuration. Evaluator sections reuse each
// package's own config type.
type Config struct {
	Store      StoreConfig       `json:"store" mapstructure:"store" yaml:"store"`
	Server     ServerConfig      `json:"server" mapstructure:"server" yaml:"server"`
	LogLevel   string            `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
	Health     health.Config     `json:"health" mapstructure:"health" yaml:"health"`
	Divergence divergence.Config `json:"divergence" mapstructure:"divergence" yaml:"divergence"`
	Trust      trust.Config      `json:"trust" mapstructure:"trust" yaml:"trust"`
	Sanity     sanity.Config     `json:"sanity" mapstructure:"sanity" yaml:"sanity"`
	Pessimist  pessimist.Config  `json:"pessimist" mapstructure:"pessimist" yaml:"pessimist"`
	Drift      drift.Thresholds  `json:"drift" mapstructure:"drift" yaml:"drift"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration for every section.
func Default() Config {
	return Config{
		Store:      StoreConfig{Path: "governor.db"},
		Server:     ServerConfig{Address: "localhost:50061"},
		LogLevel:   "info",
		Health:     health.DefaultConfig(),
		Divergence: divergence.DefaultConfig(),
		Trust:      trust.DefaultConfig(),
		Sanity:     sanity.DefaultConfig(),
		Pessimist:  pessimist.DefaultConfig(),
		Drift:      drift.DefaultThresholds(),
	}
}

// envKeys are the scalar settings that can be overridden from the environment.
var envKeys = []string{
	"store.path",
	"server.address",
	"log_level",
	"health.default_weight",
	"divergence.key_terms_weight",
	"divergence.action_steps_weight",
	"divergence.min_term_length",
	"trust.window_size",
	"sanity.max_loops_upper",
	"sanity.max_loops_lower",
	"sanity.similarity_threshold",
	"sanity.template_match_threshold",
	"sanity.pass_threshold",
	"pessimist.max_iterations_upper",
	"pessimist.timeout_upper",
	"pessimist.risk_budget",
	"pessimist.approval_threshold",
	"drift.breach_ratio",
}

// #endregion defaults

// #region load
// Load reads path (YAML) over the defaults, applies GOVERNOR_* environment
// overrides and validates the result. An empty or missing path yields the
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write renders cfg as YAML at path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// #endregion load

// #region validate
// Validate rejects settings the evaluators cannot work with.
func (c Config) Validate() error {
	var errs []error
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, v))
		}
	}

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must be set"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	nonNegative("health.default_weight", c.Health.DefaultWeight)
	for name, w := range c.Health.Weights {
		nonNegative("health.weights."+name, w)
	}
	nonNegative("divergence.key_terms_weight", c.Divergence.KeyTermsWeight)
	nonNegative("divergence.action_steps_weight", c.Divergence.ActionStepsWeight)
	if c.Divergence.MinTermLength < 1 {
		errs = append(errs, fmt.Errorf("divergence.min_term_length must be at least 1, got %d", c.Divergence.MinTermLength))
	}
	if c.Trust.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("trust.window_size must be at least 1, got %d", c.Trust.WindowSize))
	}

	unit("sanity.similarity_threshold", c.Sanity.SimilarityThreshold)
	unit("sanity.template_match_threshold", c.Sanity.TemplateMatchThreshold)
	unit("sanity.pass_threshold", c.Sanity.PassThreshold)
	if c.Sanity.MaxLoopsLower > c.Sanity.MaxLoopsUpper {
		errs = append(errs, fmt.Errorf("sanity.max_loops_lower %d exceeds max_loops_upper %d",
			c.Sanity.MaxLoopsLower, c.Sanity.MaxLoopsUpper))
	}

	unit("pessimist.approval_threshold", c.Pessimist.ApprovalThreshold)
	unit("pessimist.high_confidence", c.Pessimist.HighConfidence)
	if c.Pessimist.RiskBudget <= 0 {
		errs = append(errs, fmt.Errorf("pessimist.risk_budget must be positive, got %v", c.Pessimist.RiskBudget))
	}

	for _, b := range []struct {
		name string
		band drift.Band
	}{{"drift.critical", c.Drift.Critical}, {"drift.moderate", c.Drift.Moderate}} {
		unit(b.name+".alignment", b.band.Alignment)
		unit(b.name+".belief_alignment", b.band.BeliefAlignment)
		unit(b.name+".health", b.band.Health)
		unit(b.name+".trust_decay", b.band.TrustDecay)
		if b.band.BiasTags < 0 {
			errs = append(errs, fmt.Errorf("%s.bias_tags must not be negative", b.name))
		}
	}
	if c.Drift.BreachRatio <= 0 || c.Drift.BreachRatio > 1 {
		errs = append(errs, fmt.Errorf("drift.breach_ratio must be within (0,1], got %v", c.Drift.BreachRatio))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate
