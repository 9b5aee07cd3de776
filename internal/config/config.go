package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ywatanabe/priocfg/internal/logging"
	"github.com/ywatanabe/priocfg/internal/resolver"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	EnvPrefix            string
	UppercaseEnvKeys     bool
	SensitiveKeywords    []string
	InitialValues        map[string]any
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	EnvPrefix      *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// yamlDocument splits the YAML file into service settings (top-level scalars)
// and the optional `values:` section seeding the value store.
type yamlDocument struct {
	settings map[string]any
	values   map[string]any
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults.
//
// The chain is executed by the core resolver itself: the YAML document acts
// as the configuration mapping, CLI flags as direct values, and environment
// variables are looked up under the uppercased setting name (PORT,
// RATE_LIMIT_RPS, ...). A malformed environment value fails the load instead
// of silently falling back.
func Load(overrides *CLIOverrides) (Config, error) {
	doc := &yamlDocument{settings: map[string]any{}}

	if overrides != nil && overrides.ConfigFile != "" {
		loaded, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		doc = loaded
	}

	res := resolver.New(resolver.WithValues(doc.settings))

	var (
		directPort   any
		directLevel  any
		directPrefix any
		directRPS    any
		directBurst  any
	)
	if overrides != nil {
		if overrides.Port != nil && *overrides.Port != "" {
			directPort = *overrides.Port
		}
		if overrides.LogLevel != nil && *overrides.LogLevel != "" {
			directLevel = *overrides.LogLevel
		}
		if overrides.EnvPrefix != nil {
			directPrefix = *overrides.EnvPrefix
		}
		if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
			directRPS = *overrides.RateLimitRPS
		}
		if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
			directBurst = *overrides.RateLimitBurst
		}
	}

	cfg := Config{InitialValues: doc.values}
	var err error

	if cfg.Port, err = resolveString(res, "port", directPort, defaultPort); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = resolveString(res, "log_level", directLevel, defaultLogLevel); err != nil {
		return Config{}, err
	}
	if cfg.EnvPrefix, err = resolveString(res, "env_prefix", directPrefix, ""); err != nil {
		return Config{}, err
	}
	if cfg.UppercaseEnvKeys, err = resolveBool(res, "uppercase_env_keys", true); err != nil {
		return Config{}, err
	}
	if cfg.SensitiveKeywords, err = resolveKeywords(res, "sensitive_keywords"); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownGracePeriod, err = resolveDuration(res, "shutdown_grace_period", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReadHeaderTimeout, err = resolveDuration(res, "read_header_timeout", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = resolveDuration(res, "write_timeout", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout, err = resolveDuration(res, "idle_timeout", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.EnableRequestLogging, err = resolveBool(res, "enable_request_logging", true); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = resolveFloat(res, "rate_limit_rps", directRPS, defaultRateLimitRPS); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = resolveInt(res, "rate_limit_burst", directBurst, defaultRateLimitBurst); err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	doc := &yamlDocument{settings: raw}
	if section, ok := raw["values"]; ok {
		values, ok := section.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values section must be a mapping")
		}
		doc.values = values
		delete(raw, "values")
	}

	return doc, nil
}

func resolveString(res *resolver.Resolver, key string, direct any, def string) (string, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Direct: direct, Default: def, Type: resolver.TypeString})
	if err != nil {
		return "", err
	}
	return asString(key, result.Value)
}

func resolveBool(res *resolver.Resolver, key string, def bool) (bool, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Default: def, Type: resolver.TypeBool})
	if err != nil {
		return false, err
	}
	v, ok := result.Value.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %T", key, result.Value)
	}
	return v, nil
}

func resolveInt(res *resolver.Resolver, key string, direct any, def int) (int, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Direct: direct, Default: def, Type: resolver.TypeInt})
	if err != nil {
		return 0, err
	}
	switch v := result.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%s must be an integer, got %T", key, result.Value)
}

func resolveFloat(res *resolver.Resolver, key string, direct any, def float64) (float64, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Direct: direct, Default: def, Type: resolver.TypeFloat})
	if err != nil {
		return 0, err
	}
	switch v := result.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%s must be a number, got %T", key, result.Value)
}

func resolveDuration(res *resolver.Resolver, key string, def time.Duration) (time.Duration, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Default: def.String(), Type: resolver.TypeString})
	if err != nil {
		return 0, err
	}
	text, err := asString(key, result.Value)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func resolveKeywords(res *resolver.Resolver, key string) ([]string, error) {
	result, err := res.Resolve(resolver.Request{Key: key, Default: resolver.DefaultSensitiveKeywords(), Type: resolver.TypeList})
	if err != nil {
		return nil, err
	}
	switch v := result.Value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a list of strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a list of strings, got %T", key, result.Value)
}

func asString(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("%s must be a string, got %T", key, value)
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("rate_limit_burst must be >= 0")
	}
	return nil
}
