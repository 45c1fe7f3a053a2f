// Package config loads the service configuration from an optional YAML file
// overlaid with TRIANGULATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/triangulator/internal/validator"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRIANGULATOR_"

// Config is the full service configuration.
type Config struct {
	Listen    string          `mapstructure:"listen"`
	PointsDir string          `mapstructure:"points_dir"`
	SelfCheck bool            `mapstructure:"self_check"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Tolerance ToleranceConfig `mapstructure:"tolerance"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// UpstreamConfig locates the point-set manager.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// ToleranceConfig sets the deduplication distance. A positive Absolute
// overrides Relative.
type ToleranceConfig struct {
	Relative float64 `mapstructure:"relative"`
	Absolute float64 `mapstructure:"absolute"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig selects the result cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig is used when the cache backend is redis. A positive LockTTL
// also coordinates replicas through a redis lock.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Keys lists every configuration key in dotted form.
var Keys = []string{
	"listen",
	"points_dir",
	"self_check",
	"upstream.base_url",
	"upstream.timeout",
	"upstream.retries",
	"tolerance.relative",
	"tolerance.absolute",
	"cache.backend",
	"cache.ttl",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.lock_ttl",
	"log.level",
	"log.format",
	"metrics.enabled",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen: ":8080",
		Upstream: UpstreamConfig{
			Timeout: 10 * time.Second,
			Retries: 2,
		},
		Tolerance: ToleranceConfig{Relative: validator.DefaultRelativeTolerance},
		Cache:     CacheConfig{Backend: CacheNone, TTL: 10 * time.Minute},
		Redis:     RedisConfig{Addr: "localhost:6379", LockTTL: 30 * time.Second},
		Log:       LogConfig{Level: "info", Format: "text"},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads path (skipped when empty) and applies overrides from environ,
// given as KEY=value pairs like os.Environ returns.
func Load(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	for _, key := range Keys {
		if v, ok := env[EnvName(key)]; ok {
			if err := setPath(raw, strings.Split(key, "."), v); err != nil {
				return Config{}, err
			}
		}
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeDurationHookFunc()),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setPath(m map[string]any, path []string, value string) error {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p]
		if !ok {
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("invalid config: %s is not a section", p)
		}
		m = child
	}
	m[path[len(path)-1]] = value
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	if c.Upstream.Timeout < 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must not be negative, got %v", c.Upstream.Timeout))
	}
	if c.Upstream.Retries < 0 {
		errs = append(errs, fmt.Errorf("upstream.retries must not be negative, got %d", c.Upstream.Retries))
	}
	if c.Tolerance.Relative < 0 || c.Tolerance.Absolute < 0 {
		errs = append(errs, errors.New("tolerance must not be negative"))
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be one of none, memory, redis; got %q", c.Cache.Backend))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
