package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RESERVATIONS_HTTP_PORT.
const EnvPrefix = "RESERVATIONS_"

// ConfigPathEnv names the variable consulted when Load receives an empty path.
const ConfigPathEnv = EnvPrefix + "CONFIG"

// Storage drivers accepted by storage.driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures the settings shared by the reservations server, the
// privileged functions server and the CLI.
type Config struct {
	HTTPPort    int
	AdminFnPort int

	StorageDriver string
	SQLitePath    string
	PostgresDSN   string

	SessionTTL  time.Duration
	TokenSecret string
	TokenTTL    time.Duration

	Timezone string
	Location *time.Location

	LogLevel  string
	LogFormat string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CountConcurrency int
}

// Defaults returns the configuration used when neither file nor environment
// provide a value. TokenSecret has no default.
func Defaults() Config {
	return Config{
		HTTPPort:          8080,
		AdminFnPort:       8081,
		StorageDriver:     DriverSQLite,
		SQLitePath:        "reservations.db",
		SessionTTL:        24 * time.Hour,
		TokenTTL:          15 * time.Minute,
		Timezone:          "UTC",
		Location:          time.UTC,
		LogLevel:          "info",
		LogFormat:         "json",
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
		CountConcurrency:  8,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the file named by RESERVATIONS_CONFIG when path is empty), then
// RESERVATIONS_* environment variables. Missing and invalid keys are
// collected and reported together.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Defaults()

	values := make(map[string]string)
	if path == "" {
		path = strings.TrimSpace(getenv(ConfigPathEnv))
	}
	if path != "" {
		fileValues, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, s := range settings {
		if v := strings.TrimSpace(getenv(envName(s.key))); v != "" {
			values[s.key] = v
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	for _, s := range settings {
		value, ok := values[s.key]
		if !ok || value == "" {
			continue
		}
		if err := s.apply(&cfg, value); err != nil {
			invalid = append(invalid, envName(s.key))
		}
	}

	if cfg.TokenSecret == "" {
		missing = append(missing, envName("auth.token_secret"))
	}
	if cfg.StorageDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, envName("storage.postgres_dsn"))
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

type setting struct {
	key   string
	apply func(cfg *Config, value string) error
}

var settings = []setting{
	{"http.port", func(c *Config, v string) error { return positiveInt(v, &c.HTTPPort) }},
	{"adminfn.port", func(c *Config, v string) error { return positiveInt(v, &c.AdminFnPort) }},
	{"storage.driver", func(c *Config, v string) error {
		return oneOf(strings.ToLower(v), &c.StorageDriver, DriverMemory, DriverSQLite, DriverPostgres)
	}},
	{"storage.sqlite_path", func(c *Config, v string) error { c.SQLitePath = v; return nil }},
	{"storage.postgres_dsn", func(c *Config, v string) error { c.PostgresDSN = v; return nil }},
	{"auth.session_ttl", func(c *Config, v string) error { return positiveDuration(v, &c.SessionTTL) }},
	{"auth.token_secret", func(c *Config, v string) error { c.TokenSecret = v; return nil }},
	{"auth.token_ttl", func(c *Config, v string) error { return positiveDuration(v, &c.TokenTTL) }},
	{"timezone", func(c *Config, v string) error {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return err
		}
		c.Timezone, c.Location = v, loc
		return nil
	}},
	{"log.level", func(c *Config, v string) error {
		return oneOf(strings.ToLower(v), &c.LogLevel, "debug", "info", "warn", "error")
	}},
	{"log.format", func(c *Config, v string) error {
		return oneOf(strings.ToLower(v), &c.LogFormat, "json", "text")
	}},
	{"redis.addr", func(c *Config, v string) error { c.RedisAddr = v; return nil }},
	{"redis.password", func(c *Config, v string) error { c.RedisPassword = v; return nil }},
	{"redis.db", func(c *Config, v string) error { return nonNegativeInt(v, &c.RedisDB) }},
	{"ratelimit.requests", func(c *Config, v string) error { return nonNegativeInt(v, &c.RateLimitRequests) }},
	{"ratelimit.window", func(c *Config, v string) error { return positiveDuration(v, &c.RateLimitWindow) }},
	{"slots.count_concurrency", func(c *Config, v string) error { return positiveInt(v, &c.CountConcurrency) }},
}

// envName maps "storage.sqlite_path" to RESERVATIONS_STORAGE_SQLITE_PATH.
func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// readFile flattens the YAML document into dotted keys.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}
	values := make(map[string]string)
	flatten("", doc, values)

	known := make(map[string]bool, len(settings))
	for _, s := range settings {
		known[s.key] = true
	}
	var unknown []string
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("設定ファイルに未知のキーがあります: %s", strings.Join(unknown, ", "))
	}
	return values, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, out)
		case nil:
			out[key] = ""
		default:
			out[key] = strings.TrimSpace(fmt.Sprint(child))
		}
	}
}

func positiveInt(value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid positive integer %q", value)
	}
	*dst = n
	return nil
}

func nonNegativeInt(value string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid integer %q", value)
	}
	*dst = n
	return nil
}

func positiveDuration(value string, dst *time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid duration %q", value)
	}
	*dst = d
	return nil
}

func oneOf(value string, dst *string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			*dst = value
			return nil
		}
	}
	return fmt.Errorf("unsupported value %q", value)
}
