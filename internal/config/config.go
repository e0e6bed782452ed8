// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Identity IdentityConfig `koanf:"identity"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	// Backend is "memory" or "redis".
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuthConfig struct {
	// Verifier is "static" (single configured pair) or "postgres".
	Verifier string        `koanf:"verifier"`
	Delay    time.Duration `koanf:"delay"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type IdentityConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

type LogConfig struct {
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"addr":             "server.addr",
	"read-timeout":     "server.read_timeout",
	"shutdown-timeout": "server.shutdown_timeout",
	"storage":          "storage.backend",
	"storage-ttl":      "storage.ttl",
	"redis-addr":       "redis.addr",
	"redis-password":   "redis.password",
	"redis-db":         "redis.db",
	"verifier":         "auth.verifier",
	"login-delay":      "auth.delay",
	"auth-username":    "auth.username",
	"auth-password":    "auth.password",
	"database-url":     "database.url",
	"identity-secret":  "identity.secret",
	"identity-ttl":     "identity.ttl",
	"log-format":       "log.format",
	"metrics":          "metrics.enabled",
}

// RegisterFlags defines every setting on fs. Flag defaults double as the
// configuration defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Duration("read-timeout", 10*time.Second, "HTTP read header timeout")
	fs.Duration("shutdown-timeout", 5*time.Second, "graceful shutdown timeout")
	fs.String("storage", "memory", "session storage backend (memory or redis)")
	fs.Duration("storage-ttl", 0, "expiry of stored session keys (0 keeps them)")
	fs.String("redis-addr", "localhost:6379", "redis address")
	fs.String("redis-password", "", "redis password")
	fs.Int("redis-db", 0, "redis database")
	fs.String("verifier", "static", "credential verifier (static or postgres)")
	fs.Duration("login-delay", 500*time.Millisecond, "latency added before credentials are checked")
	fs.String("auth-username", "admin", "username accepted by the static verifier")
	fs.String("auth-password", "admin", "password accepted by the static verifier")
	fs.String("database-url", "", "PostgreSQL URL for the postgres verifier")
	fs.String("identity-secret", "insecure-dev-secret", "HMAC key signing client cookies")
	fs.Duration("identity-ttl", 365*24*time.Hour, "lifetime of the client cookie")
	fs.String("log-format", "text", "log format (json or text)")
	fs.Bool("metrics", true, "expose /metrics")
}

// Load builds the configuration from flag defaults, then the optional YAML
// file at path, then flags set explicitly on fs.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Auth.Verifier {
	case "static":
		if c.Auth.Username == "" || c.Auth.Password == "" {
			return fmt.Errorf("config: static verifier needs auth.username and auth.password")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("config: postgres verifier needs database.url")
		}
	default:
		return fmt.Errorf("config: unknown verifier %q", c.Auth.Verifier)
	}

	if c.Auth.Delay < 0 {
		return fmt.Errorf("config: auth.delay must not be negative")
	}
	if c.Identity.Secret == "" {
		return fmt.Errorf("config: identity.secret is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	return nil
}
