// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package config loads authd settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/auth/filestore"
	"github.com/knpvt5/auth/internal/logging"
	"github.com/knpvt5/auth/internal/xdg"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config is the complete authd configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store" json:"store,omitempty"`
	Token   TokenConfig   `koanf:"token" json:"token,omitempty"`
	Hasher  HasherConfig  `koanf:"hasher" json:"hasher,omitempty"`
	HTTP    HTTPConfig    `koanf:"http" json:"http,omitempty"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics,omitempty"`
	Log     LogConfig     `koanf:"log" json:"log,omitempty"`
}

// StoreConfig selects the credential store.
type StoreConfig struct {
	Driver      string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=file,enum=postgres,default=file"`
	Path        string `koanf:"path" json:"path,omitempty" jsonschema:"description=Path of the JSON users file for the file driver"`
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty" jsonschema:"description=PostgreSQL connection URL for the postgres driver"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" jsonschema:"default=true"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	Secret string   `koanf:"secret" json:"secret,omitempty" jsonschema:"description=HMAC signing secret"`
	TTL    Duration `koanf:"ttl" json:"ttl,omitempty"`
}

// HasherConfig configures password hashing.
type HasherConfig struct {
	Algorithm  string `koanf:"algorithm" json:"algorithm,omitempty" jsonschema:"enum=bcrypt,enum=argon2id,default=bcrypt"`
	BcryptCost int    `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=4,maximum=31,default=10"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr          string `koanf:"addr" json:"addr,omitempty" jsonschema:"default=:8000"`
	SecureCookies bool   `koanf:"secure_cookies" json:"secure_cookies,omitempty"`
	EmailLookup   bool   `koanf:"email_lookup" json:"email_lookup,omitempty" jsonschema:"default=true"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text,default=json"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:      DriverFile,
			Path:        filestore.DefaultPath(),
			AutoMigrate: true,
		},
		Token:   TokenConfig{TTL: Duration(auth.DefaultTokenTTL)},
		Hasher:  HasherConfig{Algorithm: auth.AlgorithmBcrypt, BcryptCost: auth.DefaultBcryptCost},
		HTTP:    HTTPConfig{Addr: ":8000", EmailLookup: true},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
	}
}

// defaultsProvider feeds Default into koanf as the lowest layer.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, oops.Errorf("defaults provider does not support ReadBytes")
}

func (defaultsProvider) Read() (map[string]any, error) {
	d := Default()
	return map[string]any{
		"store": map[string]any{
			"driver":       d.Store.Driver,
			"path":         d.Store.Path,
			"database_url": d.Store.DatabaseURL,
			"auto_migrate": d.Store.AutoMigrate,
		},
		"token": map[string]any{
			"secret": d.Token.Secret,
			"ttl":    d.Token.TTL.String(),
		},
		"hasher": map[string]any{
			"algorithm":   d.Hasher.Algorithm,
			"bcrypt_cost": d.Hasher.BcryptCost,
		},
		"http": map[string]any{
			"addr":           d.HTTP.Addr,
			"secure_cookies": d.HTTP.SecureCookies,
			"email_lookup":   d.HTTP.EmailLookup,
		},
		"metrics": map[string]any{
			"addr": d.Metrics.Addr,
		},
		"log": map[string]any{
			"format": d.Log.Format,
			"level":  d.Log.Level,
		},
	}, nil
}

// envKeys maps AUTHD_* variables to config keys.
var envKeys = map[string]string{
	"AUTHD_STORE_DRIVER":        "store.driver",
	"AUTHD_STORE_PATH":          "store.path",
	"AUTHD_DATABASE_URL":        "store.database_url",
	"AUTHD_STORE_AUTO_MIGRATE":  "store.auto_migrate",
	"AUTHD_TOKEN_SECRET":        "token.secret",
	"AUTHD_TOKEN_TTL":           "token.ttl",
	"AUTHD_HASHER_ALGORITHM":    "hasher.algorithm",
	"AUTHD_HASHER_BCRYPT_COST":  "hasher.bcrypt_cost",
	"AUTHD_HTTP_ADDR":           "http.addr",
	"AUTHD_HTTP_SECURE_COOKIES": "http.secure_cookies",
	"AUTHD_HTTP_EMAIL_LOOKUP":   "http.email_lookup",
	"AUTHD_METRICS_ADDR":        "metrics.addr",
	"AUTHD_LOG_FORMAT":          "log.format",
	"AUTHD_LOG_LEVEL":           "log.level",
}

// legacyEnvKeys are unprefixed variables honored for compatibility. AUTHD_*
// variables take precedence over them.
var legacyEnvKeys = map[string]string{
	"JWT_SECRET":   "token.secret",
	"DATABASE_URL": "store.database_url",
	"PORT":         "http.addr",
}

// flagKeys maps the flags registered by BindFlags to config keys.
var flagKeys = map[string]string{
	"store-driver":   "store.driver",
	"store-path":     "store.path",
	"database-url":   "store.database_url",
	"auto-migrate":   "store.auto_migrate",
	"token-ttl":      "token.ttl",
	"hasher":         "hasher.algorithm",
	"bcrypt-cost":    "hasher.bcrypt_cost",
	"http-addr":      "http.addr",
	"secure-cookies": "http.secure_cookies",
	"email-lookup":   "http.email_lookup",
	"metrics-addr":   "metrics.addr",
	"log-format":     "log.format",
	"log-level":      "log.level",
}

// BindFlags registers the configuration flags on fs. Only flags the user sets
// override lower layers. There is deliberately no flag for the token secret.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("store-driver", d.Store.Driver, "credential store driver (file or postgres)")
	fs.String("store-path", "", "users file for the file driver (default: XDG_DATA_HOME/authd/users.json)")
	fs.String("database-url", "", "PostgreSQL URL for the postgres driver")
	fs.Bool("auto-migrate", d.Store.AutoMigrate, "apply pending migrations at startup (postgres)")
	fs.Duration("token-ttl", time.Duration(d.Token.TTL), "session token lifetime")
	fs.String("hasher", d.Hasher.Algorithm, "password hash algorithm (bcrypt or argon2id)")
	fs.Int("bcrypt-cost", d.Hasher.BcryptCost, "bcrypt cost factor")
	fs.String("http-addr", d.HTTP.Addr, "HTTP API listen address")
	fs.Bool("secure-cookies", d.HTTP.SecureCookies, "mark session cookies Secure and SameSite=None")
	fs.Bool("email-lookup", d.HTTP.EmailLookup, "expose the email lookup route")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// DefaultFileName is the config file looked up in the XDG config directory.
const DefaultFileName = "authd.yaml"

// DefaultPath returns the config file used when --config is not given, or ""
// when it does not exist.
func DefaultPath() string {
	path := filepath.Join(xdg.ConfigDir(), DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Load builds the configuration. path may be empty; flags may be nil.
// The file, when given, is validated against the generated schema before
// it is merged.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{}, nil); err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).With("layer", "defaults").Wrap(err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, oops.Code(auth.CodeConfigInvalid).With("path", path).Wrapf(err, "read config file")
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(auth.CodeConfigInvalid).With("path", path).Wrapf(err, "parse config file")
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", mapEnv(legacyEnvKeys, true)), nil); err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).With("layer", "legacy env").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue("AUTHD_", ".", mapEnv(envKeys, false)), nil); err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).With("layer", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, mapFlag(flags)), nil); err != nil {
			return nil, oops.Code(auth.CodeConfigInvalid).With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).Wrapf(err, "decode configuration")
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filestore.DefaultPath()
	}
	return &cfg, nil
}

// mapEnv translates known variables to config keys. An empty AUTHD_*
// variable still applies, so AUTHD_METRICS_ADDR= disables metrics.
func mapEnv(keys map[string]string, skipEmpty bool) func(string, string) (string, any) {
	return func(name, value string) (string, any) {
		key, ok := keys[name]
		if !ok || (skipEmpty && value == "") {
			return "", nil
		}
		if name == "PORT" && !strings.Contains(value, ":") {
			value = ":" + value
		}
		return key, value
	}
}

func mapFlag(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		if f.Value.Type() == "duration" {
			// Keep durations textual so the text unmarshal hook applies.
			return key, f.Value.String()
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Validate checks values koanf cannot type-check.
func (c *Config) Validate() error {
	invalid := func(key string, format string, args ...any) error {
		return oops.Code(auth.CodeConfigInvalid).With("key", key).Errorf(format, args...)
	}

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Path == "" {
			return invalid("store.path", "store.path is required for the file driver")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return invalid("store.database_url", "store.database_url is required for the postgres driver")
		}
	default:
		return invalid("store.driver", "unknown store driver %q", c.Store.Driver)
	}

	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "token.ttl must be positive, got %s", c.Token.TTL)
	}

	switch c.Hasher.Algorithm {
	case auth.AlgorithmBcrypt:
		if c.Hasher.BcryptCost != 0 && (c.Hasher.BcryptCost < bcrypt.MinCost || c.Hasher.BcryptCost > bcrypt.MaxCost) {
			return invalid("hasher.bcrypt_cost", "hasher.bcrypt_cost must be between %d and %d, got %d",
				bcrypt.MinCost, bcrypt.MaxCost, c.Hasher.BcryptCost)
		}
	case auth.AlgorithmArgon2id:
	default:
		return invalid("hasher.algorithm", "unknown hash algorithm %q", c.Hasher.Algorithm)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	return nil
}

// RequireSecret fails when no token secret is configured. The server must
// not start without one.
func (c *Config) RequireSecret() error {
	if strings.TrimSpace(c.Token.Secret) == "" {
		return oops.With("hint", "set AUTHD_TOKEN_SECRET or JWT_SECRET").Wrap(auth.ErrMissingSecret)
	}
	return nil
}

// LogValue renders the configuration for logs with the secrets masked.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("store.driver", c.Store.Driver),
		slog.String("store.path", c.Store.Path),
		slog.Bool("store.database_url_set", c.Store.DatabaseURL != ""),
		slog.Bool("token.secret_set", c.Token.Secret != ""),
		slog.String("token.ttl", c.Token.TTL.String()),
		slog.String("hasher.algorithm", c.Hasher.Algorithm),
		slog.String("http.addr", c.HTTP.Addr),
		slog.Bool("http.secure_cookies", c.HTTP.SecureCookies),
		slog.Bool("http.email_lookup", c.HTTP.EmailLookup),
		slog.String("metrics.addr", c.Metrics.Addr),
		slog.String("log.format", c.Log.Format),
		slog.String("log.level", c.Log.Level),
	)
}
