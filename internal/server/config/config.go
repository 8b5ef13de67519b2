// Package config handles configuration for the userkeeper server,
// including defaults, a JSON file overlay, environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime settings for the server. It is built once at startup
// and passed by pointer to the components that need it; nothing mutates it
// after LoadConfig returns.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the REST API.
//   - EndpointAddrGRPC: bind address of the gRPC health service.
//   - DatabaseDriver / DatabaseDSN: "postgres" (pgx) or "sqlite" (modernc) and its DSN.
//   - SecretKey: HMAC secret for signing access tokens (HS256).
//   - TokenValidityDuration: lifetime of an issued access token.
//   - PasswordHashAlgorithm / PasswordHashCost: "bcrypt" or "argon2id" and its work factor.
//   - LogLevel / LogFormat: slog level name and "json" or "text".
type Config struct {
	EndpointAddrHTTP      string        `env:"HTTP_ADDR"`
	EndpointAddrGRPC      string        `env:"GRPC_ADDR"`
	DatabaseDriver        string        `env:"DATABASE_DRIVER"`
	DatabaseDSN           string        `env:"DATABASE_URL"`
	SecretKey             string        `env:"JWT_SECRET"`
	TokenValidityDuration time.Duration `env:"TOKEN_TTL"`
	PasswordHashAlgorithm string        `env:"PASSWORD_HASH_ALGORITHM"`
	PasswordHashCost      int           `env:"PASSWORD_HASH_COST"`
	LogLevel              string        `env:"LOG_LEVEL"`
	LogFormat             string        `env:"LOG_FORMAT"`
}

// LoadDefaults populates Config with development defaults. SecretKey has no
// default: it must come from -s, JWT_SECRET or secret_key, and Validate
// refuses to start without it.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":3000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "file:userkeeper.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	c.TokenValidityDuration = 24 * time.Hour
	c.PasswordHashAlgorithm = "bcrypt"
	c.PasswordHashCost = 10
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is empty"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty: set JWT_SECRET, -s or secret_key"))
	}
	if c.TokenValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("token validity must be positive, got %s", c.TokenValidityDuration))
	}
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("http address is empty"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally args (usually
// os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a Config from defaults and the environment only. It is used
// by tools that own their command line, such as useradm.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
