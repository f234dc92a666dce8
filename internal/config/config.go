package config // package config loads application configuration from environment variables

import (
	"errors"  // errors joins every problem found while loading
	"fmt"     // fmt formats descriptive error messages
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes driver names and formats
	"time"    // time expresses the token lifetime
)

// Supported values for DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Config holds all runtime configuration values.  It is built once at
// startup by Load and passed by value to the components that need it, so it
// is never mutated after construction.
type Config struct {
	Env       string         // application environment (e.g. "dev", "prod")
	Port      string         // HTTP port to listen on
	Database  DatabaseConfig // connection settings of the relational store
	Auth      AuthConfig     // bearer token and password hashing settings
	LogLevel  string         // debug, info, warn or error
	LogFormat string         // text (tint) or json
	AMQPURL   string         // broker URL for ticket events; empty disables publishing
}

// DatabaseConfig describes how to reach the relational store.  MySQL is the
// production driver; SQLite is used for local development and tests.
type DatabaseConfig struct {
	Driver string // mysql or sqlite3
	User   string // database username (mysql)
	Pass   string // database password (optional)
	Host   string // database host address (mysql)
	Port   string // database port number (mysql)
	Name   string // database name (mysql)
	Path   string // database file path or ":memory:" (sqlite3)
}

// AuthConfig carries the shared signing secret and token lifetime used by
// the credential service, and the bcrypt cost used for customer passwords.
type AuthConfig struct {
	JWTSecret  string        // secret used to sign HS256 tokens
	TokenTTL   time.Duration // bearer token lifetime
	BcryptCost int           // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  Every missing or malformed variable is reported in the returned
// error rather than stopping at the first one.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:       l.must("APP_ENV"),
		Port:      l.must("APP_PORT"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(envStr("LOG_FORMAT", "text")),
		AMQPURL:   os.Getenv("AMQP_URL"),
		Auth: AuthConfig{
			JWTSecret:  l.must("JWT_SECRET"),
			TokenTTL:   time.Duration(l.optInt("TOKEN_TTL_MIN", 60)) * time.Minute,
			BcryptCost: l.optInt("BCRYPT_COST", 12),
		},
	}

	cfg.Database.Driver = strings.ToLower(envStr("DB_DRIVER", DriverMySQL))
	switch cfg.Database.Driver {
	case DriverMySQL:
		cfg.Database.User = l.must("DB_USER")
		cfg.Database.Pass = os.Getenv("DB_PASS") // empty allowed
		cfg.Database.Host = l.must("DB_HOST")
		cfg.Database.Port = l.must("DB_PORT")
		cfg.Database.Name = l.must("DB_NAME")
	case DriverSQLite:
		cfg.Database.Path = envStr("DB_PATH", "mechanicshop.db")
	default:
		l.errs = append(l.errs, fmt.Errorf("unsupported DB_DRIVER: %q", cfg.Database.Driver))
	}

	if cfg.Auth.TokenTTL <= 0 {
		l.errs = append(l.errs, errors.New("TOKEN_TTL_MIN must be positive"))
	}
	return cfg, errors.Join(l.errs...)
}

// loader accumulates problems found while reading required variables.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.  An unset or
// empty variable is recorded as an error.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// optInt is like envInt but records an error when the variable is set to
// something that is not an integer instead of silently using the default.
func (l *loader) optInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}
