// Package config provides functionality for managing configuration
// options for the application using command-line flags, environment
// variables, and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects the runtime profile.
const (
	// EnvDevelopment enables verbose request logging and disables
	// static-asset hosting.
	EnvDevelopment = "development"
	// EnvProduction enables static-asset hosting and disables verbose
	// request logging.
	EnvProduction = "production"
)

// Options holds the configuration values for the application.
type Options struct {
	// Environment is either "development" or "production".
	Environment string

	// Address defines the server's listening address (ip:port).
	Address string

	// DatabaseDSN holds the Postgres connection string. When empty the
	// server falls back to the in-memory store (development only).
	DatabaseDSN string

	// SigningKey is the HMAC key used to sign and verify credentials.
	SigningKey string

	// TokenTTL is the lifetime of issued credentials.
	TokenTTL time.Duration

	// MaxPageSize bounds list responses.
	MaxPageSize int

	// StaticDir is the directory of built frontend assets served in
	// production.
	StaticDir string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Environment, "e", EnvDevelopment, "runtime environment (development|production)")
	flag.StringVar(&options.Address, "a", "localhost:4000", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.SigningKey, "k", "", "credential signing key")
	flag.StringVar(&options.StaticDir, "s", "frontend/dist", "static assets directory")
	flag.DurationVar(&options.TokenTTL, "ttl", 24*time.Hour, "credential lifetime")
	flag.IntVar(&options.MaxPageSize, "max-page", 100, "maximum list page size")
}

// Parse parses the command-line flags, an optional .env file, and
// environment variables to set configuration values. Environment
// variables win over flags. It returns a pointer to the Options struct
// containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A missing .env file is fine; explicit paths come via ENV_FILE.
	envFile := getEnv("ENV_FILE", ".env")
	_ = godotenv.Load(envFile)

	options.Environment = getEnv("APP_ENV", options.Environment)
	options.Address = getEnv("SERVER_ADDRESS", options.Address)
	options.DatabaseDSN = getEnv("DATABASE_DSN", options.DatabaseDSN)
	options.SigningKey = getEnv("SIGNING_KEY", options.SigningKey)
	options.StaticDir = getEnv("STATIC_DIR", options.StaticDir)

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			options.TokenTTL = d
		}
	}
	if v := os.Getenv("MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			options.MaxPageSize = n
		}
	}

	return options
}

// Validate checks the options for consistency and returns an error
// describing every problem found.
func (o *Options) Validate() error {
	var problems []string

	if o.Environment != EnvDevelopment && o.Environment != EnvProduction {
		problems = append(problems, fmt.Sprintf("invalid environment %q: must be %q or %q",
			o.Environment, EnvDevelopment, EnvProduction))
	}
	if o.Address == "" {
		problems = append(problems, "address must not be empty")
	}
	if o.SigningKey == "" {
		problems = append(problems, "signing key must not be empty")
	}
	if o.TokenTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("token ttl %v too short: minimum 1m", o.TokenTTL))
	}
	if o.MaxPageSize < 1 || o.MaxPageSize > 1000 {
		problems = append(problems, fmt.Sprintf("max page size %d out of range [1,1000]", o.MaxPageSize))
	}
	if o.Environment == EnvProduction {
		if o.DatabaseDSN == "" {
			problems = append(problems, "production requires a database DSN")
		}
		if o.StaticDir == "" {
			problems = append(problems, "production requires a static assets directory")
		}
	}

	if len(problems) > 0 {
		return errors.New("configuration invalid:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
