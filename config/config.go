// Package config resolves the suite configuration from a .env file and the process
// environment. It is resolved once at startup and treated as immutable afterward.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrConfig marks every configuration failure. These abort startup rather than failing a
// scenario.
var ErrConfig = errors.New("configuration error")

const (
	DefaultBaseURL    = "http://localhost:8085/mroh-backend-hms/api"
	DefaultOpCoID     = "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	DefaultRevisionID = "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	DefaultUserID     = "99999999-9999-9999-9999-999999999999"
)

type Config struct {
	BaseURL        string        `env:"API_BASE_URL" envDefault:"http://localhost:8085/mroh-backend-hms/api"`
	Token          string        `env:"API_TOKEN,required,notEmpty"`
	OpCoID         string        `env:"TEST_OPCO_ID" envDefault:"3fa85f64-5717-4562-b3fc-2c963f66afa6"`
	FromRevisionID string        `env:"FROM_REVISION_ID" envDefault:"3fa85f64-5717-4562-b3fc-2c963f66afa6"`
	UserID         string        `env:"TEST_USER_ID" envDefault:"99999999-9999-9999-9999-999999999999"`
	RequestTimeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	OutputDir      string        `env:"TEST_OUTPUT_DIR" envDefault:"test_output"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RevisionTag    string        `env:"REVISION_TAG" envDefault:"revenue_test"`
}

// Load reads envFile (if it exists) into the process environment without overriding
// variables that are already set, then parses the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: load %s: %w", ErrConfig, envFile, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg.normalize()
}

// Parse builds a Config from an explicit set of variables instead of the process
// environment.
func Parse(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("%w: API_BASE_URL %q is not an absolute URL", ErrConfig, c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: API_TIMEOUT must be positive, got %s", ErrConfig, c.RequestTimeout)
	}
	c.RevisionTag = strings.TrimPrefix(c.RevisionTag, "@")
	return c, nil
}
