package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	envPrefix      = "STOREFRONT"
	defaultEnvFile = ".env"
	defaultQtyCap  = 10
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Catalog  CatalogConfig
	Admin    AdminConfig
	Firebase FirebaseConfig
	LogLevel string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig points at the product/variant REST service. An empty BaseURL selects
// the in-memory demo backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig holds display fallbacks used by the aggregator and selection.
type CatalogConfig struct {
	// PlaceholderImageURL overrides the catalog's own placeholder when set.
	PlaceholderImageURL string
	QuantityCap         int
	Concurrency         int
}

// AdminConfig configures the inventory admin console routes.
type AdminConfig struct {
	BasePath string
}

// FirebaseConfig enables ID token verification for admin routes when ProjectID is set.
type FirebaseConfig struct {
	ProjectID string
}

// envSpec is the flat binding consumed by envconfig.
type envSpec struct {
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout         time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout        time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout         time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	BackendBaseURL      string        `envconfig:"BACKEND_BASE_URL"`
	BackendTimeout      time.Duration `envconfig:"BACKEND_TIMEOUT" default:"8s"`
	PlaceholderImageURL string        `envconfig:"PLACEHOLDER_IMAGE_URL"`
	QuantityCap         int           `envconfig:"QUANTITY_CAP" default:"10"`
	CatalogConcurrency  int           `envconfig:"CATALOG_CONCURRENCY" default:"4"`
	AdminBasePath       string        `envconfig:"ADMIN_BASE_PATH" default:"/admin"`
	FirebaseProjectID   string        `envconfig:"FIREBASE_PROJECT_ID"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile string
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path
// disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// Load assembles configuration from defaults, an optional .env file and STOREFRONT_*
// environment variables. Variables already present in the environment win over .env.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile}
	for _, opt := range opts {
		opt(&options)
	}

	if options.envFile != "" {
		if err := godotenv.Load(options.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: unable to read %s: %w", options.envFile, err)
		}
	}

	var env envSpec
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		Server: ServerConfig{
			Address:         strings.TrimSpace(env.HTTPAddr),
			ReadTimeout:     env.ReadTimeout,
			WriteTimeout:    env.WriteTimeout,
			IdleTimeout:     env.IdleTimeout,
			ShutdownTimeout: env.ShutdownTimeout,
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(env.BackendBaseURL), "/"),
			Timeout: env.BackendTimeout,
		},
		Catalog: CatalogConfig{
			PlaceholderImageURL: strings.TrimSpace(env.PlaceholderImageURL),
			QuantityCap:         env.QuantityCap,
			Concurrency:         env.CatalogConcurrency,
		},
		Admin: AdminConfig{
			BasePath: normalizeBasePath(env.AdminBasePath),
		},
		Firebase: FirebaseConfig{
			ProjectID: strings.TrimSpace(env.FirebaseProjectID),
		},
		LogLevel: strings.ToLower(strings.TrimSpace(env.LogLevel)),
	}

	if cfg.Catalog.QuantityCap == 0 {
		cfg.Catalog.QuantityCap = defaultQtyCap
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UsesMemoryBackend reports whether no backend URL was configured.
func (c Config) UsesMemoryBackend() bool {
	return c.Backend.BaseURL == ""
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Address == "" {
		missing = append(missing, "Server.Address")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		missing = append(missing, "Server.ShutdownTimeout")
	}
	if cfg.Backend.BaseURL != "" {
		u, err := url.Parse(cfg.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			missing = append(missing, "Backend.BaseURL")
		}
	}
	if cfg.Backend.Timeout <= 0 {
		missing = append(missing, "Backend.Timeout")
	}
	if cfg.Catalog.QuantityCap < 1 {
		missing = append(missing, "Catalog.QuantityCap")
	}
	if cfg.Catalog.Concurrency < 1 {
		missing = append(missing, "Catalog.Concurrency")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
