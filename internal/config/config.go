package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the data directory.
const FileName = "spendlens.yaml"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Oracle providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderBayes     = "bayes"
)

// Config represents the top-level spendlens.yaml configuration.
type Config struct {
	User    UserConfig    `yaml:"user"`
	Storage StorageConfig `yaml:"storage"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Import  ImportConfig  `yaml:"import"`
	Log     LogConfig     `yaml:"log"`
}

// UserConfig identifies the single local user.
type UserConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// StorageConfig selects the storage driver and database file.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // relative to the data directory
}

// OracleConfig controls AI categorization.
type OracleConfig struct {
	Provider            string        `yaml:"provider"`
	Model               string        `yaml:"model,omitempty"`
	BatchSize           int           `yaml:"batch_size"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Timeout             time.Duration `yaml:"timeout"`
	Temperature         float64       `yaml:"temperature"`
}

// ImportConfig controls CSV import.
type ImportConfig struct {
	Currency string `yaml:"currency"`
	Inbox    string `yaml:"inbox"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a spendlens.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default(userName, timezone string) *Config {
	if timezone == "" {
		timezone = "UTC"
	}
	return &Config{
		User: UserConfig{
			Name:     userName,
			Timezone: timezone,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "spendlens.db",
		},
		Oracle: OracleConfig{
			Provider:            ProviderGemini,
			BatchSize:           100,
			ConfidenceThreshold: 0.70,
			Timeout:             60 * time.Second,
			Temperature:         0.1,
		},
		Import: ImportConfig{
			Currency: "CAD",
			Inbox:    "import",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the values Load cannot check by type alone.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite, DriverBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Oracle.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderBayes:
	default:
		errs = append(errs, fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider))
	}
	if c.Oracle.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("oracle batch_size must be at least 1, got %d", c.Oracle.BatchSize))
	}
	if c.Oracle.ConfidenceThreshold < 0 || c.Oracle.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("oracle confidence_threshold must be within [0,1], got %g", c.Oracle.ConfidenceThreshold))
	}
	if _, err := time.LoadLocation(c.User.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("user timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the user's time zone, UTC when unset or unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.User.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Resolve makes p absolute against dir unless it already is.
func Resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// LoadEnv applies dir/.env to the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// APIKey returns the key for provider from the environment.
func APIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
