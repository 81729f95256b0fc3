package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	Env       string          `yaml:"env"` // "dev" or "prod"
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Forms     FormsConfig     `yaml:"forms"`
	Templates TemplatesConfig `yaml:"templates"`
	Responses ResponsesConfig `yaml:"responses"`
	Flow      FlowConfig      `yaml:"flow"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects the key-value backend holding the form and response snapshots.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // "sqlite", "badger" or "memory"
	Path       string `yaml:"path"`    // badger directory
	SyncWrites bool   `yaml:"sync_writes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type FormsConfig struct {
	SeedPath string `yaml:"seed_path"`
}

type TemplatesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type ResponsesConfig struct {
	RateLimit      int      `yaml:"rate_limit"` // submissions per minute per IP
	Burst          int      `yaml:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AnonymizeIP    bool     `yaml:"anonymize_ip"`
	IPSalt         string   `yaml:"ip_salt"`
}

type FlowConfig struct {
	SessionTTL string `yaml:"session_ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the configuration for the given environment before any
// file or environment overrides are applied.
func Defaults(env string) *Config {
	var dbPath, storePath string
	if env == "dev" {
		dbPath = "_workspace/db/formkit.db"
		storePath = "_workspace/badger"
	} else {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".formkit", "formkit.db")
		storePath = filepath.Join(homeDir, ".formkit", "badger")
	}

	return &Config{
		Env:      env,
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: "5s"},
		Database: DatabaseConfig{Path: dbPath},
		Store:    StoreConfig{Backend: BackendSQLite, Path: storePath, SyncWrites: true},
		Log:      LogConfig{Level: "info", Format: "text"},
		Responses: ResponsesConfig{
			RateLimit:   10,
			Burst:       5,
			AnonymizeIP: true,
		},
		Flow:    FlowConfig{SessionTTL: "2h"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load builds the configuration from defaults, config.yaml and environment.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	env := os.Getenv("FORMKIT_ENV")
	if env == "" {
		env = "dev" // Default to dev for safety
	}

	cfg := Defaults(env)

	path := os.Getenv("FORMKIT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ignoring invalid %s: %v\n", path, err)
		}
	}

	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML configuration file on top of the environment defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg := Defaults("dev")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return cfg, nil
}

// Environment overrides (highest priority)
func applyEnv(cfg *Config) {
	if v := os.Getenv("FORMKIT_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FORMKIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("FORMKIT_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("FORMKIT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FORMKIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FORMKIT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FORMKIT_FORMS_SEED_PATH"); v != "" {
		cfg.Forms.SeedPath = v
	}
	if v := os.Getenv("FORMKIT_TEMPLATES_PATH"); v != "" {
		cfg.Templates.Path = v
	}
	if v := os.Getenv("FORMKIT_RESPONSES_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Responses.RateLimit = n
		}
	}
	if v := os.Getenv("FORMKIT_RESPONSES_ALLOWED_ORIGINS"); v != "" {
		cfg.Responses.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Responses.AllowedOrigins = append(cfg.Responses.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("FORMKIT_RESPONSES_IP_SALT"); v != "" {
		cfg.Responses.IPSalt = v
	}
	if v := os.Getenv("FORMKIT_FLOW_SESSION_TTL"); v != "" {
		cfg.Flow.SessionTTL = v
	}
}

// Validate reports settings the server must not start with. Outside dev an
// anonymized address needs ip_salt, or its digest can be reversed by hashing
// every IPv4 address.
func (c *Config) Validate() error {
	if !c.IsDev() && c.Responses.AnonymizeIP && c.Responses.IPSalt == "" {
		return fmt.Errorf("responses.ip_salt is required when anonymize_ip is on in %s mode", c.Env)
	}
	return nil
}

// ShutdownTimeout returns the parsed server shutdown timeout, 5s when unset or invalid.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 5*time.Second)
}

// SessionTTL returns the parsed respondent session TTL, 2h when unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Flow.SessionTTL, 2*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
