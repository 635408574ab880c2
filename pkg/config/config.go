package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:tritonhub.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	LMS LMSConfig `yaml:"lms" json:"lms" jsonschema:"description=LMS REST API configuration"`

	Sync struct {
		Interval   time.Duration `yaml:"interval" json:"interval" jsonschema:"default=15m,description=Background sync interval"`
		MaxWorkers int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,description=Maximum concurrent per-course fetches"`
		Timezone   string        `yaml:"timezone" json:"timezone" jsonschema:"description=IANA timezone for calendar bucketing (default local)"`
	} `yaml:"sync" json:"sync" jsonschema:"description=Sync scheduler configuration"`

	Email EmailConfig `yaml:"email" json:"email" jsonschema:"description=IMAP email summary source"`

	Parser ParserConfig `yaml:"parser" json:"parser" jsonschema:"description=LLM notification parser configuration"`
}

// LMSConfig holds the remote course-data API settings. Token and BaseURL are
// the bearer credential and base origin every fetch of a sync cycle uses.
type LMSConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"required,description=LMS API base origin (e.g. https://canvas.example.edu)"`
	Token   string        `yaml:"token" json:"token" jsonschema:"required,description=Bearer credential (can use environment variable)"`
	PerPage int           `yaml:"per_page" json:"per_page" jsonschema:"default=50,description=Page size requested per collection fetch"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Per-request timeout"`
}

// EmailConfig holds the IMAP summary source settings
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable the email summary source"`
	Host     string `yaml:"host" json:"host" jsonschema:"description=IMAP host"`
	Port     string `yaml:"port" json:"port" jsonschema:"default=993,description=IMAP port"`
	Username string `yaml:"username" json:"username" jsonschema:"description=IMAP account"`
	Password string `yaml:"password" json:"password" jsonschema:"description=IMAP password (can use environment variable)"`
	TLS      bool   `yaml:"tls" json:"tls" jsonschema:"default=true,description=Use implicit TLS"`
	Limit    int    `yaml:"limit" json:"limit" jsonschema:"default=50,description=Maximum messages per sync"`
	LinkBase string `yaml:"link_base" json:"link_base" jsonschema:"description=Base URL for message deep links"`
}

// ParserConfig holds LLM settings for parsing pasted notification text
type ParserConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable the LLM notification parser"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"description=Model name"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0,description=Temperature for response generation"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1000,description=Maximum tokens in response"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:tritonhub.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for LMS
	if cfg.LMS.PerPage == 0 {
		cfg.LMS.PerPage = 50
	}
	if cfg.LMS.Timeout == 0 {
		cfg.LMS.Timeout = 15 * time.Second
	}

	// set defaults for sync
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 15 * time.Minute
	}
	if cfg.Sync.MaxWorkers == 0 {
		cfg.Sync.MaxWorkers = 5
	}

	// set defaults for email
	if cfg.Email.Port == "" {
		cfg.Email.Port = "993"
	}
	if cfg.Email.Limit == 0 {
		cfg.Email.Limit = 50
	}

	// set defaults for parser
	if cfg.Parser.MaxTokens == 0 {
		cfg.Parser.MaxTokens = 1000
	}
	if cfg.Parser.Timeout == 0 {
		cfg.Parser.Timeout = 30 * time.Second
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {

	// the LMS credential and base origin are the root of every sync cycle
	if cfg.LMS.BaseURL == "" {
		return fmt.Errorf("lms.base_url is required")
	}
	if cfg.LMS.Token == "" {
		return fmt.Errorf("lms.token is required")
	}
	if cfg.LMS.PerPage < 1 || cfg.LMS.PerPage > 100 {
		return fmt.Errorf("lms.per_page must be between 1 and 100")
	}

	// validate email config
	if cfg.Email.Enabled {
		if cfg.Email.Host == "" {
			return fmt.Errorf("email.host is required when email is enabled")
		}
		if cfg.Email.Username == "" {
			return fmt.Errorf("email.username is required when email is enabled")
		}
	}

	// validate parser config
	if cfg.Parser.Enabled {
		if cfg.Parser.Endpoint == "" {
			return fmt.Errorf("parser.endpoint is required when parser is enabled")
		}
		if cfg.Parser.Model == "" {
			return fmt.Errorf("parser.model is required when parser is enabled")
		}
		if cfg.Parser.Temperature < 0 || cfg.Parser.Temperature > 2 {
			return fmt.Errorf("parser.temperature must be between 0 and 2")
		}
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if cfg.Sync.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Sync.Timezone); err != nil {
			return fmt.Errorf("sync.timezone %q is invalid: %w", cfg.Sync.Timezone, err)
		}
	}

	return nil
}

// Location resolves the configured timezone, falling back to system local
func (c *Config) Location() *time.Location {
	if c.Sync.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetLMSConfig returns LMS API configuration
func (c *Config) GetLMSConfig() LMSConfig {
	return c.LMS
}

// GetParserConfig returns LLM parser configuration
func (c *Config) GetParserConfig() ParserConfig {
	return c.Parser
}
