// Package utils holds configuration and small helpers shared by the
// binaries.
package utils

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"itpulse/pkg/database"
)

const (
	envVarPrefix = "itpulse"

	usageListFormat = `The server is configured via environment vars. The following environment variables can be used:
{{range .}}
{{usage_key .}}
  description: {{usage_description .}}
  type:        {{usage_type .}}
  default:     {{usage_default .}}
  required:    {{usage_required .}}
{{end}}
`
)

// Config is the server configuration derived from ITPULSE_* environment
// variables.
type Config struct {
	Addr      string `default:":8080" desc:"Address the HTTP server listens on"`
	StaticDir string `split_words:"true" default:"web/dist" desc:"Directory holding the built single page app"`
	SeedFile  string `split_words:"true" desc:"TOML article catalogue to start sessions from, the bundled one if empty"`
	DBPath    string `envconfig:"db_path" desc:"SQLite file for stored preferences, ~/.itpulse/prefs.db if empty"`

	JWTSecret string        `envconfig:"jwt_secret" default:"dev-secret-change-me" desc:"HMAC secret for session tokens"`
	JWTIssuer string        `envconfig:"jwt_issuer" default:"itpulse" desc:"Issuer claim of session tokens"`
	JWTTTL    time.Duration `envconfig:"jwt_ttl" default:"24h" desc:"Lifetime of session tokens"`

	GeminiAPIKey  string `envconfig:"gemini_api_key" desc:"API key of the generative language service, AI assist is unavailable if empty"`
	GeminiBaseURL string `envconfig:"gemini_base_url" default:"https://generativelanguage.googleapis.com" desc:"Base URL of the generative language service"`
	GeminiModel   string `envconfig:"gemini_model" default:"gemini-3-flash-preview" desc:"Model used for AI assist"`

	LogLevel string `split_words:"true" default:"info" desc:"One of trace, debug, info, warn, error"`
	LogJSON  bool   `envconfig:"log_json" desc:"Log as JSON instead of text"`
}

// OutputUsage prints the usage string to w.
func (c *Config) OutputUsage(w io.Writer) {
	tabs := tabwriter.NewWriter(w, 1, 0, 4, ' ', 0)
	_ = envconfig.Usagef(envVarPrefix, c, tabs, usageListFormat)
	_ = tabs.Flush()
}

// PopulateFromEnv processes the environment vars, populates Config with the
// respective values, and validates the values.
func (c *Config) PopulateFromEnv() error {
	if err := envconfig.Process(envVarPrefix, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("jwt ttl must be positive, got %s", c.JWTTTL)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func (c *Config) Database() database.Config {
	if c.DBPath == "" {
		return database.DefaultConfig()
	}
	return database.Config{Path: c.DBPath}
}

// SetupLogging applies the level and format to the standard logrus logger.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	if c.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
