package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateFromEnvDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.PopulateFromEnv())

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "web/dist", cfg.StaticDir)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "gemini-3-flash-preview", cfg.GeminiModel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestPopulateFromEnvOverrides(t *testing.T) {
	t.Setenv("ITPULSE_ADDR", ":9999")
	t.Setenv("ITPULSE_STATIC_DIR", "/srv/app")
	t.Setenv("ITPULSE_DB_PATH", "/tmp/x.db")
	t.Setenv("ITPULSE_JWT_TTL", "30m")
	t.Setenv("ITPULSE_GEMINI_API_KEY", "key")
	t.Setenv("ITPULSE_LOG_LEVEL", "debug")

	var cfg Config
	require.NoError(t, cfg.PopulateFromEnv())

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "/srv/app", cfg.StaticDir)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, "/tmp/x.db", cfg.Database().Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }},
		{"zero ttl", func(c *Config) { c.JWTTTL = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Addr: ":8080", JWTSecret: "s", JWTTTL: time.Hour, LogLevel: "info"}
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDefaultPath(t *testing.T) {
	cfg := Config{}
	assert.True(t, strings.HasSuffix(cfg.Database().Path, filepath.Join(".itpulse", "prefs.db")))
}

func TestOutputUsage(t *testing.T) {
	var buf bytes.Buffer
	var cfg Config
	cfg.OutputUsage(&buf)
	assert.Contains(t, buf.String(), "ITPULSE_GEMINI_API_KEY")
	assert.Contains(t, buf.String(), "ITPULSE_STATIC_DIR")
}

func TestSanitizerPlainText(t *testing.T) {
	s := NewSanitizer()
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain words", "plain words"},
		{"<b>bold</b> move", "bold move"},
		{`<script>alert("x")</script>hello`, "hello"},
		{"fish &amp; chips", "fish & chips"},
		{"<p>two</p>\n\n<p>paragraphs</p>", "two paragraphs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, s.PlainText(tt.in))
		})
	}
}
