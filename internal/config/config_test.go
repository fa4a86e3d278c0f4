package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PDF2HTML_PROVIDER", "PDF2HTML_MODEL", "PDF2HTML_BASE_URL", "PDF2HTML_FORMAT",
	"PDF2HTML_OUT_DIR", "PDF2HTML_NAME_FORMAT", "PDF2HTML_LANGUAGE", "LOG_LEVEL",
	"PDF2HTML_MAX_RETRIES", "PDF2HTML_MAX_DIMENSION", "PDF2HTML_CONTEXT_PAGES",
	"PDF2HTML_MAX_TOKENS", "PDF2HTML_RPM", "PDF2HTML_DPI", "PDF2HTML_TEMPERATURE",
	"PDF2HTML_TIMEOUT",
}

// chdir moves into a fresh directory with a clean environment so the
// default config and .env files of the working tree are not picked up.
func chdir(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
ai:
  provider: gemini
  model: gemini-2.5-pro
  temperature: 0.2
limits:
  timeout: 45s
  max_retries: 5
render:
  dpi: 200
  format: png
output:
  dir: out
context_pages: 2
`)
	t.Setenv("PDF2HTML_MODEL", "gemini-2.5-flash")
	t.Setenv("PDF2HTML_RPM", "30")
	t.Setenv("PDF2HTML_TIMEOUT", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model, "environment overrides the file")
	assert.Equal(t, 0.2, cfg.AI.Temperature)
	assert.Equal(t, time.Minute, cfg.Limits.Timeout)
	assert.Equal(t, 5, cfg.Limits.MaxRetries)
	assert.Equal(t, 30.0, cfg.Limits.RequestsPerMinute)
	assert.Equal(t, 200.0, cfg.Render.DPI)
	assert.Equal(t, "png", cfg.Render.Format)
	assert.Equal(t, 2048, cfg.Render.MaxDimension, "unset keys keep their defaults")
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, 2, cfg.ContextPages)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := chdir(t)
	writeFile(t, filepath.Join(dir, DefaultFile), "language: fr\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Language)
}

func TestLoad_Errors(t *testing.T) {
	dir := chdir(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "ai: [unterminated\n")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	t.Setenv("PDF2HTML_MAX_RETRIES", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid PDF2HTML_MAX_RETRIES")
}

func TestLoadEnvFile(t *testing.T) {
	dir := chdir(t)
	assert.NoError(t, LoadEnvFile(""), "a missing default .env is ignored")
	assert.Error(t, LoadEnvFile(filepath.Join(dir, "nope.env")))

	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("PDF2HTML_LANGUAGE", "de")
	writeFile(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=sk-from-file\nPDF2HTML_LANGUAGE=es\n")
	require.NoError(t, LoadEnvFile(""))

	assert.Equal(t, "sk-from-file", os.Getenv("OPENAI_API_KEY"))
	assert.Equal(t, "de", os.Getenv("PDF2HTML_LANGUAGE"), "existing variables are not overridden")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.AI.Provider = "llama" }, "unknown ai provider: llama"},
		{"no provider", func(c *Config) { c.AI.Provider = "" }, "ai provider not specified"},
		{"temperature", func(c *Config) { c.AI.Temperature = 3 }, "temperature"},
		{"negative retries", func(c *Config) { c.Limits.MaxRetries = -1 }, "max retries"},
		{"negative rpm", func(c *Config) { c.Limits.RequestsPerMinute = -1 }, "requests per minute"},
		{"dpi", func(c *Config) { c.Render.DPI = 0 }, "dpi"},
		{"format", func(c *Config) { c.Render.Format = "gif" }, "unsupported image format: gif"},
		{"context pages", func(c *Config) { c.ContextPages = -2 }, "context pages"},
		{"output dir", func(c *Config) { c.Output.Dir = " " }, "output directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestAIConfig_ResolvesKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-google")

	cfg := Default()
	assert.Equal(t, "sk-openai", cfg.AIConfig().APIKey)

	cfg.AI.Provider = "gemini"
	assert.Equal(t, "g-google", cfg.AIConfig().APIKey)

	cfg.AI.APIKey = "explicit"
	assert.Equal(t, "explicit", cfg.AIConfig().APIKey)
}

func TestRenderOptionsAndPolicy(t *testing.T) {
	cfg := Default()
	cfg.Render.Format = "JPG"
	assert.Equal(t, "jpeg", cfg.RenderOptions().Format)

	logger := logrus.New()
	p := cfg.Policy(logger)
	assert.Equal(t, 2*time.Minute, p.Timeout)
	assert.Equal(t, 3, p.MaxRetries)
	assert.Same(t, logger, p.Logger)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("loud"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(""))
}
