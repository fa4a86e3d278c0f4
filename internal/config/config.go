// Package config loads pdf2html settings from a YAML file, the environment
// and a .env file. Command line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-html/internal/ai"
	"github.com/thywilljoshua/pdf-to-html/internal/convert"
	"github.com/thywilljoshua/pdf-to-html/internal/pdf"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "pdf2html.yaml"

type Config struct {
	AI           ai.Config   `yaml:"ai"`
	Limits       Limits      `yaml:"limits"`
	Render       pdf.Options `yaml:"render"`
	Output       Output      `yaml:"output"`
	ContextPages int         `yaml:"context_pages"`
	Language     string      `yaml:"language"`
	LogLevel     string      `yaml:"log_level"`
}

// Limits bound every model call.
type Limits struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
}

type Output struct {
	Dir        string `yaml:"dir"`
	NameFormat string `yaml:"name_format"`
}

func Default() Config {
	return Config{
		AI:           ai.Config{Provider: "openai"},
		Limits:       Limits{Timeout: 2 * time.Minute, MaxRetries: 3},
		Render:       pdf.DefaultOptions(),
		Output:       Output{Dir: convert.DefaultOutDir, NameFormat: convert.DefaultNameFormat},
		ContextPages: 1,
		Language:     "en",
		LogLevel:     "warn",
	}
}

// LoadEnvFile loads variables from a .env file without overriding ones that
// are already set. A missing default .env is not an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (or
// DefaultFile when present) and PDF2HTML_* environment variables, in that
// order.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"PDF2HTML_PROVIDER":    &c.AI.Provider,
		"PDF2HTML_MODEL":       &c.AI.Model,
		"PDF2HTML_BASE_URL":    &c.AI.BaseURL,
		"PDF2HTML_FORMAT":      &c.Render.Format,
		"PDF2HTML_OUT_DIR":     &c.Output.Dir,
		"PDF2HTML_NAME_FORMAT": &c.Output.NameFormat,
		"PDF2HTML_LANGUAGE":    &c.Language,
		"LOG_LEVEL":            &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"PDF2HTML_MAX_RETRIES":   &c.Limits.MaxRetries,
		"PDF2HTML_MAX_DIMENSION": &c.Render.MaxDimension,
		"PDF2HTML_CONTEXT_PAGES": &c.ContextPages,
		"PDF2HTML_MAX_TOKENS":    &c.AI.MaxTokens,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"PDF2HTML_RPM":         &c.Limits.RequestsPerMinute,
		"PDF2HTML_DPI":         &c.Render.DPI,
		"PDF2HTML_TEMPERATURE": &c.AI.Temperature,
	}
	for key, dst := range floats {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = f
	}

	if v, ok := lookup("PDF2HTML_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PDF2HTML_TIMEOUT: %w", err)
		}
		c.Limits.Timeout = d
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch strings.ToLower(c.AI.Provider) {
	case "openai", "gemini":
	case "":
		return errors.New("ai provider not specified")
	default:
		return fmt.Errorf("unknown ai provider: %s", c.AI.Provider)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.AI.Temperature)
	}
	if c.Limits.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Limits.Timeout)
	}
	if c.Limits.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Limits.MaxRetries)
	}
	if c.Limits.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative, got %g", c.Limits.RequestsPerMinute)
	}
	if c.Render.DPI <= 0 || c.Render.DPI > 600 {
		return fmt.Errorf("dpi must be in (0, 600], got %g", c.Render.DPI)
	}
	if c.Render.MaxDimension < 0 {
		return fmt.Errorf("max dimension must not be negative, got %d", c.Render.MaxDimension)
	}
	switch strings.ToLower(c.Render.Format) {
	case "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("unsupported image format: %s", c.Render.Format)
	}
	if c.ContextPages < 0 {
		return fmt.Errorf("context pages must not be negative, got %d", c.ContextPages)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output directory not specified")
	}
	return nil
}

// AIConfig returns the provider configuration with the API key resolved
// from the provider's usual environment variable when not set explicitly.
func (c Config) AIConfig() ai.Config {
	out := c.AI
	if out.APIKey != "" {
		return out
	}
	var keys []string
	switch strings.ToLower(out.Provider) {
	case "openai":
		keys = []string{"OPENAI_API_KEY"}
	case "gemini":
		keys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, k := range keys {
		if v, ok := lookup(k); ok {
			out.APIKey = v
			break
		}
	}
	return out
}

// Policy returns the call policy for model requests.
func (c Config) Policy(logger *logrus.Logger) ai.Policy {
	return ai.Policy{
		Timeout:           c.Limits.Timeout,
		MaxRetries:        c.Limits.MaxRetries,
		RequestsPerMinute: c.Limits.RequestsPerMinute,
		Logger:            logger,
	}
}

// RenderOptions returns the rasterizer options with the format normalized.
func (c Config) RenderOptions() pdf.Options {
	o := c.Render
	o.Format = strings.ToLower(o.Format)
	if o.Format == "jpg" {
		o.Format = "jpeg"
	}
	return o
}

// ParseLogLevel maps a level name to a logrus level, defaulting to warn.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}
