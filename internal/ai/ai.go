package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when a provider is constructed without a key.
	ErrMissingAPIKey = errors.New("ai: missing API key")

	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("ai: empty response")
)

// Image is an encoded raster image attached to a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI returns the image as a base64 data URI.
func (i *Image) DataURI() string {
	mt := i.MIMEType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Exchange is one completed request/response pair.
type Exchange struct {
	Prompt   string
	Image    *Image
	Response string
}

// Request is a single completion call: a system instruction, optional prior
// exchanges, and the user turn.
type Request struct {
	System  string
	History []Exchange
	Prompt  string
	Image   *Image
}

// Model is a text/vision completion service. Implementations hold no
// per-document state; the same value can serve every stage of a run.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider    string  `json:"provider" yaml:"provider"` // openai, gemini
	Model       string  `json:"model" yaml:"model"`
	APIKey      string  `json:"-" yaml:"-"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// New creates a provider from configuration.
func New(ctx context.Context, cfg Config) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAI(cfg)
	case "gemini":
		return NewGemini(ctx, cfg)
	case "":
		return nil, fmt.Errorf("ai provider not specified")
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.Provider)
	}
}
