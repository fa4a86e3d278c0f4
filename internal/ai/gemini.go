package ai

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini implements Model with Google's Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or GOOGLE_API_KEY", ErrMissingAPIKey)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	var contents []*genai.Content
	for _, ex := range req.History {
		contents = append(contents,
			geminiUserContent(ex.Prompt, ex.Image),
			genai.NewContentFromText(ex.Response, genai.RoleModel),
		)
	}
	contents = append(contents, geminiUserContent(req.Prompt, req.Image))

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if g.maxTokens > 0 {
		gc.MaxOutputTokens = int32(g.maxTokens)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	out := res.Text()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// geminiUserContent builds a multimodal user turn with inline image bytes.
func geminiUserContent(text string, img *Image) *genai.Content {
	parts := []*genai.Part{{Text: text}}
	if img != nil && len(img.Data) > 0 {
		mt := img.MIMEType
		if mt == "" {
			mt = "image/png"
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mt, Data: img.Data}})
	}
	return &genai.Content{Role: genai.RoleUser, Parts: parts}
}
