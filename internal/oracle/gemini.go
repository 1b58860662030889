package oracle

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/cleared-dev/spendlens/internal/categorize"
)

// DefaultGeminiModel is used when Settings.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini asks a Gemini model for assignments using a structured response
// schema.
type Gemini struct {
	settings Settings
	config   genai.ClientConfig
}

// NewGemini validates s. A client is created per call from a copy of the
// config, so the caller's context is used for setup too.
func NewGemini(s Settings) (*Gemini, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", ErrMissingAPIKey)
	}
	if s.Model == "" {
		s.Model = DefaultGeminiModel
	}
	return &Gemini{
		settings: s,
		config:   genai.ClientConfig{APIKey: s.APIKey, Backend: genai.BackendGeminiAPI},
	}, nil
}

// Assign implements categorize.Oracle.
func (g *Gemini) Assign(ctx context.Context, req *categorize.Request) (*categorize.Response, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return nil, err
	}

	cfg := g.config
	client, err := genai.NewClient(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.settings.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(g.settings.Temperature)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    assignmentsSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	return DecodeResponse(resp.Text())
}

func assignmentsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"assignments": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"transaction_id": {Type: genai.TypeString},
						"category_path":  {Type: genai.TypeString},
						"confidence": {
							Type:    genai.TypeNumber,
							Minimum: genai.Ptr(0.0),
							Maximum: genai.Ptr(1.0),
						},
					},
					Required: []string{"transaction_id", "category_path", "confidence"},
				},
			},
		},
		Required: []string{"assignments"},
	}
}
