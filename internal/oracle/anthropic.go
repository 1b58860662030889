package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cleared-dev/spendlens/internal/categorize"
)

// DefaultAnthropicModel is used when Settings.Model is empty.
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

const anthropicMaxTokens = 8192

// Anthropic asks a Claude model for assignments.
type Anthropic struct {
	client   anthropic.Client
	settings Settings
}

// NewAnthropic creates the client. Extra request options are for tests.
func NewAnthropic(s Settings, opts ...option.RequestOption) (*Anthropic, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w (set ANTHROPIC_API_KEY)", ErrMissingAPIKey)
	}
	if s.Model == "" {
		s.Model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(s.APIKey)}, opts...)
	return &Anthropic{client: anthropic.NewClient(opts...), settings: s}, nil
}

// Assign implements categorize.Oracle.
func (a *Anthropic) Assign(ctx context.Context, req *categorize.Request) (*categorize.Response, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return nil, err
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.settings.Model),
		MaxTokens:   anthropicMaxTokens,
		System:      []anthropic.TextBlockParam{{Text: req.System + "\n\n" + responseFormat}},
		Temperature: anthropic.Float(a.settings.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: messages: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, errors.New("anthropic: empty response")
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return DecodeResponse(text)
}
