package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

const (
	provider  = "anthropic"
	maxTokens = 4096
)

// Client implements generator.Generator with the Anthropic Messages API.
type Client struct {
	client sdk.Client
	model  string
}

// New constructs an Anthropic client. Extra options are appended after the
// key and timeout.
func New(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		base = append(base, option.WithRequestTimeout(timeout))
	}
	return &Client{
		client: sdk.NewClient(append(base, opts...)...),
		model:  model,
	}, nil
}

// Generate implements generator.Generator.
func (c *Client) Generate(ctx context.Context, req generator.Request) (generator.Outcome, error) {
	prompt := generator.BuildPrompt(req)
	started := time.Now()

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxTokens,
		System:      []sdk.TextBlockParam{{Text: prompt.System}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt.User))},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		return generator.Outcome{}, eris.Wrap(err, "anthropic: create message")
	}

	telemetry.Info("generator.call", map[string]any{
		"provider":          provider,
		"model":             c.model,
		"repair":            req.IsRepair(),
		"prompt_hash":       prompt.Hash(),
		"stop_reason":       string(msg.StopReason),
		"prompt_tokens":     msg.Usage.InputTokens,
		"completion_tokens": msg.Usage.OutputTokens,
		"duration_ms":       float64(time.Since(started).Microseconds()) / 1000.0,
	})

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return generator.TextOutcome(provider, text.String()), nil
}

var _ generator.Generator = (*Client)(nil)
