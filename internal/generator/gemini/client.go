package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-flash-preview"

const provider = "gemini"

// Client implements generator.Generator with the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New constructs a Gemini client. The API key is required.
func New(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, eris.New("GEMINI_API_KEY is required")
	}
	return newWithConfig(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}, model)
}

func newWithConfig(ctx context.Context, cfg *genai.ClientConfig, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &Client{client: client, model: model}, nil
}

// Generate implements generator.Generator.
func (c *Client) Generate(ctx context.Context, req generator.Request) (generator.Outcome, error) {
	prompt := generator.BuildPrompt(req)
	started := time.Now()

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt.User),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return generator.Outcome{}, eris.Wrap(err, "gemini: generate content")
	}

	fields := map[string]any{
		"provider":    provider,
		"model":       c.model,
		"repair":      req.IsRepair(),
		"prompt_hash": prompt.Hash(),
		"duration_ms": float64(time.Since(started).Microseconds()) / 1000.0,
	}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
	}
	telemetry.Info("generator.call", fields)

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return generator.Failure("gemini blocked the prompt: " + string(resp.PromptFeedback.BlockReason)), nil
	}
	return generator.TextOutcome(provider, resp.Text()), nil
}

var _ generator.Generator = (*Client)(nil)
