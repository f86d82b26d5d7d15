// Package modelcheck probes the OpenAI-compatible endpoint a judge model
// points at, so a misconfigured deployment fails fast instead of surfacing
// later as unparseable engine output.
package modelcheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/deepbridge/deepbridge/pkg/pyenv"
)

// Report describes a successful probe of a model endpoint.
type Report struct {
	Model   string        `json:"model"`
	BaseURL string        `json:"baseUrl"`
	Latency time.Duration `json:"latency"`
	Reply   string        `json:"reply,omitempty"`
}

type Checker struct {
	client  *openai.Client
	model   shared.ChatModel
	baseURL string
}

// New creates a Checker for the given judge model configuration.
func New(model pyenv.Model) (*Checker, error) {
	if model.Name == "" {
		return nil, fmt.Errorf("model name must be provided to verify an endpoint")
	}
	if model.BaseURL == "" {
		return nil, fmt.Errorf("base URL must be provided to verify an endpoint")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(model.BaseURL),
	}
	if model.APIKey != "" {
		opts = append(opts, option.WithAPIKey(model.APIKey))
	}

	client := openai.NewClient(opts...)

	return &Checker{
		client:  &client,
		model:   shared.ChatModel(model.Name),
		baseURL: model.BaseURL,
	}, nil
}

// Verify sends a minimal chat completion to the endpoint and reports on the
// round trip.
func (c *Checker) Verify(ctx context.Context) (*Report, error) {
	start := time.Now()

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Reply with the single word: ready"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reach model endpoint: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("model endpoint returned no completion choices")
	}

	return &Report{
		Model:   string(c.model),
		BaseURL: c.baseURL,
		Latency: time.Since(start),
		Reply:   strings.TrimSpace(completion.Choices[0].Message.Content),
	}, nil
}
