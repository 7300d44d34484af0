package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chatbridge-io/linerelay/pkg/metrics"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient is the Anthropic completion client.
type AnthropicClient struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(opts Options) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	model := opts.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:   model,
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Generate sends one single-message completion request.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(c.model),
		MaxTokens: anthropic.F(int64(1024)),
		Messages: anthropic.F([]anthropic.MessageParam{
			{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(prompt),
					},
				}),
			},
		}),
	})
	if err != nil {
		genErr := classifyAnthropicError(err)
		metrics.RecordCompletion(c.Name(), string(genErr.Kind), time.Since(start).Seconds(), 0, 0)
		return "", genErr
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	if content == "" {
		genErr := &GenerationError{Kind: FailureMalformed, Err: errors.New("response has no text content")}
		metrics.RecordCompletion(c.Name(), string(genErr.Kind), time.Since(start).Seconds(), 0, 0)
		return "", genErr
	}

	metrics.RecordCompletion(c.Name(), "success", time.Since(start).Seconds(),
		int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	return content, nil
}

func classifyAnthropicError(err error) *GenerationError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &GenerationError{Kind: FailureUpstream, StatusCode: apiErr.StatusCode, Err: err}
	}

	return &GenerationError{Kind: FailureTransport, Err: err}
}
