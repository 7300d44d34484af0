package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/chatbridge-io/linerelay/pkg/metrics"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the OpenAI completion client.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts.APIKey),
		model:   model,
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Generate sends one single-message chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		genErr := classifyOpenAIError(err)
		metrics.RecordCompletion(c.Name(), string(genErr.Kind), time.Since(start).Seconds(), 0, 0)
		return "", genErr
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		genErr := &GenerationError{Kind: FailureMalformed, Err: errors.New("response has no completion choices")}
		metrics.RecordCompletion(c.Name(), string(genErr.Kind), time.Since(start).Seconds(), 0, 0)
		return "", genErr
	}

	metrics.RecordCompletion(c.Name(), "success", time.Since(start).Seconds(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) *GenerationError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GenerationError{Kind: FailureUpstream, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &GenerationError{Kind: FailureUpstream, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &GenerationError{Kind: FailureTransport, Err: err}
}
