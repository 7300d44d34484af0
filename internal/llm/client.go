// Package llm provides completion client interfaces and implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single completion call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client is the interface for completion providers. Generate performs one
// single-message exchange with a fixed model: no conversation history is
// attached and no retries are made.
type Client interface {
	// Generate produces a reply for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name.
	Name() string
}

// FailureKind classifies a completion failure.
type FailureKind string

const (
	// FailureTransport covers network errors and timeouts.
	FailureTransport FailureKind = "transport"
	// FailureUpstream covers non-success status codes from the API.
	FailureUpstream FailureKind = "upstream"
	// FailureMalformed covers responses missing the completion field.
	FailureMalformed FailureKind = "malformed_response"
)

// GenerationError is a typed completion failure.
type GenerationError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Kind == FailureUpstream {
		return fmt.Sprintf("completion failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("completion failed (%s)", e.Kind)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Provider is the type of completion provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Options configures a completion client.
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// New creates a completion client for the given provider.
func New(provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(opts)
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts)
	default:
		return nil, errors.New("unknown completion provider: " + string(provider))
	}
}
