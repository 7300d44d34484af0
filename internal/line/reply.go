package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultReplyURL = "https://api.line.me/v2/bot/message/reply"

// DeliveryKind classifies a reply delivery failure.
type DeliveryKind string

const (
	// KindInvalidToken means the reply token expired or was already used.
	// Not retryable.
	KindInvalidToken DeliveryKind = "invalid_token"
	// KindTransport covers network errors and upstream 5xx responses.
	// Retryable by caller policy.
	KindTransport DeliveryKind = "transport"
	// KindRejectedPayload means the platform refused the message content.
	// Not retryable.
	KindRejectedPayload DeliveryKind = "rejected_payload"
)

// DeliveryError is a typed reply delivery failure.
type DeliveryError struct {
	Kind       DeliveryKind
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reply delivery failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reply delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ReplyClient sends reply messages through the LINE reply API.
type ReplyClient struct {
	accessToken string
	client      *http.Client
	apiURL      string
}

// NewReplyClient creates a reply client using the channel access token.
func NewReplyClient(accessToken string) *ReplyClient {
	return &ReplyClient{
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
		apiURL:      defaultReplyURL,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type replyResponse struct {
	Message string `json:"message"`
}

// Deliver sends one or more text messages bound to a single-use reply token.
// Delivery is fire-and-forget: no read receipt is modeled.
func (c *ReplyClient) Deliver(ctx context.Context, replyToken string, texts ...string) error {
	if len(texts) == 0 {
		return &DeliveryError{Kind: KindRejectedPayload, Err: errors.New("no messages to send")}
	}

	messages := make([]textMessage, len(texts))
	for i, text := range texts {
		messages[i] = textMessage{Type: "text", Text: text}
	}

	body, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return &DeliveryError{Kind: KindRejectedPayload, Err: fmt.Errorf("marshal reply: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return &DeliveryError{Kind: KindTransport, Err: fmt.Errorf("reply post: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	var apiResp replyResponse
	_ = json.Unmarshal(respBody, &apiResp)

	apiErr := fmt.Errorf("reply api: %s", apiResp.Message)
	if apiResp.Message == "" {
		apiErr = fmt.Errorf("reply api: %s", strings.TrimSpace(string(respBody)))
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(apiResp.Message), "reply token"):
		return &DeliveryError{Kind: KindInvalidToken, StatusCode: resp.StatusCode, Err: apiErr}
	case resp.StatusCode >= 500:
		return &DeliveryError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: apiErr}
	default:
		return &DeliveryError{Kind: KindRejectedPayload, StatusCode: resp.StatusCode, Err: apiErr}
	}
}
