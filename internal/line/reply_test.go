package line

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestReplyClient(url string) *ReplyClient {
	c := NewReplyClient("test-token")
	c.apiURL = url
	return c
}

func TestDeliver_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}

		var req replyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ReplyToken != "token-1" {
			t.Errorf("expected reply token token-1, got %q", req.ReplyToken)
		}
		if len(req.Messages) != 1 || req.Messages[0].Type != "text" || req.Messages[0].Text != "hi!" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestReplyClient(server.URL)
	if err := c.Deliver(context.Background(), "token-1", "hi!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeliver_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer server.Close()

	c := newTestReplyClient(server.URL)
	err := c.Deliver(context.Background(), "used-token", "hi!")

	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if dErr.Kind != KindInvalidToken {
		t.Errorf("expected invalid_token, got %s", dErr.Kind)
	}
	if dErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", dErr.StatusCode)
	}
}

func TestDeliver_RejectedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"The property, 'messages[0].text', exceeds the maximum length"}`))
	}))
	defer server.Close()

	c := newTestReplyClient(server.URL)
	err := c.Deliver(context.Background(), "token-1", "hi!")

	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if dErr.Kind != KindRejectedPayload {
		t.Errorf("expected rejected_payload, got %s", dErr.Kind)
	}
}

func TestDeliver_UpstreamOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestReplyClient(server.URL)
	err := c.Deliver(context.Background(), "token-1", "hi!")

	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if dErr.Kind != KindTransport {
		t.Errorf("expected transport, got %s", dErr.Kind)
	}
}

func TestDeliver_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	c := newTestReplyClient(server.URL)
	err := c.Deliver(context.Background(), "token-1", "hi!")

	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if dErr.Kind != KindTransport {
		t.Errorf("expected transport, got %s", dErr.Kind)
	}
}

func TestDeliver_NoMessages(t *testing.T) {
	c := newTestReplyClient("http://unused.invalid")
	err := c.Deliver(context.Background(), "token-1")

	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if dErr.Kind != KindRejectedPayload {
		t.Errorf("expected rejected_payload, got %s", dErr.Kind)
	}
}
