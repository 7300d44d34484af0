package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatbridge-io/linerelay/internal/model"
	"github.com/chatbridge-io/linerelay/internal/pipeline"
	"github.com/chatbridge-io/linerelay/pkg/logger"
)

// SchemaEnsurer provisions the persisted tables idempotently.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// WebhookHandler handles the inbound platform webhook.
type WebhookHandler struct {
	pipeline *pipeline.Pipeline
	store    SchemaEnsurer
	logger   *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(p *pipeline.Pipeline, store SchemaEnsurer, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: p,
		store:    store,
		logger:   log,
	}
}

// webhookSummary is the aggregate status returned to the webhook caller.
type webhookSummary struct {
	Received    int `json:"received"`
	Processed   int `json:"processed"`
	Delivered   int `json:"delivered"`
	Failed      int `json:"failed"`
	Unpersisted int `json:"unpersisted,omitempty"`
}

// Receive handles POST {webhook path}. The signature middleware has already
// authenticated the raw body. Per-event failures are isolated; the response
// is 200 once every event reached a terminal state. Schema provisioning
// failure aborts the batch before any event is processed.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.EnsureSchema(ctx); err != nil {
		h.logger.Error("schema provisioning failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	outcomes := h.pipeline.Process(ctx, req.Events)

	summary := webhookSummary{
		Received:  len(req.Events),
		Processed: len(outcomes),
	}
	for _, o := range outcomes {
		switch o.State {
		case pipeline.StateDelivered:
			summary.Delivered++
		case pipeline.StateFailed:
			summary.Failed++
		}
		if o.Unpersisted {
			summary.Unpersisted++
		}
	}

	writeJSON(w, http.StatusOK, summary)
}
