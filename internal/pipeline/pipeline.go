// Package pipeline orchestrates processing of inbound webhook events:
// generate a reply, persist the exchange, deliver the reply. Failures are
// isolated per event.
package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chatbridge-io/linerelay/internal/model"
	"github.com/chatbridge-io/linerelay/internal/store"
	"github.com/chatbridge-io/linerelay/pkg/logger"
	"github.com/chatbridge-io/linerelay/pkg/metrics"
)

// State is the terminal state of one processed event.
type State string

const (
	// StateDelivered means the reply reached the platform.
	StateDelivered State = "delivered"
	// StateDropped means the event kind is intentionally ignored.
	StateDropped State = "dropped"
	// StateFailed means generation or delivery failed; the sender receives
	// nothing for that message.
	StateFailed State = "failed"
)

// Outcome is the terminal result for one text message event. Unpersisted
// distinguishes "delivered but audit write failed" from full success.
type Outcome struct {
	SourceID    string
	State       State
	Unpersisted bool
	Err         error
}

// CompletionClient produces a reply for a prompt.
type CompletionClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConversationStore appends one exchange to the durable log.
type ConversationStore interface {
	Append(ctx context.Context, in store.ConversationInput) (store.ConversationRecord, error)
}

// ReplyDispatcher sends reply text bound to a single-use reply token.
type ReplyDispatcher interface {
	Deliver(ctx context.Context, replyToken string, texts ...string) error
}

// ExchangePublisher fans out persisted exchanges to downstream consumers.
// Best-effort: publish failures never affect outcomes.
type ExchangePublisher interface {
	PublishExchange(ctx context.Context, rec store.ConversationRecord) error
}

// Pipeline processes events from one webhook batch sequentially, in arrival
// order. It holds no cross-request mutable state and is safe for concurrent
// use from multiple webhook handlers.
type Pipeline struct {
	llm        CompletionClient
	store      ConversationStore
	dispatcher ReplyDispatcher
	publisher  ExchangePublisher
	logger     *logger.Logger
}

// New creates a pipeline. publisher may be nil when fan-out is disabled.
func New(
	llm CompletionClient,
	convStore ConversationStore,
	dispatcher ReplyDispatcher,
	publisher ExchangePublisher,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		llm:        llm,
		store:      convStore,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     log,
	}
}

// Process runs every event in the batch to a terminal state. One event's
// failure never aborts its siblings. Non-text events are dropped and produce
// no outcome; the returned slice holds one outcome per text message event.
func (p *Pipeline) Process(ctx context.Context, events []model.InboundEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(events))

	for _, event := range events {
		if !event.IsTextMessage() {
			metrics.RecordEvent(string(StateDropped))
			continue
		}

		outcome := p.processTextEvent(ctx, event)
		metrics.RecordEvent(outcomeLabel(outcome))
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (p *Pipeline) processTextEvent(ctx context.Context, event model.InboundEvent) Outcome {
	sourceID := event.SourceID()
	log := p.logger.With(zap.String("source_id", sourceID))

	reply, err := p.llm.Generate(ctx, event.Message.Text)
	if err != nil {
		// The event is abandoned: no record is persisted, no reply sent.
		log.Error("reply generation failed", zap.Error(err))
		return Outcome{SourceID: sourceID, State: StateFailed, Err: err}
	}

	rec, storeErr := p.store.Append(ctx, store.ConversationInput{
		SourceID:    sourceID,
		InboundText: event.Message.Text,
		ReplyText:   reply,
	})
	if storeErr != nil {
		// Persistence failure does not block delivery: the user-visible
		// reply outranks the audit log. The outcome stays flagged.
		log.Error("conversation append failed, delivering anyway", zap.Error(storeErr))
		metrics.StoreFailuresTotal.WithLabelValues(storeKind(storeErr)).Inc()
	}

	if err := p.dispatcher.Deliver(ctx, event.ReplyToken, reply); err != nil {
		log.Error("reply delivery failed", zap.Error(err))
		metrics.RecordDelivery("failed")
		return Outcome{SourceID: sourceID, State: StateFailed, Unpersisted: storeErr != nil, Err: err}
	}
	metrics.RecordDelivery("delivered")

	if storeErr == nil && p.publisher != nil {
		if pubErr := p.publisher.PublishExchange(ctx, rec); pubErr != nil {
			log.Warn("exchange publish failed", zap.Error(pubErr))
		}
	}

	return Outcome{SourceID: sourceID, State: StateDelivered, Unpersisted: storeErr != nil, Err: storeErr}
}

func outcomeLabel(o Outcome) string {
	if o.State == StateDelivered && o.Unpersisted {
		return "delivered_unpersisted"
	}
	return string(o.State)
}

func storeKind(err error) string {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return string(storeErr.Kind)
	}
	return "unknown"
}
