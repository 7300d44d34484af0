package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatbridge-io/linerelay/internal/line"
	"github.com/chatbridge-io/linerelay/internal/llm"
	"github.com/chatbridge-io/linerelay/internal/model"
	"github.com/chatbridge-io/linerelay/internal/store"
	"github.com/chatbridge-io/linerelay/pkg/logger"
)

type fakeLLM struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls = append(f.calls, prompt)
	if err, ok := f.errs[prompt]; ok {
		return "", err
	}
	return f.replies[prompt], nil
}

type fakeStore struct {
	records []store.ConversationInput
	err     error
}

func (f *fakeStore) Append(ctx context.Context, in store.ConversationInput) (store.ConversationRecord, error) {
	if f.err != nil {
		return store.ConversationRecord{}, f.err
	}
	f.records = append(f.records, in)
	return store.ConversationRecord{
		ID:          int64(len(f.records)),
		SourceID:    in.SourceID,
		InboundText: in.InboundText,
		ReplyText:   in.ReplyText,
		CreatedAt:   time.Now(),
	}, nil
}

type sentReply struct {
	replyToken string
	text       string
}

type fakeDispatcher struct {
	sent []sentReply
	err  error
}

func (f *fakeDispatcher) Deliver(ctx context.Context, replyToken string, texts ...string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentReply{replyToken: replyToken, text: texts[0]})
	return nil
}

type fakePublisher struct {
	published []store.ConversationRecord
	err       error
}

func (f *fakePublisher) PublishExchange(ctx context.Context, rec store.ConversationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, rec)
	return nil
}

func textEvent(userID, token, text string) model.InboundEvent {
	return model.InboundEvent{
		Type:       model.EventTypeMessage,
		ReplyToken: token,
		Source:     model.EventSource{Type: "user", UserID: userID},
		Message:    &model.EventMessage{ID: "m-" + token, Type: model.MessageTypeText, Text: text},
	}
}

func newTestPipeline(gen *fakeLLM, st *fakeStore, disp *fakeDispatcher, pub ExchangePublisher) *Pipeline {
	log, _ := logger.New("error")
	return New(gen, st, disp, pub, log)
}

func TestProcess_MixedBatch(t *testing.T) {
	gen := &fakeLLM{
		replies: map[string]string{"hello": "hi!"},
		errs:    map[string]error{"bye": &llm.GenerationError{Kind: llm.FailureTransport, Err: errors.New("timeout")}},
	}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	p := newTestPipeline(gen, st, disp, nil)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
		textEvent("U2", "tok-2", "bye"),
	})

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].State != StateDelivered {
		t.Errorf("expected E1 delivered, got %s", outcomes[0].State)
	}
	if outcomes[1].State != StateFailed {
		t.Errorf("expected E2 failed, got %s", outcomes[1].State)
	}

	if len(st.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(st.records))
	}
	if st.records[0].SourceID != "U1" || st.records[0].ReplyText != "hi!" {
		t.Errorf("unexpected record: %+v", st.records[0])
	}

	if len(disp.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(disp.sent))
	}
	if disp.sent[0].replyToken != "tok-1" || disp.sent[0].text != "hi!" {
		t.Errorf("unexpected delivery: %+v", disp.sent[0])
	}
}

func TestProcess_NonTextEventsProduceNoOutcome(t *testing.T) {
	gen := &fakeLLM{replies: map[string]string{}}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	p := newTestPipeline(gen, st, disp, nil)

	stickerMsg := textEvent("U1", "tok-1", "")
	stickerMsg.Message.Type = model.MessageTypeSticker

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		{Type: model.EventTypeFollow, Source: model.EventSource{UserID: "U1"}},
		{Type: model.EventTypeJoin, Source: model.EventSource{GroupID: "G1"}},
		stickerMsg,
	})

	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
	if len(gen.calls) != 0 {
		t.Errorf("expected no generation calls, got %d", len(gen.calls))
	}
	if len(st.records) != 0 || len(disp.sent) != 0 {
		t.Error("expected no records and no deliveries")
	}
}

func TestProcess_GenerationFailureHasNoSideEffects(t *testing.T) {
	gen := &fakeLLM{errs: map[string]error{"hello": errors.New("boom")}}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	p := newTestPipeline(gen, st, disp, nil)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
	})

	if len(outcomes) != 1 || outcomes[0].State != StateFailed {
		t.Fatalf("expected one failed outcome, got %+v", outcomes)
	}
	if len(st.records) != 0 {
		t.Errorf("expected no record on generation failure, got %d", len(st.records))
	}
	if len(disp.sent) != 0 {
		t.Errorf("expected no delivery on generation failure, got %d", len(disp.sent))
	}
}

func TestProcess_StoreFailureStillDelivers(t *testing.T) {
	gen := &fakeLLM{replies: map[string]string{"hello": "hi!"}}
	st := &fakeStore{err: &store.StoreError{Kind: store.KindUnavailable, Err: errors.New("db down")}}
	disp := &fakeDispatcher{}
	pub := &fakePublisher{}
	p := newTestPipeline(gen, st, disp, pub)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
	})

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].State != StateDelivered {
		t.Errorf("expected delivered, got %s", outcomes[0].State)
	}
	if !outcomes[0].Unpersisted {
		t.Error("expected outcome flagged unpersisted")
	}
	if len(disp.sent) != 1 {
		t.Fatalf("expected reply still delivered, got %d deliveries", len(disp.sent))
	}
	if len(pub.published) != 0 {
		t.Error("expected no exchange published for unpersisted event")
	}
}

func TestProcess_DeliveryFailure(t *testing.T) {
	gen := &fakeLLM{replies: map[string]string{"hello": "hi!"}}
	st := &fakeStore{}
	disp := &fakeDispatcher{err: &line.DeliveryError{Kind: line.KindInvalidToken, StatusCode: 400, Err: errors.New("invalid reply token")}}
	p := newTestPipeline(gen, st, disp, nil)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
	})

	if len(outcomes) != 1 || outcomes[0].State != StateFailed {
		t.Fatalf("expected one failed outcome, got %+v", outcomes)
	}
	// The exchange was generated and persisted before delivery failed.
	if len(st.records) != 1 {
		t.Errorf("expected 1 record, got %d", len(st.records))
	}
}

func TestProcess_FailureDoesNotAbortSiblings(t *testing.T) {
	gen := &fakeLLM{
		replies: map[string]string{"a": "ra", "c": "rc"},
		errs:    map[string]error{"b": errors.New("boom")},
	}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	p := newTestPipeline(gen, st, disp, nil)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "a"),
		textEvent("U2", "tok-2", "b"),
		textEvent("U3", "tok-3", "c"),
	})

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].State != StateDelivered || outcomes[2].State != StateDelivered {
		t.Errorf("expected siblings delivered, got %s and %s", outcomes[0].State, outcomes[2].State)
	}
	if outcomes[1].State != StateFailed {
		t.Errorf("expected middle event failed, got %s", outcomes[1].State)
	}
	// Persisted order reflects arrival order.
	if len(st.records) != 2 || st.records[0].SourceID != "U1" || st.records[1].SourceID != "U3" {
		t.Errorf("unexpected records: %+v", st.records)
	}
}

func TestProcess_PublishesPersistedExchanges(t *testing.T) {
	gen := &fakeLLM{replies: map[string]string{"hello": "hi!"}}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	pub := &fakePublisher{}
	p := newTestPipeline(gen, st, disp, pub)

	p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
	})

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published exchange, got %d", len(pub.published))
	}
	if pub.published[0].SourceID != "U1" {
		t.Errorf("unexpected exchange: %+v", pub.published[0])
	}
}

func TestProcess_PublishFailureDoesNotAffectOutcome(t *testing.T) {
	gen := &fakeLLM{replies: map[string]string{"hello": "hi!"}}
	st := &fakeStore{}
	disp := &fakeDispatcher{}
	pub := &fakePublisher{err: errors.New("nats down")}
	p := newTestPipeline(gen, st, disp, pub)

	outcomes := p.Process(context.Background(), []model.InboundEvent{
		textEvent("U1", "tok-1", "hello"),
	})

	if len(outcomes) != 1 || outcomes[0].State != StateDelivered || outcomes[0].Unpersisted {
		t.Fatalf("expected clean delivered outcome, got %+v", outcomes)
	}
}
