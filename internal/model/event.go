// Package model defines data structures for the message relay.
package model

// EventType is the kind of webhook event the platform pushes.
type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
	EventTypeJoin     EventType = "join"
	EventTypeLeave    EventType = "leave"
	EventTypePostback EventType = "postback"
)

// MessageType is the kind of message attached to a message event.
type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeSticker MessageType = "sticker"
)

// WebhookRequest is the body of one inbound webhook call.
type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is one platform event. Only text message events are acted on;
// every other kind is intentionally ignored by the pipeline.
type InboundEvent struct {
	Type       EventType     `json:"type"`
	ReplyToken string        `json:"replyToken"`
	Timestamp  int64         `json:"timestamp"`
	Source     EventSource   `json:"source"`
	Message    *EventMessage `json:"message,omitempty"`
}

// EventSource identifies where an event originated.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// EventMessage is the message payload of a message event.
type EventMessage struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// IsTextMessage reports whether the event is a text message the pipeline
// should process.
func (e InboundEvent) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == MessageTypeText
}

// SourceID returns the opaque identifier of the sender: the user ID when
// present, otherwise the group or room the event came from.
func (e InboundEvent) SourceID() string {
	switch {
	case e.Source.UserID != "":
		return e.Source.UserID
	case e.Source.GroupID != "":
		return e.Source.GroupID
	default:
		return e.Source.RoomID
	}
}
