package events

import (
	"context"
	"strings"
	"time"
)

// Event types emitted by the composer.
const (
	PodcastGenerationSubmitted = "PODCAST_GENERATION_SUBMITTED"
	PodcastGenerationFailed    = "PODCAST_GENERATION_FAILED"
	ComposerSessionClosed      = "COMPOSER_SESSION_CLOSED"
)

// SubjectPrefix is prepended to the event type to form the bus subject.
const SubjectPrefix = "events."

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PODCAST_GENERATION_SUBMITTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// TypeFromSubject strips the subject prefix.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}

// String reads a string field from a payload, "" when absent.
func String(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}
