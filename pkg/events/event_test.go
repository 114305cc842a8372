package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectRoundTrip(t *testing.T) {
	subject := Subject(PodcastGenerationSubmitted)
	assert.Equal(t, "events.PODCAST_GENERATION_SUBMITTED", subject)
	assert.Equal(t, PodcastGenerationSubmitted, TypeFromSubject(subject))
}

func TestNewEvent(t *testing.T) {
	evt := New(ComposerSessionClosed, map[string]interface{}{"session_id": "s-1", "n": 3})
	assert.Equal(t, ComposerSessionClosed, evt.EventType())
	assert.False(t, evt.Timestamp().IsZero())
	assert.Equal(t, "s-1", String(evt.Payload(), "session_id"))
	assert.Empty(t, String(evt.Payload(), "n"))
	assert.Empty(t, String(evt.Payload(), "missing"))
}
