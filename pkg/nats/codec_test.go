package nats

import (
	"testing"
	"time"

	"podcast-studio-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCodec(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := events.BaseEvent{
		Type:       events.PodcastGenerationSubmitted,
		Data:       map[string]interface{}{"job_id": "job-1", "notebooks": 2},
		OccurredAt: at,
	}

	data, err := encode(evt)
	require.NoError(t, err)
	assert.NotContains(t, evt.Data, occurredAtKey, "encode must not mutate the event")

	got, err := decode(events.Subject(evt.Type), data)
	require.NoError(t, err)
	assert.Equal(t, events.PodcastGenerationSubmitted, got.Type)
	assert.True(t, at.Equal(got.OccurredAt))
	assert.Equal(t, "job-1", got.Data["job_id"])
	assert.Equal(t, float64(2), got.Data["notebooks"])
	assert.NotContains(t, got.Data, occurredAtKey)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("events.X", []byte("not json"))
	assert.Error(t, err)
}
