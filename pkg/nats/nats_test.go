package nats

import (
	"testing"
	"time"

	"ai-assistant-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	e := events.ChannelMessage("jobs", map[string]interface{}{"id": "job-1"})

	data, err := Encode(e)
	require.NoError(t, err)

	decoded, err := Decode(Subject(e.Type), data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeChannelMessage, decoded.Type)
	assert.Equal(t, "jobs", decoded.Data["channel"])
	assert.Equal(t, map[string]interface{}{"id": "job-1"}, decoded.Data["data"])
	assert.WithinDuration(t, e.OccurredAt, decoded.OccurredAt, time.Millisecond)
}

func TestDecodeTakesTypeFromSubject(t *testing.T) {
	decoded, err := Decode(Subject("knowledge.invalidated"), []byte(`{"data":{"jobs_finished":2}}`))
	require.NoError(t, err)
	assert.Equal(t, "knowledge.invalidated", decoded.Type)
	assert.False(t, decoded.OccurredAt.IsZero())

	_, err = Decode(Subject("x"), []byte(`not json`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "assistant.events.socket.channel_message", Subject(events.TypeChannelMessage))
}
