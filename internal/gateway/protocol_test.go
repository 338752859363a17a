package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTypeConstants(t *testing.T) {
	assert.Equal(t, "req", FrameTypeRequest)
	assert.Equal(t, "res", FrameTypeResponse)
	assert.Equal(t, "event", FrameTypeEvent)
}

func TestNewResponse(t *testing.T) {
	frame, err := NewResponse("req-1", map[string]string{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, FrameTypeResponse, frame.Type)
	assert.Equal(t, "req-1", frame.ID)
	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
	assert.Nil(t, frame.Error)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestNewResponse_NilPayload(t *testing.T) {
	frame, err := NewResponse("req-1", nil)
	require.NoError(t, err)
	assert.Equal(t, FrameTypeResponse, frame.Type)
	require.NotNil(t, frame.OK)
	assert.True(t, *frame.OK)
}

func TestNewErrorResponse(t *testing.T) {
	frame := NewErrorResponse("req-2", ErrorShape{
		Code:    "method_not_found",
		Message: "unknown method: bogus",
	})

	assert.Equal(t, FrameTypeResponse, frame.Type)
	assert.Equal(t, "req-2", frame.ID)
	require.NotNil(t, frame.OK)
	assert.False(t, *frame.OK)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "method_not_found", frame.Error.Code)
	assert.Equal(t, "unknown method: bogus", frame.Error.Message)
}

func TestNewEvent(t *testing.T) {
	frame, err := NewEvent("chat.delta", map[string]string{"content": "hi"}, 7)
	require.NoError(t, err)

	assert.Equal(t, FrameTypeEvent, frame.Type)
	assert.Equal(t, "chat.delta", frame.Event)
	assert.Equal(t, int64(7), frame.Seq)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "hi", payload["content"])
}

func TestFrameMarshalRoundTrip(t *testing.T) {
	frame, err := NewEvent("chat.event", map[string]string{"type": "tool_start"}, 3)
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, FrameTypeEvent, decoded.Type)
	assert.Equal(t, "chat.event", decoded.Event)
	assert.Equal(t, int64(3), decoded.Seq)
	assert.JSONEq(t, string(frame.Payload), string(decoded.Payload))
}

func TestRequestFrameDecode(t *testing.T) {
	raw := `{"type":"req","id":"42","method":"chat.send","params":{"message":"hello","stream":true}}`

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, FrameTypeRequest, frame.Type)
	assert.Equal(t, "42", frame.ID)
	assert.Equal(t, "chat.send", frame.Method)

	var params struct {
		Message string `json:"message"`
		Stream  bool   `json:"stream"`
	}
	require.NoError(t, json.Unmarshal(frame.Params, &params))
	assert.Equal(t, "hello", params.Message)
	assert.True(t, params.Stream)
}
