package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameLegacySchema(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Frame
		wantErr bool
	}{
		{
			name:    "named step",
			payload: `{"event":"analyzing_problem","content":"looking"}`,
			want:    Frame{Kind: FrameStepProgress, Event: "analyzing_problem", Content: "looking"},
		},
		{
			name:    "done",
			payload: `{"event":"done"}`,
			want:    Frame{Kind: FrameDone},
		},
		{
			name:    "error with message",
			payload: `{"event":"error","content":"boom"}`,
			want:    Frame{Kind: FrameError, Content: "boom"},
		},
		{
			name:    "missing event name",
			payload: `{"content":"orphan"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `{"event": "anal`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame)
		})
	}
}

func TestDecodeFrameStatusSchema(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Frame
		wantErr bool
	}{
		{
			name:    "step started",
			payload: `{"event_name":"extracting_code","status":"step_started","content":""}`,
			want:    Frame{Kind: FrameStepStarted, Event: "extracting_code"},
		},
		{
			name:    "step progress",
			payload: `{"event_name":"extracting_code","status":"step_progress","content":"def f():"}`,
			want:    Frame{Kind: FrameStepProgress, Event: "extracting_code", Content: "def f():"},
		},
		{
			name:    "step completed",
			payload: `{"event_name":"extracting_code","status":"step_completed","content":"def f(): pass"}`,
			want:    Frame{Kind: FrameStepCompleted, Event: "extracting_code", Content: "def f(): pass"},
		},
		{
			name:    "step error",
			payload: `{"event_name":"extracting_code","status":"step_error","content":"model refused"}`,
			want:    Frame{Kind: FrameStepError, Event: "extracting_code", Content: "model refused"},
		},
		{
			name:    "done status",
			payload: `{"status":"done"}`,
			want:    Frame{Kind: FrameDone},
		},
		{
			name:    "event field fallback",
			payload: `{"event":"resolve_testcases","status":"step_progress","content":"t"}`,
			want:    Frame{Kind: FrameStepProgress, Event: "resolve_testcases", Content: "t"},
		},
		{
			name:    "unknown status",
			payload: `{"event_name":"x","status":"paused"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame)
		})
	}
}

func TestFrameTerminal(t *testing.T) {
	assert.True(t, Frame{Kind: FrameDone}.Terminal())
	assert.True(t, Frame{Kind: FrameError}.Terminal())
	assert.False(t, Frame{Kind: FrameStepProgress}.Terminal())
	assert.False(t, Frame{Kind: FrameStepError}.Terminal())
}
