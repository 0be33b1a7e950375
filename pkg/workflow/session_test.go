package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout  = 2 * time.Second
	pollInterval = 5 * time.Millisecond
)

func TestSessionSnapshotRoundTrip(t *testing.T) {
	sess := StartNew("why does my loop never end", nil)

	src := &scriptedSource{frames: []Frame{
		{Kind: FrameStepStarted, Event: "analyzing_problem", Content: "reading"},
		{Kind: FrameStepCompleted, Event: "analyzing_problem", Content: "read"},
		{Kind: FrameStepStarted, Event: "extracting_code", Content: "while True:"},
		{Kind: FrameStepProgress, Event: "Full Code", Content: "while True: break"},
		{Kind: FrameDone},
	}}
	require.NoError(t, sess.Run(context.Background(), src))

	snap := sess.Capture()
	assert.Equal(t, "why does my loop never end", snap.Query)
	require.Len(t, snap.Steps, 2)
	require.NotNil(t, snap.FullCode)
	assert.Equal(t, RunCompleted, snap.Run.Status)

	// Persist and reload, as the storage layer does
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var reloaded Snapshot
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	replay := LoadSnapshot(reloaded)
	assert.True(t, replay.Replay())
	assert.Equal(t, StateCompleted, replay.State())

	liveSteps := sess.Store().Steps()
	replaySteps := replay.Store().Steps()
	require.Len(t, replaySteps, len(liveSteps))
	for i := range liveSteps {
		assert.Equal(t, liveSteps[i].ID, replaySteps[i].ID)
		assert.Equal(t, liveSteps[i].Title, replaySteps[i].Title)
		assert.Equal(t, liveSteps[i].Content, replaySteps[i].Content)
		assert.Equal(t, liveSteps[i].Status, replaySteps[i].Status)
	}

	liveFC, ok := sess.Store().FullCode()
	require.True(t, ok)
	replayFC, ok := replay.Store().FullCode()
	require.True(t, ok)
	assert.Equal(t, liveFC.Content, replayFC.Content)

	assert.Equal(t, sess.Store().Run(), replay.Store().Run())
}

func TestSessionSingleConsumer(t *testing.T) {
	sess := StartNew("q", nil)
	defer sess.Close()

	src := &scriptedSource{frames: []Frame{{Kind: FrameDone}}}
	require.NoError(t, sess.Run(context.Background(), src))

	err := sess.Run(context.Background(), &scriptedSource{frames: []Frame{{Kind: FrameDone}}})
	assert.ErrorIs(t, err, ErrConsumerAlreadyStarted)
}

func TestSessionReplayCannotRun(t *testing.T) {
	snap := Snapshot{Query: "q", Run: RunStatus{Status: RunCompleted, Progress: 100}}
	sess := LoadSnapshot(snap)

	err := sess.Run(context.Background(), &scriptedSource{})
	assert.ErrorIs(t, err, ErrReplaySession)
}

func TestSessionReplayErrorState(t *testing.T) {
	snap := Snapshot{
		Query: "q",
		Run:   RunStatus{Status: RunError, Error: "boom"},
	}
	sess := LoadSnapshot(snap)

	assert.Equal(t, StateFailed, sess.State())
	assert.Equal(t, "boom", sess.Store().Run().Error)
}

func TestSessionCloseCancelsRun(t *testing.T) {
	sess := StartNew("q", nil)

	ch := make(chan Frame)
	done := make(chan error, 1)
	go func() {
		done <- sess.Run(context.Background(), NewFrameChanSource(ch))
	}()

	ch <- Frame{Kind: FrameStepProgress, Event: "step_a", Content: "x"}
	waitForSteps(t, sess.Store(), 1)

	sess.Close()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunError, sess.Store().Run().Status)

	// Close is idempotent
	sess.Close()
}

func TestSessionCaptureReadsLatestState(t *testing.T) {
	sess := StartNew("q", nil)
	defer sess.Close()

	src := &scriptedSource{frames: []Frame{
		{Kind: FrameStepProgress, Event: "step_a", Content: "x"},
		{Kind: FrameError, Content: "boom"},
	}}
	require.NoError(t, sess.Run(context.Background(), src))

	snap := sess.Capture()
	assert.Equal(t, RunError, snap.Run.Status)
	assert.Equal(t, "boom", snap.Run.Error)
	require.Len(t, snap.Steps, 1)
	assert.Equal(t, StepInProgress, snap.Steps[0].Status)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", FormatElapsed(0))
	assert.Equal(t, "00:07", FormatElapsed(7))
	assert.Equal(t, "01:05", FormatElapsed(65))
	assert.Equal(t, "10:00", FormatElapsed(600))
	assert.Equal(t, "00:00", FormatElapsed(-3))
}
