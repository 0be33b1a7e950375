package workflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource feeds a fixed frame sequence, then EOF.
type scriptedSource struct {
	frames []Frame
	pos    int
	err    error // returned after the frames are drained, instead of EOF
}

func (s *scriptedSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		if s.err != nil {
			return Frame{}, s.err
		}
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func runConsumer(t *testing.T, frames ...Frame) (*Store, *Consumer) {
	t.Helper()
	store := NewStore()
	registry := NewRegistry()
	consumer := NewConsumer(store, registry, nil)
	err := consumer.Run(context.Background(), &scriptedSource{frames: frames})
	require.NoError(t, err)
	return store, consumer
}

func TestConsumerSuffixedEventsCollapse(t *testing.T) {
	// Repeated emissions of the same logical step with numeric suffixes
	store, _ := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "analyzing_problem_1", Content: "partial text"},
		Frame{Kind: FrameStepProgress, Event: "analyzing_problem_2", Content: "more text"},
		Frame{Kind: FrameDone},
	)

	steps := store.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "Analyzing Problem", steps[0].Title)
	assert.Equal(t, "more text", steps[0].Content)
}

func TestConsumerContentIsReplacedNotAppended(t *testing.T) {
	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)

	src := &scriptedSource{frames: []Frame{
		{Kind: FrameStepStarted, Event: "extracting_code", Content: ""},
		{Kind: FrameStepProgress, Event: "extracting_code", Content: "def "},
		{Kind: FrameStepProgress, Event: "extracting_code", Content: "def f():"},
		{Kind: FrameDone},
	}}
	require.NoError(t, consumer.Run(context.Background(), src))

	steps := store.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "def f():", steps[0].Content)
}

func TestConsumerStepIdentityStable(t *testing.T) {
	store := NewStore()
	registry := NewRegistry()
	consumer := NewConsumer(store, registry, nil)

	src := &scriptedSource{frames: []Frame{
		{Kind: FrameStepStarted, Event: "step_a", Content: "1"},
		{Kind: FrameStepProgress, Event: "step_a_1", Content: "2"},
		{Kind: FrameStepProgress, Event: "Step_A", Content: "3"},
		{Kind: FrameDone},
	}}
	require.NoError(t, consumer.Run(context.Background(), src))

	steps := store.Steps()
	require.Len(t, steps, 1)

	id, ok := registry.Resolve("step_a")
	require.True(t, ok)
	assert.Equal(t, id, steps[0].ID)
}

func TestConsumerPreservesFirstSeenOrder(t *testing.T) {
	store, _ := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "step_a", Content: "a"},
		Frame{Kind: FrameStepProgress, Event: "step_b", Content: "b"},
		Frame{Kind: FrameStepProgress, Event: "step_c", Content: "c"},
		Frame{Kind: FrameStepProgress, Event: "step_a_2", Content: "a2"},
		Frame{Kind: FrameStepProgress, Event: "step_b_2", Content: "b2"},
		Frame{Kind: FrameDone},
	)

	steps := store.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "Step A", steps[0].Title)
	assert.Equal(t, "Step B", steps[1].Title)
	assert.Equal(t, "Step C", steps[2].Title)
	assert.Equal(t, "a2", steps[0].Content)
}

func TestConsumerNewStepClosesOpenSteps(t *testing.T) {
	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)

	frames := []Frame{
		{Kind: FrameStepStarted, Event: "step_a", Content: "a"},
		{Kind: FrameStepStarted, Event: "step_b", Content: "b"},
	}
	// Drive two frames only, no terminal yet
	src := NewFrameChanSource(feedFrames(frames))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = consumer.Run(ctx, src)
		close(done)
	}()

	waitForSteps(t, store, 2)

	steps := store.Steps()
	assert.Equal(t, StepCompleted, steps[0].Status)
	assert.Equal(t, StepInProgress, steps[1].Status)

	cancel()
	<-done
}

func TestConsumerDoneCompletesRun(t *testing.T) {
	store, consumer := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "step_a", Content: "x"},
		Frame{Kind: FrameStepProgress, Event: "step_b", Content: "y"},
		Frame{Kind: FrameDone},
	)

	steps := store.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepCompleted, steps[0].Status)
	assert.Equal(t, StepCompleted, steps[1].Status)

	run := store.Run()
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 100, run.Progress)
	assert.Equal(t, StateCompleted, consumer.State())
}

func TestConsumerErrorFrameFailsRun(t *testing.T) {
	store, consumer := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "step_a", Content: "x"},
		Frame{Kind: FrameError, Content: "boom"},
	)

	// The open step keeps its status to preserve partial progress
	steps := store.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, StepInProgress, steps[0].Status)

	run := store.Run()
	assert.Equal(t, RunError, run.Status)
	assert.Equal(t, "boom", run.Error)
	assert.Equal(t, StateFailed, consumer.State())
}

func TestConsumerStopsAtTerminalFrame(t *testing.T) {
	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)

	src := &scriptedSource{frames: []Frame{
		{Kind: FrameStepProgress, Event: "step_a", Content: "x"},
		{Kind: FrameDone},
		{Kind: FrameStepProgress, Event: "step_b", Content: "never applied"},
		{Kind: FrameError, Content: "never applied"},
	}}
	require.NoError(t, consumer.Run(context.Background(), src))

	// Frames after the terminal one were never read
	assert.Equal(t, 2, src.pos)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, RunCompleted, store.Run().Status)
}

func TestConsumerStreamEndWithoutTerminalIsFailure(t *testing.T) {
	store, consumer := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "step_a", Content: "x"},
	)

	run := store.Run()
	assert.Equal(t, RunError, run.Status)
	assert.Equal(t, transportErrorMessage, run.Error)
	assert.Equal(t, StateFailed, consumer.State())
}

func TestConsumerTransportErrorIsFailure(t *testing.T) {
	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)

	src := &scriptedSource{
		frames: []Frame{{Kind: FrameStepProgress, Event: "step_a", Content: "x"}},
		err:    errors.New("connection reset"),
	}
	require.NoError(t, consumer.Run(context.Background(), src))

	run := store.Run()
	assert.Equal(t, RunError, run.Status)
	assert.Equal(t, transportErrorMessage, run.Error)
}

func TestConsumerCancellationStopsMutation(t *testing.T) {
	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)

	ch := make(chan Frame)
	src := NewFrameChanSource(ch)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, src)
	}()

	ch <- Frame{Kind: FrameStepProgress, Event: "step_a", Content: "x"}
	waitForSteps(t, store, 1)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, consumer.State())

	// Nothing reads the channel anymore
	select {
	case ch <- Frame{Kind: FrameStepProgress, Event: "step_b", Content: "y"}:
		t.Fatal("consumer still reading after cancellation")
	default:
	}
	assert.Equal(t, 1, store.Len())
}

func TestConsumerFullCodeGoesToDedicatedSlot(t *testing.T) {
	store, _ := runConsumer(t,
		Frame{Kind: FrameStepProgress, Event: "debug_completed", Content: "ok"},
		Frame{Kind: FrameStepProgress, Event: "Full Code", Content: "print(1)"},
		Frame{Kind: FrameDone},
	)

	assert.Equal(t, 1, store.Len())

	fc, ok := store.FullCode()
	require.True(t, ok)
	assert.Equal(t, "print(1)", fc.Content)
}

func TestStreamSourceSkipsMalformedFrames(t *testing.T) {
	stream := "data: {\"event\":\"step_a\",\"content\":\"x\"}\n\n" +
		"data: {not json at all\n\n" +
		"data: {\"event\":\"step_b\",\"content\":\"y\"}\n\n" +
		"data: {\"event\":\"done\"}\n\n" +
		"data: [DONE]\n\n"

	store := NewStore()
	consumer := NewConsumer(store, NewRegistry(), nil)
	src := NewStreamSource(strings.NewReader(stream), nil)

	require.NoError(t, consumer.Run(context.Background(), src))

	steps := store.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "Step A", steps[0].Title)
	assert.Equal(t, "Step B", steps[1].Title)
	assert.Equal(t, RunCompleted, store.Run().Status)
}

func feedFrames(frames []Frame) <-chan Frame {
	ch := make(chan Frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	return ch
}

func waitForSteps(t *testing.T, store *Store, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return store.Len() >= n
	}, waitTimeout, pollInterval)
}
