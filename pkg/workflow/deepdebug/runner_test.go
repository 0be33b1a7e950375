package deepdebug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draco-chat-be/pkg/llm"
	"draco-chat-be/pkg/workflow"
)

// fakeProvider replays scripted responses, one per ChatStream call, split
// into two deltas to exercise progress accumulation.
type fakeProvider struct {
	responses []string
	failAt    int // 1-based call index that errors, 0 for never
	calls     int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.ChatStream(ctx, history, nil, options...)
}

func (f *fakeProvider) ChatStream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) (string, error) {
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return "", errors.New("model unavailable")
	}
	if f.calls > len(f.responses) {
		return "", errors.New("no scripted response left")
	}
	resp := f.responses[f.calls-1]
	if handler != nil && resp != "" {
		mid := len(resp) / 2
		if err := handler(resp[:mid]); err != nil {
			return resp[:mid], err
		}
		if err := handler(resp[mid:]); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (f *fakeProvider) Info() llm.ModelInfo {
	return llm.ModelInfo{Name: "fake", Type: "test", Provider: "Test"}
}

func collectFrames(t *testing.T, r *Runner, query string) ([]workflow.Frame, error) {
	t.Helper()
	var frames []workflow.Frame
	err := r.Run(context.Background(), query, func(f workflow.Frame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, err
}

func stepSequence(frames []workflow.Frame) []string {
	var seq []string
	seen := map[string]bool{}
	for _, f := range frames {
		if f.Event == "" || seen[f.Event] {
			continue
		}
		seen[f.Event] = true
		seq = append(seq, f.Event)
	}
	return seq
}

func TestRunnerFullSequence(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"The code sums a slice.",
		"def total(xs): return sum(xs)",
		"assert total([1,2]) == 3",
		"This is a medium complexity function.",
		"def total(xs):\n    return sum(xs)",
		"The fix is correct and efficient.",
	}}
	runner := NewRunner(provider, nil)

	frames, err := collectFrames(t, runner, "debug this: def total(xs): return sum(x)")
	require.NoError(t, err)

	assert.Equal(t, []string{
		stepAnalyzing,
		stepExtracting,
		stepTestcases,
		stepComplexity,
		"medium_fix",
		stepEvaluate,
		stepDebugComplete,
		workflow.FullCodeMarker,
	}, stepSequence(frames))

	last := frames[len(frames)-1]
	assert.Equal(t, workflow.FrameDone, last.Kind)

	// Progress frames carry the accumulated text, not deltas
	var progress []workflow.Frame
	for _, f := range frames {
		if f.Kind == workflow.FrameStepProgress && f.Event == stepExtracting {
			progress = append(progress, f)
		}
	}
	require.Len(t, progress, 2)
	assert.Equal(t, "def total(xs): return sum(xs)", progress[1].Content)
	assert.True(t, len(progress[0].Content) < len(progress[1].Content))
}

func TestRunnerNonCodeShortCircuit(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"This input does not appear to be related to code.",
	}}
	runner := NewRunner(provider, nil)

	frames, err := collectFrames(t, runner, "what is the weather today")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, []string{stepAnalyzing, "workflow_completed"}, stepSequence(frames))
	assert.Equal(t, workflow.FrameDone, frames[len(frames)-1].Kind)

	var reply string
	for _, f := range frames {
		if f.Event == "workflow_completed" {
			reply = f.Content
		}
	}
	assert.Contains(t, reply, "couldn't detect any code")
}

func TestRunnerStepFailureEmitsErrorTerminal(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{"Sums a slice.", "", "", "", "", ""},
		failAt:    2,
	}
	runner := NewRunner(provider, nil)

	frames, err := collectFrames(t, runner, "def f(): pass")
	require.Error(t, err)

	var sawStepError bool
	for _, f := range frames {
		if f.Kind == workflow.FrameStepError && f.Event == stepExtracting {
			sawStepError = true
		}
	}
	assert.True(t, sawStepError)

	last := frames[len(frames)-1]
	assert.Equal(t, workflow.FrameError, last.Kind)
	assert.Contains(t, last.Content, stepExtracting)
}

func TestRunnerFeedsConsumerEndToEnd(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"Reverses a string.",
		"def rev(s): return s[::-1]",
		"assert rev('ab') == 'ba'",
		"simple",
		"def rev(s):\n    return s[::-1]",
		"Looks correct.",
	}}
	runner := NewRunner(provider, nil)

	ch := make(chan workflow.Frame, 128)
	require.NoError(t, runner.Run(context.Background(), "fix rev", func(f workflow.Frame) error {
		ch <- f
		return nil
	}))
	close(ch)

	store := workflow.NewStore()
	consumer := workflow.NewConsumer(store, workflow.NewRegistry(), nil)
	require.NoError(t, consumer.Run(context.Background(), workflow.NewFrameChanSource(ch)))

	steps := store.Steps()
	require.Len(t, steps, 7)
	for _, step := range steps {
		assert.Equal(t, workflow.StepCompleted, step.Status)
	}
	assert.Equal(t, "Simple Fix", steps[4].Title)

	fc, ok := store.FullCode()
	require.True(t, ok)
	assert.Equal(t, "def rev(s):\n    return s[::-1]", fc.Content)

	run := store.Run()
	assert.Equal(t, workflow.RunCompleted, run.Status)
	assert.Equal(t, 100, run.Progress)
}

func TestParseComplexity(t *testing.T) {
	assert.Equal(t, "simple", parseComplexity("This is a Simple loop."))
	assert.Equal(t, "medium", parseComplexity("I would rate this MEDIUM."))
	assert.Equal(t, "hard", parseComplexity("Quite hard to follow."))
	assert.Equal(t, "hard", parseComplexity("A very complex recursion."))
	assert.Equal(t, "simple", parseComplexity("no label at all"))
}
