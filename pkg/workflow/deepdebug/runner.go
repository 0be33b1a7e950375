// Package deepdebug runs the multi-step code debugging workflow. Each step
// is one LLM call; progress frames carry the full accumulated text so
// consumers can replace step content wholesale instead of splicing deltas.
package deepdebug

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"draco-chat-be/pkg/llm"
	"draco-chat-be/pkg/workflow"
)

// EmitFunc receives each frame as the workflow produces it. Returning an
// error aborts the run.
type EmitFunc func(workflow.Frame) error

const (
	stepAnalyzing     = "analyzing_problem"
	stepExtracting    = "extracting_code"
	stepTestcases     = "resolve_testcases"
	stepComplexity    = "check_complexity"
	stepEvaluate      = "evaluate_fix"
	stepDebugComplete = "debug_completed"

	notCodeSentinel = "This input does not appear to be related to code"
	notCodeReply    = "I couldn't detect any code in your input. If you want me to debug something, please paste your function or script."
)

const analyzePrompt = `You are a professional AI debug assistant. Please analyze the user's input.
If it is a piece of code, provide a brief and accurate description of what the code does.
If it is not related to code, respond with: 'This input does not appear to be related to code.'`

const extractPrompt = "You are an expert code extractor. Extract only the code from the user's input. If multiple code blocks are present, combine them into a single coherent piece. Do not include any explanation or comments — output only the code block."

const testcasesPrompt = `You are an expert test case generator. First, check if the user's input already includes test cases.
If test cases are present, extract and return only those test cases without modification.
If no test cases are found, then generate appropriate and executable test cases to verify the code's functionality.
Return only test code block — do not include any explanation or comments.`

const complexityPrompt = "You are an expert code complexity analyzer. Analyze the given code and determine its complexity level (simple, medium, or hard). Your response should explicitly include one of these exact labels: 'simple', 'medium', or 'hard'."

const evaluatePrompt = "You are an expert code evaluator. Evaluate the fixed code for correctness and efficiency."

var fixPrompts = map[string]string{
	"simple": "You are an expert debugging assistant. The code provided is relatively simple. Identify and fix any issues. Provide only the fixed code, without any additional explanation or comments.",
	"medium": "You are an expert debugging assistant. The code provided is of medium complexity. Take a step-by-step approach to identify and fix issues. Provide only the fixed code, without any additional explanation or comments.",
	"hard":   "You are an expert debugging assistant. The code provided is complex. Take a systematic approach to analyze and fix the issues. Provide only the fixed code, without any additional explanation or markdown formatting.",
}

// Runner executes the debugging workflow against one model.
type Runner struct {
	provider    llm.LLMProvider
	temperature float64
	log         *zap.Logger
}

func NewRunner(provider llm.LLMProvider, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		provider:    provider,
		temperature: 0.7,
		log:         log,
	}
}

// Run drives the full step sequence and emits frames as it goes. The last
// emitted frame is always terminal: Done on success, Error on any step
// failure. Returns the step error, if any, for logging by the caller.
func (r *Runner) Run(ctx context.Context, query string, emit EmitFunc) error {
	analysis, err := r.runStep(ctx, stepAnalyzing, analyzePrompt, query+"\n"+analyzePrompt, emit)
	if err != nil {
		return r.abort(emit, stepAnalyzing, err)
	}

	if strings.Contains(analysis, notCodeSentinel) {
		if err := emit(workflow.Frame{Kind: workflow.FrameStepCompleted, Event: "workflow_completed", Content: notCodeReply}); err != nil {
			return err
		}
		return emit(workflow.Frame{Kind: workflow.FrameDone})
	}

	code, err := r.runStep(ctx, stepExtracting, extractPrompt, query, emit)
	if err != nil {
		return r.abort(emit, stepExtracting, err)
	}

	if _, err := r.runStep(ctx, stepTestcases, testcasesPrompt, code, emit); err != nil {
		return r.abort(emit, stepTestcases, err)
	}

	complexityRaw, err := r.runStep(ctx, stepComplexity, complexityPrompt, code, emit)
	if err != nil {
		return r.abort(emit, stepComplexity, err)
	}
	complexity := parseComplexity(complexityRaw)

	fixStep := complexity + "_fix"
	fixedCode, err := r.runStep(ctx, fixStep, fixPrompts[complexity], code, emit)
	if err != nil {
		return r.abort(emit, fixStep, err)
	}

	if _, err := r.runStep(ctx, stepEvaluate, evaluatePrompt, fixedCode, emit); err != nil {
		return r.abort(emit, stepEvaluate, err)
	}

	if err := emit(workflow.Frame{Kind: workflow.FrameStepCompleted, Event: stepDebugComplete, Content: "Debugging workflow completed successfully."}); err != nil {
		return err
	}
	if err := emit(workflow.Frame{Kind: workflow.FrameStepCompleted, Event: workflow.FullCodeMarker, Content: fixedCode}); err != nil {
		return err
	}
	return emit(workflow.Frame{Kind: workflow.FrameDone})
}

// runStep performs one LLM call for a named step. Emits started, one
// progress frame per delta carrying the accumulated text so far, then
// completed with the final text.
func (r *Runner) runStep(ctx context.Context, event, systemPrompt, userContent string, emit EmitFunc) (string, error) {
	if err := emit(workflow.Frame{Kind: workflow.FrameStepStarted, Event: event}); err != nil {
		return "", err
	}

	var accumulated strings.Builder
	history := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}

	full, err := r.provider.ChatStream(ctx, history, func(delta string) error {
		accumulated.WriteString(delta)
		return emit(workflow.Frame{
			Kind:    workflow.FrameStepProgress,
			Event:   event,
			Content: accumulated.String(),
		})
	}, llm.WithTemperature(r.temperature))
	if err != nil {
		r.log.Warn("workflow step failed",
			zap.String("step", event),
			zap.String("model", r.provider.Info().Name),
			zap.Error(err))
		emitErr := emit(workflow.Frame{
			Kind:    workflow.FrameStepError,
			Event:   event,
			Content: fmt.Sprintf("error while processing step: %v", err),
		})
		if emitErr != nil {
			return "", emitErr
		}
		return "", err
	}

	if err := emit(workflow.Frame{Kind: workflow.FrameStepCompleted, Event: event, Content: full}); err != nil {
		return "", err
	}
	return full, nil
}

// abort emits the terminal error frame after a failed step.
func (r *Runner) abort(emit EmitFunc, step string, err error) error {
	if ctxErr := contextError(err); ctxErr != nil {
		return ctxErr
	}
	if emitErr := emit(workflow.Frame{
		Kind:    workflow.FrameError,
		Content: fmt.Sprintf("step %s failed: %v", step, err),
	}); emitErr != nil {
		return emitErr
	}
	return err
}

func contextError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func parseComplexity(analysis string) string {
	text := strings.ToLower(analysis)
	if strings.Contains(text, "medium") {
		return "medium"
	}
	if strings.Contains(text, "hard") || strings.Contains(text, "complex") {
		return "hard"
	}
	return "simple"
}
