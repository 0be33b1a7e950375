package workflow

import (
	"encoding/json"
	"fmt"
)

// FrameKind is the decoded kind of one stream frame. Raw wire schemas are
// collapsed into this union at the parse boundary so the consumer never
// switches on raw strings.
type FrameKind int

const (
	FrameStepStarted FrameKind = iota
	FrameStepProgress
	FrameStepCompleted
	FrameStepError
	FrameDone
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameStepStarted:
		return "step_started"
	case FrameStepProgress:
		return "step_progress"
	case FrameStepCompleted:
		return "step_completed"
	case FrameStepError:
		return "step_error"
	case FrameDone:
		return "done"
	case FrameError:
		return "error"
	default:
		return "unknown"
	}
}

// Frame is one decoded workflow event. Event holds the raw step name for
// step frames; Content holds the full current text for the step (producers
// send accumulated text, not deltas) or the error message for error frames.
type Frame struct {
	Kind    FrameKind
	Event   string
	Content string
}

// Terminal reports whether the frame ends stream consumption.
func (f Frame) Terminal() bool {
	return f.Kind == FrameDone || f.Kind == FrameError
}

// wireFrame covers both upstream schemas: the legacy {event, content} shape
// and the {event_name, status, content} shape.
type wireFrame struct {
	Event     string `json:"event,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Status    string `json:"status,omitempty"`
	Content   string `json:"content,omitempty"`
}

// EncodeFrame serializes a frame in the {event_name, status, content}
// schema, the shape the workflow endpoint streams to clients.
func EncodeFrame(f Frame) ([]byte, error) {
	w := wireFrame{
		EventName: f.Event,
		Status:    f.Kind.String(),
		Content:   f.Content,
	}
	return json.Marshal(w)
}

// DecodeFrame parses one raw frame payload into the tagged union.
func DecodeFrame(payload []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(payload, &w); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	if w.Status != "" {
		return decodeStatusSchema(w)
	}

	switch w.Event {
	case "":
		return Frame{}, fmt.Errorf("decode frame: missing event name")
	case "done":
		return Frame{Kind: FrameDone}, nil
	case "error":
		return Frame{Kind: FrameError, Content: w.Content}, nil
	default:
		return Frame{Kind: FrameStepProgress, Event: w.Event, Content: w.Content}, nil
	}
}

func decodeStatusSchema(w wireFrame) (Frame, error) {
	name := w.EventName
	if name == "" {
		name = w.Event
	}

	switch w.Status {
	case "step_started":
		return Frame{Kind: FrameStepStarted, Event: name, Content: w.Content}, nil
	case "step_progress":
		return Frame{Kind: FrameStepProgress, Event: name, Content: w.Content}, nil
	case "step_completed":
		return Frame{Kind: FrameStepCompleted, Event: name, Content: w.Content}, nil
	case "step_error":
		return Frame{Kind: FrameStepError, Event: name, Content: w.Content}, nil
	case "done":
		return Frame{Kind: FrameDone}, nil
	case "error":
		return Frame{Kind: FrameError, Content: w.Content}, nil
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown status %q", w.Status)
	}
}
