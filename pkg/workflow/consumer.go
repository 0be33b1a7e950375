package workflow

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"draco-chat-be/pkg/sse"
)

// FrameSource is a cancellable iterator of decoded frames. Next returns
// io.EOF when the stream is exhausted; any other error is a transport
// failure. Implementations must honor context cancellation.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// ConsumerState tracks the stream consumer lifecycle.
type ConsumerState int

const (
	StateIdle ConsumerState = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateFailed
)

func (s ConsumerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const transportErrorMessage = "connection to the analysis stream was lost"

// progress advances a fixed amount per newly created step and is capped
// below 100 until the done frame arrives.
const (
	progressPerStep = 12
	progressCap     = 90
)

// Consumer drives a Store from a FrameSource. One consumer mutates one
// store; it stops reading and mutating as soon as a terminal frame or a
// transport error arrives.
type Consumer struct {
	store    *Store
	registry *Registry
	log      *zap.Logger

	mu    sync.Mutex
	state ConsumerState
}

func NewConsumer(store *Store, registry *Registry, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		store:    store,
		registry: registry,
		log:      log,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Consumer) State() ConsumerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) setState(s ConsumerState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run consumes frames until a terminal frame, a transport error, or context
// cancellation. The store and registry are reset before the first frame is
// requested. Frames are applied strictly in arrival order.
func (c *Consumer) Run(ctx context.Context, src FrameSource) error {
	c.setState(StateConnecting)
	c.store.Reset(RunRunning)
	c.registry.Reset()

	for {
		if err := ctx.Err(); err != nil {
			c.fail(transportErrorMessage)
			return err
		}

		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.fail(transportErrorMessage)
				return err
			}
			if errors.Is(err, io.EOF) {
				// Stream closed without a terminal frame
				c.fail(transportErrorMessage)
				return nil
			}
			c.log.Warn("workflow stream transport error", zap.Error(err))
			c.fail(transportErrorMessage)
			return nil
		}

		c.setState(StateStreaming)

		switch frame.Kind {
		case FrameDone:
			c.store.MarkAllInProgressAsCompleted()
			c.store.Complete()
			c.setState(StateCompleted)
			return nil
		case FrameError:
			c.store.Fail(frame.Content)
			c.setState(StateFailed)
			return nil
		default:
			c.dispatchStep(frame)
		}
	}
}

func (c *Consumer) fail(message string) {
	c.store.Fail(message)
	c.setState(StateFailed)
}

func (c *Consumer) dispatchStep(frame Frame) {
	if IsFullCode(frame.Event) {
		c.store.SetFullCode(TitleOf(frame.Event), frame.Content, stepStatusFor(frame.Kind))
		return
	}

	key := Normalize(frame.Event)
	if key == "" {
		c.log.Warn("workflow frame with empty canonical key skipped", zap.String("event", frame.Event))
		return
	}

	id, known := c.registry.Resolve(key)
	if !known {
		// A new distinct step implicitly finishes whatever was still open
		if c.store.Len() > 0 {
			c.store.MarkAllInProgressAsCompleted()
		}
		id = uuid.NewString()
		c.registry.Register(key, id)
		c.store.UpsertStep(id, TitleOf(frame.Event), frame.Content, stepStatusFor(frame.Kind))
		c.store.SetProgress(minInt(progressCap, c.store.Len()*progressPerStep))
		return
	}

	c.store.UpsertStep(id, "", frame.Content, stepStatusFor(frame.Kind))
}

func stepStatusFor(kind FrameKind) StepStatus {
	switch kind {
	case FrameStepCompleted:
		return StepCompleted
	case FrameStepError:
		return StepError
	default:
		return StepInProgress
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// StreamSource adapts a raw SSE byte stream into a FrameSource. Malformed
// frames are logged and skipped without aborting the stream.
type StreamSource struct {
	dec    *sse.Decoder
	closer io.Closer
	log    *zap.Logger
}

// NewStreamSource wraps r. When r is also an io.Closer it is closed by
// Close, which the owner must call once consumption stops.
func NewStreamSource(r io.Reader, log *zap.Logger) *StreamSource {
	if log == nil {
		log = zap.NewNop()
	}
	closer, _ := r.(io.Closer)
	return &StreamSource{
		dec:    sse.NewDecoder(r),
		closer: closer,
		log:    log,
	}
}

func (s *StreamSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		payload, err := s.dec.Next()
		if err != nil {
			return Frame{}, err
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			s.log.Warn("malformed workflow frame skipped", zap.Error(err), zap.ByteString("payload", payload))
			continue
		}
		return frame, nil
	}
}

// Close releases the underlying reader, discarding any buffered partial
// frame.
func (s *StreamSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FrameChanSource feeds a consumer from an in-process channel. Used when the
// producer runs in the same process and by tests that script a frame
// sequence.
type FrameChanSource struct {
	ch <-chan Frame
}

func NewFrameChanSource(ch <-chan Frame) *FrameChanSource {
	return &FrameChanSource{ch: ch}
}

func (s *FrameChanSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case frame, ok := <-s.ch:
		if !ok {
			return Frame{}, io.EOF
		}
		return frame, nil
	}
}
