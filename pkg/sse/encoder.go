package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes server-sent event frames in the `data: {json}\n\n` format.
// When the underlying writer is a *bufio.Writer the encoder flushes after
// every frame so clients observe events as they happen.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteEvent marshals v and writes it as a single data frame.
func (e *Encoder) WriteEvent(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	return e.WriteRaw(payload)
}

// WriteRaw writes an already-serialized payload as a single data frame.
func (e *Encoder) WriteRaw(payload []byte) error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	return e.flush()
}

// WriteDone terminates the stream with the [DONE] sentinel frame.
func (e *Encoder) WriteDone() error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", DoneSentinel); err != nil {
		return fmt.Errorf("write sse done frame: %w", err)
	}
	return e.flush()
}

func (e *Encoder) flush() error {
	if bw, ok := e.w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
