package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// DoneSentinel terminates a stream. It arrives as the payload of a normal
// data frame and is never surfaced to callers.
const DoneSentinel = "[DONE]"

const dataPrefix = "data:"

// Decoder incrementally parses a server-sent event stream into raw frame
// payloads. Frames may be split across arbitrary read boundaries; the decoder
// buffers partial lines until a full frame is available.
//
// Next returns io.EOF once the stream is exhausted or the [DONE] sentinel is
// seen. A trailing frame that the producer never newline-terminated is still
// returned on a best effort basis before EOF.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the payload of the next data frame.
func (d *Decoder) Next() ([]byte, error) {
	if d.done {
		return nil, io.EOF
	}

	for {
		line, err := d.r.ReadString('\n')
		payload, ok := extractPayload(line)

		if err != nil {
			d.done = true
			if err == io.EOF && ok && payload != DoneSentinel {
				// Unterminated trailing frame
				return []byte(payload), nil
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}

		if !ok {
			// Blank separators and non-data fields (comments, event:, id:)
			continue
		}
		if payload == DoneSentinel {
			d.done = true
			return nil, io.EOF
		}
		return []byte(payload), nil
	}
}

func extractPayload(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == "" {
		return "", false
	}
	return payload, true
}

// DecodeAll drains the stream and returns every frame payload. Intended for
// tests and the probe CLI, not for live consumption.
func DecodeAll(r io.Reader) ([][]byte, error) {
	dec := NewDecoder(r)
	var frames [][]byte
	for {
		payload, err := dec.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, bytes.TrimSpace(payload))
	}
}
