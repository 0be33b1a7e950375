package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields the stream in fixed-size pieces to simulate frames
// arriving split across network reads.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	end := c.pos + c.size
	if end > len(c.data) {
		end = len(c.data)
	}
	n := copy(p, c.data[c.pos:end])
	c.pos += n
	return n, nil
}

func TestDecoderBasicFrames(t *testing.T) {
	stream := "data: {\"event\":\"a\"}\n\ndata: {\"event\":\"b\"}\n\ndata: [DONE]\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"a"}`, string(first))

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"b"}`, string(second))

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)

	// Stays terminated after the sentinel
	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderSplitAcrossReads(t *testing.T) {
	stream := "data: {\"event\":\"analyzing_problem\",\"content\":\"\"}\n\ndata: [DONE]\n\n"
	for _, size := range []int{1, 3, 7, 16} {
		dec := NewDecoder(&chunkReader{data: []byte(stream), size: size})

		payload, err := dec.Next()
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, `{"event":"analyzing_problem","content":""}`, string(payload))

		_, err = dec.Next()
		assert.Equal(t, io.EOF, err)
	}
}

func TestDecoderTrailingUnterminatedFrame(t *testing.T) {
	// Producer died before writing the final newline
	stream := "data: {\"event\":\"a\"}\n\ndata: {\"event\":\"b\"}"
	dec := NewDecoder(strings.NewReader(stream))

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"a"}`, string(first))

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"b"}`, string(second))

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	stream := ": keepalive comment\nevent: step\ndata: {\"event\":\"a\"}\n\ndata: [DONE]\n\n"
	dec := NewDecoder(strings.NewReader(stream))

	payload, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"a"}`, string(payload))
}

func TestDecoderCRLF(t *testing.T) {
	stream := "data: {\"event\":\"a\"}\r\n\r\ndata: [DONE]\r\n\r\n"
	dec := NewDecoder(strings.NewReader(stream))

	payload, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"a"}`, string(payload))

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecodeAll(t *testing.T) {
	stream := "data: 1\n\ndata: 2\n\ndata: [DONE]\n\n"
	frames, err := DecodeAll(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "1", string(frames[0]))
	assert.Equal(t, "2", string(frames[1]))
}

func TestEncoderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	enc := NewEncoder(bw)

	require.NoError(t, enc.WriteEvent(map[string]string{"event": "a"}))
	require.NoError(t, enc.WriteRaw([]byte(`{"event":"b"}`)))
	require.NoError(t, enc.WriteDone())

	frames, err := DecodeAll(&buf)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"event":"a"}`, string(frames[0]))
	assert.Equal(t, `{"event":"b"}`, string(frames[1]))
}
