package llmservice

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Chunk is one server-sent event of a streaming chat completion.
type Chunk struct {
	Choices []Choice    `json:"choices"`
	Error   *chunkError `json:"error,omitempty"`
}

type Choice struct {
	Delta Delta `json:"delta"`
}

// Delta carries incremental output. Content is nil for role-only or
// tool-call deltas, which is normal and not an error.
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

type chunkError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// Stream is a lazy, single-use sequence of text fragments read from an
// upstream response body.
type Stream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []string
	done    bool
	err     error
}

// NewStream reads server-sent chat completion events from body.
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, reader: bufio.NewReader(body)}
}

// Recv returns the next non-empty fragment in upstream order. It returns
// io.EOF once the upstream signals completion, or the failure that ended
// the stream. Every call after the first error returns that error again.
func (s *Stream) Recv() (string, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return "", s.err
		}
		if s.done {
			return "", io.EOF
		}
		if err := s.readEvent(); err != nil {
			s.err = err
			s.body.Close()
		}
	}
	frag := s.pending[0]
	s.pending = s.pending[1:]
	return frag, nil
}

// Close releases the upstream connection. It is safe to call more than once.
// A stream that already reached [DONE] keeps reporting io.EOF.
func (s *Stream) Close() error {
	if s.err == nil && !s.done {
		s.err = io.ErrClosedPipe
	}
	s.pending = nil
	return s.body.Close()
}

func (s *Stream) readEvent() error {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				// the body ended without the [DONE] marker
				return io.ErrUnexpectedEOF
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			// event:, id: and retry: fields carry nothing we use
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			s.body.Close()
			return nil
		}

		var chunk Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("malformed stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("upstream error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if c := choice.Delta.Content; c != nil && *c != "" {
				s.pending = append(s.pending, *c)
			}
		}
		return nil
	}
}

// Collect drains s into one string. On failure it returns what was received
// so far together with the error.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
}
