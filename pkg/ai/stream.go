package ai

import (
	"context"
	"strings"
	"sync"
)

// Stream is a finite, non-restartable sequence of response fragments. Once
// Next reports false the stream is exhausted and Err holds the terminal error,
// if any. Concatenating every fragment of a simulated stream reproduces the
// full response text.
type Stream struct {
	ch chan string

	mu  sync.Mutex
	err error
}

func NewStream() *Stream {
	return &Stream{ch: make(chan string)}
}

// NewTextStream wraps an already-computed response into a stream of
// whitespace-delimited fragments. Every fragment but the last keeps its
// trailing space so that concatenation yields content exactly.
func NewTextStream(content string) *Stream {
	words := strings.Split(content, " ")
	s := &Stream{ch: make(chan string, len(words))}
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		s.ch <- w
	}
	close(s.ch)
	return s
}

// Next returns the next fragment. ok is false once the stream is exhausted.
func (s *Stream) Next() (chunk string, ok bool) {
	chunk, ok = <-s.ch
	return chunk, ok
}

// Err reports the terminal error. Only meaningful after Next returned false.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Push delivers a fragment to the consumer. It returns false when the context
// is cancelled before the fragment is taken, which the producer must treat as
// consumer abandonment.
func (s *Stream) Push(ctx context.Context, chunk string) bool {
	select {
	case s.ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish terminates the stream. A nil err marks clean completion.
func (s *Stream) Finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}

// Collect drains the stream and returns the concatenated content.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for {
		chunk, ok := s.Next()
		if !ok {
			break
		}
		b.WriteString(chunk)
	}
	return b.String(), s.Err()
}
