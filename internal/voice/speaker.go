package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrRecognitionUnsupported is returned by recognizers that cannot listen.
var ErrRecognitionUnsupported = errors.New("voice recognition is not supported")

// Speaker renders reply text as speech. Speak may be cancelled through ctx
// when a newer reply supersedes it.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer produces a single transcript.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// WriterSpeaker prints replies to a writer, one per line.
type WriterSpeaker struct {
	mu     sync.Mutex
	W      io.Writer
	Prefix string
}

// Speak writes text to the underlying writer.
func (s *WriterSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.W, "%s%s\n", s.Prefix, text)
	return err
}

// LineRecognizer treats each line read from a stream as a transcript.
type LineRecognizer struct {
	mu sync.Mutex
	r  *bufio.Reader
}

// NewLineRecognizer reads transcripts from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: bufio.NewReader(r)}
}

// Recognize returns the next line. It returns io.EOF when the stream ends.
func (l *LineRecognizer) Recognize(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		line, err := l.r.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{strings.TrimRight(line, "\r\n"), err}
	}()

	select {
	case res := <-ch:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
