package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Sink is a write-only stream that turns complete lines into log records
// at a fixed level. Writes never fail.
type Sink struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  slog.Level
	buf    bytes.Buffer
}

// NewSink creates a sink that logs each non-blank line at level.
func NewSink(logger *slog.Logger, level slog.Level) *Sink {
	return &Sink{logger: logger, level: level}
}

// Level returns the level the sink emits at.
func (s *Sink) Level() slog.Level {
	return s.level
}

// Write buffers p and emits one record per completed line.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
	for {
		i := bytes.IndexByte(s.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(s.buf.Next(i + 1))
		s.emit(line)
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (s *Sink) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// Flush is a no-op; records are emitted on Write.
func (s *Sink) Flush() error {
	return nil
}

// Close emits whatever partial line is still buffered.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf.Len() > 0 {
		line := s.buf.String()
		s.buf.Reset()
		s.emit(line)
	}
	return nil
}

func (s *Sink) emit(line string) {
	msg := strings.TrimSpace(line)
	if msg == "" {
		return
	}
	s.logger.Log(context.Background(), s.level, msg)
}
