package runtime

import (
	"errors"
	"io"
	"sync"
)

// ErrScopeActive is returned by Enter when a redirection is already in place.
var ErrScopeActive = errors.New("output redirection already active")

// Streams holds the stdout and stderr targets seen by running scripts.
// Engines write through Stdout() and Stderr(), which always forward to the
// current targets, so a redirection takes effect without re-binding anything
// inside the script.
type Streams struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	active *Scope
}

// NewStreams creates streams with the given ambient targets.
func NewStreams(stdout, stderr io.Writer) *Streams {
	return &Streams{stdout: stdout, stderr: stderr}
}

// Stdout returns a writer forwarding to the current stdout target.
func (s *Streams) Stdout() io.Writer {
	return forwarder{s: s, stderr: false}
}

// Stderr returns a writer forwarding to the current stderr target.
func (s *Streams) Stderr() io.Writer {
	return forwarder{s: s, stderr: true}
}

// Scope is an active redirection. Exit restores the previous targets.
type Scope struct {
	streams    *Streams
	prevStdout io.Writer
	prevStderr io.Writer
	sinks      []io.Writer
	once       sync.Once
}

// Enter swaps the targets to stdout and stderr until the returned scope exits.
func (s *Streams) Enter(stdout, stderr io.Writer) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, ErrScopeActive
	}
	scope := &Scope{
		streams:    s,
		prevStdout: s.stdout,
		prevStderr: s.stderr,
		sinks:      []io.Writer{stdout, stderr},
	}
	s.stdout = stdout
	s.stderr = stderr
	s.active = scope
	return scope, nil
}

// Exit restores the original targets and closes the redirected writers that
// implement io.Closer. Safe to call more than once.
func (sc *Scope) Exit() {
	sc.once.Do(func() {
		s := sc.streams
		s.mu.Lock()
		s.stdout = sc.prevStdout
		s.stderr = sc.prevStderr
		s.active = nil
		s.mu.Unlock()

		for _, w := range sc.sinks {
			if c, ok := w.(io.Closer); ok {
				_ = c.Close()
			}
		}
	})
}

// Capture runs fn with the targets redirected to stdout and stderr. The
// originals are restored on every exit path, including a panic in fn, which
// is re-raised after restoration.
func (s *Streams) Capture(stdout, stderr io.Writer, fn func() error) error {
	scope, err := s.Enter(stdout, stderr)
	if err != nil {
		return err
	}
	defer scope.Exit()
	return fn()
}

type forwarder struct {
	s      *Streams
	stderr bool
}

func (f forwarder) Write(p []byte) (int, error) {
	f.s.mu.Lock()
	w := f.s.stdout
	if f.stderr {
		w = f.s.stderr
	}
	f.s.mu.Unlock()

	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}
