package emitter

import (
	"fmt"
	"io"
)

// ErrorCode categorizes emitter failures.
type ErrorCode string

const RenderIOError ErrorCode = "RenderIOError"

// RenderError reports a failed write of an output artifact.
type RenderError struct {
	Code     ErrorCode
	Backend  string
	Artifact string
	Cause    error
}

func (e *RenderError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("%s: write %s: %v", e.Backend, e.Artifact, e.Cause)
	}
	return fmt.Sprintf("%s: write: %v", e.Backend, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// NewRenderError wraps cause as a RenderIOError.
func NewRenderError(backend, artifact string, cause error) *RenderError {
	return &RenderError{Code: RenderIOError, Backend: backend, Artifact: artifact, Cause: cause}
}

// Sink wraps a writer and latches the first write error. Once an error is
// seen every further write is dropped, so render code can emit freely and
// check Err once at the end.
type Sink struct {
	w       io.Writer
	backend string
	err     error
}

func NewSink(backend string, w io.Writer) *Sink {
	return &Sink{w: w, backend: backend}
}

func (s *Sink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.err = NewRenderError(s.backend, "", err)
	}
	return n, s.err
}

// Printf formats to the underlying writer.
func (s *Sink) Printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, _ = fmt.Fprintf(s, format, args...)
}

// Line writes a formatted line terminated by a newline.
func (s *Sink) Line(format string, args ...any) {
	s.Printf(format+"\n", args...)
}

// Blank writes an empty line.
func (s *Sink) Blank() { s.Printf("\n") }

// Err returns the first write failure as a *RenderError, or nil.
func (s *Sink) Err() error { return s.err }
