package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer forwards writes to t.Log so that logs only show up for failing tests.
type Writer struct {
	t    *testing.T
	done atomic.Bool
}

// NewWriter returns a Writer bound to t.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t}
	t.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

// Write panics after the test has completed to surface goroutines outliving their test.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is something missing a t.Cleanup shutdown?")
	}
	if out := strings.TrimSuffix(string(p), "\n"); out != "" {
		w.t.Log(out)
	}
	return len(p), nil
}
