// Package errors decorates errors with slog attributes and the source location where they were wrapped.
//
// The standard library helpers are re-exported so that callers only need a single errors import.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

//nolint:gochecknoglobals // re-exports of the standard library.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	Join   = stderrors.Join
)

type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	file  string
	line  int
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel returns a plain error meant for package level sentinel variables compared with [Is].
//
// Sentinels carry no source location since they are created during package initialisation.
func NewSentinel(text string) error {
	return stderrors.New(text) //nolint:err113 // this is the sentinel constructor.
}

// New returns an error annotated with the caller's source location.
func New(text string, attrs ...slog.Attr) error {
	return newAnnotated(nil, text, attrs, 2) //nolint:mnd // skip New and newAnnotated.
}

// Wrap annotates err with msg, the given attributes, and the caller's source location.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return newAnnotated(err, msg, attrs, 2) //nolint:mnd // skip Wrap and newAnnotated.
}

func newAnnotated(err error, msg string, attrs []slog.Attr, skip int) *annotatedError {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file = "unknown"
	}
	return &annotatedError{
		err:   err,
		msg:   msg,
		attrs: attrs,
		file:  file,
		line:  line,
	}
}

// DecoratePanic converts the value returned by recover into an error pointing at the panicking line.
//
// Returns nil when excp is nil so that it can be called unconditionally in deferred functions.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	}
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2, pcs) //nolint:mnd // skip runtime.Callers and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])

	var (
		file      = "unknown"
		line      int
		inRuntime bool
	)
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, "runtime.") {
			inRuntime = true
		} else if inRuntime {
			file, line = frame.File, frame.Line
			break
		}
		if !more {
			break
		}
	}

	msg := fmt.Sprintf("panic: %v", excp)
	if cause != nil {
		msg = "panic"
	}
	return &annotatedError{
		err:   cause,
		msg:   msg,
		attrs: nil,
		file:  file,
		line:  line,
	}
}

// SlogError returns an "error" group attribute holding the message, the annotations collected from the whole
// error tree, and the source location of the innermost annotation.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("<nil>")}
	}
	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.attrs {
			annotations = append(annotations, a)
		}
		source = ae.file + ":" + strconv.Itoa(ae.line)
	})
	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits the annotated errors of the tree in outermost first order.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we walk the chain manually.
		visit(ae)
	}
	switch u := err.(type) { //nolint:errorlint // we walk the chain manually.
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			walk(e, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}
