// Package skerr provides errors which record the location they were created
// or wrapped at, so that log lines carry a useful trace without needing a
// full stack dump.
package skerr

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// maxStackDepth bounds the number of frames recorded per error.
const maxStackDepth = 8

// StackTrace is one frame of a recorded call stack.
type StackTrace struct {
	File string
	Line int
}

func (st StackTrace) String() string {
	return fmt.Sprintf("%s:%d", st.File, st.Line)
}

// ErrorWithContext wraps an error with the call stack at the point it was
// wrapped, plus any number of context messages.
type ErrorWithContext struct {
	Wrapped   error
	CallStack []StackTrace
	Context   []string
}

// Error implements the error interface.
func (err *ErrorWithContext) Error() string {
	var sb strings.Builder
	for i := len(err.Context) - 1; i >= 0; i-- {
		sb.WriteString(err.Context[i])
		sb.WriteString(": ")
	}
	sb.WriteString(err.Wrapped.Error())
	if len(err.CallStack) > 0 {
		sb.WriteString(". At")
		for _, st := range err.CallStack {
			sb.WriteString(" ")
			sb.WriteString(st.String())
		}
	}
	return sb.String()
}

// Unwrap allows errors.Is and errors.As to see the wrapped error.
func (err *ErrorWithContext) Unwrap() error {
	return err.Wrapped
}

func callStack(skip int) []StackTrace {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	rv := make([]StackTrace, 0, n)
	for {
		f, more := frames.Next()
		file := f.File
		if slash := strings.LastIndex(file, "/"); slash >= 0 {
			if dir := strings.LastIndex(file[:slash], "/"); dir >= 0 {
				file = file[dir+1:]
			}
		}
		if file != "" {
			rv = append(rv, StackTrace{File: file, Line: f.Line})
		}
		if !more {
			break
		}
	}
	return rv
}

// Wrap records the caller's location on err. If err already carries a
// call stack it is returned unchanged. Wrap(nil) returns nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ewc *ErrorWithContext
	if errors.As(err, &ewc) {
		return err
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: callStack(1),
	}
}

// Wrapf is like Wrap but also prepends a formatted message to the error.
// Wrapf(nil, ...) returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var ewc *ErrorWithContext
	if errors.As(err, &ewc) && ewc == err {
		return &ErrorWithContext{
			Wrapped:   ewc.Wrapped,
			CallStack: ewc.CallStack,
			Context:   append(append([]string{}, ewc.Context...), msg),
		}
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: callStack(1),
		Context:   []string{msg},
	}
}

// Fmt returns a new error with the given message and the caller's location.
func Fmt(format string, args ...interface{}) error {
	return &ErrorWithContext{
		Wrapped:   fmt.Errorf(format, args...),
		CallStack: callStack(1),
	}
}

// Unwrap returns the innermost error which is not an *ErrorWithContext.
func Unwrap(err error) error {
	for {
		ewc, ok := err.(*ErrorWithContext)
		if !ok {
			return err
		}
		err = ewc.Wrapped
	}
}
