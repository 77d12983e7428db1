// exception.go parses raised errors and recovered panics into exception
// records with chronological stack traces.

package faultline

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// maxStackFrames bounds how many frames are captured per exception.
const maxStackFrames = 64

// exceptionFromError parses an error into an exception record with a
// generic "handled" mechanism. skip counts stack frames to drop above the
// capture point, not including this function.
func exceptionFromError(err error, skip int) Exception {
	return Exception{
		Type:       errorTypeName(err),
		Value:      err.Error(),
		Stacktrace: captureFrames(skip + 1),
		Mechanism:  &Mechanism{Type: "generic", Handled: true},
	}
}

// exceptionFromPanic parses a recovered panic value into an exception
// record with an unhandled "panic" mechanism.
func exceptionFromPanic(recovered any, skip int) Exception {
	var typeName, value string
	if err, ok := recovered.(error); ok {
		typeName = errorTypeName(err)
		value = err.Error()
	} else {
		typeName = fmt.Sprintf("%T", recovered)
		value = fmt.Sprintf("%v", recovered)
	}

	return Exception{
		Type:       typeName,
		Value:      value,
		Stacktrace: captureFrames(skip + 1),
		Mechanism:  &Mechanism{Type: "panic", Handled: false},
	}
}

// errorTypeName reports the dynamic type of an error, e.g.
// "*errors.errorString" or "faultline.timeoutError".
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "error"
	}
	return t.String()
}

// captureFrames records the current call stack as chronological
// (oldest call first) frames. runtime.Callers yields innermost-first, so
// the slice is reversed before returning.
func captureFrames(skip int) []StackFrame {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	var stack []StackFrame
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, StackFrame{
				Filename: frame.File,
				Function: frame.Function,
				Lineno:   frame.Line,
				InApp:    isAppFrame(frame.Function),
			})
		}
		if !more {
			break
		}
	}

	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// isAppFrame reports whether a function belongs to application code rather
// than the runtime or test machinery.
func isAppFrame(function string) bool {
	for _, prefix := range []string{"runtime.", "testing.", "reflect."} {
		if strings.HasPrefix(function, prefix) {
			return false
		}
	}
	return true
}

// Recover captures an in-flight panic as a fatal event and returns the
// recovered value without re-panicking. Must be deferred directly, since
// recover only takes effect in the immediately deferred function:
//
//	defer faultline.Recover(tracker)
//
// To turn the panic into an error instead, recover yourself and hand the
// value to CapturePanic:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        tracker.CapturePanic(r)
//	        err = fmt.Errorf("panic: %v", r)
//	    }
//	}()
func Recover(t *Tracker) any {
	r := recover()
	if r == nil {
		return nil
	}
	t.CapturePanic(r)
	return r
}
