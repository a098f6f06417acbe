package vm

import (
	"fmt"
	"strings"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

// RuntimeError wraps a raised Objection so Go callers can inspect the
// payload and trace without reaching back into the State (spec.md §7).
type RuntimeError struct {
	Err *object.Err
}

func (e *RuntimeError) Error() string {
	var b strings.Builder

	if e.Err.Parse {
		b.WriteString("parse error: ")
	} else {
		b.WriteString("Objection: ")
	}

	b.WriteString(e.Err.Payload.String())

	innermost := true

	for _, fr := range e.Err.Trace {
		switch {
		case fr.Line < 0:
			fmt.Fprintf(&b, "\n\tin %s()", fr.FuncName)
		case innermost:
			fmt.Fprintf(&b, "\n\tObjection on [line %d] in %s()", fr.Line, fr.FuncName)
			innermost = false
		default:
			fmt.Fprintf(&b, "\n[line %d] in %s()", fr.Line, fr.FuncName)
		}
	}

	return b.String()
}

// raise builds an Err from msg, captures the current trace, and returns it
// as a Go error; the interpreter loop propagates it up to the nearest
// pcall boundary or to the Call caller (ported from cvm.c's runtimeError).
func (s *State) raise(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	payload := value.FromRef(s.NewString([]byte(msg)))
	e := s.NewErr(payload, false)

	return &RuntimeError{Err: e}
}

// RaiseValue lets host code or a future `raise` builtin throw an arbitrary
// value instead of a formatted string message.
func (s *State) RaiseValue(payload value.Value) error {
	e := s.NewErr(payload, false)

	return &RuntimeError{Err: e}
}

// Pcall invokes fn with args, turning any RuntimeError into a returned
// error instead of leaving the VM in a half-unwound state, mirroring
// spec.md §7's protected-call contract. The value stack and frame depth
// are restored to their pre-call state on failure.
func (s *State) Pcall(fn value.Value, args []value.Value) ([]value.Value, error) {
	savedTop := s.top
	savedFrames := s.frameTop

	results, err := s.Call(fn, args)
	if err != nil {
		s.top = savedTop
		s.frameTop = savedFrames

		return nil, err
	}

	return results, nil
}
