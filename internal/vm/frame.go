package vm

import (
	"fmt"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

func (s *State) push(v value.Value) {
	s.stack[s.top] = v
	s.top++
}

func (s *State) pop() value.Value {
	s.top--

	return s.stack[s.top]
}

func (s *State) peek(dist int) value.Value {
	return s.stack[s.top-1-dist]
}

// captureUpvalue returns an existing open upvalue pointing at slot if one
// is already on the chain, otherwise inserts a new one in descending-Slot
// order (spec.md §9, ported from cvm.c's captureUpvalue).
func (s *State) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue

	cur := s.openUpvals
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.Next
	}

	if cur != nil && cur.Slot == slot {
		return cur
	}

	created := s.NewUpvalueAt(slot)
	created.Next = cur

	if prev == nil {
		s.openUpvals = created
	} else {
		prev.Next = created
	}

	return created
}

// NewUpvalueAt allocates and registers an open upvalue over the stack slot
// at index slot.
func (s *State) NewUpvalueAt(slot int) *object.Upvalue {
	u := object.NewUpvalue(&s.stack[slot], slot)
	s.register(u)

	return u
}

// closeUpvalues closes every open upvalue whose Slot is >= from, copying
// each one's value inline and unlinking it from the open chain (ported from
// cvm.c's closeUpvalues).
func (s *State) closeUpvalues(from int) {
	for s.openUpvals != nil && s.openUpvals.Slot >= from {
		u := s.openUpvals
		u.Close()
		s.openUpvals = u.Next
		u.Next = nil
	}
}

// pushCallFrame pushes a bytecode frame for cl over the argc arguments
// already sitting on the stack, recording wantResults so RETURN knows how
// many values this call site expects back (spec.md line 120; -1 means no
// padding/truncation, used for the embedding API's top-level Call).
func (s *State) pushCallFrame(cl *object.Closure, argc, wantResults int) error {
	if s.frameTop == FrameMax {
		return fmt.Errorf("stack overflow")
	}

	fn := cl.Function
	base := s.top - argc - 1

	if !fn.Variadic && argc != fn.Arity {
		return fmt.Errorf("expected %d arguments, got %d", fn.Arity, argc)
	}

	if fn.Variadic && argc < fn.Arity {
		return fmt.Errorf("expected at least %d arguments, got %d", fn.Arity, argc)
	}

	s.frames[s.frameTop] = frame{closure: cl, base: base, ip: 0, wantResults: wantResults}
	s.frameTop++

	return nil
}

func (s *State) popCallFrame() frame {
	s.frameTop--
	f := s.frames[s.frameTop]
	s.closeUpvalues(f.base)
	s.top = f.base

	return f
}

func (s *State) currentFrame() *frame {
	return &s.frames[s.frameTop-1]
}
