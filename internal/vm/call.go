package vm

import (
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

// Call invokes fn (a closure, CFunction, or bound Method) with args and
// runs it to completion, returning its result values. This is both the
// embedding-API entry point (spec.md §6) and what the CALL/INVOKE opcodes
// fall through to.
func (s *State) Call(fn value.Value, args []value.Value) ([]value.Value, error) {
	if !fn.IsRef() {
		return nil, s.raise("attempt to call a %s value", value.TypeName(fn))
	}

	switch callee := fn.AsRef().(type) {
	case *object.Closure:
		return s.callClosure(callee, args)
	case *object.CFunction:
		return s.callCFunc(callee, args)
	case *object.Method:
		boundArgs := make([]value.Value, 0, len(args)+1)
		boundArgs = append(boundArgs, callee.Receiver)
		boundArgs = append(boundArgs, args...)

		return s.Call(callee.Func, boundArgs)
	default:
		return nil, s.raise("attempt to call a %s value", value.TypeName(fn))
	}
}

func (s *State) callClosure(cl *object.Closure, args []value.Value) ([]value.Value, error) {
	s.push(value.FromRef(cl))

	for _, a := range args {
		s.push(a)
	}

	targetDepth := s.frameTop

	if err := s.pushCallFrame(cl, len(args), -1); err != nil {
		s.top -= len(args) + 1

		return nil, s.raise("%s", err.Error())
	}

	result, err := s.run(targetDepth)
	if err != nil {
		return nil, err
	}

	return []value.Value{result}, nil
}

func (s *State) callCFunc(cf *object.CFunction, args []value.Value) ([]value.Value, error) {
	s.push(value.FromRef(cf))
	frameDepth := s.frameTop
	s.frames[frameDepth] = frame{isCFunc: true, cfunc: cf}
	s.frameTop++

	s.FreezeGC()
	results, err := cf.Fn(args)
	s.UnfreezeGC()

	s.frameTop--
	s.pop()

	if err != nil {
		return nil, s.raise("%s", err.Error())
	}

	return results, nil
}
