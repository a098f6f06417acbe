package vm

import (
	"bytes"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/table"
	"github.com/cosmolang/cosmo/internal/value"
)

// NewString interns b: an existing String with identical bytes is reused if
// the pool already holds one, otherwise a new object is allocated and
// registered (spec.md §3's interning contract; ported from
// cosmoT_lookupString+cosmoO_allocateString in ctable.c/cobj.c).
func (s *State) NewString(b []byte) *object.String {
	hash := value.HashBytes(b)

	if existing, ok := s.lookupInternedString(b, hash); ok {
		return existing
	}

	str := object.NewString(append([]byte(nil), b...))
	s.register(str)

	s.strings.Set(value.FromRef(str), value.Bool(true))

	return str
}

func (s *State) lookupInternedString(b []byte, hash uint32) (*object.String, bool) {
	match, ok := table.LookupString(s.strings, b, hash, func(k value.Value) bool {
		str, isStr := k.AsRef().(*object.String)

		return isStr && str.Hash() == hash && bytes.Equal(str.Bytes(), b)
	})
	if !ok {
		return nil, false
	}

	return match.AsRef().(*object.String), true
}

func (s *State) newObjRaw() *object.Obj {
	o := object.NewObj()
	s.register(o)

	return o
}

// NewObject allocates a fresh object whose prototype defaults to the VM's
// root prototype (spec.md §4.6).
func (s *State) NewObject() *object.Obj {
	o := s.newObjRaw()
	o.Proto = s.proto

	return o
}

// NewDict allocates an empty dict.
func (s *State) NewDict() *object.Dict {
	d := object.NewDict()
	s.register(d)

	return d
}

// NewFunction allocates an empty prototype for the compiler to populate.
func (s *State) NewFunction() *object.Function {
	f := object.NewFunction()
	s.register(f)

	return f
}

// NewClosure instantiates fn; the caller (OpClosure) populates Upvalues
// immediately after.
func (s *State) NewClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	s.register(c)

	return c
}

// NewCFunction wraps a host Go callback as a callable value.
func (s *State) NewCFunction(name string, fn object.CFunc) *object.CFunction {
	c := object.NewCFunction(name, fn)
	s.register(c)

	return c
}

// NewMethod binds recv to a callable field found via the prototype chain.
func (s *State) NewMethod(recv, fn value.Value) *object.Method {
	m := object.NewMethod(recv, fn)
	s.register(m)

	return m
}

// NewErr wraps payload with a trace snapshot of the current call stack.
func (s *State) NewErr(payload value.Value, parse bool) *object.Err {
	trace := s.captureTrace()
	e := object.NewErr(payload, trace, parse)
	s.register(e)

	return e
}

// captureTrace snapshots the active call frames, innermost first, in the
// "in <name>()" format spec.md §7 uses for objection traces.
func (s *State) captureTrace() []object.Frame {
	frames := make([]object.Frame, 0, s.frameTop)

	for i := s.frameTop - 1; i >= 0; i-- {
		f := &s.frames[i]

		if f.isCFunc {
			frames = append(frames, object.Frame{FuncName: f.cfunc.Name, Line: -1})

			continue
		}

		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(f.closure.Function.Chunk.Lines) {
			line = f.closure.Function.Chunk.Lines[f.ip-1]
		}

		frames = append(frames, object.Frame{FuncName: f.closure.Function.DisplayName(), Line: line})
	}

	return frames
}
