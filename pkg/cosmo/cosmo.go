// Package cosmo is the public embedding surface over internal/vm,
// internal/compiler, and internal/dump (spec.md §6): the stable API a host
// Go program or cmd/cosmo links against.
package cosmo

import (
	"errors"
	"io"

	"github.com/cosmolang/cosmo/internal/compiler"
	"github.com/cosmolang/cosmo/internal/dump"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/stdlib"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

// Value re-exports the VM's tagged value type so embedders never need to
// import an internal package directly.
type Value = value.Value

// State wraps a vm.State with the host-facing operations spec.md §6 names:
// push/pop, call/pcall, register, compile, dump/undump, add/remove root.
type State struct {
	vm *vm.State
}

// New returns a freshly initialized VM.
func New() *State {
	return &State{vm: vm.New()}
}

// SetDebug wires a diagnostics sink for GC tracing (nil disables it).
func (s *State) SetDebug(w io.Writer) { s.vm.Debug = w }

// RegisterStdlib installs the base library (print, tostring, type, clock,
// input, setproto, getproto) as globals, writing output to stdout and
// reading `input()` from stdin.
func (s *State) RegisterStdlib(stdout io.Writer, stdin io.Reader) {
	stdlib.Register(s.vm, stdout, stdin)
}

// SetStressGC forces a collection before every allocation (spec.md §8's
// GC-exercising test mode).
func (s *State) SetStressGC(v bool) { s.vm.SetStressGC(v) }

// CollectGarbage runs an immediate collection cycle.
func (s *State) CollectGarbage() { s.vm.CollectGarbage() }

// NewString interns a host byte slice as a Cosmo string value.
func (s *State) NewString(b []byte) Value { return value.FromRef(s.vm.NewString(b)) }

// Number constructs a numeric value.
func (s *State) Number(n float64) Value { return value.Number(n) }

// Bool constructs a boolean value.
func (s *State) Bool(b bool) Value { return value.Bool(b) }

// Nil is the nil value.
func (s *State) Nil() Value { return value.Nil }

// NewObject allocates an object rooted at the VM's base prototype.
func (s *State) NewObject() Value { return value.FromRef(s.vm.NewObject()) }

// NewDict allocates an empty dict.
func (s *State) NewDict() Value { return value.FromRef(s.vm.NewDict()) }

// Register installs a host Go function as a global callable under name
// (spec.md §6's `register`).
func (s *State) Register(name string, fn func(args []Value) ([]Value, error)) {
	cf := s.vm.NewCFunction(name, object.CFunc(fn))
	s.vm.Globals().Set(value.FromRef(s.vm.NewString([]byte(name))), value.FromRef(cf))
}

// AddRoot pins v so it survives collection regardless of reachability.
func (s *State) AddRoot(v Value) {
	if v.IsRef() {
		s.vm.AddRoot(v.AsRef())
	}
}

// RemoveRoot unpins v.
func (s *State) RemoveRoot(v Value) {
	if v.IsRef() {
		s.vm.RemoveRoot(v.AsRef())
	}
}

// Call invokes fn with args and returns its results.
func (s *State) Call(fn Value, args []Value) ([]Value, error) {
	return s.vm.Call(fn, args)
}

// Pcall is Call with a recovered error instead of leaving the VM
// half-unwound (spec.md §7's protected-call contract).
func (s *State) Pcall(fn Value, args []Value) ([]Value, error) {
	return s.vm.Pcall(fn, args)
}

// CompileString compiles source (attributed to chunkName in error
// messages) into a callable closure.
func (s *State) CompileString(source, chunkName string) (Value, error) {
	fn, err := compiler.Compile(s.vm, source, chunkName)
	if err != nil {
		return value.Nil, err
	}

	cl := s.vm.NewClosure(fn)

	return value.FromRef(cl), nil
}

// Dump serializes a compiled function value (as returned by CompileString)
// to w.
func (s *State) Dump(w io.Writer, fn Value) error {
	proto, err := functionOf(fn)
	if err != nil {
		return err
	}

	return dump.Dump(w, proto)
}

// Undump reads a prototype previously written by Dump and wraps it in a
// fresh closure ready to Call.
func (s *State) Undump(r io.Reader) (Value, error) {
	fn, err := dump.Undump(r, s.vm.NewString)
	if err != nil {
		return value.Nil, err
	}

	cl := s.vm.NewClosure(fn)

	return value.FromRef(cl), nil
}

func functionOf(v Value) (*object.Function, error) {
	if fn, ok := v.AsRef().(*object.Function); ok {
		return fn, nil
	}

	if cl, ok := v.AsRef().(*object.Closure); ok {
		return cl.Function, nil
	}

	return nil, errNotAFunction
}

var errNotAFunction = errors.New("cosmo: value is not a function or closure")
