// Package vm implements Cosmo's allocator/collector, call stack, field
// protocol, and bytecode interpreter (spec.md §4, §5, §7), grounded on the
// reference implementation's cmem.c/cvm.c.
package vm

import (
	"fmt"
	"io"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/table"
	"github.com/cosmolang/cosmo/internal/value"
)

const (
	// FrameMax bounds call nesting depth (spec.md §4.3).
	FrameMax = 256
	// StackMax is the fixed value-stack size backing every frame's locals
	// and temporaries.
	StackMax = FrameMax * 64

	// gcGrowFactor is the multiplier cmem.c applies to the live-byte count
	// to compute the next collection threshold.
	gcGrowFactor = 2
	// gcInitialThreshold is the byte count that must be allocated before
	// the very first collection is even considered.
	gcInitialThreshold = 1 << 20
)

// frame is one call-stack entry: the executing closure, its base slot in
// the shared value stack, and the bytecode return address (spec.md §4.3).
type frame struct {
	closure *object.Closure
	base    int
	ip      int
	// isCFunc frames are synthetic: used only so C-function calls appear in
	// stack traces without needing a bytecode closure.
	isCFunc bool
	cfunc   *object.CFunction
	// wantResults is the result count CALL/INVOKE recorded when pushing this
	// frame (spec.md line 120); RETURN pads with nil or truncates to match
	// it before resuming the caller. -1 means "keep everything produced",
	// used for the embedding API's top-level Call.
	wantResults int
}

// State is one Cosmo VM instance: its value stack, call frames, globals,
// string intern pool, GC bookkeeping, and open-upvalue chain. Nothing here
// is safe for concurrent use from multiple goroutines (spec.md §9).
type State struct {
	stack    [StackMax]value.Value
	top      int
	frames   [FrameMax]frame
	frameTop int

	globals *table.Table
	strings *table.Table

	// openUpvals is sorted descending by the stack index each upvalue
	// currently points into, mirroring the reference's singly linked list
	// ordered by address.
	openUpvals *object.Upvalue

	// allocList threads every heap object ever allocated by this State, for
	// the sweep phase to walk.
	allocList value.Ref
	// userRoots threads objects explicitly pinned via AddRoot, independent
	// of reachability from the stack/globals/open-upvalues.
	userRoots value.Ref

	allocatedBytes int
	nextGC         int
	freezeGC       int
	gray           []value.Ref
	stressGC       bool

	// proto is the root object new objects without an explicit prototype
	// fall back to. The base library registers its functions as globals,
	// not as fields of this object.
	proto *object.Obj

	// Debug, when non-nil, receives a line of GC/trace diagnostics per
	// event (spec.md's ambient logging requirement; grounded on the
	// teacher's io.Writer-based block/out, errOut command plumbing).
	Debug io.Writer

	panicked bool
	panicVal value.Value

	internKeys internalKeys
}

// New returns a freshly initialized State with empty globals/intern pool
// and a bare root prototype object.
func New() *State {
	s := &State{
		globals: table.New(),
		strings: table.New(),
		nextGC:  gcInitialThreshold,
	}

	s.globals.SetGCHook(s)
	s.strings.SetGCHook(s)

	s.proto = s.newObjRaw()

	return s
}

// SetStressGC forces a collection before every allocation, used by tests
// that want to exercise the collector deterministically (spec.md §8).
func (s *State) SetStressGC(v bool) { s.stressGC = v }

// RootProto returns the base prototype object every new object without an
// explicit Proto link inherits from.
func (s *State) RootProto() *object.Obj { return s.proto }

// Globals returns the VM's global variable table, for embedders and the
// stdlib package to register host functions into (spec.md §6).
func (s *State) Globals() *table.Table { return s.globals }

func (s *State) debugf(format string, args ...any) {
	if s.Debug == nil {
		return
	}

	fmt.Fprintf(s.Debug, format, args...)
}
