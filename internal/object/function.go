package object

import (
	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/value"
)

// Function is a compiled prototype: name/module (both optional), fixed
// argument count, upvalue count, a variadic flag (supplemented per
// SPEC_FULL.md §4 from the original's CObjFunction.variadic), and the
// compiled chunk. Immutable after compilation (spec.md §3).
type Function struct {
	value.Header
	Name     *String // chunk name at top level, "" for an anonymous function
	Module   *String // nil if no module name was given
	Arity    int
	Upvals   int
	Variadic bool
	Chunk    *chunk.Chunk

	// UpvalDescs pairs (kind, index) per captured upvalue, read by
	// OpClosure when instantiating a closure over this prototype.
	UpvalDescs []UpvalDesc
}

// UpvalDesc describes how CLOSURE should populate one upvalue slot.
type UpvalDesc struct {
	Kind  chunk.UpvalKind
	Index uint8
}

// NewFunction builds a detached, empty prototype. Populated incrementally by
// the compiler, then frozen once emitted as a CLOSURE constant.
func NewFunction() *Function {
	return &Function{Header: value.NewHeader(value.RefFunction), Chunk: chunk.New()}
}

func (f *Function) DisplayName() string {
	if f.Name == nil {
		return "<unnamed>"
	}

	return f.Name.String()
}
