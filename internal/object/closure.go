package object

import "github.com/cosmolang/cosmo/internal/value"

// Closure binds a Function prototype to its captured upvalues. The upvalue
// slice has exactly prototype.Upvals entries (spec.md §3).
type Closure struct {
	value.Header
	Function *Function
	Upvalues []*Upvalue
}

// NewClosure allocates a closure over fn with an empty (not-yet-populated)
// upvalue array of the right length; OpClosure fills it in immediately
// after allocation.
func NewClosure(fn *Function) *Closure {
	c := &Closure{Header: value.NewHeader(value.RefClosure), Function: fn}
	c.Upvalues = make([]*Upvalue, fn.Upvals)

	return c
}
