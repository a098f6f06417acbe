package object

import (
	"github.com/cosmolang/cosmo/internal/table"
	"github.com/cosmolang/cosmo/internal/value"
)

// Obj is a prototype object: a field table plus an optional prototype link
// walked by the field-get protocol (spec.md §4.6). IstringMiss caches which
// of the well-known internal method names (__getter, __setter, __iter,
// __next, __tostring, ...) this object's prototype chain is already known
// to lack, so repeated failed lookups (the common case) skip the chain walk
// entirely (ported from CObjObject.istringFlags in cobj.h).
type Obj struct {
	value.Header
	Fields       *table.Table
	Proto        *Obj
	IstringMiss  uint32
	UserData     any
}

// NewObj allocates an empty object with no prototype.
func NewObj() *Obj {
	return &Obj{Header: value.NewHeader(value.RefObject), Fields: table.New()}
}

// HasMiss reports whether name is cached as absent from this object's own
// chain (so the caller can skip straight to the default behavior).
func (o *Obj) HasMiss(name InternalName) bool {
	return o.IstringMiss&(1<<uint(name)) != 0
}

// SetMiss records that name was not found anywhere in the prototype chain.
func (o *Obj) SetMiss(name InternalName) {
	o.IstringMiss |= 1 << uint(name)
}

// ClearMiss invalidates the miss cache for name, used whenever a field
// assignment could have introduced a previously-missing internal method.
func (o *Obj) ClearMiss(name InternalName) {
	o.IstringMiss &^= 1 << uint(name)
}

// Dict is a plain hash map with no prototype chain and no internal-method
// protocol: indexing a Dict always goes straight to its table (spec.md §3,
// ported from CObjDict in cobj.h).
type Dict struct {
	value.Header
	Fields *table.Table
}

// NewDict allocates an empty dict.
func NewDict() *Dict {
	return &Dict{Header: value.NewHeader(value.RefDict), Fields: table.New()}
}

// CFunc is the Go-side signature for a host-provided function value,
// mirroring CObjCFunction's thin wrapper around a C function pointer.
// Arguments and the return value travel as a slice for simplicity; the vm
// package's call protocol maps these onto the value stack.
type CFunc func(args []value.Value) ([]value.Value, error)

// CFunction wraps a host Go function so it can be stored as a first-class
// Cosmo value and invoked via CALL like any closure.
type CFunction struct {
	value.Header
	Name string
	Fn   CFunc
}

// NewCFunction wraps fn under name (used only for error traces).
func NewCFunction(name string, fn CFunc) *CFunction {
	return &CFunction{Header: value.NewHeader(value.RefCFunction), Name: name, Fn: fn}
}

// Method is a bound method: a receiver object plus the function or
// CFunction found on it, produced when GETOBJECT resolves a field to a
// callable inherited from a prototype (spec.md §4.6, cobj.h's CObjMethod).
type Method struct {
	value.Header
	Receiver value.Value
	Func     value.Value
}

// NewMethod binds recv to fn.
func NewMethod(recv, fn value.Value) *Method {
	return &Method{Header: value.NewHeader(value.RefMethod), Receiver: recv, Func: fn}
}

// Err is the payload carried by a raised Objection (spec.md §7): the
// thrown value, a snapshot of the call-stack trace taken at raise time (so
// it survives stack unwinding during pcall recovery), and whether the
// objection originated from the parser/compiler rather than from running
// bytecode.
type Err struct {
	value.Header
	Payload value.Value
	Trace   []Frame
	Parse   bool
}

// Frame is one line of a captured stack trace.
type Frame struct {
	FuncName string
	Line     int
}

// NewErr wraps payload with trace, a snapshot taken by the vm package at
// the moment the objection was raised.
func NewErr(payload value.Value, trace []Frame, parse bool) *Err {
	return &Err{Header: value.NewHeader(value.RefError), Payload: payload, Trace: trace, Parse: parse}
}
