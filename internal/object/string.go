package object

import (
	"bytes"

	"github.com/cosmolang/cosmo/internal/value"
)

// String is an immutable byte sequence with a cached length and hash.
// Strings are opaque byte arrays (spec.md §1's Non-goals exclude
// Unicode-aware operations); identity after interning is what equality and
// hashing rely on.
type String struct {
	value.Header
	bytes      []byte
	hash       uint32
	isInternal bool
}

// InternalName enumerates the well-known protocol keys from spec.md §3 that
// get a per-object miss-bit in Obj's istring cache.
type InternalName uint8

const (
	IStringInit InternalName = iota
	IStringToString
	IStringIndex
	IStringNewIndex
	IStringGetter
	IStringSetter
	IStringIter
	IStringNext
	IStringReserved
	istringCount
)

// InternalNames lists the literal spelling of each well-known name, in the
// order IStringInit..IStringReserved, so the string interner can flag them
// as they're created.
var InternalNames = [istringCount]string{
	IStringInit:     "__init",
	IStringToString: "__tostring",
	IStringIndex:    "__index",
	IStringNewIndex: "__newindex",
	IStringGetter:   "__getter",
	IStringSetter:   "__setter",
	IStringIter:     "__iter",
	IStringNext:     "__next",
	IStringReserved: "__reserved",
}

// NewString builds a detached string object. Callers outside package object
// go through vm.State.NewString so the object is registered on the
// allocation list and interned before any further allocation can trigger a
// GC cycle that would see it as unreachable.
func NewString(b []byte) *String {
	s := &String{Header: value.NewHeader(value.RefString)}
	s.bytes = b
	s.hash = value.HashBytes(b)
	s.isInternal = isWellKnown(b)

	return s
}

func isWellKnown(b []byte) bool {
	for _, name := range InternalNames {
		if string(b) == name {
			return true
		}
	}

	return false
}

func (s *String) Bytes() []byte    { return s.bytes }
func (s *String) Len() int         { return len(s.bytes) }
func (s *String) Hash() uint32     { return s.hash }
func (s *String) IsInternal() bool { return s.isInternal }
func (s *String) String() string   { return string(s.bytes) }

// Equal reports whether two strings hold identical bytes. The intern pool
// uses this only at insertion time (to find an existing instance); once
// interned, string equality elsewhere in the VM is pointer identity, per
// spec.md §3.
func (s *String) Equal(other *String) bool {
	return bytes.Equal(s.bytes, other.bytes)
}
