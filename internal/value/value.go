// Package value implements Cosmo's tagged value model: the four-way sum over
// nil, boolean, number, and heap reference that every opcode pushes and pops.
package value

import "fmt"

// Type identifies which variant a Value holds.
type Type uint8

const (
	TypeNil Type = iota
	TypeBoolean
	TypeNumber
	TypeRef
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeRef:
		return "object"
	default:
		return "unknown"
	}
}

// Ref is implemented by every heap object. It is the seam that lets package
// value hold a reference without importing package object (which in turn
// needs Value for table entries, constant pools, etc.). Every concrete
// object embeds Header by value, which supplies both methods by promotion.
type Ref interface {
	// Kind reports the concrete heap-object type.
	Kind() RefKind
	header() *Header
}

// RefKind enumerates the heap object variants from spec.md §3.
type RefKind uint8

const (
	RefString RefKind = iota
	RefFunction
	RefClosure
	RefUpvalue
	RefObject
	RefDict
	RefCFunction
	RefMethod
	RefError
)

func (k RefKind) String() string {
	switch k {
	case RefString:
		return "string"
	case RefFunction:
		return "function"
	case RefClosure:
		return "closure"
	case RefUpvalue:
		return "upvalue"
	case RefObject:
		return "object"
	case RefDict:
		return "dict"
	case RefCFunction:
		return "cfunction"
	case RefMethod:
		return "method"
	case RefError:
		return "error"
	default:
		return "unknown"
	}
}

// Header is the common heap-object header from spec.md §3: type tag, mark
// bit, and the two intrusive list pointers (allocation list, user-root list).
// Every concrete object in package object embeds a Header by value; Header's
// own methods are promoted, so embedding alone satisfies Ref.
type Header struct {
	kind     RefKind
	Marked   bool
	Next     Ref // next object on the VM-wide allocation list
	NextRoot Ref // next object on the user-root list (nil if not rooted)
}

// NewHeader constructs a Header tagged with the given kind. Call this from
// every concrete object's constructor in package object.
func NewHeader(kind RefKind) Header { return Header{kind: kind} }

func (h *Header) header() *Header { return h }
func (h *Header) Kind() RefKind    { return h.kind }

// HeaderFor exposes the unexported header() accessor to other packages
// (package vm's GC walks Next/NextRoot/Marked directly). It exists so
// Header's fields don't have to be duplicated behind a parallel exported
// accessor method per field.
func HeaderFor(r Ref) *Header { return r.header() }

// Value is the tagged sum. Two encodings satisfy spec.md §3 ("a discriminated
// record, or a NaN-boxed 64-bit word"); this implementation uses the
// discriminated record because it keeps every operation expressed against
// the typeof/read interface spec.md §9 requires, without depending on
// unsafe pointer tagging tied to one architecture's float representation.
type Value struct {
	typ Type
	num float64
	b   bool
	ref Ref
}

// Nil is the canonical nil value.
var Nil = Value{typ: TypeNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// Number constructs a number value.
func Number(n float64) Value { return Value{typ: TypeNumber, num: n} }

// FromRef constructs a reference value.
func FromRef(r Ref) Value { return Value{typ: TypeRef, ref: r} }

// True and False are the two boolean singletons, for callers that want to
// avoid re-deriving them.
var (
	True  = Bool(true)
	False = Bool(false)
)

func (v Value) Type() Type { return v.typ }
func (v Value) IsNil() bool  { return v.typ == TypeNil }
func (v Value) IsBool() bool { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool { return v.typ == TypeNumber }
func (v Value) IsRef() bool  { return v.typ == TypeRef }

// IsRefKind reports whether v is a reference of the given kind.
func (v Value) IsRefKind(k RefKind) bool {
	return v.typ == TypeRef && v.ref.Kind() == k
}

func (v Value) AsBool() bool     { return v.b }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsRef() Ref       { return v.ref }

// Falsey implements spec.md §4.4's jump contract: "falsey = nil or boolean
// false".
func (v Value) Falsey() bool {
	return v.typ == TypeNil || (v.typ == TypeBoolean && !v.b)
}

// Equal implements spec.md §3's equality rule: nil=nil; booleans by value;
// numbers by IEEE `==` (so NaN != NaN); references by object-type-specific
// rule, delegated to the Ref implementation via refEqual.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}

	switch a.typ {
	case TypeNil:
		return true
	case TypeBoolean:
		return a.b == b.b
	case TypeNumber:
		return a.num == b.num
	case TypeRef:
		return refEqual(a.ref, b.ref)
	default:
		return false
	}
}

// refEqual is overridden indirectly through RefKind-specific comparisons:
// strings compare by pointer identity (true post-interning, per spec.md §3),
// as does every other heap object including C-functions (compared by the
// identity of their wrapping CObjCFunction, which is itself unique per
// registration).
func refEqual(a, b Ref) bool {
	return a == b
}

// TypeName returns the user-facing type name used in error messages and by
// the `type()` builtin.
func TypeName(v Value) string {
	if v.typ == TypeRef {
		return v.ref.Kind().String()
	}

	return v.typ.String()
}

func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		if v.b {
			return "true"
		}

		return "false"
	case TypeNumber:
		return formatNumber(v.num)
	case TypeRef:
		if v.ref.Kind() == RefString {
			if s, ok := v.ref.(fmt.Stringer); ok {
				return s.String()
			}
		}

		return fmt.Sprintf("<%s>", v.ref.Kind())
	default:
		return "<invalid>"
	}
}

func formatNumber(n float64) string {
	return fmt.Sprintf("%g", n)
}
