package object

import "github.com/cosmolang/cosmo/internal/value"

// Upvalue is either open (Val points into a live frame's stack slot) or
// closed (Val points at Closed, the upvalue's own inline storage). Multiple
// closures capturing the same local share one Upvalue instance so writes
// are observed by every peer (spec.md §3, §9).
type Upvalue struct {
	value.Header
	Val    *value.Value // while open: a stack slot; while closed: &Closed
	Closed value.Value
	Next   *Upvalue // next open upvalue, sorted descending by Slot
	Slot   int       // stack index Val points at; meaningless once closed
}

// NewUpvalue creates an open upvalue pointing at the given stack slot.
func NewUpvalue(slot *value.Value, index int) *Upvalue {
	u := &Upvalue{Header: value.NewHeader(value.RefUpvalue)}
	u.Val = slot
	u.Slot = index

	return u
}

// IsClosed reports whether the upvalue has migrated its storage inline.
func (u *Upvalue) IsClosed() bool {
	return u.Val == &u.Closed
}

// Close copies the pointed-to value inline and reroutes Val at itself, per
// spec.md §3's closing contract.
func (u *Upvalue) Close() {
	if u.IsClosed() {
		return
	}

	u.Closed = *u.Val
	u.Val = &u.Closed
}
