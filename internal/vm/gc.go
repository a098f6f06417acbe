package vm

import (
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/table"
	"github.com/cosmolang/cosmo/internal/value"
)

// objSize gives every heap object a nominal byte cost for GC-threshold
// accounting; cmem.c tracks actual realloc sizes, but Go's allocator
// doesn't expose that, so a per-kind estimate stands in (ported in spirit,
// not byte-for-byte, from cosmoM_reallocate's bookkeeping).
func objSize(r value.Ref) int {
	switch o := r.(type) {
	case *object.String:
		return 32 + o.Len()
	case *object.Function:
		return 96
	case *object.Closure:
		return 32 + 8*len(o.Upvalues)
	case *object.Upvalue:
		return 32
	case *object.Obj:
		return 64
	case *object.Dict:
		return 48
	case *object.CFunction:
		return 32
	case *object.Method:
		return 24
	case *object.Err:
		return 32 + 16*len(o.Trace)
	default:
		return 16
	}
}

// register links obj onto the allocation list and accounts for its size,
// running a collection first if the threshold is exceeded or stress mode
// is on (cosmoM_reallocate's allocate path in cmem.c).
func (s *State) register(obj value.Ref) {
	size := objSize(obj)

	if s.freezeGC == 0 && (s.stressGC || s.allocatedBytes+size > s.nextGC) {
		s.collectGarbage()
	}

	h := value.HeaderFor(obj)
	h.Next = s.allocList
	s.allocList = obj

	s.allocatedBytes += size
}

// CheckGarbage implements table.GCHook: package table calls this before
// growing a table's backing array, mirroring resizeTbl's
// cosmoM_checkGarbage call in the reference allocator.
func (s *State) CheckGarbage(needed int) {
	if s.freezeGC == 0 && (s.stressGC || s.allocatedBytes+needed > s.nextGC) {
		s.collectGarbage()
	}
}

// FreezeGC prevents collection for the duration of a C-function call, so a
// host callback can build up intermediate values off-stack without them
// being swept (spec.md §6's embedding contract; ported from cvm.c's
// freeze/unfreeze pair around CFunction invocation).
func (s *State) FreezeGC() { s.freezeGC++ }

// UnfreezeGC reverses FreezeGC.
func (s *State) UnfreezeGC() {
	if s.freezeGC > 0 {
		s.freezeGC--
	}
}

// AddRoot pins obj so it survives collection regardless of stack/global
// reachability, until RemoveRoot is called (spec.md §6).
func (s *State) AddRoot(obj value.Ref) {
	h := value.HeaderFor(obj)
	if h.NextRoot != nil || s.userRoots == obj {
		return
	}

	h.NextRoot = s.userRoots
	s.userRoots = obj
}

// RemoveRoot unpins obj.
func (s *State) RemoveRoot(obj value.Ref) {
	if s.userRoots == obj {
		s.userRoots = value.HeaderFor(obj).NextRoot
		value.HeaderFor(obj).NextRoot = nil

		return
	}

	for cur := s.userRoots; cur != nil; cur = value.HeaderFor(cur).NextRoot {
		next := value.HeaderFor(cur).NextRoot
		if next == obj {
			value.HeaderFor(cur).NextRoot = value.HeaderFor(obj).NextRoot
			value.HeaderFor(obj).NextRoot = nil

			return
		}
	}
}

func (s *State) markObject(r value.Ref) {
	if r == nil {
		return
	}

	h := value.HeaderFor(r)
	if h.Marked {
		return
	}

	h.Marked = true
	s.gray = append(s.gray, r)
}

func (s *State) markValue(v value.Value) {
	if v.IsRef() {
		s.markObject(v.AsRef())
	}
}

func (s *State) markTable(t *table.Table) {
	t.Each(func(k, v value.Value) {
		s.markValue(k)
		s.markValue(v)
	})
}

// blackenObject marks everything directly reachable from obj, per
// blackenObject in cmem.c's per-kind switch.
func (s *State) blackenObject(r value.Ref) {
	switch o := r.(type) {
	case *object.String:
		// no outgoing references
	case *object.Function:
		if o.Name != nil {
			s.markObject(o.Name)
		}

		if o.Module != nil {
			s.markObject(o.Module)
		}

		for _, c := range o.Chunk.Constants {
			s.markValue(c)
		}
	case *object.Closure:
		s.markObject(o.Function)

		for _, u := range o.Upvalues {
			if u != nil {
				s.markObject(u)
			}
		}
	case *object.Upvalue:
		if o.IsClosed() {
			s.markValue(o.Closed)
		} else {
			s.markValue(*o.Val)
		}
	case *object.Obj:
		s.markTable(o.Fields)

		if o.Proto != nil {
			s.markObject(o.Proto)
		}
	case *object.Dict:
		s.markTable(o.Fields)
	case *object.CFunction:
		// no outgoing references
	case *object.Method:
		s.markValue(o.Receiver)
		s.markValue(o.Func)
	case *object.Err:
		s.markValue(o.Payload)
	}
}

func (s *State) markRoots() {
	for i := 0; i < s.top; i++ {
		s.markValue(s.stack[i])
	}

	for i := 0; i < s.frameTop; i++ {
		f := &s.frames[i]
		if f.closure != nil {
			s.markObject(f.closure)
		}

		if f.cfunc != nil {
			s.markObject(f.cfunc)
		}
	}

	s.markTable(s.globals)

	for u := s.openUpvals; u != nil; u = u.Next {
		s.markObject(u)
	}

	if s.proto != nil {
		s.markObject(s.proto)
	}

	for r := s.userRoots; r != nil; r = value.HeaderFor(r).NextRoot {
		s.markObject(r)
	}

	for _, k := range s.internKeys.strs {
		if k != nil {
			s.markObject(k)
		}
	}
}

func (s *State) traceGrays() {
	for len(s.gray) > 0 {
		n := len(s.gray) - 1
		obj := s.gray[n]
		s.gray = s.gray[:n]

		s.blackenObject(obj)
	}
}

// tableRemoveWhite deletes any intern-pool entry whose string is about to
// be swept, so the pool never holds a dangling reference (cmem.c's
// tableRemoveWhite, run on the intern table specifically before sweep).
func (s *State) tableRemoveWhite() {
	var dead []value.Value

	s.strings.Each(func(k, _ value.Value) {
		if k.IsRef() && !value.HeaderFor(k.AsRef()).Marked {
			dead = append(dead, k)
		}
	})

	for _, k := range dead {
		s.strings.Remove(k)
	}

	s.strings.CheckShrink()
}

func (s *State) sweep() {
	var prev value.Ref
	cur := s.allocList

	for cur != nil {
		h := value.HeaderFor(cur)
		next := h.Next

		if h.Marked {
			h.Marked = false
			prev = cur
		} else {
			if prev == nil {
				s.allocList = next
			} else {
				value.HeaderFor(prev).Next = next
			}

			s.allocatedBytes -= objSize(cur)
		}

		cur = next
	}
}

func (s *State) collectGarbage() {
	s.debugf("gc: begin, %d bytes allocated\n", s.allocatedBytes)

	s.markRoots()
	s.traceGrays()
	s.tableRemoveWhite()
	s.sweep()

	s.nextGC = s.allocatedBytes * gcGrowFactor
	if s.nextGC < gcInitialThreshold {
		s.nextGC = gcInitialThreshold
	}

	s.debugf("gc: end, %d bytes allocated, next at %d\n", s.allocatedBytes, s.nextGC)
}

// CollectGarbage runs an immediate, synchronous collection cycle. Exposed
// for embedders and tests (spec.md §6, §8).
func (s *State) CollectGarbage() { s.collectGarbage() }
