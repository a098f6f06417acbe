package vm

import (
	"fmt"
	"math"

	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

func arith(op chunk.Op, a, b value.Value) (value.Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Nil, fmt.Errorf("attempt to perform arithmetic on a %s value", value.TypeName(mismatched(a, b)))
	}

	x, y := a.AsNumber(), b.AsNumber()

	switch op {
	case chunk.OpAdd:
		return value.Number(x + y), nil
	case chunk.OpSub:
		return value.Number(x - y), nil
	case chunk.OpMult:
		return value.Number(x * y), nil
	case chunk.OpDiv:
		return value.Number(x / y), nil
	case chunk.OpMod:
		return value.Number(math.Mod(x, y)), nil
	default:
		return value.Nil, fmt.Errorf("not an arithmetic opcode: %s", op)
	}
}

func mismatched(a, b value.Value) value.Value {
	if !a.IsNumber() {
		return a
	}

	return b
}

func compare(op chunk.Op, a, b value.Value) (value.Value, error) {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsNumber(), b.AsNumber()

		switch op {
		case chunk.OpLess:
			return value.Bool(x < y), nil
		case chunk.OpGreater:
			return value.Bool(x > y), nil
		case chunk.OpLessEqual:
			return value.Bool(x <= y), nil
		case chunk.OpGreaterEqual:
			return value.Bool(x >= y), nil
		}
	}

	sa, aok := a.AsRef().(*object.String)
	sb, bok := b.AsRef().(*object.String)

	if a.IsRef() && b.IsRef() && aok && bok {
		cmp := compareBytes(sa.Bytes(), sb.Bytes())

		switch op {
		case chunk.OpLess:
			return value.Bool(cmp < 0), nil
		case chunk.OpGreater:
			return value.Bool(cmp > 0), nil
		case chunk.OpLessEqual:
			return value.Bool(cmp <= 0), nil
		case chunk.OpGreaterEqual:
			return value.Bool(cmp >= 0), nil
		}
	}

	return value.Nil, fmt.Errorf("attempt to compare %s with %s", value.TypeName(a), value.TypeName(b))
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}

	return len(a) - len(b)
}

func count(v value.Value) (int, error) {
	if !v.IsRef() {
		return 0, fmt.Errorf("attempt to count a %s value", value.TypeName(v))
	}

	switch o := v.AsRef().(type) {
	case *object.String:
		return o.Len(), nil
	case *object.Dict:
		return o.Fields.Count(), nil
	case *object.Obj:
		return o.Fields.Count(), nil
	default:
		return 0, fmt.Errorf("attempt to count a %s value", value.TypeName(v))
	}
}

// displayBytes renders v the way CONCAT and tostring() do: strings pass
// through their own bytes, everything else uses Value.String().
func displayBytes(v value.Value) []byte {
	if v.IsRef() {
		if str, ok := v.AsRef().(*object.String); ok {
			return append([]byte(nil), str.Bytes()...)
		}
	}

	return []byte(v.String())
}

// Iter implements spec.md §4.6's ITER: it resolves the bound "produce the
// next item, or nil when exhausted" callable for iterable. An Obj with an
// explicit __iter field is asked to build its own iterator and __next is
// bound off of whatever it returns (a prototype-chain method dispatch,
// same as any other call); a Dict or a bare Obj with no __iter falls back
// to a native snapshot enumerator taken over its field table.
func (s *State) Iter(iterable value.Value) (value.Value, error) {
	if obj, ok := iterable.AsRef().(*object.Obj); ok && iterable.IsRef() {
		if iterFn, found := s.lookupChain(obj, s.internal(object.IStringIter)); found {
			results, err := s.Call(iterFn, []value.Value{iterable})
			if err != nil {
				return value.Nil, err
			}

			cursor := iterable
			if len(results) > 0 {
				cursor = results[0]
			}

			cursorObj, ok := cursor.AsRef().(*object.Obj)
			if !ok {
				return value.Nil, fmt.Errorf("__iter must return an object")
			}

			nextFn, found := s.lookupChain(cursorObj, s.internal(object.IStringNext))
			if !found {
				return value.Nil, fmt.Errorf("iterator has no __next method")
			}

			return value.FromRef(s.NewMethod(cursor, nextFn)), nil
		}
	}

	return s.nativeEnumerator(iterable)
}

// nativeEnumerator builds a closure-backed "next" callable over a snapshot
// of the values of a Dict (or of an Obj whose chain has no __iter), giving
// for-in a sensible default over raw key/value containers without requiring
// every dict literal to define __iter/__next by hand.
func (s *State) nativeEnumerator(iterable value.Value) (value.Value, error) {
	var tbl interface {
		Each(func(value.Value, value.Value))
	}

	switch o := iterable.AsRef().(type) {
	case *object.Dict:
		tbl = o.Fields
	case *object.Obj:
		tbl = o.Fields
	default:
		return value.Nil, fmt.Errorf("attempt to iterate a %s value", value.TypeName(iterable))
	}

	var keys []value.Value

	tbl.Each(func(_, v value.Value) {
		keys = append(keys, v)
	})

	idx := 0
	fn := s.NewCFunction("<iterator>", func([]value.Value) ([]value.Value, error) {
		if idx >= len(keys) {
			return []value.Value{value.Nil}, nil
		}

		k := keys[idx]
		idx++

		return []value.Value{k}, nil
	})

	return value.FromRef(fn), nil
}
