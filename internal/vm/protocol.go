package vm

import (
	"fmt"

	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

// internalKey interns and caches the well-known protocol method names so
// the hot path (every GETOBJECT miss) doesn't re-intern a string.
type internalKeys struct {
	strs [9]*object.String
}

func (s *State) internal(name object.InternalName) *object.String {
	if s.internKeys.strs[name] == nil {
		s.internKeys.strs[name] = s.NewString([]byte(object.InternalNames[name]))
	}

	return s.internKeys.strs[name]
}

// GetField implements spec.md §4.6's field-read protocol for GETOBJECT: a
// direct field, then a walk up the prototype chain, then (if still
// unresolved) a call to the nearest __getter in the chain. A callable field
// found only via the prototype chain is returned bound as a Method.
func (s *State) GetField(recv value.Value, key *object.String) (value.Value, error) {
	obj, ok := recv.AsRef().(*object.Obj)
	if !recv.IsRef() || !ok {
		return value.Nil, fmt.Errorf("attempt to index a %s value", value.TypeName(recv))
	}

	if v, ok := obj.Fields.Get(value.FromRef(key)); ok {
		return v, nil
	}

	name, isInternal := internalNameOf(key)

	if !isInternal || !obj.HasMiss(name) {
		cur := obj.Proto
		for cur != nil {
			if v, ok := cur.Fields.Get(value.FromRef(key)); ok {
				if isCallable(v) {
					return value.FromRef(s.NewMethod(recv, v)), nil
				}

				return v, nil
			}

			cur = cur.Proto
		}
	}

	getter, found := s.lookupChain(obj, s.internal(object.IStringGetter))
	if !found {
		if isInternal {
			obj.SetMiss(name)
		}

		return value.Nil, nil
	}

	results, err := s.Call(getter, []value.Value{recv, value.FromRef(key)})
	if err != nil {
		return value.Nil, err
	}

	if len(results) == 0 {
		return value.Nil, nil
	}

	return results[0], nil
}

// SetField implements spec.md §4.6's field-write protocol for SETOBJECT: if
// a __setter exists anywhere in the chain it is consulted first; otherwise
// the field is written directly on recv's own table.
func (s *State) SetField(recv value.Value, key *object.String, val value.Value) error {
	obj, ok := recv.AsRef().(*object.Obj)
	if !recv.IsRef() || !ok {
		return fmt.Errorf("attempt to index a %s value", value.TypeName(recv))
	}

	if setter, found := s.lookupChain(obj, s.internal(object.IStringSetter)); found {
		_, err := s.Call(setter, []value.Value{recv, value.FromRef(key), val})

		return err
	}

	*obj.Fields.Insert(value.FromRef(key)) = val

	name, isInternal := internalNameOf(key)
	if isInternal {
		obj.ClearMiss(name)
	}

	return nil
}

// lookupChain walks obj then its prototypes looking for key, without
// touching the miss cache (used internally for __getter/__setter/__iter/
// __next resolution, which always wants the true answer).
func (s *State) lookupChain(obj *object.Obj, key *object.String) (value.Value, bool) {
	for cur := obj; cur != nil; cur = cur.Proto {
		if v, ok := cur.Fields.Get(value.FromRef(key)); ok {
			return v, true
		}
	}

	return value.Nil, false
}

func internalNameOf(key *object.String) (object.InternalName, bool) {
	if !key.IsInternal() {
		return 0, false
	}

	for i, name := range object.InternalNames {
		if name == key.String() {
			return object.InternalName(i), true
		}
	}

	return 0, false
}

func isCallable(v value.Value) bool {
	return v.IsRefKind(value.RefClosure) || v.IsRefKind(value.RefCFunction) || v.IsRefKind(value.RefMethod)
}

// ToDisplayString renders v for print()/tostring(): an Obj whose prototype
// chain defines __tostring defers to it, everything else uses Value's
// default formatting (spec.md §4.6).
func (s *State) ToDisplayString(v value.Value) (string, error) {
	obj, ok := v.AsRef().(*object.Obj)
	if v.IsRef() && ok {
		if fn, found := s.lookupChain(obj, s.internal(object.IStringToString)); found {
			results, err := s.Call(fn, []value.Value{v})
			if err != nil {
				return "", err
			}

			if len(results) > 0 {
				return results[0].String(), nil
			}

			return "", nil
		}
	}

	return v.String(), nil
}

// Index implements INDEX/NEWINDEX for dicts: a raw table operation with no
// prototype chain and no getter/setter protocol (spec.md §3).
func (s *State) Index(recv, key value.Value) (value.Value, error) {
	d, ok := recv.AsRef().(*object.Dict)
	if !recv.IsRef() || !ok {
		return value.Nil, fmt.Errorf("attempt to index a %s value", value.TypeName(recv))
	}

	v, _ := d.Fields.Get(key)

	return v, nil
}

// NewIndex is INDEX's write counterpart.
func (s *State) NewIndex(recv, key, val value.Value) error {
	d, ok := recv.AsRef().(*object.Dict)
	if !recv.IsRef() || !ok {
		return fmt.Errorf("attempt to index a %s value", value.TypeName(recv))
	}

	d.Fields.Set(key, val)

	return nil
}
