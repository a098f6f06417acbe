package vm

import (
	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
)

func (s *State) readByte(f *frame) byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++

	return b
}

func (s *State) readU16(f *frame) uint16 {
	v := chunk.ReadU16(f.closure.Function.Chunk.Code, f.ip)
	f.ip += 2

	return v
}

func (s *State) readConstant(f *frame, idx uint16) value.Value {
	return f.closure.Function.Chunk.Constants[idx]
}

// readDelta decodes the INC family's biased operand byte (operand-128),
// per the encoding documented alongside the opcode enum.
func (s *State) readDelta(f *frame) float64 {
	return float64(int(s.readByte(f)) - 128)
}

// run executes bytecode until the frame stack unwinds back to targetDepth
// (the frame pushed by the call that invoked run returns), yielding that
// call's single result value. A CALL on a closure pushes a further frame
// and is handled in place; INVOKE, and CALL on a bound Method, go through
// Call, which re-enters run for a closure callee (ported from
// cosmoV_execute's dispatch loop in cvm.c).
func (s *State) run(targetDepth int) (value.Value, error) {
	for {
		f := s.currentFrame()
		op := chunk.Op(s.readByte(f))

		switch op {
		case chunk.OpLoadConst:
			idx := s.readU16(f)
			s.push(s.readConstant(f, idx))

		case chunk.OpTrue:
			s.push(value.True)
		case chunk.OpFalse:
			s.push(value.False)
		case chunk.OpNil:
			s.push(value.Nil)

		case chunk.OpPop:
			n := int(s.readByte(f))
			s.top -= n

		case chunk.OpClose:
			n := int(s.readByte(f))
			s.closeUpvalues(s.top - n)
			s.top -= n

		case chunk.OpSetGlobal:
			idx := s.readU16(f)
			key := s.readConstant(f, idx)
			s.globals.Set(key, s.peek(0))

		case chunk.OpGetGlobal:
			idx := s.readU16(f)
			key := s.readConstant(f, idx)

			v, ok := s.globals.Get(key)
			if !ok {
				return value.Nil, s.raise("undefined global %s", key.String())
			}

			s.push(v)

		case chunk.OpSetLocal:
			slot := int(s.readByte(f))
			s.stack[f.base+slot] = s.peek(0)

		case chunk.OpGetLocal:
			slot := int(s.readByte(f))
			s.push(s.stack[f.base+slot])

		case chunk.OpSetUpval:
			idx := int(s.readByte(f))
			*f.closure.Upvalues[idx].Val = s.peek(0)

		case chunk.OpGetUpval:
			idx := int(s.readByte(f))
			s.push(*f.closure.Upvalues[idx].Val)

		case chunk.OpJmp:
			offset := s.readU16(f)
			f.ip = int(offset)

		case chunk.OpJmpBack:
			offset := s.readU16(f)
			f.ip -= int(offset)

		case chunk.OpPeJmp:
			offset := s.readU16(f)
			cond := s.pop()

			if cond.Falsey() {
				f.ip = int(offset)
			}

		case chunk.OpEJmp:
			offset := s.readU16(f)

			if s.peek(0).Falsey() {
				f.ip = int(offset)
			}

		case chunk.OpClosure:
			idx := s.readU16(f)
			fnVal := s.readConstant(f, idx)
			fn := fnVal.AsRef().(*object.Function)

			cl := s.NewClosure(fn)

			for i, desc := range fn.UpvalDescs {
				if desc.Kind == chunk.UpvalLocal {
					cl.Upvalues[i] = s.captureUpvalue(f.base + int(desc.Index))
				} else {
					cl.Upvalues[i] = f.closure.Upvalues[desc.Index]
				}
			}

			s.push(value.FromRef(cl))

		case chunk.OpCall:
			argc := int(s.readByte(f))
			expected := int(s.readByte(f))
			callee := s.peek(argc)

			if err := s.dispatchCall(callee, argc, expected); err != nil {
				return value.Nil, err
			}

		case chunk.OpInvoke:
			argc := int(s.readByte(f))
			expected := int(s.readByte(f))
			idx := s.readU16(f)
			key := s.readConstant(f, idx).AsRef().(*object.String)

			if err := s.invoke(key, argc, expected); err != nil {
				return value.Nil, err
			}

		case chunk.OpReturn:
			n := int(s.readByte(f))

			results := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				results[i] = s.pop()
			}

			want := f.wantResults

			s.popCallFrame()

			if want >= 0 {
				results = padResults(results, want)
			}

			if s.frameTop == targetDepth {
				if len(results) == 0 {
					return value.Nil, nil
				}

				return results[0], nil
			}

			for _, r := range results {
				s.push(r)
			}

		case chunk.OpNewObject:
			n := int(s.readU16(f))
			obj := s.NewObject()

			for i := 0; i < n; i++ {
				val := s.pop()
				key := s.pop()
				*obj.Fields.Insert(key) = val
			}

			s.push(value.FromRef(obj))

		case chunk.OpNewDict:
			n := int(s.readU16(f))
			d := s.NewDict()

			for i := 0; i < n; i++ {
				val := s.pop()
				key := s.pop()
				d.Fields.Set(key, val)
			}

			s.push(value.FromRef(d))

		case chunk.OpGetObject:
			idx := s.readU16(f)
			key := s.readConstant(f, idx).AsRef().(*object.String)
			recv := s.pop()

			v, err := s.GetField(recv, key)
			if err != nil {
				return value.Nil, err
			}

			s.push(v)

		case chunk.OpSetObject:
			idx := s.readU16(f)
			key := s.readConstant(f, idx).AsRef().(*object.String)
			val := s.pop()
			recv := s.pop()

			if err := s.SetField(recv, key, val); err != nil {
				return value.Nil, err
			}

			s.push(val)

		case chunk.OpIndex:
			key := s.pop()
			recv := s.pop()

			v, err := s.Index(recv, key)
			if err != nil {
				return value.Nil, err
			}

			s.push(v)

		case chunk.OpNewIndex:
			val := s.pop()
			key := s.pop()
			recv := s.pop()

			if err := s.NewIndex(recv, key, val); err != nil {
				return value.Nil, err
			}

			s.push(val)

		case chunk.OpIter:
			iterable := s.pop()
			next, err := s.Iter(iterable)
			if err != nil {
				return value.Nil, err
			}

			s.push(next)

		case chunk.OpNext:
			slot := int(s.readByte(f))
			offset := s.readU16(f)

			result, err := s.Call(s.peek(0), nil)
			if err != nil {
				return value.Nil, err
			}

			item := value.Nil
			if len(result) > 0 {
				item = result[0]
			}

			if item.IsNil() {
				f.ip = int(offset)
			} else {
				s.stack[f.base+slot] = item
			}

		case chunk.OpAdd, chunk.OpSub, chunk.OpMult, chunk.OpDiv, chunk.OpMod:
			b := s.pop()
			a := s.pop()

			v, err := arith(op, a, b)
			if err != nil {
				return value.Nil, s.raise("%s", err.Error())
			}

			s.push(v)

		case chunk.OpNegate:
			a := s.pop()

			if !a.IsNumber() {
				return value.Nil, s.raise("attempt to negate a %s value", value.TypeName(a))
			}

			s.push(value.Number(-a.AsNumber()))

		case chunk.OpNot:
			a := s.pop()
			s.push(value.Bool(a.Falsey()))

		case chunk.OpCount:
			a := s.pop()

			n, err := count(a)
			if err != nil {
				return value.Nil, s.raise("%s", err.Error())
			}

			s.push(value.Number(float64(n)))

		case chunk.OpConcat:
			b := s.pop()
			a := s.pop()
			s.push(value.FromRef(s.NewString(append(displayBytes(a), displayBytes(b)...))))

		case chunk.OpEqual:
			b := s.pop()
			a := s.pop()
			s.push(value.Bool(value.Equal(a, b)))

		case chunk.OpLess, chunk.OpGreater, chunk.OpLessEqual, chunk.OpGreaterEqual:
			b := s.pop()
			a := s.pop()

			v, err := compare(op, a, b)
			if err != nil {
				return value.Nil, s.raise("%s", err.Error())
			}

			s.push(v)

		case chunk.OpIncLocal:
			slot := int(s.readByte(f))
			delta := s.readDelta(f)
			old := s.stack[f.base+slot]
			s.stack[f.base+slot] = value.Number(old.AsNumber() + delta)
			s.push(old)

		case chunk.OpIncUpval:
			idx := int(s.readByte(f))
			delta := s.readDelta(f)
			old := *f.closure.Upvalues[idx].Val
			*f.closure.Upvalues[idx].Val = value.Number(old.AsNumber() + delta)
			s.push(old)

		case chunk.OpIncGlobal:
			idx := s.readU16(f)
			key := s.readConstant(f, idx)
			delta := s.readDelta(f)

			old, ok := s.globals.Get(key)
			if !ok {
				return value.Nil, s.raise("undefined global %s", key.String())
			}

			s.globals.Set(key, value.Number(old.AsNumber()+delta))
			s.push(old)

		case chunk.OpIncObject:
			idx := s.readU16(f)
			key := s.readConstant(f, idx).AsRef().(*object.String)
			delta := s.readDelta(f)
			recv := s.pop()

			old, err := s.GetField(recv, key)
			if err != nil {
				return value.Nil, err
			}

			if err := s.SetField(recv, key, value.Number(old.AsNumber()+delta)); err != nil {
				return value.Nil, err
			}

			s.push(old)

		case chunk.OpIncIndex:
			delta := s.readDelta(f)
			key := s.pop()
			recv := s.pop()

			old, err := s.Index(recv, key)
			if err != nil {
				return value.Nil, err
			}

			if err := s.NewIndex(recv, key, value.Number(old.AsNumber()+delta)); err != nil {
				return value.Nil, err
			}

			s.push(old)

		default:
			return value.Nil, s.raise("unknown opcode %d", byte(op))
		}
	}
}

// padResults pads results with nil, or truncates it, so it has exactly want
// elements (spec.md line 120's CALL-normalizes-the-count contract).
func padResults(results []value.Value, want int) []value.Value {
	for len(results) < want {
		results = append(results, value.Nil)
	}

	if len(results) > want {
		results = results[:want]
	}

	return results
}

// dispatchCall resolves callee at stack position (top-argc-1) and either
// pushes a new bytecode frame (closures), whose own RETURN will later pad
// or truncate to expected, or runs a host call inline (CFunction/Method),
// padding/truncating the result here instead.
func (s *State) dispatchCall(callee value.Value, argc, expected int) error {
	if !callee.IsRef() {
		return s.raise("attempt to call a %s value", value.TypeName(callee))
	}

	switch c := callee.AsRef().(type) {
	case *object.Closure:
		return s.pushCallFrame(c, argc, expected)
	default:
		args := make([]value.Value, argc)
		copy(args, s.stack[s.top-argc:s.top])
		s.top -= argc + 1

		results, err := s.Call(callee, args)
		if err != nil {
			return err
		}

		for _, r := range padResults(results, expected) {
			s.push(r)
		}

		return nil
	}
}

// invoke resolves key on the receiver found argc+1 slots down the stack
// and calls it with the already-pushed arguments, per spec.md §4.6's
// combined lookup-and-call fast path.
func (s *State) invoke(key *object.String, argc, expected int) error {
	recvIdx := s.top - argc - 1
	recv := s.stack[recvIdx]

	field, err := s.GetField(recv, key)
	if err != nil {
		return err
	}

	args := make([]value.Value, argc)
	copy(args, s.stack[s.top-argc:s.top])
	s.top = recvIdx

	results, err := s.Call(field, args)
	if err != nil {
		return err
	}

	for _, r := range padResults(results, expected) {
		s.push(r)
	}

	return nil
}
