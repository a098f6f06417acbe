// Package chunk holds the compiled form of a function body: the bytecode
// buffer, its parallel line-number table, and its constant pool, plus the
// opcode enumeration both the compiler and the interpreter agree on.
package chunk

// Op is a one-byte opcode. Operand widths are fixed per opcode (spec.md
// §4.4); the interpreter decodes operands inline in natural order.
type Op uint8

// The instruction set is the union of both opcode sets found in
// _examples/original_source (spec.md §9's "Open question" on old vs. new
// main.c): MOD, ITER, and NEXT are included alongside the base set.
const (
	// Stack/state manipulation.
	OpLoadConst Op = iota
	OpSetGlobal
	OpGetGlobal
	OpSetLocal
	OpGetLocal
	OpSetUpval
	OpGetUpval
	OpPop
	OpClose

	// Control flow. JMP, PEJMP and EJMP take a u16 absolute position in the
	// chunk to continue at; JMPBACK takes a u16 byte count to step back
	// from the instruction after its operand.
	OpJmp
	OpJmpBack
	OpPeJmp
	OpEJmp

	// Calls and closures. CALL/INVOKE operands: argc (u8), expected result
	// count (u8); INVOKE additionally carries the method-name constant
	// index (u16). RETURN's operand is the number of result values it is
	// leaving on the stack (spec.md line 120/122/128).
	OpCall
	OpClosure
	OpReturn

	// Objects and tables.
	OpNewObject
	OpGetObject
	OpSetObject
	OpInvoke
	OpNewDict
	OpIndex
	OpNewIndex
	OpIter // pops the iterable, pushes its bound next-item callable
	OpNext // operands: u8 local slot, u16 absolute position jumped to when exhausted

	// Arithmetic and comparison.
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpMod
	OpNegate
	OpNot
	OpCount
	OpConcat
	OpEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual

	// Increment family: push the old numeric value, then add (operand-128)
	// to the named slot.
	OpIncLocal
	OpIncUpval
	OpIncGlobal
	OpIncObject
	OpIncIndex

	// Literals.
	OpTrue
	OpFalse
	OpNil

	opCount
)

var names = [opCount]string{
	OpLoadConst:      "LOADCONST",
	OpSetGlobal:      "SETGLOBAL",
	OpGetGlobal:      "GETGLOBAL",
	OpSetLocal:       "SETLOCAL",
	OpGetLocal:       "GETLOCAL",
	OpSetUpval:       "SETUPVAL",
	OpGetUpval:       "GETUPVAL",
	OpPop:            "POP",
	OpClose:          "CLOSE",
	OpJmp:            "JMP",
	OpJmpBack:        "JMPBACK",
	OpPeJmp:          "PEJMP",
	OpEJmp:           "EJMP",
	OpCall:           "CALL",
	OpClosure:        "CLOSURE",
	OpReturn:         "RETURN",
	OpNewObject:      "NEWOBJECT",
	OpGetObject:      "GETOBJECT",
	OpSetObject:      "SETOBJECT",
	OpInvoke:         "INVOKE",
	OpNewDict:        "NEWDICT",
	OpIndex:          "INDEX",
	OpNewIndex:       "NEWINDEX",
	OpIter:           "ITER",
	OpNext:           "NEXT",
	OpAdd:            "ADD",
	OpSub:            "SUB",
	OpMult:           "MULT",
	OpDiv:            "DIV",
	OpMod:            "MOD",
	OpNegate:         "NEGATE",
	OpNot:            "NOT",
	OpCount:          "COUNT",
	OpConcat:         "CONCAT",
	OpEqual:          "EQUAL",
	OpLess:           "LESS",
	OpGreater:        "GREATER",
	OpLessEqual:      "LESS_EQUAL",
	OpGreaterEqual:   "GREATER_EQUAL",
	OpIncLocal:       "INCLOCAL",
	OpIncUpval:       "INCUPVAL",
	OpIncGlobal:      "INCGLOBAL",
	OpIncObject:      "INCOBJECT",
	OpIncIndex:       "INCINDEX",
	OpTrue:           "TRUE",
	OpFalse:          "FALSE",
	OpNil:            "NIL",
}

func (op Op) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}

	return "UNKNOWN"
}

// UpvalKind tags each upvalue descriptor CLOSURE reads: whether it captures
// a local slot of the enclosing frame or reuses one of the enclosing
// closure's own upvalues.
type UpvalKind uint8

const (
	UpvalLocal UpvalKind = iota
	UpvalUpval
)
