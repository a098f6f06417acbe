package compiler

import (
	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/value"
)

func (c *compiler) statement() {
	line := c.cur.line

	switch c.cur.kind {
	case tokVar:
		c.varDecl()
	case tokIf:
		c.ifStmt()
	case tokWhile:
		c.whileStmt()
	case tokFor:
		c.forInStmt()
	case tokReturn:
		c.returnStmt()
	case tokProto:
		c.protoDecl()
	case tokFunc:
		c.funcDeclStmt()
	default:
		c.exprStatement(line)
	}
}

func (c *compiler) block(terminators ...tokenKind) {
	c.beginScope()

	for !c.atTerminator(terminators) && c.cur.kind != tokEOF {
		c.statement()
	}

	c.endScope()
}

func (c *compiler) atTerminator(terms []tokenKind) bool {
	for _, t := range terms {
		if c.cur.kind == t {
			return true
		}
	}

	return false
}

func (c *compiler) varDecl() {
	line := c.cur.line
	c.advance()

	name := c.cur.text
	c.expect(tokIdent, "identifier")
	c.expect(tokAssign, "'='")
	c.expression()

	if c.fs.scopeDepth == 0 {
		key := c.constant(value.FromRef(c.s.NewString([]byte(name))))
		c.emitOp(chunk.OpSetGlobal, line)
		c.emitU16(key, line)
		c.emitByte(byte(chunk.OpPop), line)
	} else {
		c.declareLocal(name)
	}

	c.match(tokSemi)
}

func (c *compiler) ifStmt() {
	line := c.cur.line
	c.advance()
	c.expression()
	c.expect(tokThen, "'then'")

	elseJump := c.emitJump(chunk.OpPeJmp, line)

	c.block(tokEnd, tokElse)

	if c.check(tokElse) {
		endJump := c.emitJump(chunk.OpJmp, c.cur.line)
		c.patchJump(elseJump)

		c.advance()
		c.block(tokEnd)
		c.patchJump(endJump)
	} else {
		c.patchJump(elseJump)
	}

	c.expect(tokEnd, "'end'")
}

func (c *compiler) whileStmt() {
	startLine := c.cur.line
	loopStart := c.chunk().Len()
	c.advance()
	c.expression()
	c.expect(tokDo, "'do'")

	exitJump := c.emitJump(chunk.OpPeJmp, startLine)

	c.block(tokEnd)
	c.expect(tokEnd, "'end'")

	c.emitLoop(loopStart, c.cur.line)
	c.patchJump(exitJump)
}

// forInStmt compiles `for name in expr do ... end` using ITER/NEXT
// (spec.md §4.6).
func (c *compiler) forInStmt() {
	line := c.cur.line
	c.advance()

	name := c.cur.text
	c.expect(tokIdent, "identifier")
	c.expect(tokIn, "'in'")
	c.emitByte(byte(chunk.OpNil), line) // loop variable's slot, below the iterator
	c.expression()
	c.expect(tokDo, "'do'")

	c.emitOp(chunk.OpIter, line)

	c.beginScope()
	slot := c.declareLocal(name)
	c.declareLocal("") // the iterator NEXT calls, kept on top of the stack

	loopStart := c.chunk().Len()
	c.emitOp(chunk.OpNext, c.cur.line)
	c.emitByte(byte(slot), c.cur.line)
	exitAt := c.chunk().Len()
	c.emitU16(0xFFFF, c.cur.line)

	c.block(tokEnd)
	c.expect(tokEnd, "'end'")

	c.emitLoop(loopStart, c.cur.line)
	c.chunk().PatchU16(exitAt, uint16(c.chunk().Len()))

	c.endScope()
}

func (c *compiler) returnStmt() {
	line := c.cur.line
	c.advance()

	if c.check(tokSemi) || c.check(tokEnd) || c.cur.kind == tokEOF {
		c.emitByte(byte(chunk.OpNil), line)
	} else {
		c.expression()
	}

	c.emitByte(byte(chunk.OpReturn), line)
	c.emitByte(singleResult, line)
	c.match(tokSemi)
}

// funcDeclStmt compiles `func name(params) ... end` as sugar for
// `var name = func(params) ... end`.
func (c *compiler) funcDeclStmt() {
	line := c.cur.line
	c.advance()

	name := c.cur.text
	c.expect(tokIdent, "function name")

	c.functionBody(name, line)

	if c.fs.scopeDepth == 0 {
		key := c.constant(value.FromRef(c.s.NewString([]byte(name))))
		c.emitOp(chunk.OpSetGlobal, line)
		c.emitU16(key, line)
		c.emitByte(byte(chunk.OpPop), line)
	} else {
		c.declareLocal(name)
	}
}

// protoDecl compiles `proto Name ... end`: a block whose function
// declarations populate an object literal assigned to a global named Name
// (SPEC_FULL.md §4; setproto/getproto attach instances to it at run time).
func (c *compiler) protoDecl() {
	line := c.cur.line
	c.advance()

	name := c.cur.text
	c.expect(tokIdent, "proto name")

	fieldCount := 0

	for !c.check(tokEnd) && c.cur.kind != tokEOF {
		if c.check(tokFunc) {
			fnLine := c.cur.line
			c.advance()

			fieldName := c.cur.text
			c.expect(tokIdent, "function name")

			key := c.constant(value.FromRef(c.s.NewString([]byte(fieldName))))
			c.emitOp(chunk.OpLoadConst, fnLine)
			c.emitU16(key, fnLine)

			c.functionBody(fieldName, fnLine)
			fieldCount++
		} else {
			c.error("expected function declaration in proto block")
			c.advance()
		}
	}

	c.expect(tokEnd, "'end'")

	c.emitOp(chunk.OpNewObject, line)
	c.emitU16(uint16(fieldCount), line)

	key := c.constant(value.FromRef(c.s.NewString([]byte(name))))
	c.emitOp(chunk.OpSetGlobal, line)
	c.emitU16(key, line)
	c.emitByte(byte(chunk.OpPop), line)
}

// functionBody parses "(params) block end" and emits a CLOSURE over a
// freshly compiled nested Function, leaving the closure value on the
// enclosing function's stack.
func (c *compiler) functionBody(name string, line int) {
	fn := c.s.NewFunction()
	fn.Name = c.s.NewString([]byte(name))

	fs := &funcState{enclosing: c.fs, fn: fn}
	c.fs = fs
	c.beginScope()

	c.expect(tokLParen, "'('")

	variadic := false

	for !c.check(tokRParen) {
		if c.check(tokDotDot) {
			c.advance()
			c.expect(tokDotDot, "'..'")
			variadic = true

			break
		}

		pname := c.cur.text
		c.expect(tokIdent, "parameter name")
		c.declareLocal(pname)
		fn.Arity++

		if !c.match(tokComma) {
			break
		}
	}

	c.expect(tokRParen, "')'")
	fn.Variadic = variadic

	for !c.check(tokEnd) && c.cur.kind != tokEOF {
		c.statement()
	}

	c.expect(tokEnd, "'end'")

	c.emitByte(byte(chunk.OpNil), c.cur.line)
	c.emitByte(byte(chunk.OpReturn), c.cur.line)

	c.endScope()

	enclosing := fs.enclosing
	c.fs = enclosing

	idx := c.constant(value.FromRef(fn))
	c.emitOp(chunk.OpClosure, line)
	c.emitU16(idx, line)
}

func (c *compiler) exprStatement(line int) {
	target := c.expression()

	switch c.cur.kind {
	case tokAssign:
		c.advance()
		c.assign(target, line)
	case tokPlusPlus, tokMinusMinus:
		delta := byte(129)
		if c.cur.kind == tokMinusMinus {
			delta = 127
		}

		c.advance()
		c.incTarget(target, delta, line)
		c.emitByte(byte(chunk.OpPop), line)
	default:
		c.emitByte(byte(chunk.OpPop), line)
	}

	c.match(tokSemi)
}

// exprKind tags what sort of lvalue the last parsed primary/postfix chain
// produced, so assignment/increment statements know which opcode family to
// emit instead of re-parsing the target.
type exprKind int

const (
	exprNone exprKind = iota
	exprLocal
	exprUpval
	exprGlobal
	exprField
	exprIndex
)

type exprTarget struct {
	kind exprKind
	slot int      // local/upvalue slot
	key  uint16   // global/field constant index
}

func (c *compiler) assign(target exprTarget, line int) {
	c.expression()

	switch target.kind {
	case exprLocal:
		c.emitByte(byte(chunk.OpSetLocal), line)
		c.emitByte(byte(target.slot), line)
	case exprUpval:
		c.emitByte(byte(chunk.OpSetUpval), line)
		c.emitByte(byte(target.slot), line)
	case exprGlobal:
		c.emitOp(chunk.OpSetGlobal, line)
		c.emitU16(target.key, line)
	case exprField:
		c.emitOp(chunk.OpSetObject, line)
		c.emitU16(target.key, line)
	case exprIndex:
		c.emitOp(chunk.OpNewIndex, line)
	default:
		c.error("invalid assignment target")
	}

	c.emitByte(byte(chunk.OpPop), line)
}

func (c *compiler) incTarget(target exprTarget, delta byte, line int) {
	switch target.kind {
	case exprLocal:
		c.emitByte(byte(chunk.OpIncLocal), line)
		c.emitByte(byte(target.slot), line)
		c.emitByte(delta, line)
	case exprUpval:
		c.emitByte(byte(chunk.OpIncUpval), line)
		c.emitByte(byte(target.slot), line)
		c.emitByte(delta, line)
	case exprGlobal:
		c.emitOp(chunk.OpIncGlobal, line)
		c.emitU16(target.key, line)
		c.emitByte(delta, line)
	case exprField:
		c.emitOp(chunk.OpIncObject, line)
		c.emitU16(target.key, line)
		c.emitByte(delta, line)
	case exprIndex:
		c.emitOp(chunk.OpIncIndex, line)
		c.emitByte(delta, line)
	default:
		c.error("invalid increment target")
	}
}
