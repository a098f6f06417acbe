package compiler

import (
	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/value"
)

// singleResult is the expected-result-count operand CALL/INVOKE emit: the
// grammar has no multi-value call targets, so every call site wants
// exactly one result (spec.md line 120/128).
const singleResult = 1

// expression parses a full expression, self-materializing any bare
// identifier/field/index chain unless it is immediately followed by an
// assignment or increment operator (in which case the receiver/key the
// chain needs are left prepared on the stack and the un-emitted target is
// returned for the statement-level caller to finish).
func (c *compiler) expression() exprTarget {
	return c.orExpr()
}

// orExpr: if the left operand is truthy, its value is the result and the
// right operand is never evaluated; otherwise the left value is discarded
// and the result is the right operand (short-circuit `or`).
func (c *compiler) orExpr() exprTarget {
	left := c.andExpr()

	for c.check(tokOr) {
		line := c.cur.line
		c.materialize(&left, line)
		c.advance()

		toRight := c.emitJump(chunk.OpEJmp, line)
		toEnd := c.emitJump(chunk.OpJmp, line)

		c.patchJump(toRight)
		c.emitByte(byte(chunk.OpPop), line)

		right := c.andExpr()
		c.materialize(&right, line)

		c.patchJump(toEnd)

		left = exprTarget{kind: exprNone}
	}

	return left
}

// andExpr: if the left operand is falsy, it is the result and the right
// operand is never evaluated (short-circuit `and`).
func (c *compiler) andExpr() exprTarget {
	left := c.equality()

	for c.check(tokAnd) {
		line := c.cur.line
		c.materialize(&left, line)
		c.advance()

		toEnd := c.emitJump(chunk.OpEJmp, line)
		c.emitByte(byte(chunk.OpPop), line)

		right := c.equality()
		c.materialize(&right, line)

		c.patchJump(toEnd)

		left = exprTarget{kind: exprNone}
	}

	return left
}

func (c *compiler) equality() exprTarget {
	left := c.comparison()

	for c.check(tokEq) || c.check(tokNeq) {
		line := c.cur.line
		c.materialize(&left, line)
		neq := c.cur.kind == tokNeq
		c.advance()

		right := c.comparison()
		c.materialize(&right, line)

		c.emitOp(chunk.OpEqual, line)

		if neq {
			c.emitOp(chunk.OpNot, line)
		}

		left = exprTarget{kind: exprNone}
	}

	return left
}

func (c *compiler) comparison() exprTarget {
	left := c.concat()

	for c.check(tokLt) || c.check(tokGt) || c.check(tokLe) || c.check(tokGe) {
		line := c.cur.line
		c.materialize(&left, line)
		op := comparisonOp(c.cur.kind)
		c.advance()

		right := c.concat()
		c.materialize(&right, line)

		c.emitOp(op, line)

		left = exprTarget{kind: exprNone}
	}

	return left
}

func comparisonOp(k tokenKind) chunk.Op {
	switch k {
	case tokLt:
		return chunk.OpLess
	case tokGt:
		return chunk.OpGreater
	case tokLe:
		return chunk.OpLessEqual
	default:
		return chunk.OpGreaterEqual
	}
}

func (c *compiler) concat() exprTarget {
	left := c.additive()

	for c.check(tokDotDot) {
		line := c.cur.line
		c.materialize(&left, line)
		c.advance()

		right := c.additive()
		c.materialize(&right, line)

		c.emitOp(chunk.OpConcat, line)

		left = exprTarget{kind: exprNone}
	}

	return left
}

func (c *compiler) additive() exprTarget {
	left := c.multiplicative()

	for c.check(tokPlus) || c.check(tokMinus) {
		line := c.cur.line
		c.materialize(&left, line)
		op := chunk.OpAdd

		if c.cur.kind == tokMinus {
			op = chunk.OpSub
		}

		c.advance()

		right := c.multiplicative()
		c.materialize(&right, line)

		c.emitOp(op, line)

		left = exprTarget{kind: exprNone}
	}

	return left
}

func (c *compiler) multiplicative() exprTarget {
	left := c.unary()

	for c.check(tokStar) || c.check(tokSlash) || c.check(tokPercent) {
		line := c.cur.line
		c.materialize(&left, line)

		var op chunk.Op

		switch c.cur.kind {
		case tokStar:
			op = chunk.OpMult
		case tokSlash:
			op = chunk.OpDiv
		default:
			op = chunk.OpMod
		}

		c.advance()

		right := c.unary()
		c.materialize(&right, line)

		c.emitOp(op, line)

		left = exprTarget{kind: exprNone}
	}

	return left
}

func (c *compiler) unary() exprTarget {
	switch c.cur.kind {
	case tokMinus:
		line := c.cur.line
		c.advance()

		operand := c.unary()
		c.materialize(&operand, line)
		c.emitOp(chunk.OpNegate, line)

		return exprTarget{kind: exprNone}
	case tokNot:
		line := c.cur.line
		c.advance()

		operand := c.unary()
		c.materialize(&operand, line)
		c.emitOp(chunk.OpNot, line)

		return exprTarget{kind: exprNone}
	case tokHash:
		line := c.cur.line
		c.advance()

		operand := c.unary()
		c.materialize(&operand, line)
		c.emitOp(chunk.OpCount, line)

		return exprTarget{kind: exprNone}
	default:
		return c.postfixChain()
	}
}

// postfixChain parses a primary expression followed by any number of
// `.field`, `[index]`, `(args)`, `:method(args)` continuations. The final
// element is left un-emitted (receiver/key already pushed, if any) when it
// is an assignable form immediately followed by `=`, `++`, or `--`.
func (c *compiler) postfixChain() exprTarget {
	target := c.primary()

	for {
		line := c.cur.line

		switch c.cur.kind {
		case tokDot:
			c.materialize(&target, line)
			c.advance()

			name := c.cur.text
			c.expect(tokIdent, "field name")

			key := c.constant(value.FromRef(c.s.NewString([]byte(name))))
			target = exprTarget{kind: exprField, key: key}

		case tokLBracket:
			c.materialize(&target, line)
			c.advance()
			keyTarget := c.expression()
			c.materialize(&keyTarget, line)
			c.expect(tokRBracket, "']'")

			target = exprTarget{kind: exprIndex}

		case tokLParen:
			c.materialize(&target, line)
			c.advance()
			argc := c.parseArgs()
			c.expect(tokRParen, "')'")

			c.emitOp(chunk.OpCall, line)
			c.emitByte(byte(argc), line)
			c.emitByte(singleResult, line)

			target = exprTarget{kind: exprNone}

		case tokColon:
			c.materialize(&target, line)
			c.advance()

			name := c.cur.text
			c.expect(tokIdent, "method name")
			key := c.constant(value.FromRef(c.s.NewString([]byte(name))))

			c.expect(tokLParen, "'('")
			argc := c.parseArgs()
			c.expect(tokRParen, "')'")

			c.emitOp(chunk.OpInvoke, line)
			c.emitByte(byte(argc), line)
			c.emitByte(singleResult, line)
			c.emitU16(key, line)

			target = exprTarget{kind: exprNone}

		default:
			if target.kind != exprNone && (c.cur.kind == tokAssign || c.cur.kind == tokPlusPlus || c.cur.kind == tokMinusMinus) {
				return target
			}

			c.materialize(&target, line)

			return target
		}
	}
}

func (c *compiler) parseArgs() int {
	argc := 0

	for !c.check(tokRParen) {
		arg := c.expression()
		c.materialize(&arg, c.cur.line)
		argc++

		if !c.match(tokComma) {
			break
		}
	}

	return argc
}

func (c *compiler) materialize(target *exprTarget, line int) {
	switch target.kind {
	case exprNone:
		return
	case exprLocal:
		c.emitByte(byte(chunk.OpGetLocal), line)
		c.emitByte(byte(target.slot), line)
	case exprUpval:
		c.emitByte(byte(chunk.OpGetUpval), line)
		c.emitByte(byte(target.slot), line)
	case exprGlobal:
		c.emitOp(chunk.OpGetGlobal, line)
		c.emitU16(target.key, line)
	case exprField:
		c.emitOp(chunk.OpGetObject, line)
		c.emitU16(target.key, line)
	case exprIndex:
		c.emitOp(chunk.OpIndex, line)
	}

	target.kind = exprNone
}

func (c *compiler) primary() exprTarget {
	line := c.cur.line

	switch c.cur.kind {
	case tokNumber:
		idx := c.constant(value.Number(c.cur.num))
		c.advance()
		c.emitOp(chunk.OpLoadConst, line)
		c.emitU16(idx, line)

		return exprTarget{kind: exprNone}

	case tokString:
		idx := c.constant(value.FromRef(c.s.NewString([]byte(c.cur.text))))
		c.advance()
		c.emitOp(chunk.OpLoadConst, line)
		c.emitU16(idx, line)

		return exprTarget{kind: exprNone}

	case tokTrue:
		c.advance()
		c.emitByte(byte(chunk.OpTrue), line)

		return exprTarget{kind: exprNone}

	case tokFalse:
		c.advance()
		c.emitByte(byte(chunk.OpFalse), line)

		return exprTarget{kind: exprNone}

	case tokNil:
		c.advance()
		c.emitByte(byte(chunk.OpNil), line)

		return exprTarget{kind: exprNone}

	case tokIdent:
		name := c.cur.text
		c.advance()

		return c.resolveName(name)

	case tokLParen:
		c.advance()
		inner := c.expression()
		c.materialize(&inner, line)
		c.expect(tokRParen, "')'")

		return exprTarget{kind: exprNone}

	case tokLBrace:
		return c.dictLiteral()

	case tokLBracket:
		return c.arrayLiteral()

	case tokFunc:
		c.advance()
		c.functionBody("", line)

		return exprTarget{kind: exprNone}

	default:
		c.error("expected expression")
		c.advance()

		return exprTarget{kind: exprNone}
	}
}

func (c *compiler) resolveName(name string) exprTarget {
	if slot := c.resolveLocal(c.fs, name); slot != -1 {
		return exprTarget{kind: exprLocal, slot: slot}
	}

	if idx := c.resolveUpvalue(c.fs, name); idx != -1 {
		return exprTarget{kind: exprUpval, slot: idx}
	}

	key := c.constant(value.FromRef(c.s.NewString([]byte(name))))

	return exprTarget{kind: exprGlobal, key: key}
}

// dictLiteral parses `{ [key]=val, key2=val2, ... }` into a NEWOBJECT, so a
// brace literal is an object that can take a prototype; array literals
// (`[a, b, ...]`) are the ones that lower to NEWDICT.
func (c *compiler) dictLiteral() exprTarget {
	line := c.cur.line
	c.advance()

	n := 0

	for !c.check(tokRBrace) {
		if c.check(tokLBracket) {
			c.advance()
			key := c.expression()
			c.materialize(&key, c.cur.line)
			c.expect(tokRBracket, "']'")
		} else {
			name := c.cur.text
			c.expect(tokIdent, "field name")

			idx := c.constant(value.FromRef(c.s.NewString([]byte(name))))
			c.emitOp(chunk.OpLoadConst, line)
			c.emitU16(idx, line)
		}

		c.expect(tokAssign, "'='")
		val := c.expression()
		c.materialize(&val, c.cur.line)

		n++

		if !c.match(tokComma) {
			break
		}
	}

	c.expect(tokRBrace, "'}'")

	c.emitOp(chunk.OpNewObject, line)
	c.emitU16(uint16(n), line)

	return exprTarget{kind: exprNone}
}

// arrayLiteral parses `[v1, v2, ...]`, lowering to a dict literal keyed by
// position (SPEC_FULL.md §5).
func (c *compiler) arrayLiteral() exprTarget {
	line := c.cur.line
	c.advance()

	n := 0

	for !c.check(tokRBracket) {
		idx := c.constant(value.Number(float64(n)))
		c.emitOp(chunk.OpLoadConst, line)
		c.emitU16(idx, line)

		val := c.expression()
		c.materialize(&val, c.cur.line)

		n++

		if !c.match(tokComma) {
			break
		}
	}

	c.expect(tokRBracket, "']'")

	c.emitOp(chunk.OpNewDict, line)
	c.emitU16(uint16(n), line)

	return exprTarget{kind: exprNone}
}
