// Package compiler implements Cosmo's single-pass Pratt compiler: lexer,
// parser, and codegen emitting directly into an internal/chunk.Chunk
// (SPEC_FULL.md §4; spec.md §1 excludes the grammar's design from the core
// spec but still requires something that reaches every opcode in §4.4).
package compiler

import (
	"fmt"

	"github.com/cosmolang/cosmo/internal/chunk"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

type local struct {
	name    string
	depth   int
	slot    int
	captured bool
}

// funcState tracks one function body being compiled: its locals, lexical
// scope depth, and the upvalue descriptors codegen is accumulating for
// CLOSURE to read at run time.
type funcState struct {
	enclosing *funcState
	fn        *object.Function
	locals    []local
	scopeDepth int
	upvalNames []string
}

type compiler struct {
	s        *vm.State
	lex      *lexer
	cur      token
	ahead    *token
	chunkName string
	fs       *funcState
	errs     []error
}

// Compile parses and compiles source into a top-level Function prototype,
// the caller (pkg/cosmo) wraps it in a Closure and calls it.
func Compile(s *vm.State, source, chunkName string) (*object.Function, error) {
	c := &compiler{s: s, lex: newLexer(source), chunkName: chunkName}

	if err := c.advance(); err != nil {
		return nil, err
	}

	top := &funcState{fn: s.NewFunction()}
	top.fn.Name = s.NewString([]byte(chunkName))
	c.fs = top

	c.beginScope()
	for c.cur.kind != tokEOF {
		c.statement()
	}
	c.endScope()

	c.emitByte(byte(chunk.OpNil), c.cur.line)
	c.emitByte(byte(chunk.OpReturn), c.cur.line)

	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}

	return top.fn, nil
}

func (c *compiler) advance() error {
	if c.ahead != nil {
		c.cur = *c.ahead
		c.ahead = nil

		return nil
	}

	t, err := c.lex.next()
	if err != nil {
		return err
	}

	c.cur = t

	return nil
}

func (c *compiler) peekAhead() token {
	if c.ahead == nil {
		t, err := c.lex.next()
		if err != nil {
			c.error(err.Error())
			t = token{kind: tokEOF}
		}

		c.ahead = &t
	}

	return *c.ahead
}

func (c *compiler) check(k tokenKind) bool { return c.cur.kind == k }

func (c *compiler) match(k tokenKind) bool {
	if !c.check(k) {
		return false
	}

	if err := c.advance(); err != nil {
		c.error(err.Error())
	}

	return true
}

func (c *compiler) expect(k tokenKind, what string) {
	if !c.check(k) {
		c.error(fmt.Sprintf("expected %s", what))

		return
	}

	if err := c.advance(); err != nil {
		c.error(err.Error())
	}
}

func (c *compiler) error(msg string) {
	c.errs = append(c.errs, fmt.Errorf("%s:%d: %s", c.chunkName, c.cur.line, msg))
}

func (c *compiler) chunk() *chunk.Chunk { return c.fs.fn.Chunk }

func (c *compiler) emitByte(b byte, line int) int {
	return c.chunk().WriteByte(b, line)
}

func (c *compiler) emitOp(op chunk.Op, line int) int {
	return c.chunk().WriteOp(op, line)
}

func (c *compiler) emitU16(v uint16, line int) {
	c.chunk().WriteU16(v, line)
}

func (c *compiler) constant(v value.Value) uint16 {
	return uint16(c.chunk().AddConstant(v))
}

func (c *compiler) emitJump(op chunk.Op, line int) int {
	c.emitOp(op, line)
	at := c.chunk().Len()
	c.emitU16(0xFFFF, line)

	return at
}

func (c *compiler) patchJump(at int) {
	c.chunk().PatchU16(at, uint16(c.chunk().Len()))
}

func (c *compiler) emitLoop(target int, line int) {
	c.emitOp(chunk.OpJmpBack, line)
	c.emitU16(uint16(c.chunk().Len()+2-target), line)
}

func (c *compiler) beginScope() { c.fs.scopeDepth++ }

func (c *compiler) endScope() {
	c.fs.scopeDepth--

	n := 0

	for len(c.fs.locals) > 0 && c.fs.locals[len(c.fs.locals)-1].depth > c.fs.scopeDepth {
		c.fs.locals = c.fs.locals[:len(c.fs.locals)-1]
		n++
	}

	if n > 0 {
		c.emitByte(byte(chunk.OpClose), c.cur.line)
		c.emitByte(byte(n), c.cur.line)
	}
}

func (c *compiler) declareLocal(name string) int {
	slot := len(c.fs.locals) + 1 // frame slot 0 holds the callee
	c.fs.locals = append(c.fs.locals, local{name: name, depth: c.fs.scopeDepth, slot: slot})

	return slot
}

func (c *compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return fs.locals[i].slot
		}
	}

	return -1
}

// resolveUpvalue recursively resolves name against enclosing functions,
// adding an upvalue descriptor at every level between the defining scope
// and fs (spec.md §9's nested-closure capture).
func (c *compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}

	if slot := c.resolveLocal(fs.enclosing, name); slot != -1 {
		return c.addUpvalue(fs, name, chunk.UpvalLocal, uint8(slot))
	}

	if idx := c.resolveUpvalue(fs.enclosing, name); idx != -1 {
		return c.addUpvalue(fs, name, chunk.UpvalUpval, uint8(idx))
	}

	return -1
}

func (c *compiler) addUpvalue(fs *funcState, name string, kind chunk.UpvalKind, index uint8) int {
	for i, n := range fs.upvalNames {
		if n == name {
			return i
		}
	}

	fs.upvalNames = append(fs.upvalNames, name)
	fs.fn.UpvalDescs = append(fs.fn.UpvalDescs, object.UpvalDesc{Kind: kind, Index: index})
	fs.fn.Upvals = len(fs.fn.UpvalDescs)

	return len(fs.fn.UpvalDescs) - 1
}
