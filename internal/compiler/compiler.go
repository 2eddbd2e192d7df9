// Package compiler lowers a *ast.Program into a *bytecode.Chunk in a
// single pre-order walk, back-patching each rule's forward jump once
// its action has been emitted (spec §4.3).
package compiler

import (
	"fmt"

	"tradedsl/internal/ast"
	"tradedsl/internal/bytecode"
	"tradedsl/internal/langerr"
)

// Compiler walks an AST and appends to a chunk. It is single-use: call
// Compile once per Program.
type Compiler struct {
	chunk *bytecode.Chunk
}

// New returns a Compiler with a fresh, empty chunk.
func New() *Compiler {
	return &Compiler{chunk: bytecode.NewChunk()}
}

// Compile lowers prog into a bytecode chunk. The last byte of a
// successfully compiled program is always bytecode.Halt.
func Compile(prog *ast.Program) (*bytecode.Chunk, error) {
	c := New()
	for _, rule := range prog.Rules {
		if err := c.compileRule(rule); err != nil {
			return nil, err
		}
	}
	c.chunk.WriteOp(bytecode.Halt)
	return c.chunk, nil
}

// compileRule emits: condition, JumpIfFalse <placeholder>, action,
// then patches the placeholder to land just past the action — the
// reference back-patching technique spec §4.3 and §9 call out.
func (c *Compiler) compileRule(r ast.Rule) error {
	if err := r.Condition.Accept(c); err != nil {
		return err
	}

	c.chunk.WriteOp(bytecode.JumpIfFalse)
	placeholderPos := c.chunk.WriteInt32(0)

	switch r.Action.Kind {
	case ast.StmtBuy:
		c.chunk.WriteOp(bytecode.Buy)
	case ast.StmtSell:
		c.chunk.WriteOp(bytecode.Sell)
	}
	c.chunk.WriteInt32(r.Action.Qty)

	offset := int32(c.chunk.Count() - (placeholderPos + 4))
	c.chunk.PatchInt32(placeholderPos, offset)
	return nil
}

func (c *Compiler) VisitNumber(n *ast.Number) error {
	c.chunk.WriteOp(bytecode.PushConst)
	c.chunk.WriteDouble(n.Value)
	return nil
}

func (c *Compiler) VisitIdent(id *ast.Ident) error {
	varID, ok := bytecode.LookupVar(id.Name)
	if !ok {
		return langerr.NewCompileError(fmt.Sprintf("Unknown identifier: %s", id.Name))
	}
	c.chunk.WriteOp(bytecode.LoadVar)
	c.chunk.WriteByte(byte(varID))
	return nil
}

// VisitString rejects bare string literals in expression position;
// strings are reserved for the top-level symbol declaration (spec §4.3).
func (c *Compiler) VisitString(s *ast.String) error {
	return langerr.NewCompileError(fmt.Sprintf("Bare string literal in expression: %s", s.Text))
}

func (c *Compiler) VisitCall(call *ast.Call) error {
	fid, ok := bytecode.LookupFunc(call.Name)
	if !ok {
		return langerr.NewCompileError(fmt.Sprintf("Unknown function: %s", call.Name))
	}
	// Arguments compile left-to-right, so the last argument is on top
	// of the stack at call time; arity is checked at run time, not here.
	for _, arg := range call.Args {
		if err := arg.Accept(c); err != nil {
			return err
		}
	}
	c.chunk.WriteOp(bytecode.CallFunc)
	c.chunk.WriteByte(byte(fid))
	c.chunk.WriteByte(byte(len(call.Args)))
	return nil
}

var binaryOps = map[ast.BinaryOp]bytecode.OpCode{
	ast.Add:        bytecode.Add,
	ast.Sub:        bytecode.Sub,
	ast.Mul:        bytecode.Mul,
	ast.Div:        bytecode.Div,
	ast.Gt:         bytecode.Gt,
	ast.Lt:         bytecode.Lt,
	ast.Ge:         bytecode.Ge,
	ast.Le:         bytecode.Le,
	ast.Eq:         bytecode.Eq,
	ast.Ne:         bytecode.Ne,
	ast.LogicalAnd: bytecode.And,
	ast.LogicalOr:  bytecode.Or,
}

// VisitBinary compiles both operands unconditionally before the
// opcode: logical and/or are eagerly evaluated, not short-circuited
// (spec §4.3 — observationally equivalent here since indicator calls
// are pure).
func (c *Compiler) VisitBinary(b *ast.Binary) error {
	if err := b.Left.Accept(c); err != nil {
		return err
	}
	if err := b.Right.Accept(c); err != nil {
		return err
	}
	c.chunk.WriteOp(binaryOps[b.Op])
	return nil
}

func (c *Compiler) VisitUnary(u *ast.Unary) error {
	if err := u.Child.Accept(c); err != nil {
		return err
	}
	switch u.Op {
	case ast.Negate:
		c.chunk.WriteOp(bytecode.Neg)
	case ast.LogicalNot:
		c.chunk.WriteOp(bytecode.Not)
	}
	return nil
}
