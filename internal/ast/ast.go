// Package ast defines the abstract syntax tree the parser produces:
// expressions, statements, rules, and whole programs (spec §3).
package ast

// BinaryOp is the closed set of binary operator kinds.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Gt
	Lt
	Ge
	Le
	Eq
	Ne
	LogicalAnd
	LogicalOr
)

// UnaryOp is the closed set of unary operator kinds.
type UnaryOp int

const (
	Negate UnaryOp = iota
	LogicalNot
)

// Expr is any expression node. Every expression, once compiled,
// pushes exactly one numeric value onto the VM stack.
type Expr interface {
	Accept(v ExprVisitor) error
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n *Number) Accept(v ExprVisitor) error { return v.VisitNumber(n) }

// Ident is a reference to a builtin market variable.
type Ident struct {
	Name string
}

func (i *Ident) Accept(v ExprVisitor) error { return v.VisitIdent(i) }

// String is a string literal. Only valid as the symbol declaration's
// argument; a bare String elsewhere is a compile error (spec §4.3).
type String struct {
	Text string // verbatim lexeme, quotes included
}

func (s *String) Accept(v ExprVisitor) error { return v.VisitString(s) }

// Call is an invocation of a builtin indicator function.
type Call struct {
	Name string
	Args []Expr
}

func (c *Call) Accept(v ExprVisitor) error { return v.VisitCall(c) }

// Binary is a two-operand expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (b *Binary) Accept(v ExprVisitor) error { return v.VisitBinary(b) }

// Unary is a one-operand expression.
type Unary struct {
	Op    UnaryOp
	Child Expr
}

func (u *Unary) Accept(v ExprVisitor) error { return v.VisitUnary(u) }

// ExprVisitor is implemented by consumers that walk an Expr tree
// (the compiler and the CLI's AST dumper); the dispatch is exhaustive over the
// six expression kinds.
type ExprVisitor interface {
	VisitNumber(*Number) error
	VisitIdent(*Ident) error
	VisitString(*String) error
	VisitCall(*Call) error
	VisitBinary(*Binary) error
	VisitUnary(*Unary) error
}

// StmtKind is the closed set of rule actions.
type StmtKind int

const (
	StmtBuy StmtKind = iota
	StmtSell
)

// Stmt is a rule's single action: buy or sell a fixed quantity.
type Stmt struct {
	Kind StmtKind
	Qty  int32
}

// Rule pairs a condition with the action taken when it is non-zero.
type Rule struct {
	Condition Expr
	Action    Stmt
}

// Program is a full compilation unit: a symbol and its ordered rules.
type Program struct {
	Symbol string // verbatim lexeme of the STRING token, quotes included
	Rules  []Rule
}
