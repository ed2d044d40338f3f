// Package ast defines the intermediate representation for Stan model
// programs: declarations, expressions, and statements, assembled into a
// Program by the builder package.
//
// Nodes are created through constructors only. Every statement and
// expression carries a process-unique, monotonically assigned NodeID;
// identity, not structure, is the key used by the transform passes.
// Nodes are treated as immutable after construction, with two sanctioned
// exceptions: the builder patches a still-open conditional while chained
// branches are being accumulated, and the CSE pass rewrites an
// assignment's right-hand side in place so the statement keeps its
// identity.
package ast

import (
	"strings"
	"sync"
	"sync/atomic"
)

// NodeID identifies a statement or expression node for the lifetime of
// the process. IDs are never reused.
type NodeID int64

var idCounter atomic.Int64

func nextID() NodeID {
	return NodeID(idCounter.Add(1))
}

// Node is implemented by every statement and expression.
type Node interface {
	ID() NodeID
	String() string
}

// Expr represents expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// DeclKind distinguishes where a declaration lives in the program.
type DeclKind int

const (
	DataDecl DeclKind = iota
	ParamDecl
	LocalDecl
)

func (k DeclKind) String() string {
	switch k {
	case DataDecl:
		return "data"
	case ParamDecl:
		return "parameter"
	case LocalDecl:
		return "local"
	}
	return "unknown"
}

// Decl is a named, typed declaration. Declarations own no value; they
// are referenced by name, and a name is the unit of invalidation in the
// available-expressions analysis.
type Decl struct {
	id   NodeID
	Kind DeclKind
	Type string // Stan type text, e.g. "real", "int<lower=0>", "vector[N]"
	Name string
}

// DeclSink receives declarations as they are constructed, so that a
// declaration mentioned anywhere in an expression is captured by the
// enclosing program without the front end having to thread it through.
// The builder installs itself as the current sink.
type DeclSink interface {
	RegisterDecl(*Decl)
}

var (
	sinkMu      sync.Mutex
	currentSink DeclSink
)

// SetSink installs s as the current declaration sink and returns a
// function that restores the previous one.
func SetSink(s DeclSink) (restore func()) {
	sinkMu.Lock()
	prev := currentSink
	currentSink = s
	sinkMu.Unlock()
	return func() {
		sinkMu.Lock()
		currentSink = prev
		sinkMu.Unlock()
	}
}

func notifySink(d *Decl) {
	sinkMu.Lock()
	s := currentSink
	sinkMu.Unlock()
	if s != nil {
		s.RegisterDecl(d)
	}
}

// NewDecl creates a declaration and registers it with the current sink.
func NewDecl(kind DeclKind, typ, name string) *Decl {
	d := &Decl{id: nextID(), Kind: kind, Type: typ, Name: name}
	notifySink(d)
	return d
}

// NewData declares a data variable.
func NewData(typ, name string) *Decl { return NewDecl(DataDecl, typ, name) }

// NewParam declares a model parameter.
func NewParam(typ, name string) *Decl { return NewDecl(ParamDecl, typ, name) }

// NewLocal declares a local variable.
func NewLocal(typ, name string) *Decl { return NewDecl(LocalDecl, typ, name) }

func (d *Decl) ID() NodeID     { return d.id }
func (d *Decl) String() string { return d.Type + " " + d.Name }

// Ref returns a reference expression to this declaration.
func (d *Decl) Ref() *RefExpr { return NewRef(d) }

// ConstExpr is a literal constant. Two constants are structurally equal
// when their literal text matches.
type ConstExpr struct {
	id    NodeID
	Value string
}

func NewConst(value string) *ConstExpr {
	return &ConstExpr{id: nextID(), Value: value}
}

func (c *ConstExpr) ID() NodeID     { return c.id }
func (c *ConstExpr) String() string { return c.Value }
func (c *ConstExpr) exprNode()      {}

// RefExpr references a declaration by identity of its name.
type RefExpr struct {
	id   NodeID
	Decl *Decl
}

func NewRef(d *Decl) *RefExpr {
	return &RefExpr{id: nextID(), Decl: d}
}

func (r *RefExpr) ID() NodeID     { return r.id }
func (r *RefExpr) String() string { return r.Decl.Name }
func (r *RefExpr) exprNode()      {}

// UnaryExpr applies a prefix operator to one operand.
type UnaryExpr struct {
	id      NodeID
	Op      string
	Operand Expr
}

func NewUnary(op string, operand Expr) *UnaryExpr {
	return &UnaryExpr{id: nextID(), Op: op, Operand: operand}
}

func (u *UnaryExpr) ID() NodeID     { return u.id }
func (u *UnaryExpr) String() string { return u.Op + "(" + u.Operand.String() + ")" }
func (u *UnaryExpr) exprNode()      {}

// BinaryExpr applies an infix operator to two operands.
type BinaryExpr struct {
	id    NodeID
	Op    string
	Left  Expr
	Right Expr
}

func NewBinary(left Expr, op string, right Expr) *BinaryExpr {
	return &BinaryExpr{id: nextID(), Op: op, Left: left, Right: right}
}

func (b *BinaryExpr) ID() NodeID { return b.id }
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}
func (b *BinaryExpr) exprNode() {}

// IndexExpr indexes into a container: x[i] or m[i, j].
type IndexExpr struct {
	id      NodeID
	Target  Expr
	Indices []Expr
}

func NewIndex(target Expr, indices ...Expr) *IndexExpr {
	return &IndexExpr{id: nextID(), Target: target, Indices: indices}
}

func (ix *IndexExpr) ID() NodeID { return ix.id }
func (ix *IndexExpr) String() string {
	parts := make([]string, len(ix.Indices))
	for i, idx := range ix.Indices {
		parts[i] = idx.String()
	}
	return ix.Target.String() + "[" + strings.Join(parts, ", ") + "]"
}
func (ix *IndexExpr) exprNode() {}

// SliceExpr takes a contiguous range of a container: x[low:high].
type SliceExpr struct {
	id     NodeID
	Target Expr
	Low    Expr
	High   Expr
}

func NewSlice(target, low, high Expr) *SliceExpr {
	return &SliceExpr{id: nextID(), Target: target, Low: low, High: high}
}

func (s *SliceExpr) ID() NodeID { return s.id }
func (s *SliceExpr) String() string {
	return s.Target.String() + "[" + s.Low.String() + ":" + s.High.String() + "]"
}
func (s *SliceExpr) exprNode() {}

// Block owns an ordered sequence of child statements.
type Block struct {
	id    NodeID
	Stmts []Stmt
}

func NewBlock(stmts ...Stmt) *Block {
	return &Block{id: nextID(), Stmts: stmts}
}

func (b *Block) ID() NodeID { return b.id }
func (b *Block) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for i, s := range b.Stmts {
		if i > 0 {
			out.WriteString("; ")
		}
		out.WriteString(s.String())
	}
	out.WriteString(" }")
	return out.String()
}
func (b *Block) stmtNode() {}

// Branch is one (condition, body) pair of a conditional. It is not a
// node itself; the owning CondStmt carries the identity.
type Branch struct {
	Cond Expr
	Body Stmt
}

// CondStmt is a conditional with an ordered list of branches and an
// optional default branch. The builder appends branches to a conditional
// it has already emitted while chained else-if syntax is being handled.
type CondStmt struct {
	id       NodeID
	Branches []Branch
	Default  Stmt // nil when there is no else branch
}

func NewCond(branches []Branch, def Stmt) *CondStmt {
	return &CondStmt{id: nextID(), Branches: branches, Default: def}
}

func (c *CondStmt) ID() NodeID { return c.id }
func (c *CondStmt) String() string {
	var out strings.Builder
	for i, br := range c.Branches {
		if i > 0 {
			out.WriteString(" else ")
		}
		out.WriteString("if (")
		out.WriteString(br.Cond.String())
		out.WriteString(") ")
		out.WriteString(br.Body.String())
	}
	if c.Default != nil {
		out.WriteString(" else ")
		out.WriteString(c.Default.String())
	}
	return out.String()
}
func (c *CondStmt) stmtNode() {}

// Assignment operators. OpAssign is the only operator CSE will use as a
// reuse source; the compound forms and the sampling operator read their
// left-hand side as well as write it.
const (
	OpAssign    = "="
	OpAddAssign = "+="
	OpSubAssign = "-="
	OpMulAssign = "*="
	OpDivAssign = "/="
	OpSample    = "~"
)

// AssignStmt assigns the value of Right to the declaration referenced by
// Left using Op.
type AssignStmt struct {
	id    NodeID
	Left  *RefExpr
	Op    string
	Right Expr
}

func NewAssign(left *RefExpr, op string, right Expr) *AssignStmt {
	return &AssignStmt{id: nextID(), Left: left, Op: op, Right: right}
}

func (a *AssignStmt) ID() NodeID { return a.id }
func (a *AssignStmt) String() string {
	return a.Left.String() + " " + a.Op + " " + a.Right.String() + ";"
}
func (a *AssignStmt) stmtNode() {}

// SetRight replaces the right-hand side in place. The statement keeps
// its identity, which the CSE bookkeeping depends on.
func (a *AssignStmt) SetRight(e Expr) { a.Right = e }

// DeclStmt introduces a local declaration at its position in a scope.
type DeclStmt struct {
	id   NodeID
	Decl *Decl
}

func NewDeclStmt(d *Decl) *DeclStmt {
	return &DeclStmt{id: nextID(), Decl: d}
}

func (d *DeclStmt) ID() NodeID     { return d.id }
func (d *DeclStmt) String() string { return d.Decl.String() + ";" }
func (d *DeclStmt) stmtNode()      {}

// ReturnStmt returns from a generated function. Value may be nil.
type ReturnStmt struct {
	id    NodeID
	Value Expr
}

func NewReturn(value Expr) *ReturnStmt {
	return &ReturnStmt{id: nextID(), Value: value}
}

func (r *ReturnStmt) ID() NodeID { return r.id }
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}
func (r *ReturnStmt) stmtNode() {}
