// Package builder accumulates statements emitted by front-end code into
// a single nested statement tree reflecting lexical scoping, and
// collects every declaration, function, and transform block referenced
// along the way into one Program.
package builder

import (
	"fmt"

	"github.com/sambeau/chervil/pkg/stan/ast"
)

// Combine folds the statements of a closed scope into the single
// statement that replaces them in the enclosing scope.
type Combine func([]ast.Stmt) ast.Stmt

// WrapBlock is the usual combinator: wrap the scope's statements in a
// block.
func WrapBlock(stmts []ast.Stmt) ast.Stmt {
	return ast.NewBlock(stmts...)
}

// Builder holds a stack of statement buffers, one per open scope. A new
// builder installs itself as the current declaration sink, so
// declarations constructed while it is live are registered with it
// automatically; Program releases the sink again.
type Builder struct {
	stack [][]ast.Stmt

	dataOrder  []*ast.Decl
	paramOrder []*ast.Decl
	seenDecls  map[string]bool

	functions []*ast.Function
	seenFns   map[string]bool

	tdata   []*ast.Transform
	tparams []*ast.Transform
	gqs     []*ast.Transform
	seenTfs map[string]bool

	restoreSink func()
	closed      bool
}

// New creates a builder with a single open top-level scope.
func New() *Builder {
	b := &Builder{
		stack:     [][]ast.Stmt{nil},
		seenDecls: make(map[string]bool),
		seenFns:   make(map[string]bool),
		seenTfs:   make(map[string]bool),
	}
	b.restoreSink = ast.SetSink(b)
	return b
}

// RegisterDecl records a data or parameter declaration, de-duplicated by
// name. Locals are scoped to their statement and are not collected
// globally. Implements ast.DeclSink.
func (b *Builder) RegisterDecl(d *ast.Decl) {
	if d == nil || d.Kind == ast.LocalDecl {
		return
	}
	if b.seenDecls[d.Name] {
		return
	}
	b.seenDecls[d.Name] = true
	switch d.Kind {
	case ast.DataDecl:
		b.dataOrder = append(b.dataOrder, d)
	case ast.ParamDecl:
		b.paramOrder = append(b.paramOrder, d)
	}
}

// Enter opens a nested scope: the body of a conditional branch or any
// other delimited region.
func (b *Builder) Enter() {
	b.stack = append(b.stack, nil)
}

// Leave closes the current scope, folds its statements with combine, and
// appends the result to the enclosing scope. Calling Leave with only the
// top-level scope open is a programming error and panics.
func (b *Builder) Leave(combine Combine) {
	if len(b.stack) < 2 {
		panic("builder: Leave called with no open scope")
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.Append(combine(top))
}

// HandleElseIf closes the just-accumulated branch scope and patches the
// previously emitted conditional with one more (condition, body) branch.
// This lets chained conditionals be built without lookahead.
func (b *Builder) HandleElseIf(cond ast.Expr) {
	c, body := b.popBranch("HandleElseIf")
	if c.Default != nil {
		panic("builder: else-if after else")
	}
	c.Branches = append(c.Branches, ast.Branch{Cond: cond, Body: body})
}

// HandleElse closes the just-accumulated branch scope and installs it as
// the previously emitted conditional's default branch.
func (b *Builder) HandleElse() {
	c, body := b.popBranch("HandleElse")
	if c.Default != nil {
		panic("builder: conditional already has an else branch")
	}
	c.Default = body
}

// popBranch pops the open branch buffer and the trailing conditional of
// the enclosing buffer.
func (b *Builder) popBranch(op string) (*ast.CondStmt, ast.Stmt) {
	if len(b.stack) < 2 {
		panic("builder: " + op + " called with no open scope")
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	body := WrapBlock(top)

	enclosing := b.stack[len(b.stack)-1]
	if len(enclosing) == 0 {
		panic("builder: " + op + " without a preceding conditional")
	}
	last := enclosing[len(enclosing)-1]
	c, ok := last.(*ast.CondStmt)
	if !ok {
		panic(fmt.Sprintf("builder: %s follows %T, want conditional", op, last))
	}
	return c, body
}

// Append adds a statement at the tail of the current scope, in execution
// order, and registers every declaration the statement mentions.
func (b *Builder) Append(s ast.Stmt) {
	b.collectDecls(s)
	i := len(b.stack) - 1
	b.stack[i] = append(b.stack[i], s)
}

// Insert adds a statement at the head of the current scope. Used for
// declarations, which must run before the other statements of their
// scope.
func (b *Builder) Insert(s ast.Stmt) {
	b.collectDecls(s)
	i := len(b.stack) - 1
	b.stack[i] = append([]ast.Stmt{s}, b.stack[i]...)
}

// AddFunction records a generated function, de-duplicated by name. A
// newly added function has its dependent declarations merged in
// transitively before the function itself is recorded.
func (b *Builder) AddFunction(f *ast.Function) {
	if f == nil || b.seenFns[f.Name] {
		return
	}
	b.seenFns[f.Name] = true
	b.collectDecls(f.Body)
	b.functions = append(b.functions, f)
}

// AddTransformedData records a transformed-data block, de-duplicated by
// its declaration name.
func (b *Builder) AddTransformedData(t *ast.Transform) {
	b.addTransform(&b.tdata, t)
}

// AddTransformedParameter records a transformed-parameter block,
// de-duplicated by its declaration name.
func (b *Builder) AddTransformedParameter(t *ast.Transform) {
	b.addTransform(&b.tparams, t)
}

// AddGeneratedQuantity records a generated-quantity block, de-duplicated
// by its declaration name.
func (b *Builder) AddGeneratedQuantity(t *ast.Transform) {
	b.addTransform(&b.gqs, t)
}

func (b *Builder) addTransform(dst *[]*ast.Transform, t *ast.Transform) {
	if t == nil || t.Decl == nil || b.seenTfs[t.Decl.Name] {
		return
	}
	b.seenTfs[t.Decl.Name] = true
	b.collectDecls(t.Body)
	*dst = append(*dst, t)
}

// Program closes the builder and assembles the Program aggregate. It is
// only valid when exactly one scope remains open.
func (b *Builder) Program() (*ast.Program, error) {
	if b.closed {
		return nil, fmt.Errorf("builder: Program called twice")
	}
	if len(b.stack) != 1 {
		return nil, fmt.Errorf("builder: %d scopes still open", len(b.stack)-1)
	}
	b.closed = true
	if b.restoreSink != nil {
		b.restoreSink()
		b.restoreSink = nil
	}
	return &ast.Program{
		Data:                  b.dataOrder,
		Parameters:            b.paramOrder,
		Functions:             b.functions,
		TransformedData:       b.tdata,
		TransformedParameters: b.tparams,
		GeneratedQuantities:   b.gqs,
		Model:                 ast.NewBlock(b.stack[0]...),
	}, nil
}

// collectDecls walks a statement tree and registers every declaration it
// mentions, so declarations created before the builder existed are still
// captured.
func (b *Builder) collectDecls(s ast.Stmt) {
	switch n := s.(type) {
	case nil:
	case *ast.Block:
		for _, c := range n.Stmts {
			b.collectDecls(c)
		}
	case *ast.CondStmt:
		for _, br := range n.Branches {
			b.collectExprDecls(br.Cond)
			b.collectDecls(br.Body)
		}
		if n.Default != nil {
			b.collectDecls(n.Default)
		}
	case *ast.AssignStmt:
		b.collectExprDecls(n.Left)
		b.collectExprDecls(n.Right)
	case *ast.DeclStmt:
		b.RegisterDecl(n.Decl)
	case *ast.ReturnStmt:
		b.collectExprDecls(n.Value)
	}
}

func (b *Builder) collectExprDecls(e ast.Expr) {
	switch n := e.(type) {
	case nil:
	case *ast.RefExpr:
		b.RegisterDecl(n.Decl)
	case *ast.UnaryExpr:
		b.collectExprDecls(n.Operand)
	case *ast.BinaryExpr:
		b.collectExprDecls(n.Left)
		b.collectExprDecls(n.Right)
	case *ast.IndexExpr:
		b.collectExprDecls(n.Target)
		for _, ix := range n.Indices {
			b.collectExprDecls(ix)
		}
	case *ast.SliceExpr:
		b.collectExprDecls(n.Target)
		b.collectExprDecls(n.Low)
		b.collectExprDecls(n.High)
	}
}
