package transform

import (
	"sort"

	"github.com/sambeau/chervil/pkg/stan/ast"
)

// cseState is the per-root working state of a CSE run: the identity map
// over every statement in the root, the set of statements already
// rewritten into references, and the availability analysis. It is built
// fresh for each top-level entry and discarded afterwards.
type cseState struct {
	root       ast.Stmt
	stmts      map[ast.NodeID]ast.Stmt
	eliminated IDSet
	avail      *Analyzer
}

// EliminateCommonSubexpressions rewrites, in every top-level statement
// tree of p, each assignment whose right-hand side duplicates an earlier
// still-valid computation into a direct reference to that computation's
// target.
func EliminateCommonSubexpressions(p *ast.Program) {
	for _, root := range p.Roots() {
		EliminateInStmt(root)
	}
}

// EliminateInStmt runs CSE over a single statement tree.
func EliminateInStmt(root ast.Stmt) {
	stmts := make(map[ast.NodeID]ast.Stmt)
	collectStmts(root, stmts)
	c := &cseState{
		root:       root,
		stmts:      stmts,
		eliminated: make(IDSet),
		avail:      NewAnalyzer(root, stmts),
	}
	c.visit(root)
}

// visit walks statements in their original structural order, so that
// availability reflects only prior computations.
func (c *cseState) visit(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		for _, child := range n.Stmts {
			c.visit(child)
		}
	case *ast.CondStmt:
		for _, br := range n.Branches {
			c.visit(br.Body)
		}
		if n.Default != nil {
			c.visit(n.Default)
		}
	case *ast.AssignStmt:
		c.visitAssign(n)
	}
}

func (c *cseState) visitAssign(a *ast.AssignStmt) {
	avail := c.avail.Lookup(a)
	if len(avail) == 0 {
		return
	}

	// Candidates in construction order, which matches program order for
	// statements built by the same front end, keeping rewrites
	// deterministic.
	ids := make([]ast.NodeID, 0, len(avail))
	for id := range avail {
		if !c.eliminated[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		prior, ok := c.stmts[id].(*ast.AssignStmt)
		if !ok || prior.Op != ast.OpAssign {
			// Only a plain assignment leaves its full right-hand value
			// in its target; compound and sampling forms do not.
			continue
		}
		if !SameValue(prior.Right, a.Right) {
			continue
		}
		a.SetRight(ast.NewRef(prior.Left.Decl))
		c.eliminated[a.ID()] = true
		return
	}
}

// collectStmts maps every statement identity in the tree to its
// statement. Eliminated assignments stay in the map; they are marked in
// the eliminated set, not removed, so later queries resolve through
// their rewritten form only by being skipped as candidates.
func collectStmts(s ast.Stmt, into map[ast.NodeID]ast.Stmt) {
	into[s.ID()] = s
	switch n := s.(type) {
	case *ast.Block:
		for _, c := range n.Stmts {
			collectStmts(c, into)
		}
	case *ast.CondStmt:
		for _, br := range n.Branches {
			collectStmts(br.Body, into)
		}
		if n.Default != nil {
			collectStmts(n.Default, into)
		}
	}
}

// commutativeOps are the binary operators whose operands may match
// swapped.
var commutativeOps = map[string]bool{
	"==": true,
	"!=": true,
	"+":  true,
	"*":  true,
	"&&": true,
	"||": true,
}

// SameValue reports structural equality of two expressions: same node
// shape with equal parts, with swapped operands permitted for
// commutative binary operators. Declaration references match by name,
// constants by literal value.
func SameValue(a, b ast.Expr) bool {
	switch x := a.(type) {
	case *ast.ConstExpr:
		y, ok := b.(*ast.ConstExpr)
		return ok && x.Value == y.Value

	case *ast.RefExpr:
		y, ok := b.(*ast.RefExpr)
		return ok && x.Decl.Name == y.Decl.Name

	case *ast.UnaryExpr:
		y, ok := b.(*ast.UnaryExpr)
		return ok && x.Op == y.Op && SameValue(x.Operand, y.Operand)

	case *ast.BinaryExpr:
		y, ok := b.(*ast.BinaryExpr)
		if !ok || x.Op != y.Op {
			return false
		}
		if SameValue(x.Left, y.Left) && SameValue(x.Right, y.Right) {
			return true
		}
		if commutativeOps[x.Op] {
			return SameValue(x.Left, y.Right) && SameValue(x.Right, y.Left)
		}
		return false

	case *ast.IndexExpr:
		y, ok := b.(*ast.IndexExpr)
		if !ok || len(x.Indices) != len(y.Indices) || !SameValue(x.Target, y.Target) {
			return false
		}
		for i := range x.Indices {
			if !SameValue(x.Indices[i], y.Indices[i]) {
				return false
			}
		}
		return true

	case *ast.SliceExpr:
		y, ok := b.(*ast.SliceExpr)
		return ok && SameValue(x.Target, y.Target) &&
			SameValue(x.Low, y.Low) && SameValue(x.High, y.High)
	}
	return false
}
