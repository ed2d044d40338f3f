// Package transform holds the IR passes that run between the builder and
// the code generator: structural simplification and common subexpression
// elimination driven by an available-expressions analysis.
package transform

import (
	"github.com/sambeau/chervil/pkg/stan/ast"
)

// Simplify normalizes a statement tree bottom-up:
//
//   - a block whose sole child is itself a block is replaced by that
//     child, repeatedly, until no further flattening applies;
//   - a conditional whose every branch body is empty and which has no
//     default branch is replaced by an empty block.
//
// Children are simplified before the parent is examined, since emptying
// a child can newly qualify the parent for the same rules. Surviving
// nodes keep their identities.
func Simplify(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.Block:
		for i, c := range n.Stmts {
			n.Stmts[i] = Simplify(c)
		}
		for len(n.Stmts) == 1 {
			inner, ok := n.Stmts[0].(*ast.Block)
			if !ok {
				break
			}
			n = inner
		}
		return n

	case *ast.CondStmt:
		for i := range n.Branches {
			n.Branches[i].Body = Simplify(n.Branches[i].Body)
		}
		if n.Default != nil {
			n.Default = Simplify(n.Default)
		}
		if n.Default == nil && allBranchesEmpty(n) {
			return ast.NewBlock()
		}
		return n

	default:
		return s
	}
}

// SimplifyProgram simplifies every top-level statement tree of p.
func SimplifyProgram(p *ast.Program) {
	for _, f := range p.Functions {
		f.Body = Simplify(f.Body)
	}
	for _, t := range p.TransformedData {
		t.Body = Simplify(t.Body)
	}
	for _, t := range p.TransformedParameters {
		t.Body = Simplify(t.Body)
	}
	for _, t := range p.GeneratedQuantities {
		t.Body = Simplify(t.Body)
	}
	if p.Model != nil {
		p.Model = Simplify(p.Model)
	}
}

func allBranchesEmpty(c *ast.CondStmt) bool {
	for _, br := range c.Branches {
		blk, ok := br.Body.(*ast.Block)
		if !ok || len(blk.Stmts) > 0 {
			return false
		}
	}
	return true
}
