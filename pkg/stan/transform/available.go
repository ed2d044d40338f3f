package transform

import (
	"github.com/sambeau/chervil/pkg/stan/ast"
)

// IDSet is a set of statement identities.
type IDSet map[ast.NodeID]bool

func (s IDSet) clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = true
	}
	return out
}

// Analyzer computes, for every assignment in a statement tree, the set
// of prior assignments whose computed value is still guaranteed correct
// immediately before that assignment executes.
//
// This is a forward, must-flow dataflow analysis. The IR has no loop
// statement, so the tree has no back-edges and a single forward
// traversal is exact; the analysis is still written as an explicit
// transfer function plus a merge rule so that a future loop construct
// has exactly one place to hook a fixpoint iteration into.
type Analyzer struct {
	stmts  map[ast.NodeID]ast.Stmt
	before map[ast.NodeID]IDSet
}

// NewAnalyzer runs the analysis over root. stmts maps every statement
// identity in the tree to its statement; the caller builds it once per
// pass invocation.
func NewAnalyzer(root ast.Stmt, stmts map[ast.NodeID]ast.Stmt) *Analyzer {
	a := &Analyzer{
		stmts:  stmts,
		before: make(map[ast.NodeID]IDSet),
	}
	a.flow(root, make(IDSet))
	return a
}

// Lookup returns the available set valid immediately before s executes.
// Only assignments have recorded program points; other statements return
// nil.
func (a *Analyzer) Lookup(s ast.Stmt) IDSet {
	return a.before[s.ID()]
}

// flow propagates the available set through s and returns the set valid
// immediately after it.
func (a *Analyzer) flow(s ast.Stmt, in IDSet) IDSet {
	switch n := s.(type) {
	case *ast.Block:
		for _, c := range n.Stmts {
			in = a.flow(c, in)
		}
		return in

	case *ast.CondStmt:
		// An expression is available after the conditional only if
		// every path out of it guarantees the expression. A missing
		// default branch is an empty path that changes nothing, so it
		// contributes the incoming set.
		out := a.flow(n.Branches[0].Body, in.clone())
		for _, br := range n.Branches[1:] {
			out = intersect(out, a.flow(br.Body, in.clone()))
		}
		if n.Default != nil {
			out = intersect(out, a.flow(n.Default, in.clone()))
		} else {
			out = intersect(out, in)
		}
		return out

	case *ast.AssignStmt:
		return a.transfer(n, in)

	default:
		// Declarations and returns neither compute nor invalidate
		// anything.
		return in
	}
}

// transfer records the program point before the assignment, then kills
// every availability the assignment invalidates and adds the assignment
// itself. Writing a declaration invalidates a prior assignment both when
// that assignment wrote the same declaration (its left-hand side no
// longer holds its computed value) and when its right-hand side reads
// the declaration (its computed value is stale).
func (a *Analyzer) transfer(n *ast.AssignStmt, in IDSet) IDSet {
	a.before[n.ID()] = in.clone()

	target := n.Left.Decl.Name
	out := in.clone()
	for id := range out {
		prior, ok := a.stmts[id].(*ast.AssignStmt)
		if !ok {
			continue
		}
		if prior.Left.Decl.Name == target || reads(prior.Right, target) {
			delete(out, id)
		}
	}
	out[n.ID()] = true
	return out
}

func intersect(a, b IDSet) IDSet {
	out := make(IDSet)
	for id := range a {
		if b[id] {
			out[id] = true
		}
	}
	return out
}

// reads reports whether e references the declaration named name.
func reads(e ast.Expr, name string) bool {
	switch n := e.(type) {
	case *ast.RefExpr:
		return n.Decl.Name == name
	case *ast.UnaryExpr:
		return reads(n.Operand, name)
	case *ast.BinaryExpr:
		return reads(n.Left, name) || reads(n.Right, name)
	case *ast.IndexExpr:
		if reads(n.Target, name) {
			return true
		}
		for _, ix := range n.Indices {
			if reads(ix, name) {
				return true
			}
		}
		return false
	case *ast.SliceExpr:
		return reads(n.Target, name) || reads(n.Low, name) || reads(n.High, name)
	default:
		return false
	}
}
