package transform

import (
	"testing"

	"github.com/sambeau/chervil/pkg/stan/ast"
)

func analyze(root ast.Stmt) *Analyzer {
	stmts := make(map[ast.NodeID]ast.Stmt)
	collectStmts(root, stmts)
	return NewAnalyzer(root, stmts)
}

func TestEarlierAssignmentIsAvailable(t *testing.T) {
	a := ast.NewData("real", "a")
	b := ast.NewData("real", "b")
	x := ast.NewLocal("real", "x")
	y := ast.NewLocal("real", "y")

	first := ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewBinary(a.Ref(), "+", b.Ref()))
	second := ast.NewAssign(y.Ref(), ast.OpAssign, ast.NewBinary(a.Ref(), "+", b.Ref()))
	root := ast.NewBlock(first, second)

	av := analyze(root)
	if got := av.Lookup(first); len(got) != 0 {
		t.Errorf("available before first = %v, want empty", got)
	}
	if got := av.Lookup(second); !got[first.ID()] {
		t.Errorf("first assignment not available before second: %v", got)
	}
}

// TestReassigningAnInputKills: writing a declaration invalidates every
// prior assignment whose right-hand side reads it.
func TestReassigningAnInputKills(t *testing.T) {
	a := ast.NewData("real", "a")
	b := ast.NewData("real", "b")
	x := ast.NewLocal("real", "x")
	aVar := ast.NewLocal("real", "a") // same name as the data decl
	y := ast.NewLocal("real", "y")

	first := ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewBinary(a.Ref(), "+", b.Ref()))
	clobber := ast.NewAssign(aVar.Ref(), ast.OpAssign, ast.NewConst("5"))
	third := ast.NewAssign(y.Ref(), ast.OpAssign, ast.NewBinary(a.Ref(), "+", b.Ref()))
	root := ast.NewBlock(first, clobber, third)

	av := analyze(root)
	got := av.Lookup(third)
	if got[first.ID()] {
		t.Errorf("stale computation of a + b still available after a changed")
	}
	if !got[clobber.ID()] {
		t.Errorf("the clobbering assignment itself should be available")
	}
}

// TestReassigningTheTargetKills: a second write to the same declaration
// invalidates the first, whose target no longer holds its value.
func TestReassigningTheTargetKills(t *testing.T) {
	a := ast.NewData("real", "a")
	x := ast.NewLocal("real", "x")
	y := ast.NewLocal("real", "y")

	first := ast.NewAssign(x.Ref(), ast.OpAssign, a.Ref())
	second := ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewConst("0"))
	third := ast.NewAssign(y.Ref(), ast.OpAssign, ast.NewConst("1"))
	root := ast.NewBlock(first, second, third)

	av := analyze(root)
	got := av.Lookup(third)
	if got[first.ID()] {
		t.Errorf("overwritten assignment still available")
	}
	if !got[second.ID()] {
		t.Errorf("latest assignment to x missing: %v", got)
	}
}

// TestConditionalJoinIntersects: after a conditional, an expression is
// available only if every path guarantees it; a missing default branch
// is an implicit empty path.
func TestConditionalJoinIntersects(t *testing.T) {
	a := ast.NewData("real", "a")
	c := ast.NewData("int", "c")
	x := ast.NewLocal("real", "x")
	y := ast.NewLocal("real", "y")
	z := ast.NewLocal("real", "z")

	before := ast.NewAssign(x.Ref(), ast.OpAssign, a.Ref())
	inBranch := ast.NewAssign(y.Ref(), ast.OpAssign, a.Ref())
	after := ast.NewAssign(z.Ref(), ast.OpAssign, ast.NewConst("1"))

	cond := ast.NewCond([]ast.Branch{
		{Cond: c.Ref(), Body: ast.NewBlock(inBranch)},
	}, nil)
	root := ast.NewBlock(before, cond, after)

	av := analyze(root)
	got := av.Lookup(after)
	if !got[before.ID()] {
		t.Errorf("assignment before the conditional lost at the join")
	}
	if got[inBranch.ID()] {
		t.Errorf("branch-only assignment available after the join")
	}
}

func TestDefaultBranchParticipatesInJoin(t *testing.T) {
	a := ast.NewData("real", "a")
	c := ast.NewData("int", "c")
	x := ast.NewLocal("real", "x")
	z := ast.NewLocal("real", "z")

	// The then-branch reassigns x; the else branch does not. The
	// pre-conditional x is killed on one path, so it must not survive
	// the join.
	before := ast.NewAssign(x.Ref(), ast.OpAssign, a.Ref())
	clobber := ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewConst("0"))
	after := ast.NewAssign(z.Ref(), ast.OpAssign, ast.NewConst("1"))

	cond := ast.NewCond([]ast.Branch{
		{Cond: c.Ref(), Body: ast.NewBlock(clobber)},
	}, ast.NewBlock())
	root := ast.NewBlock(before, cond, after)

	av := analyze(root)
	got := av.Lookup(after)
	if got[before.ID()] {
		t.Errorf("killed-on-one-path assignment survived the join")
	}
}
