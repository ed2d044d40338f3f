package ast

import (
	"testing"
)

// TestNodeIDsAreUniqueAndMonotonic checks that construction hands out
// fresh, increasing identities.
func TestNodeIDsAreUniqueAndMonotonic(t *testing.T) {
	a := NewConst("1")
	b := NewConst("1")
	c := NewBinary(a, "+", b)

	if a.ID() == b.ID() {
		t.Errorf("two constants share identity %d", a.ID())
	}
	if !(a.ID() < b.ID() && b.ID() < c.ID()) {
		t.Errorf("identities not monotonic: %d, %d, %d", a.ID(), b.ID(), c.ID())
	}
}

type recordingSink struct {
	decls []*Decl
}

func (s *recordingSink) RegisterDecl(d *Decl) { s.decls = append(s.decls, d) }

// TestDeclConstructionRegistersWithSink checks the side-effecting
// registration that lets a builder capture declarations mentioned
// anywhere in an expression.
func TestDeclConstructionRegistersWithSink(t *testing.T) {
	sink := &recordingSink{}
	restore := SetSink(sink)

	n := NewData("int", "N")
	mu := NewParam("real", "mu")
	restore()

	// After restore, constructions no longer reach the sink.
	NewLocal("real", "tmp")

	if len(sink.decls) != 2 {
		t.Fatalf("sink saw %d declarations, want 2", len(sink.decls))
	}
	if sink.decls[0] != n || sink.decls[1] != mu {
		t.Errorf("sink saw wrong declarations: %v", sink.decls)
	}
}

func TestExpressionStrings(t *testing.T) {
	x := NewDecl(DataDecl, "real", "x")
	v := NewDecl(DataDecl, "vector[3]", "v")

	tests := []struct {
		expr Expr
		want string
	}{
		{NewConst("1.5"), "1.5"},
		{x.Ref(), "x"},
		{NewUnary("-", x.Ref()), "-(x)"},
		{NewBinary(x.Ref(), "+", NewConst("2")), "(x + 2)"},
		{NewIndex(v.Ref(), NewConst("1")), "v[1]"},
		{NewIndex(v.Ref(), NewConst("1"), NewConst("2")), "v[1, 2]"},
		{NewSlice(v.Ref(), NewConst("1"), NewConst("2")), "v[1:2]"},
	}
	for _, tt := range tests {
		if got := tt.expr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStatementStrings(t *testing.T) {
	x := NewDecl(LocalDecl, "real", "x")
	assign := NewAssign(x.Ref(), OpAssign, NewConst("1"))

	tests := []struct {
		stmt Stmt
		want string
	}{
		{assign, "x = 1;"},
		{NewAssign(x.Ref(), OpSample, NewConst("0")), "x ~ 0;"},
		{NewDeclStmt(x), "real x;"},
		{NewReturn(nil), "return;"},
		{NewReturn(x.Ref()), "return x;"},
		{NewBlock(assign), "{ x = 1; }"},
	}
	for _, tt := range tests {
		if got := tt.stmt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCondString(t *testing.T) {
	x := NewDecl(LocalDecl, "real", "x")
	cond := NewCond([]Branch{
		{Cond: NewBinary(x.Ref(), ">", NewConst("0")), Body: NewBlock(NewAssign(x.Ref(), OpAssign, NewConst("1")))},
	}, NewBlock())

	want := "if ((x > 0)) { x = 1; } else {  }"
	if got := cond.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
