package codegen

import (
	"strings"
	"testing"

	"github.com/sambeau/chervil/pkg/stan/ast"
)

func TestGenerateFullProgram(t *testing.T) {
	n := ast.NewData("int<lower=0>", "N")
	mu := ast.NewParam("real", "mu")
	tmp := ast.NewLocal("real", "tmp")

	model := ast.NewBlock(
		ast.NewDeclStmt(tmp),
		ast.NewAssign(tmp.Ref(), ast.OpAssign, ast.NewBinary(mu.Ref(), "*", n.Ref())),
		ast.NewAssign(mu.Ref(), ast.OpSample, ast.NewConst("normal(0, 1)")),
	)
	p := &ast.Program{
		Data:       []*ast.Decl{n},
		Parameters: []*ast.Decl{mu},
		Model:      model,
	}

	got, err := (&Stan{}).Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := `data {
  int<lower=0> N;
}
parameters {
  real mu;
}
model {
  real tmp;
  tmp = (mu * N);
  mu ~ normal(0, 1);
}
`
	if got != want {
		t.Errorf("Generate =\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateConditionalChain(t *testing.T) {
	x := ast.NewLocal("real", "x")
	cond := ast.NewCond([]ast.Branch{
		{
			Cond: ast.NewBinary(x.Ref(), ">", ast.NewConst("0")),
			Body: ast.NewBlock(ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewConst("1"))),
		},
		{
			Cond: ast.NewBinary(x.Ref(), "<", ast.NewConst("0")),
			Body: ast.NewBlock(ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewConst("2"))),
		},
	}, ast.NewBlock(ast.NewAssign(x.Ref(), ast.OpAssign, ast.NewConst("3"))))

	p := &ast.Program{Model: ast.NewBlock(cond)}
	got, err := (&Stan{}).Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := `model {
  if ((x > 0)) {
    x = 1;
  } else if ((x < 0)) {
    x = 2;
  } else {
    x = 3;
  }
}
`
	if got != want {
		t.Errorf("Generate =\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateFunctionsAndTransforms(t *testing.T) {
	y := ast.NewData("real", "y")
	f := &ast.Function{
		Name:       "double_it",
		ReturnType: "real",
		Args:       []*ast.Decl{ast.NewLocal("real", "v")},
		Body:       ast.NewBlock(ast.NewReturn(ast.NewBinary(ast.NewConst("2"), "*", ast.NewConst("v")))),
	}
	mu2 := ast.NewLocal("real", "mu2")
	tf := &ast.Transform{
		Decl: mu2,
		Body: ast.NewBlock(ast.NewAssign(mu2.Ref(), ast.OpAssign, ast.NewBinary(y.Ref(), "*", y.Ref()))),
	}

	p := &ast.Program{
		Data:                  []*ast.Decl{y},
		Functions:             []*ast.Function{f},
		TransformedParameters: []*ast.Transform{tf},
		Model:                 ast.NewBlock(),
	}

	got, err := (&Stan{}).Generate(p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, fragment := range []string{
		"functions {\n  real double_it(real v) {\n    return (2 * v);\n  }\n}\n",
		"transformed parameters {\n  real mu2;\n  mu2 = (y * y);\n}\n",
		"model {\n}\n",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("output missing %q:\n%s", fragment, got)
		}
	}
}

func TestGenerateRequiresModel(t *testing.T) {
	if _, err := (&Stan{}).Generate(&ast.Program{}); err == nil {
		t.Errorf("Generate on a program without a model succeeded")
	}
	if _, err := (&Stan{}).Generate(nil); err == nil {
		t.Errorf("Generate(nil) succeeded")
	}
}
