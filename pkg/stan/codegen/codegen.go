// Package codegen turns a finished, transformed Program into Stan source
// text ready for the external CmdStan compiler.
package codegen

import (
	"fmt"
	"strings"

	"github.com/sambeau/chervil/pkg/stan/ast"
)

// Generator is the contract the runner consumes: a simplified, CSE'd
// program in, target-language source text out.
type Generator interface {
	Generate(p *ast.Program) (string, error)
}

// Stan is the default Generator, emitting Stan source with one block per
// program section.
type Stan struct {
	Indent string // defaults to two spaces
}

func (g *Stan) indent() string {
	if g.Indent == "" {
		return "  "
	}
	return g.Indent
}

func (g *Stan) Generate(p *ast.Program) (string, error) {
	if p == nil || p.Model == nil {
		return "", fmt.Errorf("codegen: program has no model body")
	}
	var out strings.Builder

	if len(p.Functions) > 0 {
		out.WriteString("functions {\n")
		for _, f := range p.Functions {
			g.writeFunction(&out, f)
		}
		out.WriteString("}\n")
	}

	g.writeDecls(&out, "data", p.Data)
	g.writeTransforms(&out, "transformed data", p.TransformedData)
	g.writeDecls(&out, "parameters", p.Parameters)
	g.writeTransforms(&out, "transformed parameters", p.TransformedParameters)

	out.WriteString("model {\n")
	g.writeBody(&out, p.Model, 1)
	out.WriteString("}\n")

	g.writeTransforms(&out, "generated quantities", p.GeneratedQuantities)

	return out.String(), nil
}

func (g *Stan) writeDecls(out *strings.Builder, block string, decls []*ast.Decl) {
	if len(decls) == 0 {
		return
	}
	out.WriteString(block + " {\n")
	for _, d := range decls {
		out.WriteString(g.indent() + d.String() + ";\n")
	}
	out.WriteString("}\n")
}

func (g *Stan) writeTransforms(out *strings.Builder, block string, ts []*ast.Transform) {
	if len(ts) == 0 {
		return
	}
	out.WriteString(block + " {\n")
	for _, t := range ts {
		out.WriteString(g.indent() + t.Decl.String() + ";\n")
	}
	for _, t := range ts {
		if t.Body != nil {
			g.writeBody(out, t.Body, 1)
		}
	}
	out.WriteString("}\n")
}

func (g *Stan) writeFunction(out *strings.Builder, f *ast.Function) {
	ret := f.ReturnType
	if ret == "" {
		ret = "void"
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	out.WriteString(g.indent() + ret + " " + f.Name + "(" + strings.Join(args, ", ") + ") {\n")
	g.writeBody(out, f.Body, 2)
	out.WriteString(g.indent() + "}\n")
}

// writeBody emits the children of a block without braces of its own; any
// other statement is emitted directly.
func (g *Stan) writeBody(out *strings.Builder, s ast.Stmt, depth int) {
	if blk, ok := s.(*ast.Block); ok {
		for _, c := range blk.Stmts {
			g.writeStmt(out, c, depth)
		}
		return
	}
	g.writeStmt(out, s, depth)
}

func (g *Stan) writeStmt(out *strings.Builder, s ast.Stmt, depth int) {
	pad := strings.Repeat(g.indent(), depth)
	switch n := s.(type) {
	case *ast.Block:
		out.WriteString(pad + "{\n")
		for _, c := range n.Stmts {
			g.writeStmt(out, c, depth+1)
		}
		out.WriteString(pad + "}\n")

	case *ast.CondStmt:
		for i, br := range n.Branches {
			if i == 0 {
				out.WriteString(pad + "if (" + br.Cond.String() + ") {\n")
			} else {
				out.WriteString(pad + "} else if (" + br.Cond.String() + ") {\n")
			}
			g.writeBody(out, br.Body, depth+1)
		}
		if n.Default != nil {
			out.WriteString(pad + "} else {\n")
			g.writeBody(out, n.Default, depth+1)
		}
		out.WriteString(pad + "}\n")

	case *ast.AssignStmt:
		out.WriteString(pad + n.Left.String() + " " + n.Op + " " + n.Right.String() + ";\n")

	case *ast.DeclStmt:
		out.WriteString(pad + n.Decl.String() + ";\n")

	case *ast.ReturnStmt:
		if n.Value == nil {
			out.WriteString(pad + "return;\n")
		} else {
			out.WriteString(pad + "return " + n.Value.String() + ";\n")
		}
	}
}
