// Package stan is the public API for embedding the Chervil model
// builder: it ties the builder, the transform passes, and the runner
// into one pipeline.
package stan

import (
	"context"

	"github.com/sambeau/chervil/pkg/stan/ast"
	"github.com/sambeau/chervil/pkg/stan/builder"
	"github.com/sambeau/chervil/pkg/stan/codegen"
	"github.com/sambeau/chervil/pkg/stan/runner"
	"github.com/sambeau/chervil/pkg/stan/transform"
)

// Build closes the builder and runs the transformation pipeline:
// structural simplification, then common subexpression elimination.
func Build(b *builder.Builder) (*ast.Program, error) {
	p, err := b.Program()
	if err != nil {
		return nil, err
	}
	transform.SimplifyProgram(p)
	transform.EliminateCommonSubexpressions(p)
	return p, nil
}

// Generate emits Stan source for an already-transformed program using
// the default generator.
func Generate(p *ast.Program) (string, error) {
	gen := &codegen.Stan{}
	return gen.Generate(p)
}

// Compile builds the program and compiles it into a runnable model.
func Compile(ctx context.Context, r *runner.Runner, b *builder.Builder) (*runner.CompiledModel, error) {
	p, err := Build(b)
	if err != nil {
		return nil, err
	}
	return r.Compile(ctx, p)
}
