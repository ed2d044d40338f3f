package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sambeau/chervil/config"
	"github.com/sambeau/chervil/pkg/stan/ast"
)

func testProgram() *ast.Program {
	mu := ast.NewParam("real", "mu")
	return &ast.Program{
		Parameters: []*ast.Decl{mu},
		Model: ast.NewBlock(
			ast.NewAssign(mu.Ref(), ast.OpSample, ast.NewConst("normal(0, 1)")),
		),
	}
}

func TestCompileWritesContentAddressedSource(t *testing.T) {
	r := newTestRunner(t, func(cfg *config.Config) { cfg.CmdStanHome = "" })
	p := testProgram()

	// No CmdStan configured and no prebuilt executable: the source file
	// still lands in the model cache before compilation fails.
	if _, err := r.Compile(context.Background(), p); err == nil {
		t.Fatalf("Compile without cmdstan_home succeeded")
	}

	matches, _ := filepath.Glob(filepath.Join(r.CacheDir(), "models", "model-*.stan"))
	if len(matches) != 1 {
		t.Fatalf("model cache holds %d sources, want 1: %v", len(matches), matches)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read model source: %v", err)
	}
	if string(content) == "" || !filepath.IsAbs(matches[0]) {
		t.Errorf("model source empty or relative: %s", matches[0])
	}
}

func TestCompileReusesFreshExecutable(t *testing.T) {
	r := newTestRunner(t, func(cfg *config.Config) { cfg.CmdStanHome = "" })
	p := testProgram()

	ctx := context.Background()
	r.Compile(ctx, p) // writes the source, fails to build

	matches, _ := filepath.Glob(filepath.Join(r.CacheDir(), "models", "model-*.stan"))
	if len(matches) != 1 {
		t.Fatalf("model source missing")
	}
	exe := matches[0][:len(matches[0])-len(".stan")]
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("fake executable: %v", err)
	}
	now := time.Now()
	os.Chtimes(exe, now, now)

	m, err := r.Compile(ctx, p)
	if err != nil {
		t.Fatalf("Compile with fresh executable: %v", err)
	}
	if m.Exe != exe {
		t.Errorf("Exe = %q, want %q", m.Exe, exe)
	}
}

func TestWriteIfMissingDoesNotRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.stan")

	if err := writeIfMissing(path, "first"); err != nil {
		t.Fatalf("writeIfMissing: %v", err)
	}
	if err := writeIfMissing(path, "second"); err != nil {
		t.Fatalf("second writeIfMissing: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "first" {
		t.Errorf("existing file rewritten: %q", content)
	}
}

func TestUpToDate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "m.stan")
	exe := filepath.Join(dir, "m")
	os.WriteFile(src, []byte("model {}\n"), 0644)

	if upToDate(exe, src) {
		t.Errorf("missing executable reported up to date")
	}

	os.WriteFile(exe, []byte("bin"), 0755)
	newer := time.Now().Add(time.Hour)
	os.Chtimes(exe, newer, newer)
	if !upToDate(exe, src) {
		t.Errorf("newer executable reported stale")
	}

	os.Chtimes(src, newer.Add(time.Hour), newer.Add(time.Hour))
	if upToDate(exe, src) {
		t.Errorf("stale executable reported up to date")
	}
}
