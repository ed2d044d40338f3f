package runner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sambeau/chervil/pkg/stan/ast"
	"github.com/sambeau/chervil/pkg/stan/codegen"
)

// Compile emits Stan source for the program, content-addresses it in
// the model cache, and builds the executable through the external
// CmdStan make target. An executable newer than its unchanged source is
// reused without rebuilding.
func (r *Runner) Compile(ctx context.Context, p *ast.Program) (*CompiledModel, error) {
	gen := &codegen.Stan{}
	src, err := gen.Generate(p)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(src))
	hash := hex.EncodeToString(sum[:])

	modelDir := filepath.Join(r.cacheDir, "models")
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return nil, fmt.Errorf("runner: create model dir: %w", err)
	}
	stanFile := filepath.Join(modelDir, "model-"+hash+".stan")
	if err := writeIfMissing(stanFile, src); err != nil {
		return nil, err
	}

	exe := strings.TrimSuffix(stanFile, ".stan")
	if upToDate(exe, stanFile) {
		r.log.Debug().Str("model", shortHash(hash)).Msg("model executable up to date")
		return &CompiledModel{Exe: exe, Program: p, runner: r}, nil
	}

	if r.cmdStanHome == "" {
		return nil, fmt.Errorf("runner: cmdstan_home is not configured (set CMDSTAN or cmdstan_home)")
	}
	cmd := exec.CommandContext(ctx, "make", exe)
	cmd.Dir = r.cmdStanHome
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("runner: compile model %s: %w\n%s", shortHash(hash), err, out.String())
	}
	r.log.Info().Str("model", shortHash(hash)).Msg("compiled model")

	return &CompiledModel{Exe: exe, Program: p, runner: r}, nil
}

// writeIfMissing writes content to path through a temp file and rename,
// unless a file of that name already exists; names are content hashes,
// so an existing file is already correct.
func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "stan-*.tmp")
	if err != nil {
		return fmt.Errorf("runner: create temp file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("runner: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("runner: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("runner: move into place: %w", err)
	}
	return nil
}

func upToDate(exe, src string) bool {
	exeInfo, err := os.Stat(exe)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	return !exeInfo.ModTime().Before(srcInfo.ModTime())
}
