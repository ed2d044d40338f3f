package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sambeau/chervil/pkg/stan/rdump"
)

// maxSeed is the largest seed the sampler accepts; per-chain seeds wrap
// modulo this value.
const maxSeed = math.MaxInt32

// RunRequest describes one multi-chain invocation of a compiled model.
type RunRequest struct {
	Data   map[string]rdump.Value
	Init   InitValue // nil for the sampler's own default initialization
	Chains int       // 0 uses the configured default
	Seed   int64     // <= 0 derives the base seed from the current time
	Method Method    // nil defaults to Sample{}

	NoCache bool // force re-execution even when cached outputs exist
}

// Run executes the request and aggregates the per-chain results. Chains
// run in parallel; a failing chain is logged and dropped while the rest
// of the run continues. Only one run at a time may proceed against the
// same compiled model.
func (m *CompiledModel) Run(ctx context.Context, req RunRequest) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.runner
	started := time.Now()

	chains := req.Chains
	if chains <= 0 {
		chains = r.defaults.Chains
	}
	if chains <= 0 {
		chains = 1
	}
	method := req.Method
	if method == nil {
		method = Sample{}
	}
	useCache := r.defaults.Cache && !req.NoCache

	dataPath, dataHash, err := rdump.WriteFile(r.cacheDir, "data", req.Data)
	if err != nil {
		return nil, fmt.Errorf("runner: write data file: %w", err)
	}
	initHash, initArg := "", ""
	if req.Init != nil {
		initHash, initArg, err = req.Init.prepare(r.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("runner: write init file: %w", err)
		}
	}
	hash := runHash(dataHash, initHash, method.Args())

	seed := req.Seed
	if seed <= 0 {
		seed = time.Now().UnixNano() % maxSeed
	}

	r.log.Debug().
		Str("run", shortHash(hash)).
		Int64("seed", seed).
		Int("chains", chains).
		Bool("cache", useCache).
		Msg("starting run")

	// One task per chain. Chains are embarrassingly parallel: file names
	// are keyed by run hash, base seed, and chain index, so tasks never
	// touch each other's files, and no coordination happens after
	// launch. Results keep launch order, not completion order.
	tables := make([]*table, chains)
	var wg sync.WaitGroup
	var sem chan struct{}
	if r.defaults.MaxParallel > 0 {
		sem = make(chan struct{}, r.defaults.MaxParallel)
	}
	for i := 0; i < chains; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			tables[idx] = m.runChain(ctx, chainSpec{
				runHash:  hash,
				baseSeed: seed,
				index:    idx,
				dataPath: dataPath,
				initArg:  initArg,
				method:   method,
				useCache: useCache,
			})
		}(i)
	}
	wg.Wait()

	res := &Result{Values: make(map[string][][]string)}
	succeeded := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		succeeded++
		if res.names == nil {
			res.names = t.names
		}
		for _, name := range t.names {
			res.Values[name] = append(res.Values[name], t.cols[name])
		}
	}

	if r.history != nil {
		rec := RunRecord{
			RunHash:   hash,
			BaseSeed:  seed,
			Chains:    chains,
			Succeeded: succeeded,
			Method:    strings.Join(method.Args(), " "),
			StartedAt: started,
			Duration:  time.Since(started),
		}
		if err := r.history.Record(ctx, rec); err != nil {
			r.log.Warn().Err(err).Msg("could not record run history")
		}
	}

	ev := r.log.Info()
	if succeeded == 0 {
		ev = r.log.Error()
	}
	ev.Str("run", shortHash(hash)).
		Int("chains", chains).
		Int("succeeded", succeeded).
		Dur("elapsed", time.Since(started)).
		Msg("run complete")

	return res, nil
}

type chainSpec struct {
	runHash  string
	baseSeed int64
	index    int
	dataPath string
	initArg  string
	method   Method
	useCache bool
}

// runChain executes one chain: reuse the cached output when it exists
// and decodes to a non-empty table, otherwise invoke the external
// sampler, parse its output, and move it into the cache. A nil return
// means the chain was dropped.
func (m *CompiledModel) runChain(ctx context.Context, spec chainSpec) *table {
	r := m.runner
	chainSeed := (spec.baseSeed + int64(spec.index)) % maxSeed
	outName := fmt.Sprintf("%s-%d-%d.csv", spec.runHash, spec.baseSeed, spec.index)
	outPath := filepath.Join(r.cacheDir, outName)

	if spec.useCache {
		if t := r.cachedTable(outPath); t != nil {
			r.log.Debug().Int("chain", spec.index).Str("file", outName).Msg("reusing cached chain")
			return t
		}
	}

	// The sampler writes to a partial file; the output only earns its
	// cache name after a clean exit and a successful parse.
	partial := outPath + ".partial"
	args := []string{
		"data", "file=" + spec.dataPath,
		"output", "file=" + partial,
		"random", fmt.Sprintf("seed=%d", chainSeed),
	}
	if spec.initArg != "" {
		args = append(args, "init="+spec.initArg)
	}
	args = append(args, spec.method.Args()...)

	cmd := exec.CommandContext(ctx, m.Exe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(partial)
		ev := r.log.Warn().Int("chain", spec.index).Int64("seed", chainSeed)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ev = ev.Int("exit", exitErr.ExitCode())
		} else {
			ev = ev.Err(err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			ev = ev.Str("stderr", msg)
		}
		ev.Msg("chain failed")
		return nil
	}

	t, err := parseOutputFile(partial)
	if err != nil {
		os.Remove(partial)
		r.log.Warn().Int("chain", spec.index).Err(err).Msg("chain output unusable")
		return nil
	}
	if err := os.Rename(partial, outPath); err != nil {
		// The chain itself succeeded; only caching is lost.
		r.log.Warn().Int("chain", spec.index).Err(err).Msg("could not cache chain output")
		return t
	}
	if r.defaults.Compress {
		r.compressOutput(outPath)
	}
	return t
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
