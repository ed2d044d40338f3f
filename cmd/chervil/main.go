// Command chervil inspects a Chervil cache and run history. The model
// builder itself is a library; this tool covers the housekeeping around
// it: listing and pruning the content-addressed cache, and showing the
// run registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sambeau/chervil/config"
	"github.com/sambeau/chervil/pkg/stan/runner"
)

// Version is set at build time via -ldflags
var Version = "0.3.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("chervil", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		showVersion = flags.Bool("version", false, "Show version")
	)
	flags.Usage = func() { printUsage(stderr, flags) }
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "chervil version %s\n", Version)
		return nil
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr, flags)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	switch rest[0] {
	case "cache":
		return cacheCommand(cfg, rest[1:], stdout)
	case "history":
		return historyCommand(cfg, rest[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: chervil [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  cache ls            List cache entries")
	fmt.Fprintln(w, "  cache prune -age D  Remove cache entries older than D (e.g. 720h)")
	fmt.Fprintln(w, "  history [-n N]      Show recent runs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	flags.PrintDefaults()
}

func cacheCommand(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("cache: want ls or prune")
	}
	switch args[0] {
	case "ls":
		return cacheList(cfg.CacheDir, stdout)
	case "prune":
		flags := flag.NewFlagSet("cache prune", flag.ContinueOnError)
		age := flags.Duration("age", 30*24*time.Hour, "Remove entries older than this")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		return cachePrune(cfg.CacheDir, *age, stdout)
	default:
		return fmt.Errorf("cache: unknown subcommand %q", args[0])
	}
}

func cacheList(dir string, stdout io.Writer) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Fprintln(stdout, "cache is empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		fmt.Fprintf(stdout, "%10d  %s  %s\n", info.Size(),
			info.ModTime().Format("2006-01-02 15:04"), e.Name())
	}
	fmt.Fprintf(stdout, "total %d bytes\n", total)
	return nil
}

func cachePrune(dir string, age time.Duration, stdout io.Writer) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	fmt.Fprintf(stdout, "removed %d entries\n", removed)
	return nil
}

func historyCommand(cfg *config.Config, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := flags.Int("n", 20, "Number of runs to show")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if cfg.History == "" {
		return fmt.Errorf("history: no history path configured")
	}
	h, err := runner.OpenHistory(cfg.History)
	if err != nil {
		return err
	}
	defer h.Close()

	recs, err := h.Recent(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(stdout, "no recorded runs")
		return nil
	}
	for _, rec := range recs {
		fmt.Fprintf(stdout, "%s  %12.12s  seed=%-12d %d/%d chains  %s  %s\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"), rec.RunHash, rec.BaseSeed,
			rec.Succeeded, rec.Chains, rec.Duration.Round(time.Millisecond), rec.Method)
	}
	return nil
}
