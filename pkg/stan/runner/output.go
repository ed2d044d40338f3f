package runner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// commentMarker prefixes the sampler's diagnostic lines, which are
// interleaved with the CSV rows and discarded during parsing.
const commentMarker = "#"

// table is one chain's parsed output: the header order plus one column
// of string-encoded draws per parameter.
type table struct {
	names []string
	cols  map[string][]string
}

// parseOutput reads the sampler's line-based output: comment lines are
// skipped, the first remaining line is the comma-separated header, and
// every subsequent line is one row of draws, transposed into columns.
// An output with no data rows is an error, never an empty success.
func parseOutput(r io.Reader) (*table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var t *table
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}
		fields := strings.Split(line, ",")
		if t == nil {
			t = &table{names: fields, cols: make(map[string][]string, len(fields))}
			continue
		}
		if len(fields) != len(t.names) {
			return nil, fmt.Errorf("row has %d values, header has %d", len(fields), len(t.names))
		}
		for i, v := range fields {
			t.cols[t.names[i]] = append(t.cols[t.names[i]], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("output has no header")
	}
	if len(t.cols[t.names[0]]) == 0 {
		return nil, fmt.Errorf("output has no draws")
	}
	return t, nil
}

func parseOutputFile(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseOutput(f)
}

// cachedTable returns the parsed cache entry for an output path, looking
// for both the plain and the gzip spelling. A missing, malformed, or
// empty file is a cache miss.
func (r *Runner) cachedTable(outPath string) *table {
	if t, err := parseOutputFile(outPath); err == nil {
		return t
	}
	f, err := os.Open(outPath + ".gz")
	if err != nil {
		return nil
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil
	}
	defer gz.Close()
	t, err := parseOutput(gz)
	if err != nil {
		return nil
	}
	return t
}

// compressOutput rewrites a cached output as <path>.gz. Compression is
// best effort; on any failure the plain file stays in place.
func (r *Runner) compressOutput(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	tmp, err := os.CreateTemp(r.cacheDir, "gz-*.tmp")
	if err != nil {
		return
	}
	gz := gzip.NewWriter(tmp)
	_, copyErr := io.Copy(gz, src)
	closeErr := gz.Close()
	if err := tmp.Close(); copyErr != nil || closeErr != nil || err != nil {
		os.Remove(tmp.Name())
		return
	}
	if err := os.Rename(tmp.Name(), path+".gz"); err != nil {
		os.Remove(tmp.Name())
		return
	}
	os.Remove(path)
	r.log.Debug().Str("file", path+".gz").Msg("compressed cached output")
}
